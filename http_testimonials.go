package vouch

import (
	"context"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// TestimonialStore is the slice of the testimonial repository the
// controller needs.
type TestimonialStore interface {
	GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*Testimonial, error)
	Create(ctx context.Context, record *Testimonial, criteria ...repository.InsertCriteria) (*Testimonial, error)
	ListPage(ctx context.Context, page, pageSize int) ([]*Testimonial, int, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) (int64, error)
}

const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100
)

// TestimonialsController serves the testimonial resource. Listing is
// public, reads and writes need an access token, deletions need the super
// admin role.
type TestimonialsController struct {
	store        TestimonialStore
	contextKey   string
	logger       Logger
	ErrorHandler func(ctx router.Context, err error) error
}

func NewTestimonialsController(store TestimonialStore, cfg Config) *TestimonialsController {
	c := &TestimonialsController{
		store:      store,
		contextKey: cfg.GetContextKey(),
		logger:     defLogger{},
	}
	c.ErrorHandler = func(ctx router.Context, err error) error {
		return WriteJSONError(ctx, err, c.logger)
	}
	return c
}

func (c *TestimonialsController) WithLogger(logger Logger) *TestimonialsController {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// RegisterRoutes mounts the testimonial surface.
func (c *TestimonialsController) RegisterRoutes(group RouteRegistrar, protected, superadmin router.MiddlewareFunc) {
	group.Get("/testimonials", c.List)
	group.Get("/testimonials/:id", c.Get, protected)
	group.Post("/testimonials", c.Create, protected)
	group.Delete("/testimonials/:id", c.Delete, superadmin)
	group.Delete("/testimonials", c.DeleteAll, superadmin)
}

// CreateTestimonialPayload is the request body for new testimonials
type CreateTestimonialPayload struct {
	Content string `json:"content"`
	Rating  *int   `json:"rating"`
}

func (p CreateTestimonialPayload) Validate() error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&p,
			validation.Field(&p.Content, validation.Required, validation.Length(1, 2000)),
			validation.Field(&p.Rating, validation.Min(1), validation.Max(5)),
		)
	}, "invalid testimonial payload")
}

// List returns one page of testimonials. Pages are 1 based; out of range
// values snap back to the defaults.
func (c *TestimonialsController) List(ctx router.Context) error {
	page := queryInt(ctx, "page", defaultPage)
	if page < 1 {
		page = defaultPage
	}

	pageSize := queryInt(ctx, "page_size", defaultPageSize)
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	records, total, err := c.store.ListPage(ctx.Context(), page, pageSize)
	if err != nil {
		return c.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list testimonials"))
	}

	if records == nil {
		records = []*Testimonial{}
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"items":     records,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Get returns a single testimonial by id.
func (c *TestimonialsController) Get(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return c.ErrorHandler(ctx, ErrNotFound)
	}

	record, err := c.store.GetByID(ctx.Context(), id.String())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return c.ErrorHandler(ctx, ErrNotFound)
		}
		return c.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load testimonial"))
	}

	return ctx.JSON(router.StatusOK, record)
}

// Create stores a testimonial authored by the caller. The author comes
// from the access token, never from the body.
func (c *TestimonialsController) Create(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx, c.contextKey)
	if !ok {
		return c.ErrorHandler(ctx, ErrUnableToDecodeSession)
	}

	authorID, err := uuid.Parse(claims.UserID())
	if err != nil {
		return c.ErrorHandler(ctx, ErrUnableToDecodeSession)
	}

	payload := CreateTestimonialPayload{}
	if err := ctx.Bind(&payload); err != nil {
		return c.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "could not parse request body").WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	record, err := c.store.Create(ctx.Context(), &Testimonial{
		AuthorID: authorID,
		Content:  payload.Content,
		Rating:   payload.Rating,
	})
	if err != nil {
		return c.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create testimonial"))
	}

	return ctx.JSON(router.StatusCreated, record)
}

// Delete soft deletes one testimonial.
func (c *TestimonialsController) Delete(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return c.ErrorHandler(ctx, ErrNotFound)
	}

	if err := c.store.DeleteByID(ctx.Context(), id); err != nil {
		if goerrors.IsNotFound(err) {
			return c.ErrorHandler(ctx, ErrNotFound)
		}
		return c.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete testimonial"))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "testimonial deleted",
	})
}

// DeleteAll soft deletes every live testimonial.
func (c *TestimonialsController) DeleteAll(ctx router.Context) error {
	deleted, err := c.store.DeleteAll(ctx.Context())
	if err != nil {
		return c.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete testimonials"))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "testimonials deleted",
		"deleted": deleted,
	})
}

func queryInt(ctx router.Context, key string, def int) int {
	raw := ctx.Query(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
