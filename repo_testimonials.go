package vouch

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Testimonials is the testimonial store. Deletes are soft; listings only
// ever see live rows.
type Testimonials interface {
	repository.Repository[*Testimonial]

	ListPage(ctx context.Context, page, pageSize int) ([]*Testimonial, int, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) (int64, error)
}

type testimonials struct {
	repository.Repository[*Testimonial]
	db *bun.DB
}

var (
	_ Testimonials                        = (*testimonials)(nil)
	_ repository.Repository[*Testimonial] = (*testimonials)(nil)
)

func NewTestimonialsRepository(db *bun.DB) Testimonials {
	repo := repository.NewRepository[*Testimonial](db, repository.ModelHandlers[*Testimonial]{
		NewRecord: func() *Testimonial { return &Testimonial{} },
		GetID: func(t *Testimonial) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *Testimonial, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "id"
		},
	})

	return &testimonials{
		Repository: repo,
		db:         db,
	}
}

func (a *testimonials) Create(ctx context.Context, record *Testimonial, criteria ...repository.InsertCriteria) (*Testimonial, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *testimonials) CreateTx(ctx context.Context, tx bun.IDB, record *Testimonial, criteria ...repository.InsertCriteria) (*Testimonial, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

// ListPage returns one page of live testimonials, newest first, plus the
// total live count. Pages are 1 based.
func (a *testimonials) ListPage(ctx context.Context, page, pageSize int) ([]*Testimonial, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	var records []*Testimonial
	total, err := a.db.NewSelect().
		Model(&records).
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (a *testimonials) DeleteByID(ctx context.Context, id uuid.UUID) error {
	res, err := a.db.NewDelete().
		Model((*Testimonial)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return nil
}

func (a *testimonials) DeleteAll(ctx context.Context) (int64, error) {
	res, err := a.db.NewDelete().
		Model((*Testimonial)(nil)).
		Where("1 = 1").
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}

	return rows, nil
}
