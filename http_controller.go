package vouch

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

// UserRegistrar creates accounts
type UserRegistrar interface {
	Execute(ctx context.Context, event RegisterUserMessage) (*User, error)
}

// SigninCodeRequester issues one time sign in codes
type SigninCodeRequester interface {
	Execute(ctx context.Context, event RequestSigninCodeMessage) error
}

// SigninCodeVerifier redeems one time sign in codes
type SigninCodeVerifier interface {
	Execute(ctx context.Context, event VerifySigninCodeMessage) (*User, error)
}

// UserRemover soft deletes accounts
type UserRemover interface {
	Execute(ctx context.Context, event DeleteUserMessage) error
}

// UserReader is the read slice of the user store the controller needs
type UserReader interface {
	GetActiveByEmail(ctx context.Context, email string) (*User, error)
}

// AuthController exposes the authentication endpoints as JSON handlers.
type AuthController struct {
	auther        Authenticator
	registrar     UserRegistrar
	codeRequester SigninCodeRequester
	codeVerifier  SigninCodeVerifier
	userRemover   UserRemover
	users         UserReader
	logger        Logger
	ErrorHandler  func(ctx router.Context, err error) error
}

// NewAuthController wires the default command handlers against the given
// repository manager.
func NewAuthController(auther Authenticator, repo RepositoryManager) *AuthController {
	c := &AuthController{
		auther:        auther,
		registrar:     NewRegisterUserHandler(repo),
		codeRequester: NewRequestSigninCodeHandler(repo),
		codeVerifier:  NewVerifySigninCodeHandler(repo),
		userRemover:   NewDeleteUserHandler(repo),
		users:         repo.Users(),
		logger:        defLogger{},
	}
	c.ErrorHandler = func(ctx router.Context, err error) error {
		return WriteJSONError(ctx, err, c.logger)
	}
	return c
}

func (c *AuthController) WithLogger(logger Logger) *AuthController {
	if logger != nil {
		c.logger = logger
	}
	return c
}

func (c *AuthController) WithRegistrar(r UserRegistrar) *AuthController {
	if r != nil {
		c.registrar = r
	}
	return c
}

func (c *AuthController) WithCodeRequester(r SigninCodeRequester) *AuthController {
	if r != nil {
		c.codeRequester = r
	}
	return c
}

func (c *AuthController) WithCodeVerifier(v SigninCodeVerifier) *AuthController {
	if v != nil {
		c.codeVerifier = v
	}
	return c
}

func (c *AuthController) WithUserRemover(r UserRemover) *AuthController {
	if r != nil {
		c.userRemover = r
	}
	return c
}

func (c *AuthController) WithUserReader(r UserReader) *AuthController {
	if r != nil {
		c.users = r
	}
	return c
}

// RegisterRoutes mounts the auth surface. The logout route requires an
// access token; the super admin routes require the super admin role.
func (c *AuthController) RegisterRoutes(group RouteRegistrar, protected, superadmin router.MiddlewareFunc) {
	group.Post("/auth/register", c.Register)
	group.Post("/auth/register-super-admin", c.RegisterSuperAdmin, superadmin)
	group.Post("/auth/login", c.Login)
	group.Post("/auth/logout", c.Logout, protected)
	group.Post("/auth/refresh-access-token", c.RefreshAccessToken)
	group.Post("/auth/request-token", c.RequestToken)
	group.Post("/auth/verify-token", c.VerifyToken)
	group.Delete("/superadmin/users/:id", c.DeleteUser, superadmin)
}

// RegisterPayload is the registration request body
type RegisterPayload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Phone     string `json:"phone_number"`
	Password  string `json:"password"`
}

func (p RegisterPayload) Validate() error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&p,
			validation.Field(&p.Email, validation.Required, is.Email),
			validation.Field(&p.Password, validation.Required, validation.Length(8, 128)),
			validation.Field(&p.Username, validation.Length(0, 100)),
			validation.Field(&p.FirstName, validation.Length(0, 100)),
			validation.Field(&p.LastName, validation.Length(0, 100)),
			validation.Field(&p.Phone, validation.By(validatePhone)),
		)
	}, "invalid registration payload")
}

// LoginPayload is the login request body
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (p LoginPayload) Validate() error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&p,
			validation.Field(&p.Email, validation.Required, is.Email),
			validation.Field(&p.Password, validation.Required),
		)
	}, "invalid login payload")
}

// RequestTokenPayload asks for a sign in code
type RequestTokenPayload struct {
	Email string `json:"email"`
}

func (p RequestTokenPayload) Validate() error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&p,
			validation.Field(&p.Email, validation.Required, is.Email),
		)
	}, "invalid sign in code request")
}

// VerifyTokenPayload redeems a sign in code
type VerifyTokenPayload struct {
	Email string `json:"email"`
	Code  string `json:"token"`
}

func (p VerifyTokenPayload) Validate() error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&p,
			validation.Field(&p.Email, validation.Required, is.Email),
			validation.Field(&p.Code, validation.Required, validation.Length(SigninCodeLength, SigninCodeLength), is.Digit),
		)
	}, "invalid sign in code")
}

func validatePhone(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	num, err := phonenumbers.Parse(s, "US")
	if err != nil {
		return fmt.Errorf("unparseable phone number")
	}
	if !phonenumbers.IsValidNumber(num) {
		return fmt.Errorf("invalid phone number")
	}
	return nil
}

// Register creates an account and signs the new user straight in. The
// refresh cookie from registration outlives the login one.
func (c *AuthController) Register(ctx router.Context) error {
	payload := RegisterPayload{}
	if err := ctx.Bind(&payload); err != nil {
		return c.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "could not parse request body").WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	user, err := c.registrar.Execute(ctx.Context(), RegisterUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Username:  payload.Username,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Password:  payload.Password,
	})
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	pair, err := c.auther.IssuePair(ctx.Context(), identityFromUser(user))
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	SetRefreshCookie(ctx, pair.RefreshToken, RegisterRefreshCookieTTL)

	return ctx.JSON(router.StatusCreated, map[string]any{
		"access_token": pair.AccessToken,
		"token_type":   TokenTypeBearer,
		"user":         NewPublicUser(user),
	})
}

// RegisterSuperAdmin creates a privileged account. No tokens are minted;
// the new admin logs in like everyone else.
func (c *AuthController) RegisterSuperAdmin(ctx router.Context) error {
	payload := RegisterPayload{}
	if err := ctx.Bind(&payload); err != nil {
		return c.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "could not parse request body").WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	user, err := c.registrar.Execute(ctx.Context(), RegisterUserMessage{
		FirstName:  payload.FirstName,
		LastName:   payload.LastName,
		Username:   payload.Username,
		Email:      payload.Email,
		Phone:      payload.Phone,
		Password:   payload.Password,
		SuperAdmin: true,
	})
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"user": NewPublicUser(user),
	})
}

// Login verifies credentials and hands back an access token plus the
// refresh cookie.
func (c *AuthController) Login(ctx router.Context) error {
	payload := LoginPayload{}
	if err := ctx.Bind(&payload); err != nil {
		return c.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "could not parse request body").WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	identity, pair, err := c.auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	user, err := c.users.GetActiveByEmail(ctx.Context(), identity.Email())
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	SetRefreshCookie(ctx, pair.RefreshToken, RefreshCookieTTL)

	return ctx.JSON(router.StatusOK, map[string]any{
		"access_token": pair.AccessToken,
		"token_type":   TokenTypeBearer,
		"user":         NewPublicUser(user),
	})
}

// Logout clears the refresh cookie. Access tokens stay valid until they
// expire; the server keeps no session state to revoke.
func (c *AuthController) Logout(ctx router.Context) error {
	ClearRefreshCookie(ctx)
	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "successfully logged out",
	})
}

// RefreshAccessToken mints a new token pair from the refresh cookie.
func (c *AuthController) RefreshAccessToken(ctx router.Context) error {
	raw := ctx.Cookies(RefreshTokenCookie)
	if raw == "" {
		return c.ErrorHandler(ctx, ErrUnableToFindSession)
	}

	_, pair, err := c.auther.Refresh(ctx.Context(), raw)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	SetRefreshCookie(ctx, pair.RefreshToken, RefreshCookieTTL)

	return ctx.JSON(router.StatusOK, map[string]any{
		"access_token": pair.AccessToken,
		"token_type":   TokenTypeBearer,
	})
}

// RequestToken dispatches a one time sign in code to a known email.
func (c *AuthController) RequestToken(ctx router.Context) error {
	payload := RequestTokenPayload{}
	if err := ctx.Bind(&payload); err != nil {
		return c.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "could not parse request body").WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	if err := c.codeRequester.Execute(ctx.Context(), RequestSigninCodeMessage{Email: payload.Email}); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "sign in code sent",
	})
}

// VerifyToken redeems a sign in code for a fresh token pair.
func (c *AuthController) VerifyToken(ctx router.Context) error {
	payload := VerifyTokenPayload{}
	if err := ctx.Bind(&payload); err != nil {
		return c.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "could not parse request body").WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	user, err := c.codeVerifier.Execute(ctx.Context(), VerifySigninCodeMessage{
		Email: payload.Email,
		Code:  payload.Code,
	})
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	pair, err := c.auther.IssuePair(ctx.Context(), identityFromUser(user))
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	SetRefreshCookie(ctx, pair.RefreshToken, RefreshCookieTTL)

	return ctx.JSON(router.StatusOK, map[string]any{
		"access_token": pair.AccessToken,
		"token_type":   TokenTypeBearer,
		"user":         NewPublicUser(user),
	})
}

// DeleteUser soft deletes a target account. The route is mounted behind
// the super admin middleware.
func (c *AuthController) DeleteUser(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return c.ErrorHandler(ctx, ErrUserNotFound)
	}

	if err := c.userRemover.Execute(ctx.Context(), DeleteUserMessage{UserID: id}); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "user deleted",
	})
}
