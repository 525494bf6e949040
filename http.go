package vouch

import (
	"context"
	"net/http"
	"time"

	"github.com/codeReaper0/go-vouch/middleware/jwtware"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RefreshTokenCookie is the cookie carrying the refresh token. It is the
// only place a refresh token ever travels.
const RefreshTokenCookie = "refresh_token"

// TokenTypeBearer is the token_type value in token responses
const TokenTypeBearer = "bearer"

const (
	// RefreshCookieTTL applies to login, refresh, and code redemption
	RefreshCookieTTL = 30 * 24 * time.Hour
	// RegisterRefreshCookieTTL applies to the registration response
	RegisterRefreshCookieTTL = 60 * 24 * time.Hour
)

// SetRefreshCookie writes the refresh token cookie. HttpOnly keeps scripts
// out, SameSite=None lets the SPA on another origin send it back.
func SetRefreshCookie(c router.Context, token string, ttl time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     RefreshTokenCookie,
		Value:    token,
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "None",
	})
}

// ClearRefreshCookie expires the refresh token cookie.
func ClearRefreshCookie(c router.Context) {
	c.Cookie(&router.Cookie{
		Name:     RefreshTokenCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "None",
	})
}

// WriteJSONError renders any error as a JSON body with a user safe message.
// Internal detail stays in the log.
func WriteJSONError(c router.Context, err error, logger Logger) error {
	if logger == nil {
		logger = defLogger{}
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "an unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	logger.Warn(
		"request failed",
		"error", richErr.Message,
		"category", richErr.Category,
		"text_code", richErr.TextCode,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	status := richErr.Code
	if status == 0 {
		status = statusForCategory(richErr.Category)
	}

	body := map[string]any{
		"message": richErr.Message,
	}
	if richErr.TextCode != "" {
		body["text_code"] = richErr.TextCode
	}
	if richErr.Category == errors.CategoryValidation {
		if fields := richErr.ValidationMap(); len(fields) > 0 {
			body["fields"] = fields
		}
	}

	return c.JSON(status, map[string]any{"error": body})
}

func statusForCategory(category errors.Category) int {
	switch category {
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryAuthz:
		return http.StatusForbidden
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryValidation, errors.CategoryBadInput:
		return http.StatusBadRequest
	case errors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// MakeAuthErrorHandler adapts middleware token failures into the JSON error
// shape.
func MakeAuthErrorHandler(logger Logger) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if jwtware.IsAccessDeniedError(err) {
			richErr = ErrForbidden
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else if errors.As(err, &richErr) {
			// keep the rich error as is
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		return WriteJSONError(ctx, richErr, logger)
	}
}

// accessTokenValidator bridges the token service into the middleware and
// pins the kind claim to access, so refresh tokens cannot open API routes.
type accessTokenValidator struct {
	tokens *TokenService
}

func (v accessTokenValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := v.tokens.ValidateKind(tokenString, TokenKindAccess)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// ProtectedRoute guards a route with a validated access token. Claims end
// up in locals under the configured context key.
func ProtectedRoute(cfg Config, tokens *TokenService, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		ErrorHandler:   errorHandler,
		TokenValidator: accessTokenValidator{tokens: tokens},
		SigningKey: jwtware.SigningKey{
			Key:    []byte(cfg.GetSigningKey()),
			JWTAlg: cfg.GetSigningMethod(),
		},
		AuthScheme:  cfg.GetAuthScheme(),
		ContextKey:  cfg.GetContextKey(),
		TokenLookup: cfg.GetTokenLookup(),
		ContextEnricher: func(c context.Context, claims jwtware.AuthClaims) context.Context {
			if ac, ok := claims.(AuthClaims); ok {
				return WithClaimsContext(c, ac)
			}
			return c
		},
	})
}

// SuperAdminRoute is ProtectedRoute plus a super admin role requirement.
func SuperAdminRoute(cfg Config, tokens *TokenService, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		ErrorHandler:   errorHandler,
		TokenValidator: accessTokenValidator{tokens: tokens},
		SigningKey: jwtware.SigningKey{
			Key:    []byte(cfg.GetSigningKey()),
			JWTAlg: cfg.GetSigningMethod(),
		},
		AuthScheme:   cfg.GetAuthScheme(),
		ContextKey:   cfg.GetContextKey(),
		TokenLookup:  cfg.GetTokenLookup(),
		RequiredRole: RoleSuperAdmin,
	})
}
