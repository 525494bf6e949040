package vouch

import (
	"context"
	"reflect"

	"github.com/goliatone/go-errors"
)

// Auther implements Authenticator on top of an IdentityProvider and the
// token service.
type Auther struct {
	provider     IdentityProvider
	tokenService *TokenService
	logger       Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, opts Config) *Auther {
	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetAccessTokenDuration(),
		opts.GetRefreshTokenDuration(),
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)

	return &Auther{
		provider:     provider,
		tokenService: tokenService,
		logger:       defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
		s.tokenService.logger = logger
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() *TokenService {
	return s.tokenService
}

// Login verifies credentials and mints a fresh token pair.
func (s *Auther) Login(ctx context.Context, email, password string) (Identity, *TokenPair, error) {
	identity, err := s.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		return nil, nil, err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		return nil, nil, ErrIdentityNotFound
	}

	pair, err := s.tokenService.MintPair(identity)
	if err != nil {
		s.logger.Error("Login failed to mint token pair", "error", err)
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to mint tokens")
	}

	return identity, pair, nil
}

// Refresh validates a refresh token and mints a brand new pair for its
// subject. The presented token is not invalidated; it simply ages out.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (Identity, *TokenPair, error) {
	claims, err := s.tokenService.ValidateKind(refreshToken, TokenKindRefresh)
	if err != nil {
		s.logger.Warn("Refresh rejected token", "error", err)
		return nil, nil, err
	}

	identity, err := s.provider.FindIdentityByIdentifier(ctx, claims.UserID())
	if err != nil {
		s.logger.Warn("Refresh subject no longer resolvable", "subject", claims.UserID(), "error", err)
		return nil, nil, err
	}

	pair, err := s.tokenService.MintPair(identity)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to mint tokens")
	}

	return identity, pair, nil
}

// IssuePair mints a token pair for an already verified identity, e.g.
// right after registration or a sign in code redemption.
func (s *Auther) IssuePair(ctx context.Context, identity Identity) (*TokenPair, error) {
	if identity == nil || reflect.ValueOf(identity).IsZero() {
		return nil, ErrIdentityNotFound
	}

	pair, err := s.tokenService.MintPair(identity)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to mint tokens")
	}

	return pair, nil
}

var _ Authenticator = (*Auther)(nil)
