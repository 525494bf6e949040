package vouch_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	vouch "github.com/codeReaper0/go-vouch"
)

// MockAuthenticator implements vouch.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, email, password string) (vouch.Identity, *vouch.TokenPair, error) {
	args := m.Called(ctx, email, password)
	identity, _ := args.Get(0).(vouch.Identity)
	pair, _ := args.Get(1).(*vouch.TokenPair)
	return identity, pair, args.Error(2)
}

func (m *MockAuthenticator) Refresh(ctx context.Context, refreshToken string) (vouch.Identity, *vouch.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	identity, _ := args.Get(0).(vouch.Identity)
	pair, _ := args.Get(1).(*vouch.TokenPair)
	return identity, pair, args.Error(2)
}

func (m *MockAuthenticator) IssuePair(ctx context.Context, identity vouch.Identity) (*vouch.TokenPair, error) {
	args := m.Called(ctx, identity)
	pair, _ := args.Get(0).(*vouch.TokenPair)
	return pair, args.Error(1)
}

func (m *MockAuthenticator) TokenService() *vouch.TokenService {
	return nil
}

type registrarFunc func(ctx context.Context, event vouch.RegisterUserMessage) (*vouch.User, error)

func (f registrarFunc) Execute(ctx context.Context, event vouch.RegisterUserMessage) (*vouch.User, error) {
	return f(ctx, event)
}

type codeRequesterFunc func(ctx context.Context, event vouch.RequestSigninCodeMessage) error

func (f codeRequesterFunc) Execute(ctx context.Context, event vouch.RequestSigninCodeMessage) error {
	return f(ctx, event)
}

type codeVerifierFunc func(ctx context.Context, event vouch.VerifySigninCodeMessage) (*vouch.User, error)

func (f codeVerifierFunc) Execute(ctx context.Context, event vouch.VerifySigninCodeMessage) (*vouch.User, error) {
	return f(ctx, event)
}

type userRemoverFunc func(ctx context.Context, event vouch.DeleteUserMessage) error

func (f userRemoverFunc) Execute(ctx context.Context, event vouch.DeleteUserMessage) error {
	return f(ctx, event)
}

type userReaderFunc func(ctx context.Context, email string) (*vouch.User, error)

func (f userReaderFunc) GetActiveByEmail(ctx context.Context, email string) (*vouch.User, error) {
	return f(ctx, email)
}

func newAuthController(auther vouch.Authenticator) *vouch.AuthController {
	return vouch.NewAuthController(auther, &stubRepo{users: &stubUsers{}}).WithLogger(testLogger{})
}

func captureError(ctrl *vouch.AuthController) *error {
	var handled error
	ctrl.ErrorHandler = func(ctx router.Context, err error) error {
		handled = err
		return nil
	}
	return &handled
}

func TestAuthController_Register(t *testing.T) {
	userID := uuid.New()
	user := &vouch.User{ID: userID, Username: "ada", Email: "ada@example.com"}
	pair := &vouch.TokenPair{AccessToken: "access-token", RefreshToken: "refresh-token"}

	t.Run("creates the account and signs the user in", func(t *testing.T) {
		auther := &MockAuthenticator{}
		auther.On("IssuePair", mock.Anything, mock.Anything).Return(pair, nil)

		ctrl := newAuthController(auther).
			WithRegistrar(registrarFunc(func(ctx context.Context, event vouch.RegisterUserMessage) (*vouch.User, error) {
				assert.Equal(t, "ada@example.com", event.Email)
				assert.False(t, event.SuperAdmin)
				return user, nil
			}))

		var cookie *router.Cookie
		var status int
		var body map[string]any

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			p := args.Get(0).(*vouch.RegisterPayload)
			p.Email = "ada@example.com"
			p.Password = "super-secret-password"
		})
		ctx.On("Context").Return(context.Background())
		ctx.On("Cookie", mock.Anything).Run(func(args mock.Arguments) {
			cookie = args.Get(0).(*router.Cookie)
		}).Return()
		ctx.On("JSON", router.StatusCreated, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			status = args.Int(0)
			body = args.Get(1).(map[string]any)
		})

		require.NoError(t, ctrl.Register(ctx))

		assert.Equal(t, router.StatusCreated, status)
		assert.Equal(t, "access-token", body["access_token"])
		assert.Equal(t, vouch.TokenTypeBearer, body["token_type"])

		public, ok := body["user"].(vouch.PublicUser)
		require.True(t, ok)
		assert.Equal(t, userID.String(), public.ID)

		require.NotNil(t, cookie)
		assert.Equal(t, vouch.RefreshTokenCookie, cookie.Name)
		assert.Equal(t, "refresh-token", cookie.Value)
		assert.True(t, cookie.HTTPOnly)
		assert.True(t, cookie.Secure)
		// registration hands out the long lived cookie
		assert.WithinDuration(t, time.Now().Add(vouch.RegisterRefreshCookieTTL), cookie.Expires, time.Minute)

		auther.AssertExpectations(t)
	})

	t.Run("rejects an invalid payload", func(t *testing.T) {
		ctrl := newAuthController(&MockAuthenticator{})
		handled := captureError(ctrl)

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			p := args.Get(0).(*vouch.RegisterPayload)
			p.Email = "not-an-email"
			p.Password = "short"
		})

		require.NoError(t, ctrl.Register(ctx))
		require.Error(t, *handled)
	})

	t.Run("surfaces duplicate email errors", func(t *testing.T) {
		ctrl := newAuthController(&MockAuthenticator{}).
			WithRegistrar(registrarFunc(func(ctx context.Context, event vouch.RegisterUserMessage) (*vouch.User, error) {
				return nil, vouch.ErrDuplicateEmail
			}))
		handled := captureError(ctrl)

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			p := args.Get(0).(*vouch.RegisterPayload)
			p.Email = "ada@example.com"
			p.Password = "super-secret-password"
		})
		ctx.On("Context").Return(context.Background())

		require.NoError(t, ctrl.Register(ctx))
		assert.ErrorIs(t, *handled, vouch.ErrDuplicateEmail)
	})
}

func TestAuthController_RegisterSuperAdmin(t *testing.T) {
	user := &vouch.User{ID: uuid.New(), Email: "root@example.com", SuperAdmin: true}

	auther := &MockAuthenticator{}

	ctrl := newAuthController(auther).
		WithRegistrar(registrarFunc(func(ctx context.Context, event vouch.RegisterUserMessage) (*vouch.User, error) {
			assert.True(t, event.SuperAdmin)
			return user, nil
		}))

	var body map[string]any

	ctx := &MockContext{}
	ctx.On("Bind", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		p := args.Get(0).(*vouch.RegisterPayload)
		p.Email = "root@example.com"
		p.Password = "super-secret-password"
	})
	ctx.On("Context").Return(context.Background())
	ctx.On("JSON", router.StatusCreated, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		body = args.Get(1).(map[string]any)
	})

	require.NoError(t, ctrl.RegisterSuperAdmin(ctx))

	// no tokens for a freshly created super admin
	assert.NotContains(t, body, "access_token")
	ctx.AssertNotCalled(t, "Cookie", mock.Anything)
	auther.AssertNotCalled(t, "IssuePair", mock.Anything, mock.Anything)
}

func TestAuthController_Login(t *testing.T) {
	user := &vouch.User{ID: uuid.New(), Username: "ada", Email: "ada@example.com"}
	identity := staticIdentity{id: user.ID.String(), email: "ada@example.com", role: vouch.RoleUser}
	pair := &vouch.TokenPair{AccessToken: "access-token", RefreshToken: "refresh-token"}

	t.Run("returns tokens and the refresh cookie", func(t *testing.T) {
		auther := &MockAuthenticator{}
		auther.On("Login", mock.Anything, "ada@example.com", "super-secret-password").Return(identity, pair, nil)

		ctrl := newAuthController(auther).
			WithUserReader(userReaderFunc(func(ctx context.Context, email string) (*vouch.User, error) {
				return user, nil
			}))

		var cookie *router.Cookie
		var body map[string]any

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			p := args.Get(0).(*vouch.LoginPayload)
			p.Email = "ada@example.com"
			p.Password = "super-secret-password"
		})
		ctx.On("Context").Return(context.Background())
		ctx.On("Cookie", mock.Anything).Run(func(args mock.Arguments) {
			cookie = args.Get(0).(*router.Cookie)
		}).Return()
		ctx.On("JSON", router.StatusOK, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			body = args.Get(1).(map[string]any)
		})

		require.NoError(t, ctrl.Login(ctx))

		assert.Equal(t, "access-token", body["access_token"])
		require.NotNil(t, cookie)
		assert.WithinDuration(t, time.Now().Add(vouch.RefreshCookieTTL), cookie.Expires, time.Minute)

		auther.AssertExpectations(t)
	})

	t.Run("propagates invalid credentials", func(t *testing.T) {
		auther := &MockAuthenticator{}
		auther.On("Login", mock.Anything, "ada@example.com", "wrong").Return(nil, nil, vouch.ErrInvalidCredentials)

		ctrl := newAuthController(auther)
		handled := captureError(ctrl)

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			p := args.Get(0).(*vouch.LoginPayload)
			p.Email = "ada@example.com"
			p.Password = "wrong"
		})
		ctx.On("Context").Return(context.Background())

		require.NoError(t, ctrl.Login(ctx))
		assert.ErrorIs(t, *handled, vouch.ErrInvalidCredentials)
		ctx.AssertNotCalled(t, "Cookie", mock.Anything)
	})
}

func TestAuthController_Logout(t *testing.T) {
	ctrl := newAuthController(&MockAuthenticator{})

	var cookie *router.Cookie
	var body map[string]any

	ctx := &MockContext{}
	ctx.On("Cookie", mock.Anything).Run(func(args mock.Arguments) {
		cookie = args.Get(0).(*router.Cookie)
	}).Return()
	ctx.On("JSON", router.StatusOK, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		body = args.Get(1).(map[string]any)
	})

	require.NoError(t, ctrl.Logout(ctx))

	require.NotNil(t, cookie)
	assert.Equal(t, vouch.RefreshTokenCookie, cookie.Name)
	assert.Empty(t, cookie.Value)
	assert.True(t, cookie.Expires.Before(time.Now()), "logout must expire the cookie")
	assert.Equal(t, "successfully logged out", body["message"])
}

func TestAuthController_RefreshAccessToken(t *testing.T) {
	identity := staticIdentity{id: uuid.NewString(), role: vouch.RoleUser}
	pair := &vouch.TokenPair{AccessToken: "next-access", RefreshToken: "next-refresh"}

	t.Run("mints a new pair from the cookie", func(t *testing.T) {
		auther := &MockAuthenticator{}
		auther.On("Refresh", mock.Anything, "current-refresh").Return(identity, pair, nil)

		ctrl := newAuthController(auther)

		var cookie *router.Cookie
		var body map[string]any

		ctx := &MockContext{}
		ctx.On("Cookies", vouch.RefreshTokenCookie).Return("current-refresh")
		ctx.On("Context").Return(context.Background())
		ctx.On("Cookie", mock.Anything).Run(func(args mock.Arguments) {
			cookie = args.Get(0).(*router.Cookie)
		}).Return()
		ctx.On("JSON", router.StatusOK, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			body = args.Get(1).(map[string]any)
		})

		require.NoError(t, ctrl.RefreshAccessToken(ctx))

		assert.Equal(t, "next-access", body["access_token"])
		assert.NotContains(t, body, "user")
		require.NotNil(t, cookie)
		assert.Equal(t, "next-refresh", cookie.Value)

		auther.AssertExpectations(t)
	})

	t.Run("missing cookie means no session", func(t *testing.T) {
		ctrl := newAuthController(&MockAuthenticator{})
		handled := captureError(ctrl)

		ctx := &MockContext{}
		ctx.On("Cookies", vouch.RefreshTokenCookie).Return("")

		require.NoError(t, ctrl.RefreshAccessToken(ctx))
		assert.ErrorIs(t, *handled, vouch.ErrUnableToFindSession)
	})

	t.Run("rejected refresh token propagates", func(t *testing.T) {
		auther := &MockAuthenticator{}
		auther.On("Refresh", mock.Anything, "stale").Return(nil, nil, vouch.ErrTokenExpired)

		ctrl := newAuthController(auther)
		handled := captureError(ctrl)

		ctx := &MockContext{}
		ctx.On("Cookies", vouch.RefreshTokenCookie).Return("stale")
		ctx.On("Context").Return(context.Background())

		require.NoError(t, ctrl.RefreshAccessToken(ctx))
		assert.ErrorIs(t, *handled, vouch.ErrTokenExpired)
	})
}

func TestAuthController_RequestToken(t *testing.T) {
	t.Run("acknowledges a dispatched code", func(t *testing.T) {
		requested := ""

		ctrl := newAuthController(&MockAuthenticator{}).
			WithCodeRequester(codeRequesterFunc(func(ctx context.Context, event vouch.RequestSigninCodeMessage) error {
				requested = event.Email
				return nil
			}))

		var body map[string]any

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			p := args.Get(0).(*vouch.RequestTokenPayload)
			p.Email = "ada@example.com"
		})
		ctx.On("Context").Return(context.Background())
		ctx.On("JSON", router.StatusOK, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			body = args.Get(1).(map[string]any)
		})

		require.NoError(t, ctrl.RequestToken(ctx))
		assert.Equal(t, "ada@example.com", requested)
		assert.Equal(t, "sign in code sent", body["message"])
	})

	t.Run("unknown email propagates", func(t *testing.T) {
		ctrl := newAuthController(&MockAuthenticator{}).
			WithCodeRequester(codeRequesterFunc(func(ctx context.Context, event vouch.RequestSigninCodeMessage) error {
				return vouch.ErrUserNotFound
			}))
		handled := captureError(ctrl)

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			p := args.Get(0).(*vouch.RequestTokenPayload)
			p.Email = "ghost@example.com"
		})
		ctx.On("Context").Return(context.Background())

		require.NoError(t, ctrl.RequestToken(ctx))
		assert.ErrorIs(t, *handled, vouch.ErrUserNotFound)
	})
}

func TestAuthController_VerifyToken(t *testing.T) {
	user := &vouch.User{ID: uuid.New(), Username: "ada", Email: "ada@example.com"}
	pair := &vouch.TokenPair{AccessToken: "access-token", RefreshToken: "refresh-token"}

	t.Run("redeems a code for tokens", func(t *testing.T) {
		auther := &MockAuthenticator{}
		auther.On("IssuePair", mock.Anything, mock.Anything).Return(pair, nil)

		ctrl := newAuthController(auther).
			WithCodeVerifier(codeVerifierFunc(func(ctx context.Context, event vouch.VerifySigninCodeMessage) (*vouch.User, error) {
				assert.Equal(t, "042042", event.Code)
				return user, nil
			}))

		var cookie *router.Cookie
		var body map[string]any

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			p := args.Get(0).(*vouch.VerifyTokenPayload)
			p.Email = "ada@example.com"
			p.Code = "042042"
		})
		ctx.On("Context").Return(context.Background())
		ctx.On("Cookie", mock.Anything).Run(func(args mock.Arguments) {
			cookie = args.Get(0).(*router.Cookie)
		}).Return()
		ctx.On("JSON", router.StatusOK, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			body = args.Get(1).(map[string]any)
		})

		require.NoError(t, ctrl.VerifyToken(ctx))

		assert.Equal(t, "access-token", body["access_token"])
		require.NotNil(t, cookie)
		assert.Equal(t, "refresh-token", cookie.Value)
	})

	t.Run("rejects a malformed code before touching the store", func(t *testing.T) {
		called := false
		ctrl := newAuthController(&MockAuthenticator{}).
			WithCodeVerifier(codeVerifierFunc(func(ctx context.Context, event vouch.VerifySigninCodeMessage) (*vouch.User, error) {
				called = true
				return nil, nil
			}))
		handled := captureError(ctrl)

		ctx := &MockContext{}
		ctx.On("Bind", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			p := args.Get(0).(*vouch.VerifyTokenPayload)
			p.Email = "ada@example.com"
			p.Code = "12ab56"
		})

		require.NoError(t, ctrl.VerifyToken(ctx))
		require.Error(t, *handled)
		assert.False(t, called)
	})
}

func TestAuthController_DeleteUser(t *testing.T) {
	t.Run("soft deletes the target", func(t *testing.T) {
		target := uuid.New()
		deleted := uuid.Nil

		ctrl := newAuthController(&MockAuthenticator{}).
			WithUserRemover(userRemoverFunc(func(ctx context.Context, event vouch.DeleteUserMessage) error {
				deleted = event.UserID
				return nil
			}))

		var body map[string]any

		ctx := &MockContext{}
		ctx.On("Param", "id", "").Return(target.String())
		ctx.On("Context").Return(context.Background())
		ctx.On("JSON", router.StatusOK, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			body = args.Get(1).(map[string]any)
		})

		require.NoError(t, ctrl.DeleteUser(ctx))
		assert.Equal(t, target, deleted)
		assert.Equal(t, "user deleted", body["message"])
	})

	t.Run("garbage ids read as not found", func(t *testing.T) {
		ctrl := newAuthController(&MockAuthenticator{})
		handled := captureError(ctrl)

		ctx := &MockContext{}
		ctx.On("Param", "id", "").Return("not-a-uuid")

		require.NoError(t, ctrl.DeleteUser(ctx))
		assert.ErrorIs(t, *handled, vouch.ErrUserNotFound)
	})
}
