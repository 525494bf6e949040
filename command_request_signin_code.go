package vouch

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type RequestSigninCodeMessage struct {
	Email string `json:"email"`
}

func (e RequestSigninCodeMessage) Type() string { return "user.request_signin_code" }

// RequestSigninCodeHandler issues a one time sign in code for a known
// account. Issuing a new code overwrites whatever code was pending; only
// the latest one can be redeemed.
type RequestSigninCodeHandler struct {
	repo    RepositoryManager
	mailer  Mailer
	logger  Logger
	now     func() time.Time
	codegen func() (string, error)
}

func NewRequestSigninCodeHandler(repo RepositoryManager) *RequestSigninCodeHandler {
	return &RequestSigninCodeHandler{
		repo:    repo,
		mailer:  NewLogMailer(nil),
		logger:  defLogger{},
		now:     time.Now,
		codegen: GenerateSigninCode,
	}
}

func (h *RequestSigninCodeHandler) WithMailer(m Mailer) *RequestSigninCodeHandler {
	if m != nil {
		h.mailer = m
	}
	return h
}

func (h *RequestSigninCodeHandler) WithLogger(logger Logger) *RequestSigninCodeHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RequestSigninCodeHandler) WithClock(now func() time.Time) *RequestSigninCodeHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *RequestSigninCodeHandler) WithCodeGenerator(gen func() (string, error)) *RequestSigninCodeHandler {
	if gen != nil {
		h.codegen = gen
	}
	return h
}

func (h *RequestSigninCodeHandler) Execute(ctx context.Context, event RequestSigninCodeMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during sign in code request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestSigninCodeHandler) execute(ctx context.Context, event RequestSigninCodeMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetActiveByEmail(ctx, event.Email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrUserNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up account")
	}

	code, err := h.codegen()
	if err != nil {
		return err
	}

	expiresAt := h.now().Add(SigninCodeTTL)

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return h.repo.Users().SaveSigninCodeTx(ctx, tx, user.ID, code, expiresAt)
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store sign in code")
	}

	// Delivery is fire and forget: the code is committed, a mail outage
	// should not roll that back or block the response.
	mailCtx := context.WithoutCancel(ctx)
	go func() {
		if err := h.mailer.SendSigninCode(mailCtx, user.Email, code); err != nil {
			h.logger.Error("failed to deliver sign in code", "email", user.Email, "error", err)
		}
	}()

	return nil
}
