package vouch

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type VerifySigninCodeMessage struct {
	Email string `json:"email"`
	Code  string `json:"token"`
}

func (e VerifySigninCodeMessage) Type() string { return "user.verify_signin_code" }

// VerifySigninCodeHandler redeems a pending sign in code. The comparison is
// constant time, and a successful redemption clears the code in the same
// transaction, so a code is spendable exactly once.
type VerifySigninCodeHandler struct {
	repo   RepositoryManager
	logger Logger
	now    func() time.Time
}

func NewVerifySigninCodeHandler(repo RepositoryManager) *VerifySigninCodeHandler {
	return &VerifySigninCodeHandler{
		repo:   repo,
		logger: defLogger{},
		now:    time.Now,
	}
}

func (h *VerifySigninCodeHandler) WithLogger(logger Logger) *VerifySigninCodeHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *VerifySigninCodeHandler) WithClock(now func() time.Time) *VerifySigninCodeHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *VerifySigninCodeHandler) Execute(ctx context.Context, event VerifySigninCodeMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during sign in code verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifySigninCodeHandler) execute(ctx context.Context, event VerifySigninCodeMessage) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var user *User

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := h.repo.Users().GetActiveByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrUserNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up account")
		}

		if !record.HasActiveSigninCode(h.now()) {
			return ErrInvalidSigninCode
		}

		if !SigninCodeMatches(record.SigninCode, event.Code) {
			return ErrInvalidSigninCode
		}

		if err := h.repo.Users().ClearSigninCodeTx(ctx, tx, record.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume sign in code")
		}

		user = record
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "sign in code verification failed")
	}

	return user, nil
}
