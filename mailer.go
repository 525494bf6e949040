package vouch

import "context"

// Mailer delivers sign in codes. Implementations talk to whatever transport
// the deployment uses; the library only depends on this interface.
type Mailer interface {
	SendSigninCode(ctx context.Context, email, code string) error
}

// LogMailer writes deliveries to the logger instead of sending anything.
// Useful for development and as a safe default.
type LogMailer struct {
	logger Logger
}

// NewLogMailer creates a LogMailer
func NewLogMailer(logger Logger) *LogMailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendSigninCode(ctx context.Context, email, code string) error {
	m.logger.Info("sign in code issued", "email", email, "code", code)
	return nil
}

var _ Mailer = (*LogMailer)(nil)
