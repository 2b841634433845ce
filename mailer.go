package auth

import (
	"context"
	"time"
)

// MailTimeout bounds the out-of-band delivery call so a slow provider cannot
// hold the reset flow open.
const MailTimeout = 10 * time.Second

// Mailer delivers the raw reset token to the user out-of-band. The token is
// embedded in resetURL; implementations must not persist it.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, resetURL string) error
}

type logMailer struct {
	logger Logger
}

// NewLogMailer returns a Mailer that prints the reset link instead of
// sending it. Default for local development and tests.
func NewLogMailer(logger Logger) Mailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &logMailer{logger: logger}
}

func (m *logMailer) SendPasswordReset(_ context.Context, email, resetURL string) error {
	m.logger.Info("====== SENDING EMAIL NOTIFICATION =======")
	m.logger.Info("to: %s", email)
	m.logger.Info("link: %s", resetURL)
	return nil
}
