package mailer

import (
	"context"

	"github.com/diagnosis/testride-bookings/pkg/logger"
)

// DevMailer logs messages instead of sending them.
type DevMailer struct{}

func (DevMailer) Send(ctx context.Context, toEmail, toName, subject, text, _ string) (string, error) {
	logger.InfoContext(ctx, "Dev email", "to", toEmail, "name", toName, "subject", subject, "text", text)
	return "dev", nil
}
