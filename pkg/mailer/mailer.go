// Package mailer sends transactional email through MailerSend, plain SMTP or
// the log in development.
package mailer

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/diagnosis/testride-bookings/pkg/config"
	"github.com/diagnosis/testride-bookings/pkg/logger"
)

type Service interface {
	Send(ctx context.Context, toEmail, toName, subject, text, html string) (string, error)
}

// New picks a transport from cfg. MailerSend wins when a key is present,
// DevMode logs instead of sending, otherwise SMTP.
func New(cfg config.EmailConfig) Service {
	switch {
	case cfg.MailerSendKey != "":
		logger.Info("Using MailerSend for email")
		return NewMailerSend(cfg.MailerSendKey, cfg.FromName, cfg.SMTPFrom)
	case cfg.DevMode:
		logger.Info("Email dev mode enabled, messages will be logged")
		return DevMailer{}
	default:
		logger.Info("Using SMTP for email", "host", cfg.SMTPHost, "port", cfg.SMTPPort)
		return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPUseTLS)
	}
}

// Receipt is the booking summary emailed after a test ride is committed.
type Receipt struct {
	CustomerName  string
	CustomerEmail string
	BikeModel     string
	StartTime     time.Time
	EndTime       time.Time
	Location      string
	PaymentID     string
}

// SendReceipt renders r and sends it with svc.
func SendReceipt(ctx context.Context, svc Service, r Receipt) (string, error) {
	if r.CustomerEmail == "" {
		return "", fmt.Errorf("receipt has no recipient")
	}
	subject, text, body := RenderReceipt(r)
	return svc.Send(ctx, r.CustomerEmail, r.CustomerName, subject, text, body)
}

func RenderReceipt(r Receipt) (subject, text, htmlBody string) {
	const layout = "Mon Jan 2, 3:04 PM"
	subject = "Your test ride is booked"
	text = fmt.Sprintf("Hi %s,\n\nYou're riding the %s from %s until %s.\nPlease return it to %s.\n",
		r.CustomerName, r.BikeModel, r.StartTime.Format(layout), r.EndTime.Format(layout), r.Location)
	if r.PaymentID != "" {
		text += fmt.Sprintf("\nA refundable hold was placed on your card (ref %s).\n", r.PaymentID)
	}
	htmlBody = fmt.Sprintf(`<p>Hi %s,</p><p>You're riding the <b>%s</b> from %s until <b>%s</b>.</p><p>Please return it to %s.</p>`,
		html.EscapeString(r.CustomerName), html.EscapeString(r.BikeModel),
		r.StartTime.Format(layout), r.EndTime.Format(layout), html.EscapeString(r.Location))
	if r.PaymentID != "" {
		htmlBody += fmt.Sprintf(`<p>A refundable hold was placed on your card (ref %s).</p>`, html.EscapeString(r.PaymentID))
	}
	return subject, text, htmlBody
}
