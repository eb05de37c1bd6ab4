package service

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/testride-bookings/pkg/logger"
	"github.com/diagnosis/testride-bookings/pkg/sms"
	"github.com/diagnosis/testride-bookings/pkg/utils"
)

// NotificationResult never carries a Go error; failures are data.
type NotificationResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type Notifier interface {
	SendTestRideConfirmation(ctx context.Context, phone string, returnTime time.Time, location string) NotificationResult
}

// Dispatcher sends booking confirmations through whichever SMS provider was
// selected at startup.
type Dispatcher struct {
	provider sms.Provider
	timeout  time.Duration
}

func NewDispatcher(provider sms.Provider, timeout time.Duration) *Dispatcher {
	return &Dispatcher{provider: provider, timeout: timeout}
}

func (d *Dispatcher) SendTestRideConfirmation(ctx context.Context, phone string, returnTime time.Time, location string) NotificationResult {
	if d.provider == nil || !d.provider.IsConfigured() {
		return NotificationResult{Error: sms.ErrNotConfigured.Error()}
	}
	to := utils.NormalizePhone(phone)
	if to == "" {
		return NotificationResult{Error: "no phone number"}
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	resp, err := d.provider.SendSMS(ctx, sms.Message{
		To:   to,
		Body: ConfirmationText(returnTime, location),
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to send test ride confirmation", "error", err)
		return NotificationResult{Error: err.Error()}
	}
	return NotificationResult{Success: true, MessageID: resp.MessageID}
}

func ConfirmationText(returnTime time.Time, location string) string {
	msg := fmt.Sprintf("Enjoy your test ride! Please return the bike by %s", returnTime.Format("3:04 PM"))
	if location != "" {
		msg += " to " + location
	}
	return msg + "."
}

var _ Notifier = (*Dispatcher)(nil)
