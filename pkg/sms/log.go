package sms

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/testride-bookings/pkg/logger"
)

// LogProvider writes messages to the log instead of sending them. Dev only.
type LogProvider struct{}

func NewLogProvider() *LogProvider {
	return &LogProvider{}
}

func (l *LogProvider) IsConfigured() bool { return true }

func (l *LogProvider) SendSMS(ctx context.Context, msg Message) (*Response, error) {
	id := fmt.Sprintf("dev-%d", time.Now().UnixNano())
	logger.InfoContext(ctx, "[DEV SMS]", "to", msg.To, "body", msg.Body, "message_id", id)
	return &Response{MessageID: id, Provider: "log", Status: "logged"}, nil
}

var _ Provider = (*LogProvider)(nil)
