// Package sms sends short text messages through interchangeable providers.
// Exactly one provider is chosen at process start; callers only see Provider.
package sms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diagnosis/testride-bookings/pkg/config"
)

var ErrNotConfigured = errors.New("sms provider not configured")

type Message struct {
	To   string
	Body string
}

type Response struct {
	MessageID string
	Provider  string
	Status    string
}

type Provider interface {
	SendSMS(ctx context.Context, msg Message) (*Response, error)
	IsConfigured() bool
}

// New selects the provider named by cfg.Provider.
func New(ctx context.Context, cfg config.SMSConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "africastalking", "at":
		return NewAfricasTalking(cfg.ATUsername, cfg.ATAPIKey, cfg.ATSMSURL, cfg.SenderID), nil
	case "sns":
		return NewSNS(ctx, cfg.SNSRegion, cfg.SenderID)
	case "log", "":
		return NewLogProvider(), nil
	default:
		return nil, fmt.Errorf("unknown sms provider %q", cfg.Provider)
	}
}
