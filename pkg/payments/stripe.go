package payments

import (
	"context"
	"errors"
	"time"

	"github.com/diagnosis/testride-bookings/pkg/config"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeGateway places manual-capture PaymentIntents as authorization holds.
type StripeGateway struct {
	api      *client.API
	currency string
	timeout  time.Duration
}

func NewStripeGateway(cfg config.StripeConfig, timeout time.Duration) *StripeGateway {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &StripeGateway{api: api, currency: cfg.Currency, timeout: timeout}
}

func (g *StripeGateway) CreateAuthorization(ctx context.Context, req CreateRequest) (*Authorization, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(g.currency),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		Description:   stripe.String("Test ride deposit hold"),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx
	params.AddMetadata("purpose", "test_ride_hold")
	if req.CustomerEmail != "" {
		params.ReceiptEmail = stripe.String(req.CustomerEmail)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, classify(err)
	}
	return toAuthorization(pi), nil
}

func (g *StripeGateway) ConfirmAuthorization(ctx context.Context, id, paymentMethod string) (*Authorization, error) {
	if paymentMethod == "" {
		return g.GetAuthorization(ctx, id)
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(paymentMethod),
	}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Confirm(id, params)
	if err != nil {
		return nil, classify(err)
	}
	return toAuthorization(pi), nil
}

func (g *StripeGateway) GetAuthorization(ctx context.Context, id string) (*Authorization, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, classify(err)
	}
	return toAuthorization(pi), nil
}

func (g *StripeGateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func toAuthorization(pi *stripe.PaymentIntent) *Authorization {
	return &Authorization{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       Status(pi.Status),
	}
}

func classify(err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return &GatewayError{Kind: KindOther, Err: err}
	}
	switch se.Type {
	case stripe.ErrorTypeCard:
		return &GatewayError{Kind: KindCard, Message: se.Msg, Err: err}
	case stripe.ErrorTypeInvalidRequest:
		return &GatewayError{Kind: KindValidation, Message: se.Msg, Err: err}
	default:
		return &GatewayError{Kind: KindOther, Err: err}
	}
}

var _ Gateway = (*StripeGateway)(nil)
