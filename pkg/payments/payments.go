// Package payments places refundable authorization holds with the payment
// gateway and drives their confirmation to a terminal status.
package payments

import (
	"context"
	"errors"
	"fmt"
)

// Status is the gateway's own authorization status.
type Status string

const (
	StatusRequiresPaymentMethod Status = "requires_payment_method"
	StatusRequiresConfirmation  Status = "requires_confirmation"
	StatusRequiresAction        Status = "requires_action"
	StatusProcessing            Status = "processing"
	StatusRequiresCapture       Status = "requires_capture"
	StatusSucceeded             Status = "succeeded"
	StatusCanceled              Status = "canceled"
)

var (
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrCanceled means the authorization is dead; a new one must be created.
	ErrCanceled      = errors.New("payment was canceled, load a new payment form to retry")
)

type CreateRequest struct {
	Amount         int64
	CustomerEmail  string
	IdempotencyKey string
}

// Authorization is one gateway-side hold. It is never persisted here.
type Authorization struct {
	ID           string `json:"id"`
	ClientSecret string `json:"-"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       Status `json:"status"`
}

// Gateway is the boundary to the payment processor.
type Gateway interface {
	CreateAuthorization(ctx context.Context, req CreateRequest) (*Authorization, error)
	// ConfirmAuthorization confirms with paymentMethod, or reads the current
	// status when paymentMethod is empty (already confirmed by the hosted form).
	ConfirmAuthorization(ctx context.Context, id, paymentMethod string) (*Authorization, error)
	GetAuthorization(ctx context.Context, id string) (*Authorization, error)
}

type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindCard
	KindValidation
)

// GatewayError carries the processor's classification of a failed call.
type GatewayError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "payment gateway error"
}

func (e *GatewayError) Unwrap() error { return e.Err }

// UserMessage returns the text shown to the customer for err: card and
// validation messages verbatim, everything else generic.
func UserMessage(err error) string {
	var ge *GatewayError
	if errors.As(err, &ge) && (ge.Kind == KindCard || ge.Kind == KindValidation) && ge.Message != "" {
		return ge.Message
	}
	return MsgGenericFailure
}

func validateCreate(req CreateRequest) error {
	if req.Amount <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidAmount, req.Amount)
	}
	return nil
}
