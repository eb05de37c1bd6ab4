package payments

import "fmt"

// ConfirmState is the client-facing confirmation progress of one authorization.
type ConfirmState string

const (
	ConfirmIdle       ConfirmState = "idle"
	ConfirmProcessing ConfirmState = "processing"
	ConfirmCompleted  ConfirmState = "completed"
	ConfirmFailed     ConfirmState = "failed"
)

const (
	MsgGenericFailure  = "Payment could not be completed. Please try again."
	MsgCanceled        = "Payment was canceled, please retry."
	MsgProcessing      = "Your payment is processing. Please wait."
	MsgRequiresAction  = "Additional verification is required. Please complete it in the payment form."
	MsgNeedsNewMethod  = "Your payment method was not accepted. Please try another card."
	msgUnknownStatusFm = "Unexpected payment status %q. Please contact support."
)

// Confirmation tracks a single authorization through confirmation.
type Confirmation struct {
	AuthorizationID string       `json:"authorization_id"`
	State           ConfirmState `json:"state"`
	GatewayStatus   Status       `json:"gateway_status,omitempty"`
	Message         string       `json:"message,omitempty"`
	NeedsSupport    bool         `json:"needs_support,omitempty"`
}

func NewConfirmation(authorizationID string) Confirmation {
	return Confirmation{AuthorizationID: authorizationID, State: ConfirmIdle}
}

// Begin moves an idle or failed confirmation to processing. ok is false when a
// confirmation is already in flight or finished, or the gateway canceled the
// authorization; callers must not contact the gateway in that case.
func Begin(c Confirmation) (next Confirmation, ok bool) {
	if c.Canceled() {
		return c, false
	}
	switch c.State {
	case ConfirmIdle, ConfirmFailed:
		c.State = ConfirmProcessing
		c.Message = ""
		c.NeedsSupport = false
		return c, true
	default:
		return c, false
	}
}

// Settle applies the result of a gateway confirm/read call.
func Settle(c Confirmation, auth *Authorization, err error) Confirmation {
	if err != nil {
		c.State = ConfirmFailed
		c.Message = UserMessage(err)
		return c
	}
	return Resolve(c, auth.Status)
}

// Resolve maps a gateway status onto the confirmation state machine.
func Resolve(c Confirmation, status Status) Confirmation {
	c.GatewayStatus = status
	c.NeedsSupport = false

	switch status {
	case StatusSucceeded, StatusRequiresCapture:
		c.State = ConfirmCompleted
		c.Message = ""
	case StatusProcessing:
		c.State = ConfirmProcessing
		c.Message = MsgProcessing
	case StatusRequiresAction:
		c.State = ConfirmProcessing
		c.Message = MsgRequiresAction
	case StatusCanceled:
		c.State = ConfirmFailed
		c.Message = MsgCanceled
	case StatusRequiresPaymentMethod, StatusRequiresConfirmation:
		c.State = ConfirmFailed
		c.Message = MsgNeedsNewMethod
	default:
		c.State = ConfirmFailed
		c.Message = fmt.Sprintf(msgUnknownStatusFm, string(status))
		c.NeedsSupport = true
	}
	return c
}

// Succeeded reports whether the hold is in place.
func (c Confirmation) Succeeded() bool {
	return c.State == ConfirmCompleted
}

// Canceled reports whether the gateway canceled the authorization. It cannot
// be confirmed again.
func (c Confirmation) Canceled() bool {
	return c.GatewayStatus == StatusCanceled
}

// Pending reports whether the gateway still owes a terminal status.
func (c Confirmation) Pending() bool {
	return c.State == ConfirmProcessing
}
