package wizard

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound  = errors.New("wizard session not found")
	ErrWrongStep        = errors.New("action not allowed at this step")
	ErrUploadInProgress = errors.New("upload already in progress")
	ErrConfirmInFlight  = errors.New("payment confirmation already in progress or completed")
	ErrPaymentPending   = errors.New("payment has not completed")
	ErrCommitInProgress = errors.New("booking is already being saved")
	ErrNoAuthorization  = errors.New("payment form has not been loaded")
)

// ValidationError is a field-level rejection of user input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

func wrongStep(s Step, action string) error {
	return fmt.Errorf("%w: %s during %s", ErrWrongStep, action, s)
}
