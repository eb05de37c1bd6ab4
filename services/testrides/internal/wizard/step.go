// Package wizard holds the intake wizard as an immutable Session value and a
// pure reducer over it. Network side effects live in the caller; the reducer
// only records their outcomes.
package wizard

import (
	"encoding/json"
	"fmt"
)

type Step int

const (
	StepContact Step = iota + 1
	StepBike
	StepVerification
	StepPayment
	StepSuccess
)

func (s Step) String() string {
	switch s {
	case StepContact:
		return "contact"
	case StepBike:
		return "bike"
	case StepVerification:
		return "verification"
	case StepPayment:
		return "payment"
	case StepSuccess:
		return "success"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

func (s Step) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// previous is the Back target; ok is false where Back is not allowed.
func (s Step) previous() (Step, bool) {
	switch s {
	case StepBike:
		return StepContact, true
	case StepVerification:
		return StepBike, true
	case StepPayment:
		return StepVerification, true
	default:
		return s, false
	}
}

type UploadState string

const (
	UploadEmpty     UploadState = "empty"
	UploadUploading UploadState = "uploading"
	UploadSuccess   UploadState = "success"
	UploadFailed    UploadState = "failed"
)

type PaymentStatus string

const (
	PaymentNone       PaymentStatus = ""
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
)
