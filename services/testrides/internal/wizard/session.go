package wizard

import (
	"encoding/json"
	"time"

	"github.com/diagnosis/testride-bookings/pkg/payments"
)

type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

type Upload struct {
	State UploadState `json:"state"`
	URL   string      `json:"url,omitempty"`
	Error string      `json:"error,omitempty"`
}

type Payment struct {
	Status       PaymentStatus         `json:"status,omitempty"`
	ClientSecret string                `json:"client_secret,omitempty"`
	Confirmation payments.Confirmation `json:"confirmation"`
	InFlight     bool                  `json:"in_flight,omitempty"`
}

// Outcome is what the success screen shows.
type Outcome struct {
	CustomerID       string    `json:"customer_id"`
	TestDriveID      string    `json:"test_drive_id"`
	BikeModel        string    `json:"bike_model"`
	StartTime        time.Time `json:"start_time"`
	ReturnTime       time.Time `json:"return_time"`
	Location         string    `json:"location"`
	ConfirmationSent bool      `json:"confirmation_sent"`
	Message          string    `json:"message"`
}

// Session is the in-progress aggregate of one wizard run. It is a value:
// Reduce returns a modified copy and never mutates its input.
type Session struct {
	ID   string `json:"id"`
	Step Step   `json:"step"`

	Contact   Contact `json:"contact"`
	BikeModel string  `json:"bike_model,omitempty"`

	IDPhoto       Upload     `json:"id_photo"`
	SignatureData string     `json:"-"`
	HasSignature  bool       `json:"has_signature"`
	Waiver        Upload     `json:"waiver"`
	WaiverSigned  bool       `json:"waiver_signed"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	SubmissionIP  string     `json:"-"`

	Payment Payment `json:"payment"`

	Committing  bool     `json:"committing,omitempty"`
	CommitError string   `json:"commit_error,omitempty"`
	Outcome     *Outcome `json:"outcome,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func New(id string, now time.Time) Session {
	return Session{
		ID:        id,
		Step:      StepContact,
		IDPhoto:   Upload{State: UploadEmpty},
		Waiver:    Upload{State: UploadEmpty},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// VerificationComplete reports whether every verification artifact the
// Payment step depends on is present.
func (s Session) VerificationComplete() bool {
	return s.IDPhoto.URL != "" && s.WaiverSigned && s.SignatureData != ""
}

// ReadyForPayment reports whether every field gating the Payment step is set.
func (s Session) ReadyForPayment() bool {
	return s.Contact.Name != "" && s.Contact.Phone != "" && s.BikeModel != "" && s.VerificationComplete()
}

// CanConfirm reports whether a confirmation call may be issued now.
func (s Session) CanConfirm() bool {
	if s.Step != StepPayment || s.Payment.Confirmation.AuthorizationID == "" {
		return false
	}
	_, ok := payments.Begin(s.Payment.Confirmation)
	return ok
}

// MarshalJSON adds can_confirm so the client can enable the pay button.
func (s Session) MarshalJSON() ([]byte, error) {
	type session Session
	return json.Marshal(struct {
		session
		CanConfirm bool `json:"can_confirm"`
	}{session(s), s.CanConfirm()})
}
