package wizard

import (
	"strings"
	"time"

	"github.com/diagnosis/testride-bookings/pkg/payments"
	"github.com/diagnosis/testride-bookings/pkg/utils"
	"github.com/diagnosis/testride-bookings/services/testrides/internal/domain"
)

// Action is one input to Reduce. The set is closed.
type Action interface {
	action()
}

type SubmitContact struct{ Contact Contact }

type SelectBike struct{ Model string }

type PhotoUploadStarted struct{}

type PhotoUploadFinished struct {
	URL string
	Err error
}

// SignatureCaptured records the drawing after a stroke. Empty Data clears it.
type SignatureCaptured struct{ Data string }

// WaiverUploadFinished carries the signature the waiver was rendered from so
// that a slow upload for an earlier stroke cannot overwrite a newer one.
type WaiverUploadFinished struct {
	Signature string
	URL       string
	Err       error
}

type AcknowledgeWaiver struct {
	Agreed bool
	At     time.Time
	IP     string
}

type Continue struct{}

type PaymentMounted struct {
	AuthorizationID string
	ClientSecret    string
}

type ConfirmStarted struct{}

type RefreshStarted struct{}

type PaymentSettled struct {
	Authorization *payments.Authorization
	Err           error
}

type CommitStarted struct{}

type CommitFailed struct{ Message string }

type Committed struct{ Outcome Outcome }

type Back struct{}

type StartOver struct{ At time.Time }

func (SubmitContact) action()        {}
func (SelectBike) action()           {}
func (PhotoUploadStarted) action()   {}
func (PhotoUploadFinished) action()  {}
func (SignatureCaptured) action()    {}
func (WaiverUploadFinished) action() {}
func (AcknowledgeWaiver) action()    {}
func (Continue) action()             {}
func (PaymentMounted) action()       {}
func (ConfirmStarted) action()       {}
func (RefreshStarted) action()       {}
func (PaymentSettled) action()       {}
func (CommitStarted) action()        {}
func (CommitFailed) action()         {}
func (Committed) action()            {}
func (Back) action()                 {}
func (StartOver) action()            {}

// Reduce applies a to s. On error the returned session is s unchanged.
func Reduce(s Session, a Action) (Session, error) {
	next := s
	var err error

	switch a := a.(type) {
	case SubmitContact:
		err = submitContact(&next, a)
	case SelectBike:
		err = selectBike(&next, a)
	case PhotoUploadStarted:
		err = photoUploadStarted(&next)
	case PhotoUploadFinished:
		photoUploadFinished(&next, a)
	case SignatureCaptured:
		err = signatureCaptured(&next, a)
	case WaiverUploadFinished:
		waiverUploadFinished(&next, a)
	case AcknowledgeWaiver:
		err = acknowledgeWaiver(&next, a)
	case Continue:
		err = continueToPayment(&next)
	case PaymentMounted:
		err = paymentMounted(&next, a)
	case ConfirmStarted:
		err = confirmStarted(&next)
	case RefreshStarted:
		err = refreshStarted(&next)
	case PaymentSettled:
		paymentSettled(&next, a)
	case CommitStarted:
		err = commitStarted(&next)
	case CommitFailed:
		next.Committing = false
		next.CommitError = a.Message
	case Committed:
		err = committed(&next, a)
	case Back:
		err = back(&next)
	case StartOver:
		if s.Committing {
			err = ErrCommitInProgress
			break
		}
		next = New(s.ID, a.At)
	}

	if err != nil {
		return s, err
	}
	return next, nil
}

func submitContact(s *Session, a SubmitContact) error {
	if s.Step != StepContact {
		return wrongStep(s.Step, "contact")
	}
	c := Contact{
		Name:  utils.NormalizeString(a.Contact.Name),
		Phone: utils.NormalizeString(a.Contact.Phone),
		Email: utils.NormalizeEmail(a.Contact.Email),
	}
	if c.Name == "" {
		return invalid("name", "is required")
	}
	if !utils.IsValidPhone(c.Phone) {
		return invalid("phone", "must contain at least 7 digits")
	}
	if c.Email != "" && !utils.IsValidEmail(c.Email) {
		return invalid("email", "is not a valid address")
	}
	s.Contact = c
	s.Step = StepBike
	return nil
}

func selectBike(s *Session, a SelectBike) error {
	if s.Step != StepBike {
		return wrongStep(s.Step, "bike selection")
	}
	model := strings.TrimSpace(a.Model)
	if model == "" {
		return invalid("bike_model", "is required")
	}
	if _, ok := domain.LookupBike(model); !ok {
		return invalid("bike_model", "is not in the catalogue")
	}
	s.BikeModel = model
	s.Step = StepVerification
	return nil
}

func photoUploadStarted(s *Session) error {
	if s.Step != StepVerification {
		return wrongStep(s.Step, "id photo upload")
	}
	if s.IDPhoto.State == UploadUploading {
		return ErrUploadInProgress
	}
	s.IDPhoto = Upload{State: UploadUploading}
	return nil
}

func photoUploadFinished(s *Session, a PhotoUploadFinished) {
	if s.IDPhoto.State != UploadUploading {
		return
	}
	if a.Err != nil {
		s.IDPhoto = Upload{State: UploadFailed, Error: "Upload failed. Please try again."}
		return
	}
	s.IDPhoto = Upload{State: UploadSuccess, URL: a.URL}
}

func signatureCaptured(s *Session, a SignatureCaptured) error {
	if s.Step != StepVerification {
		return wrongStep(s.Step, "signature")
	}
	data := strings.TrimSpace(a.Data)
	if data == "" {
		s.SignatureData = ""
		s.HasSignature = false
		s.Waiver = Upload{State: UploadEmpty}
		return nil
	}
	if !strings.HasPrefix(data, "data:image/") {
		return invalid("signature_data", "must be an image data URL")
	}
	s.SignatureData = data
	s.HasSignature = true
	s.Waiver = Upload{State: UploadUploading}
	return nil
}

func waiverUploadFinished(s *Session, a WaiverUploadFinished) {
	if s.SignatureData == "" || a.Signature != s.SignatureData {
		return
	}
	if a.Err != nil {
		s.Waiver = Upload{State: UploadFailed, Error: "Waiver could not be saved. It will be retried when you finish."}
		return
	}
	s.Waiver = Upload{State: UploadSuccess, URL: a.URL}
}

func acknowledgeWaiver(s *Session, a AcknowledgeWaiver) error {
	if s.Step != StepVerification {
		return wrongStep(s.Step, "waiver")
	}
	if !a.Agreed {
		return invalid("agreed", "you must accept the waiver to continue")
	}
	at := a.At
	s.WaiverSigned = true
	s.SubmittedAt = &at
	s.SubmissionIP = a.IP
	return nil
}

func continueToPayment(s *Session) error {
	if s.Step != StepVerification {
		return wrongStep(s.Step, "continue")
	}
	switch {
	case s.IDPhoto.URL == "":
		return invalid("id_photo", "upload a photo of your ID")
	case s.SignatureData == "":
		return invalid("signature_data", "sign the waiver")
	case !s.WaiverSigned:
		return invalid("waiver_signed", "accept the waiver")
	case !s.ReadyForPayment():
		return invalid("contact", "contact details and bike are required")
	}
	s.Step = StepPayment
	return nil
}

func paymentMounted(s *Session, a PaymentMounted) error {
	if s.Step != StepPayment {
		return wrongStep(s.Step, "payment")
	}
	if s.Payment.InFlight || s.Payment.Status == PaymentCompleted {
		return ErrConfirmInFlight
	}
	s.Payment = Payment{
		ClientSecret: a.ClientSecret,
		Confirmation: payments.NewConfirmation(a.AuthorizationID),
	}
	s.CommitError = ""
	return nil
}

func confirmStarted(s *Session) error {
	if s.Payment.InFlight || s.Payment.Status == PaymentCompleted {
		return ErrConfirmInFlight
	}
	if s.Step != StepPayment {
		return wrongStep(s.Step, "payment confirmation")
	}
	if s.Payment.Confirmation.AuthorizationID == "" {
		return ErrNoAuthorization
	}
	if s.Payment.Confirmation.Canceled() {
		return payments.ErrCanceled
	}
	next, ok := payments.Begin(s.Payment.Confirmation)
	if !ok {
		return ErrConfirmInFlight
	}
	s.Payment.Confirmation = next
	s.Payment.Status = PaymentProcessing
	s.Payment.InFlight = true
	return nil
}

// refreshStarted permits a status read for a confirmation the gateway left
// pending (processing or requires_action).
func refreshStarted(s *Session) error {
	if s.Step != StepPayment {
		return wrongStep(s.Step, "payment refresh")
	}
	if s.Payment.InFlight || !s.Payment.Confirmation.Pending() {
		return ErrConfirmInFlight
	}
	s.Payment.InFlight = true
	return nil
}

func paymentSettled(s *Session, a PaymentSettled) {
	if !s.Payment.InFlight {
		return
	}
	c := payments.Settle(s.Payment.Confirmation, a.Authorization, a.Err)
	s.Payment.Confirmation = c
	s.Payment.InFlight = false
	switch {
	case c.Succeeded():
		s.Payment.Status = PaymentCompleted
	case c.Pending():
		s.Payment.Status = PaymentProcessing
	default:
		s.Payment.Status = PaymentFailed
	}
}

func commitStarted(s *Session) error {
	if s.Step != StepPayment {
		return wrongStep(s.Step, "commit")
	}
	if s.Payment.Status != PaymentCompleted {
		return ErrPaymentPending
	}
	if s.Committing {
		return ErrCommitInProgress
	}
	if !s.ReadyForPayment() {
		return invalid("verification", "verification is incomplete")
	}
	s.Committing = true
	s.CommitError = ""
	return nil
}

func committed(s *Session, a Committed) error {
	if s.Step != StepPayment || !s.Committing {
		return wrongStep(s.Step, "success")
	}
	o := a.Outcome
	s.Outcome = &o
	s.Committing = false
	s.Step = StepSuccess
	return nil
}

func back(s *Session) error {
	if s.Committing {
		return ErrCommitInProgress
	}
	if s.Payment.InFlight {
		return ErrConfirmInFlight
	}
	prev, ok := s.Step.previous()
	if !ok {
		return wrongStep(s.Step, "back")
	}
	s.Step = prev
	return nil
}
