package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diagnosis/testride-bookings/pkg/config"
	"github.com/diagnosis/testride-bookings/pkg/events"
	"github.com/diagnosis/testride-bookings/pkg/logger"
	"github.com/diagnosis/testride-bookings/pkg/payments"
	"github.com/diagnosis/testride-bookings/services/testrides/internal/domain"
	"github.com/diagnosis/testride-bookings/services/testrides/internal/waiver"
	"github.com/diagnosis/testride-bookings/services/testrides/internal/wizard"
	"github.com/google/uuid"
)

var ErrPersistenceFailed = errors.New("booking could not be saved")

const msgCommitFailed = "We couldn't save your booking. Please try again."

// PaymentFailedError reports a confirmation that ended in the failed state.
type PaymentFailedError struct {
	Message      string
	NeedsSupport bool
}

func (e *PaymentFailedError) Error() string { return e.Message }

// WizardService runs the side effects of the intake wizard around the pure
// reducer. Session locks are never held across network calls.
type WizardService interface {
	Start(ctx context.Context) wizard.Session
	Get(ctx context.Context, id string) (wizard.Session, error)
	Apply(ctx context.Context, id string, a wizard.Action) (wizard.Session, error)
	UploadIDPhoto(ctx context.Context, id string, data []byte) (wizard.Session, error)
	CaptureSignature(ctx context.Context, id, signatureData string) (wizard.Session, error)
	MountPayment(ctx context.Context, id string) (wizard.Session, error)
	ConfirmPayment(ctx context.Context, id, paymentMethod string) (wizard.Session, error)
	RefreshPayment(ctx context.Context, id string) (wizard.Session, error)
	Commit(ctx context.Context, id string) (wizard.Session, error)
}

type wizardService struct {
	store        wizard.Store
	verification VerificationService
	payments     payments.Gateway
	gateway      PersistenceGateway
	notifier     Notifier
	eventBus     events.Publisher
	shop         config.ShopConfig
	holdAmount   int64
	now          func() time.Time
}

func NewWizardService(
	store wizard.Store,
	verification VerificationService,
	paymentGateway payments.Gateway,
	gateway PersistenceGateway,
	notifier Notifier,
	eventBus events.Publisher,
	cfg *config.Config,
) WizardService {
	return &wizardService{
		store:        store,
		verification: verification,
		payments:     paymentGateway,
		gateway:      gateway,
		notifier:     notifier,
		eventBus:     eventBus,
		shop:         cfg.Shop,
		holdAmount:   cfg.Stripe.HoldAmount,
		now:          time.Now,
	}
}

func (s *wizardService) Start(ctx context.Context) wizard.Session {
	sess := s.store.Create()
	logger.InfoContext(logger.WithSession(ctx, sess.ID), "Wizard session started")
	return sess
}

func (s *wizardService) Get(_ context.Context, id string) (wizard.Session, error) {
	return s.store.Get(id)
}

// Apply runs an action that has no side effects outside the session.
func (s *wizardService) Apply(_ context.Context, id string, a wizard.Action) (wizard.Session, error) {
	switch a.(type) {
	case wizard.SubmitContact, wizard.SelectBike, wizard.AcknowledgeWaiver,
		wizard.Continue, wizard.Back, wizard.StartOver:
	default:
		return wizard.Session{}, fmt.Errorf("%w: %T cannot be applied directly", wizard.ErrWrongStep, a)
	}
	return s.reduce(id, a)
}

func (s *wizardService) UploadIDPhoto(ctx context.Context, id string, data []byte) (wizard.Session, error) {
	ctx = logger.WithSession(ctx, id)

	obj, err := s.verification.PrepareIDPhoto(data)
	if err != nil {
		return wizard.Session{}, err
	}
	if _, err := s.reduce(id, wizard.PhotoUploadStarted{}); err != nil {
		return wizard.Session{}, err
	}

	url, upErr := s.verification.UploadIDPhoto(ctx, obj)
	if upErr != nil {
		logger.ErrorContext(ctx, "ID photo upload failed", "error", upErr)
	}
	sess, err := s.reduce(id, wizard.PhotoUploadFinished{URL: url, Err: upErr})
	if err != nil {
		return sess, err
	}
	return sess, upErr
}

// CaptureSignature renders the waiver from the latest drawing before
// recording it, so a signature that cannot be embedded is rejected outright.
// A failed waiver upload keeps the signature; the waiver is produced again
// when the booking is saved.
func (s *wizardService) CaptureSignature(ctx context.Context, id, signatureData string) (wizard.Session, error) {
	ctx = logger.WithSession(ctx, id)

	signatureData = strings.TrimSpace(signatureData)
	if signatureData == "" {
		return s.reduce(id, wizard.SignatureCaptured{})
	}

	cur, err := s.store.Get(id)
	if err != nil {
		return wizard.Session{}, err
	}
	if _, err := wizard.Reduce(cur, wizard.SignatureCaptured{Data: signatureData}); err != nil {
		return cur, err
	}

	pdf, err := s.verification.RenderWaiver(waiver.Document{
		ShopLocation:  s.shop.Location,
		CustomerName:  cur.Contact.Name,
		SignatureData: signatureData,
		SignedAt:      s.now().In(s.location()),
	})
	if errors.Is(err, waiver.ErrInvalidSignature) {
		return cur, &wizard.ValidationError{Field: "signature_data", Message: err.Error()}
	}
	if err != nil {
		logger.ErrorContext(ctx, "Failed to render waiver", "error", err)
		return cur, fmt.Errorf("failed to render waiver: %w", err)
	}

	sess, err := s.reduce(id, wizard.SignatureCaptured{Data: signatureData})
	if err != nil {
		return sess, err
	}

	url, upErr := s.verification.UploadWaiver(ctx, pdf)
	if upErr != nil {
		logger.ErrorContext(ctx, "Waiver upload failed", "error", upErr)
	}
	return s.reduce(id, wizard.WaiverUploadFinished{Signature: sess.SignatureData, URL: url, Err: upErr})
}

// MountPayment creates a fresh authorization every time the payment step is
// shown.
func (s *wizardService) MountPayment(ctx context.Context, id string) (wizard.Session, error) {
	ctx = logger.WithSession(ctx, id)

	cur, err := s.store.Get(id)
	if err != nil {
		return wizard.Session{}, err
	}
	if _, err := wizard.Reduce(cur, wizard.PaymentMounted{}); err != nil {
		return cur, err
	}

	auth, err := s.payments.CreateAuthorization(ctx, payments.CreateRequest{
		Amount:         s.holdAmount,
		CustomerEmail:  cur.Contact.Email,
		IdempotencyKey: id + ":" + uuid.NewString(),
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create payment authorization", "error", err)
		return cur, fmt.Errorf("failed to create payment authorization: %w", err)
	}

	if err := s.eventBus.Publish(ctx, events.PaymentIntentCreated, events.PaymentIntentCreatedEvent{
		IntentID:      auth.ID,
		Amount:        auth.Amount,
		Currency:      auth.Currency,
		CustomerEmail: cur.Contact.Email,
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish payment intent event", "error", err, "intent_id", auth.ID)
	}

	return s.reduce(id, wizard.PaymentMounted{AuthorizationID: auth.ID, ClientSecret: auth.ClientSecret})
}

// ConfirmPayment confirms the mounted authorization at most once. A repeat
// while a confirmation is processing or completed returns the session
// untouched.
func (s *wizardService) ConfirmPayment(ctx context.Context, id, paymentMethod string) (wizard.Session, error) {
	ctx = logger.WithSession(ctx, id)

	sess, err := s.reduce(id, wizard.ConfirmStarted{})
	if errors.Is(err, wizard.ErrConfirmInFlight) {
		logger.InfoContext(ctx, "Ignoring repeated payment confirmation")
		return sess, nil
	}
	if err != nil {
		return sess, err
	}

	authID := sess.Payment.Confirmation.AuthorizationID
	auth, gwErr := s.payments.ConfirmAuthorization(ctx, authID, paymentMethod)
	return s.settle(ctx, id, auth, gwErr)
}

// RefreshPayment re-reads an authorization the gateway left pending.
func (s *wizardService) RefreshPayment(ctx context.Context, id string) (wizard.Session, error) {
	ctx = logger.WithSession(ctx, id)

	sess, err := s.reduce(id, wizard.RefreshStarted{})
	if errors.Is(err, wizard.ErrConfirmInFlight) {
		return sess, nil
	}
	if err != nil {
		return sess, err
	}

	auth, gwErr := s.payments.GetAuthorization(ctx, sess.Payment.Confirmation.AuthorizationID)
	return s.settle(ctx, id, auth, gwErr)
}

func (s *wizardService) settle(ctx context.Context, id string, auth *payments.Authorization, gwErr error) (wizard.Session, error) {
	if gwErr != nil {
		logger.ErrorContext(ctx, "Payment confirmation failed", "error", gwErr)
	}
	sess, err := s.reduce(id, wizard.PaymentSettled{Authorization: auth, Err: gwErr})
	if err != nil {
		return sess, err
	}

	switch sess.Payment.Status {
	case wizard.PaymentCompleted:
		return s.Commit(ctx, id)
	case wizard.PaymentFailed:
		c := sess.Payment.Confirmation
		if c.NeedsSupport {
			logger.ErrorContext(ctx, "Unrecognized payment status", "status", c.GatewayStatus, "intent_id", c.AuthorizationID)
		}
		return sess, &PaymentFailedError{Message: c.Message, NeedsSupport: c.NeedsSupport}
	default:
		return sess, nil
	}
}

// Commit persists the booking once payment has completed, then sends the
// confirmation and moves the wizard to Success. On a datastore error the
// wizard stays on Payment for retry.
func (s *wizardService) Commit(ctx context.Context, id string) (wizard.Session, error) {
	ctx = logger.WithSession(ctx, id)

	sess, err := s.reduce(id, wizard.CommitStarted{})
	if err != nil {
		return sess, err
	}

	start := s.now().UTC()
	req := bookingRequest(sess, start, start.Add(s.shop.TestRideDuration))

	booking, err := s.gateway.CreateTestDrive(ctx, req)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to persist booking", "error", err)
		sess, _ = s.reduce(id, wizard.CommitFailed{Message: msgCommitFailed})
		return sess, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	// The booking exists now; a client disconnect must not stop the follow-up.
	ctx = context.WithoutCancel(ctx)
	td := booking.TestDrive
	returnAt := td.EndTime.In(s.location())
	result := s.notifier.SendTestRideConfirmation(ctx, booking.Customer.Phone, returnAt, s.shop.Location)
	if !result.Success {
		logger.ErrorContext(ctx, "Test ride confirmation not sent", "error", result.Error, "test_drive_id", td.ID)
	}

	s.publishBooked(ctx, booking, sess.Payment.Confirmation.AuthorizationID)

	outcome := wizard.Outcome{
		CustomerID:       booking.Customer.ID.String(),
		TestDriveID:      td.ID.String(),
		BikeModel:        td.BikeModel,
		StartTime:        td.StartTime.In(s.location()),
		ReturnTime:       returnAt,
		Location:         s.shop.Location,
		ConfirmationSent: result.Success,
		Message:          successMessage(result.Success, returnAt),
	}
	logger.InfoContext(ctx, "Test ride booked", "test_drive_id", td.ID, "customer_id", booking.Customer.ID, "bike_model", td.BikeModel)
	return s.reduce(id, wizard.Committed{Outcome: outcome})
}

func (s *wizardService) publishBooked(ctx context.Context, b *domain.Booking, paymentID string) {
	event := events.TestRideBookedEvent{
		TestDriveID:   b.TestDrive.ID.String(),
		CustomerID:    b.Customer.ID.String(),
		CustomerName:  b.Customer.Name,
		CustomerEmail: b.Customer.Email,
		CustomerPhone: b.Customer.Phone,
		BikeModel:     b.TestDrive.BikeModel,
		StartTime:     b.TestDrive.StartTime,
		EndTime:       b.TestDrive.EndTime,
		PaymentID:     paymentID,
	}
	if err := s.eventBus.Publish(ctx, events.TestRideBooked, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish test ride booked event", "error", err, "test_drive_id", b.TestDrive.ID)
	}
}

// location is the shop's wall clock used for customer-facing times.
func (s *wizardService) location() *time.Location {
	if s.shop.Timezone == nil {
		return time.UTC
	}
	return s.shop.Timezone
}

func (s *wizardService) reduce(id string, a wizard.Action) (wizard.Session, error) {
	return s.store.Update(id, func(cur wizard.Session) (wizard.Session, error) {
		return wizard.Reduce(cur, a)
	})
}

func bookingRequest(sess wizard.Session, start, end time.Time) *domain.BookingReq {
	return &domain.BookingReq{
		Customer: domain.CustomerReq{
			Name:          sess.Contact.Name,
			Phone:         sess.Contact.Phone,
			Email:         sess.Contact.Email,
			IDPhotoURL:    sess.IDPhoto.URL,
			SignatureData: sess.SignatureData,
			WaiverURL:     sess.Waiver.URL,
			WaiverSigned:  sess.WaiverSigned,
			SubmissionIP:  sess.SubmissionIP,
			SubmittedAt:   sess.SubmittedAt,
		},
		TestDrive: domain.TestDriveReq{
			BikeModel: sess.BikeModel,
			StartTime: start,
			EndTime:   end,
		},
	}
}

func successMessage(sent bool, returnTime time.Time) string {
	if sent {
		return "Confirmation sent. Please return the bike by " + returnTime.Format("3:04 PM") + "."
	}
	return "Message failed to send, note your return time: " + returnTime.Format("3:04 PM") + "."
}
