package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/diagnosis/testride-bookings/pkg/auth"
	"github.com/diagnosis/testride-bookings/pkg/logger"
	"github.com/diagnosis/testride-bookings/pkg/payments"
	"github.com/diagnosis/testride-bookings/pkg/response"
	"github.com/diagnosis/testride-bookings/services/testrides/internal/domain"
	"github.com/diagnosis/testride-bookings/services/testrides/internal/repository"
	"github.com/diagnosis/testride-bookings/services/testrides/internal/service"
	"github.com/diagnosis/testride-bookings/services/testrides/internal/wizard"
	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	wizard        service.WizardService
	admin         service.AdminService
	jwtSecret     string
	maxPhotoBytes int64
}

func New(wizardService service.WizardService, adminService service.AdminService, jwtSecret string, maxPhotoBytes int64) *Handlers {
	return &Handlers{
		wizard:        wizardService,
		admin:         adminService,
		jwtSecret:     jwtSecret,
		maxPhotoBytes: maxPhotoBytes,
	}
}

// Routes registers the wizard, catalogue and admin endpoints.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/bikes", h.ListBikes)

	r.Route("/wizard", func(r chi.Router) {
		r.Post("/", h.StartWizard)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(h.withSession)
			r.Get("/", h.GetWizard)
			r.Post("/contact", h.SubmitContact)
			r.Post("/bike", h.SelectBike)
			r.Post("/id-photo", h.UploadIDPhoto)
			r.Post("/signature", h.CaptureSignature)
			r.Post("/waiver", h.AcknowledgeWaiver)
			r.Post("/continue", h.Continue)
			r.Post("/payment", h.MountPayment)
			r.Post("/payment/confirm", h.ConfirmPayment)
			r.Post("/payment/refresh", h.RefreshPayment)
			r.Post("/commit", h.Commit)
			r.Post("/back", h.Back)
			r.Post("/start-over", h.StartOver)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", h.AdminLogin)
		r.Group(func(r chi.Router) {
			r.Use(h.RequireAdmin)
			r.Get("/test-drives", h.ListActiveTestDrives)
			r.Post("/test-drives/{id}/complete", h.CompleteTestDrive)
			r.Get("/orphans", h.ListOrphans)
		})
	})
}

// RequireAdmin accepts only bearer tokens carrying the admin role.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			response.Unauthorized(w, "Missing or invalid authorization header")
			return
		}

		claims, err := auth.Parse(strings.TrimPrefix(authHeader, "Bearer "), h.jwtSecret)
		if err != nil {
			response.WriteError(w, http.StatusUnauthorized, "Invalid token", response.CodeInvalidToken)
			return
		}
		if claims.Role != auth.RoleAdmin {
			response.Forbidden(w, "Admin access required")
			return
		}

		ctx := context.WithValue(r.Context(), logger.UserIDKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handlers) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.WithSession(r.Context(), chi.URLParam(r, "id"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handlers) ListBikes(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, map[string]any{"bikes": domain.Bikes()})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeServiceError maps service and wizard errors onto the JSON error body.
// The wizard step is never changed by an error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *wizard.ValidationError
		declined   *service.PaymentFailedError
		gateway    *payments.GatewayError
	)

	switch {
	case errors.As(err, &validation):
		response.WriteErrorWithDetails(w, http.StatusBadRequest, validation.Message, response.CodeInvalidInput, validation.Field)
	case errors.Is(err, service.ErrEmptyPhoto),
		errors.Is(err, service.ErrPhotoTooLarge),
		errors.Is(err, service.ErrNotAnImage):
		response.BadRequest(w, err.Error())
	case errors.Is(err, wizard.ErrSessionNotFound):
		response.NotFound(w, "Wizard session not found")
	case errors.Is(err, repository.ErrNotFound):
		response.NotFound(w, "Test drive not found")
	case errors.Is(err, wizard.ErrWrongStep),
		errors.Is(err, wizard.ErrUploadInProgress),
		errors.Is(err, wizard.ErrCommitInProgress),
		errors.Is(err, wizard.ErrConfirmInFlight),
		errors.Is(err, wizard.ErrPaymentPending),
		errors.Is(err, wizard.ErrNoAuthorization),
		errors.Is(err, payments.ErrCanceled):
		response.Conflict(w, err.Error())
	case errors.As(err, &declined):
		details := ""
		if declined.NeedsSupport {
			details = "contact_support"
		}
		response.WriteErrorWithDetails(w, http.StatusPaymentRequired, declined.Message, response.CodePaymentFailed, details)
	case errors.As(err, &gateway):
		response.WriteError(w, http.StatusBadGateway, payments.UserMessage(err), response.CodePaymentFailed)
	case errors.Is(err, service.ErrUploadFailed):
		response.WriteError(w, http.StatusBadGateway, "Upload failed. Please try again.", response.CodeUploadFailed)
	case errors.Is(err, service.ErrPersistenceFailed):
		response.WriteError(w, http.StatusInternalServerError, "We couldn't save your booking. Please try again.", response.CodePersistenceFailed)
	default:
		logger.ErrorContext(r.Context(), "Unhandled error", "error", err)
		response.InternalError(w, "Internal server error")
	}
}
