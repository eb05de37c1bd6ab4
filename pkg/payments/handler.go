package payments

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/diagnosis/testride-bookings/pkg/events"
	"github.com/diagnosis/testride-bookings/pkg/logger"
	"github.com/diagnosis/testride-bookings/pkg/response"
	"github.com/go-chi/chi/v5"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

const maxWebhookBody = 64 << 10

type createIntentReq struct {
	Amount         int64  `json:"amount"`
	CustomerEmail  string `json:"customerEmail"`
	IdempotencyKey string `json:"idempotencyKey"`
}

type createIntentRes struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

// Handler exposes intent creation and the gateway webhook over HTTP.
type Handler struct {
	gateway       Gateway
	bus           events.Publisher
	webhookSecret string
}

func NewHandler(gateway Gateway, bus events.Publisher, webhookSecret string) *Handler {
	return &Handler{gateway: gateway, bus: bus, webhookSecret: webhookSecret}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/create-payment-intent", h.CreatePaymentIntent)
	r.Post("/webhook", h.Webhook)
	return r
}

func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var in createIntentReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if in.Amount <= 0 {
		response.BadRequest(w, "amount must be a positive integer in minor units")
		return
	}
	if in.IdempotencyKey == "" {
		in.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}

	auth, err := h.gateway.CreateAuthorization(r.Context(), CreateRequest{
		Amount:         in.Amount,
		CustomerEmail:  strings.TrimSpace(in.CustomerEmail),
		IdempotencyKey: in.IdempotencyKey,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to create payment intent", "error", err)
		if errors.Is(err, ErrInvalidAmount) {
			response.BadRequest(w, err.Error())
			return
		}
		response.WriteError(w, http.StatusBadGateway, UserMessage(err), response.CodePaymentFailed)
		return
	}

	if err := h.bus.Publish(r.Context(), events.PaymentIntentCreated, events.PaymentIntentCreatedEvent{
		IntentID:      auth.ID,
		Amount:        auth.Amount,
		Currency:      auth.Currency,
		CustomerEmail: in.CustomerEmail,
	}); err != nil {
		logger.ErrorContext(r.Context(), "Failed to publish payment intent event", "error", err, "intent_id", auth.ID)
	}

	response.WriteJSON(w, http.StatusOK, createIntentRes{
		ClientSecret:    auth.ClientSecret,
		PaymentIntentID: auth.ID,
	})
}

// Webhook verifies the gateway signature and republishes PaymentIntent
// transitions on the event bus.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(w, "unreadable body")
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), h.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		logger.WarnContext(r.Context(), "Rejected webhook", "error", err)
		response.BadRequest(w, "invalid signature")
		return
	}

	subject := ""
	switch string(event.Type) {
	case "payment_intent.amount_capturable_updated", "payment_intent.succeeded":
		subject = events.PaymentAuthorized
	case "payment_intent.payment_failed":
		subject = events.PaymentFailed
	case "payment_intent.canceled":
		subject = events.PaymentCanceled
	default:
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		response.BadRequest(w, "invalid payment intent payload")
		return
	}

	evt := events.PaymentStatusEvent{
		IntentID: pi.ID,
		Status:   string(pi.Status),
		Amount:   pi.Amount,
	}
	if pi.LastPaymentError != nil {
		evt.Reason = pi.LastPaymentError.Msg
	}
	if err := h.bus.Publish(r.Context(), subject, evt); err != nil {
		logger.ErrorContext(r.Context(), "Failed to publish payment event", "error", err, "intent_id", pi.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}
