package payments_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diagnosis/testride-bookings/pkg/events"
	"github.com/diagnosis/testride-bookings/pkg/payments"
	"github.com/stripe/stripe-go/v76/webhook"
)

// ---------- Mocks ----------

type mockGateway struct {
	lastReq   payments.CreateRequest
	createErr error
}

func (m *mockGateway) CreateAuthorization(_ context.Context, req payments.CreateRequest) (*payments.Authorization, error) {
	m.lastReq = req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &payments.Authorization{
		ID:           "pi_test_1",
		ClientSecret: "pi_test_1_secret_abc",
		Amount:       req.Amount,
		Currency:     "usd",
		Status:       payments.StatusRequiresPaymentMethod,
	}, nil
}

func (m *mockGateway) ConfirmAuthorization(ctx context.Context, id, _ string) (*payments.Authorization, error) {
	return m.GetAuthorization(ctx, id)
}

func (m *mockGateway) GetAuthorization(_ context.Context, id string) (*payments.Authorization, error) {
	return &payments.Authorization{ID: id, Status: payments.StatusRequiresCapture}, nil
}

type recordingBus struct {
	events.NopBus
	subjects []string
	payloads []interface{}
}

func (b *recordingBus) Publish(_ context.Context, subject string, data interface{}) error {
	b.subjects = append(b.subjects, subject)
	b.payloads = append(b.payloads, data)
	return nil
}

// ---------- Helpers ----------

func setupTestServer(gw payments.Gateway, bus events.Publisher) *httptest.Server {
	h := payments.NewHandler(gw, bus, "whsec_test")
	return httptest.NewServer(h.Routes())
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

// signedWebhook posts a payment_intent event signed with the test secret.
func signedWebhook(t *testing.T, url, eventType, status string) *http.Response {
	t.Helper()
	payload := []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","type":%q,"data":{"object":{`+
		`"id":"pi_1","object":"payment_intent","status":%q,"amount":100,`+
		`"last_payment_error":{"message":"Your card was declined."}}}}`, eventType, status))
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: "whsec_test"})

	req, err := http.NewRequest(http.MethodPost, url+"/webhook", bytes.NewReader(signed.Payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Stripe-Signature", signed.Header)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	return resp
}

// ---------- Tests ----------

func TestCreatePaymentIntent_Success(t *testing.T) {
	gw := &mockGateway{}
	bus := &recordingBus{}
	srv := setupTestServer(gw, bus)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/create-payment-intent", map[string]any{
		"amount":         100,
		"customerEmail":  " ada@example.com ",
		"idempotencyKey": "idem-1",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out struct {
		ClientSecret    string `json:"clientSecret"`
		PaymentIntentID string `json:"paymentIntentId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ClientSecret != "pi_test_1_secret_abc" || out.PaymentIntentID != "pi_test_1" {
		t.Fatalf("unexpected response: %+v", out)
	}
	if gw.lastReq.IdempotencyKey != "idem-1" || gw.lastReq.CustomerEmail != "ada@example.com" {
		t.Fatalf("unexpected gateway request: %+v", gw.lastReq)
	}
	if len(bus.subjects) != 1 || bus.subjects[0] != events.PaymentIntentCreated {
		t.Fatalf("expected one intent-created event, got %v", bus.subjects)
	}
}

func TestCreatePaymentIntent_RejectsNonPositiveAmount(t *testing.T) {
	gw := &mockGateway{}
	srv := setupTestServer(gw, events.NopBus{})
	defer srv.Close()

	for _, amt := range []int{0, -100} {
		resp := postJSON(t, srv.URL+"/create-payment-intent", map[string]any{"amount": amt})
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("amount %d: expected 400, got %d", amt, resp.StatusCode)
		}
	}
	if gw.lastReq.Amount != 0 {
		t.Fatal("gateway must not be called for invalid amounts")
	}
}

func TestCreatePaymentIntent_GatewayError(t *testing.T) {
	gw := &mockGateway{createErr: &payments.GatewayError{Kind: payments.KindOther, Err: errors.New("boom")}}
	srv := setupTestServer(gw, events.NopBus{})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/create-payment-intent", map[string]any{"amount": 100})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	var out map[string]any
	json.NewDecoder(resp.Body).Decode(&out)
	if out["error"] != payments.MsgGenericFailure {
		t.Fatalf("expected generic message, got %v", out["error"])
	}
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	srv := setupTestServer(&mockGateway{}, events.NopBus{})
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/webhook", bytes.NewReader([]byte(`{"type":"payment_intent.succeeded"}`)))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestWebhook_PublishesPaymentEvents(t *testing.T) {
	tests := []struct {
		eventType   string
		status      string
		wantSubject string
	}{
		{"payment_intent.amount_capturable_updated", "requires_capture", events.PaymentAuthorized},
		{"payment_intent.succeeded", "succeeded", events.PaymentAuthorized},
		{"payment_intent.payment_failed", "requires_payment_method", events.PaymentFailed},
		{"payment_intent.canceled", "canceled", events.PaymentCanceled},
		{"charge.refunded", "succeeded", ""},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			bus := &recordingBus{}
			srv := setupTestServer(&mockGateway{}, bus)
			defer srv.Close()

			resp := signedWebhook(t, srv.URL, tt.eventType, tt.status)
			resp.Body.Close()
			if resp.StatusCode != http.StatusNoContent {
				t.Fatalf("expected 204, got %d", resp.StatusCode)
			}

			if tt.wantSubject == "" {
				if len(bus.subjects) != 0 {
					t.Fatalf("ignored event must not publish, got %v", bus.subjects)
				}
				return
			}
			if len(bus.subjects) != 1 || bus.subjects[0] != tt.wantSubject {
				t.Fatalf("expected %s, got %v", tt.wantSubject, bus.subjects)
			}
			evt, ok := bus.payloads[0].(events.PaymentStatusEvent)
			if !ok {
				t.Fatalf("unexpected payload type %T", bus.payloads[0])
			}
			if evt.IntentID != "pi_1" || evt.Status != tt.status || evt.Amount != 100 {
				t.Errorf("unexpected event: %+v", evt)
			}
			if evt.Reason != "Your card was declined." {
				t.Errorf("expected decline reason, got %q", evt.Reason)
			}
		})
	}
}
