package handlers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/diagnosis/testride-bookings/pkg/middleware"
	"github.com/diagnosis/testride-bookings/services/gateway/internal/handlers"
	"github.com/diagnosis/testride-bookings/services/gateway/internal/proxy"
)

type seen struct {
	Service   string `json:"service"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Query     string `json:"query"`
	Body      string `json:"body"`
	RequestID string `json:"request_id"`
	Signature string `json:"signature"`
	Forwarded string `json:"forwarded"`
}

func upstream(name string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Upstream", name)
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(seen{
			Service:   name,
			Method:    r.Method,
			Path:      r.URL.Path,
			Query:     r.URL.RawQuery,
			Body:      string(body),
			RequestID: r.Header.Get("X-Request-ID"),
			Signature: r.Header.Get("Stripe-Signature"),
			Forwarded: r.Header.Get("X-Gateway-Forwarded"),
		})
	}))
}

func setupGateway(testridesURL, paymentsURL string) *httptest.Server {
	h := handlers.New(
		proxy.NewServiceProxy("testrides", testridesURL, 5*time.Second),
		proxy.NewServiceProxy("payments", paymentsURL, 5*time.Second),
	)
	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Route("/v1", func(r chi.Router) {
		r.HandleFunc("/payments/*", h.Payments)
		r.HandleFunc("/*", h.Testrides)
	})
	return httptest.NewServer(r)
}

func TestGateway_RoutesByPrefix(t *testing.T) {
	testrides := upstream("testrides")
	defer testrides.Close()
	payments := upstream("payments")
	defer payments.Close()
	gw := setupGateway(testrides.URL, payments.URL)
	defer gw.Close()

	tests := []struct {
		name        string
		method      string
		path        string
		body        string
		wantService string
		wantPath    string
		wantQuery   string
	}{
		{"wizard start", http.MethodPost, "/v1/wizard", `{}`, "testrides", "/wizard", ""},
		{"admin list with query", http.MethodGet, "/v1/admin/test-drives?q=rad", "", "testrides", "/admin/test-drives", "q=rad"},
		{"payment intent", http.MethodPost, "/v1/payments/create-payment-intent", `{"amount":100}`, "payments", "/create-payment-intent", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, gw.URL+tt.path, strings.NewReader(tt.body))
			req.Header.Set("X-Request-ID", "req-123")
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusAccepted {
				t.Fatalf("expected upstream status 202, got %d", resp.StatusCode)
			}
			var got seen
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatal(err)
			}
			if got.Service != tt.wantService || got.Path != tt.wantPath || got.Query != tt.wantQuery {
				t.Errorf("unexpected upstream view: %+v", got)
			}
			if got.Body != tt.body {
				t.Errorf("body not forwarded: %q", got.Body)
			}
			if got.RequestID != "req-123" || got.Forwarded != "true" {
				t.Errorf("tracing headers missing: %+v", got)
			}
			if resp.Header.Get("X-Upstream") != tt.wantService {
				t.Errorf("response headers not copied")
			}
			if ids := resp.Header.Values("X-Request-ID"); len(ids) != 1 {
				t.Errorf("expected one request id header, got %v", ids)
			}
		})
	}
}

func TestGateway_WebhookSignaturePassesThrough(t *testing.T) {
	payments := upstream("payments")
	defer payments.Close()
	gw := setupGateway("http://127.0.0.1:1", payments.URL)
	defer gw.Close()

	payload := `{"id":"evt_1","type":"payment_intent.succeeded"}`
	req, _ := http.NewRequest(http.MethodPost, gw.URL+"/v1/payments/webhook", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var got seen
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Body != payload || got.Signature != "t=1,v1=abc" {
		t.Errorf("webhook altered in transit: %+v", got)
	}
}

func TestGateway_UpstreamDown(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	gw := setupGateway(deadURL, deadURL)
	defer gw.Close()

	resp, err := http.Get(gw.URL + "/v1/bikes")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}
