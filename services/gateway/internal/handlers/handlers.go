package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/diagnosis/testride-bookings/pkg/logger"
	"github.com/diagnosis/testride-bookings/pkg/middleware"
	"github.com/diagnosis/testride-bookings/pkg/response"
	"github.com/diagnosis/testride-bookings/services/gateway/internal/proxy"
)

type Handlers struct {
	testrides *proxy.ServiceProxy
	payments  *proxy.ServiceProxy
}

func New(testrides, payments *proxy.ServiceProxy) *Handlers {
	return &Handlers{
		testrides: testrides,
		payments:  payments,
	}
}

// Testrides forwards /v1/... to the booking service.
func (h *Handlers) Testrides(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, h.testrides, "/v1")
}

// Payments forwards /v1/payments/... to the payments service. The webhook
// body is passed through untouched so its signature still verifies.
func (h *Handlers) Payments(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, h.payments, "/v1/payments")
}

func (h *Handlers) forward(w http.ResponseWriter, r *http.Request, serviceProxy *proxy.ServiceProxy, prefix string) {
	path := strings.TrimPrefix(r.URL.Path, prefix)
	if path == "" {
		path = "/"
	}
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	header := make(http.Header)
	for key, values := range r.Header {
		if shouldCopyHeader(key) {
			header[key] = values
		}
	}
	header.Set("X-Forwarded-For", middleware.ClientIP(r))

	resp, err := serviceProxy.ProxyRequest(r.Context(), r.Method, path, r.Body, header)
	if err != nil {
		logger.ErrorContext(r.Context(), "Service proxy error", "error", err, "service", serviceProxy.Name(), "path", path)
		response.WriteError(w, http.StatusServiceUnavailable, "Service unavailable", "SERVICE_UNAVAILABLE")
		return
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		if !shouldCopyHeader(key) {
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.ErrorContext(r.Context(), "Failed to copy response body", "error", err)
	}
}

// shouldCopyHeader drops hop-by-hop headers and the ones the gateway owns
// (request id, CORS).
func shouldCopyHeader(key string) bool {
	key = strings.ToLower(key)
	if strings.HasPrefix(key, "access-control-") {
		return false
	}
	switch key {
	case "host", "connection", "upgrade", "proxy-connection", "proxy-authenticate",
		"proxy-authorization", "te", "trailers", "transfer-encoding", "keep-alive",
		"origin", "x-request-id", "x-forwarded-for", "content-length":
		return false
	}
	return true
}
