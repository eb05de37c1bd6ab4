package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diagnosis/testride-bookings/pkg/config"
	"github.com/diagnosis/testride-bookings/pkg/logger"
	mw "github.com/diagnosis/testride-bookings/pkg/middleware"
	"github.com/diagnosis/testride-bookings/services/gateway/internal/handlers"
	"github.com/diagnosis/testride-bookings/services/gateway/internal/proxy"
	"github.com/go-chi/chi/v5"
)

func main() {
	cfg := config.Load()

	// Use localhost for development, service names in compose
	var (
		testridesBaseURL = getServiceURL("TESTRIDES_SERVICE_URL", "http://localhost:"+cfg.Server.Port)
		paymentsBaseURL  = getServiceURL("PAYMENTS_SERVICE_URL", "http://localhost:"+cfg.Server.PaymentsPort)
	)

	// uploads and payment confirmation both sit behind the edge
	upstreamTimeout := cfg.Timeouts.Upload + cfg.Timeouts.Payment

	h := handlers.New(
		proxy.NewServiceProxy("testrides", testridesBaseURL, upstreamTimeout),
		proxy.NewServiceProxy("payments", paymentsBaseURL, upstreamTimeout),
	)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("gateway"))
	r.Use(mw.Logging)
	r.Use(mw.Recover)
	r.Use(mw.CORS(cfg.Server.AllowedOrigins))
	r.Use(mw.Health)

	routes(r, h)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.GatewayPort,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down gateway service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Gateway shutdown error", "error", err)
		}
	}()

	logger.Info("Starting gateway service", "port", cfg.Server.GatewayPort, "testrides", testridesBaseURL, "payments", paymentsBaseURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Gateway server error", "error", err)
		os.Exit(1)
	}
}

func routes(r chi.Router, h *handlers.Handlers) {
	r.Route("/v1", func(r chi.Router) {
		r.HandleFunc("/payments/*", h.Payments)
		r.HandleFunc("/*", h.Testrides)
	})
}

func getServiceURL(envKey, fallback string) string {
	if url := os.Getenv(envKey); url != "" {
		return url
	}
	return fallback
}
