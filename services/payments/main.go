package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diagnosis/testride-bookings/pkg/config"
	"github.com/diagnosis/testride-bookings/pkg/events"
	"github.com/diagnosis/testride-bookings/pkg/logger"
	mw "github.com/diagnosis/testride-bookings/pkg/middleware"
	"github.com/diagnosis/testride-bookings/pkg/payments"
	"github.com/go-chi/chi/v5"
)

func main() {
	cfg := config.Load()

	var eventBus events.EventBus
	natsBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Warn("NATS unavailable, events disabled", "error", err)
		eventBus = events.NopBus{}
	} else {
		eventBus = natsBus
	}
	defer eventBus.Close()

	redisClient, err := mw.NewRedisClient(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Error("Failed to configure Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	gateway := payments.NewStripeGateway(cfg.Stripe, cfg.Timeouts.Payment)
	h := payments.NewHandler(gateway, eventBus, cfg.Stripe.WebhookSecret)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("payments"))
	r.Use(mw.Logging)
	r.Use(mw.Recover)
	r.Use(mw.CORS(cfg.Server.AllowedOrigins))
	r.Use(mw.Health)
	r.Use(mw.IdempotencyMiddleware(mw.NewRedisIdempotencyStore(redisClient)))

	r.Mount("/", h.Routes())

	srv := &http.Server{
		Addr:         ":" + cfg.Server.PaymentsPort,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down payments service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Payments service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting payments service", "port", cfg.Server.PaymentsPort, "stripe_env", cfg.Stripe.Environment)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Payments service error", "error", err)
		os.Exit(1)
	}
}
