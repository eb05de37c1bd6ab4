package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diagnosis/testride-bookings/pkg/config"
	"github.com/diagnosis/testride-bookings/pkg/database"
	"github.com/diagnosis/testride-bookings/pkg/events"
	"github.com/diagnosis/testride-bookings/pkg/logger"
	mw "github.com/diagnosis/testride-bookings/pkg/middleware"
	"github.com/diagnosis/testride-bookings/pkg/payments"
	"github.com/diagnosis/testride-bookings/pkg/sms"
	"github.com/diagnosis/testride-bookings/pkg/storage"
	"github.com/diagnosis/testride-bookings/services/testrides/internal/handlers"
	"github.com/diagnosis/testride-bookings/services/testrides/internal/repository"
	"github.com/diagnosis/testride-bookings/services/testrides/internal/service"
	"github.com/diagnosis/testride-bookings/services/testrides/internal/wizard"
	"github.com/go-chi/chi/v5"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// Connect to database
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Connect to event bus. Bookings keep working without it.
	var eventBus events.EventBus
	natsBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Warn("NATS unavailable, events disabled", "error", err)
		eventBus = events.NopBus{}
	} else {
		eventBus = natsBus
	}
	defer eventBus.Close()

	uploader, err := storage.NewS3Store(ctx, cfg.Storage, cfg.Timeouts.Upload)
	if err != nil {
		logger.Error("Failed to configure object storage", "error", err)
		os.Exit(1)
	}

	smsProvider, err := sms.New(ctx, cfg.SMS)
	if err != nil {
		logger.Error("Failed to configure SMS provider", "error", err)
		os.Exit(1)
	}

	var idempotency mw.IdempotencyStore
	redisClient, err := mw.NewRedisClient(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("Redis unavailable, payment idempotency disabled", "error", err)
	} else {
		defer redisClient.Close()
		idempotency = mw.NewRedisIdempotencyStore(redisClient)
	}

	stripeGateway := payments.NewStripeGateway(cfg.Stripe, cfg.Timeouts.Payment)

	// Initialize repositories
	testDriveRepo := repository.NewTestDriveRepository(pool, cfg.Timeouts.Datastore)

	// Initialize services
	verification := service.NewVerificationService(uploader, cfg.Shop.MaxPhotoBytes)
	gateway := service.NewPersistenceGateway(testDriveRepo, verification, cfg.Shop.Location)
	dispatcher := service.NewDispatcher(smsProvider, cfg.Timeouts.SMS)
	wizardService := service.NewWizardService(
		wizard.NewMemoryStore(cfg.Shop.WizardSessionTTL),
		verification,
		stripeGateway,
		gateway,
		dispatcher,
		eventBus,
		cfg,
	)
	adminService := service.NewAdminService(gateway, testDriveRepo, eventBus, cfg.Auth)

	// Initialize handlers
	h := handlers.New(wizardService, adminService, cfg.Auth.JWTSecret, cfg.Shop.MaxPhotoBytes)
	paymentHandler := payments.NewHandler(stripeGateway, eventBus, cfg.Stripe.WebhookSecret)

	// Setup router
	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("testrides"))
	r.Use(mw.Logging)
	r.Use(mw.Recover)
	r.Use(mw.CORS(cfg.Server.AllowedOrigins))
	r.Use(mw.Health)

	h.Routes(r)

	r.Route("/payments", func(r chi.Router) {
		if idempotency != nil {
			r.Use(mw.IdempotencyMiddleware(idempotency))
		}
		r.Mount("/", paymentHandler.Routes())
	})

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
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

		logger.Info("Shutting down testrides service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Testrides service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting testrides service", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Testrides service error", "error", err)
		os.Exit(1)
	}
}
