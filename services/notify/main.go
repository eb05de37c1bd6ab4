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
	"github.com/diagnosis/testride-bookings/pkg/mailer"
	mw "github.com/diagnosis/testride-bookings/pkg/middleware"
	"github.com/go-chi/chi/v5"
)

const queueGroup = "notify"

func main() {
	cfg := config.Load()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	mail := mailer.New(cfg.Email)

	if err := eventBus.QueueSubscribe(events.TestRideBooked, queueGroup, func(msg *events.Message) {
		handleBooked(cfg, mail, msg)
	}); err != nil {
		logger.Error("Failed to subscribe", "subject", events.TestRideBooked, "error", err)
		os.Exit(1)
	}

	for _, subject := range []string{events.PaymentAuthorized, events.PaymentFailed, events.PaymentCanceled} {
		if err := eventBus.QueueSubscribe(subject, queueGroup, handlePaymentStatus); err != nil {
			logger.Error("Failed to subscribe", "subject", subject, "error", err)
			os.Exit(1)
		}
	}

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("notify"))
	r.Use(mw.Logging)
	r.Use(mw.Health)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.NotifyPort,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down notify service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Notify service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting notify service", "port", cfg.Server.NotifyPort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Notify service error", "error", err)
		os.Exit(1)
	}
}

// handleBooked emails a receipt when the customer left an address. SMS has
// already been sent by the booking path.
func handleBooked(cfg *config.Config, mail mailer.Service, msg *events.Message) {
	var ev events.TestRideBookedEvent
	if err := msg.Decode(&ev); err != nil {
		logger.Error("Malformed booked event", "error", err, "subject", msg.Subject)
		return
	}
	if ev.CustomerEmail == "" {
		logger.Debug("No email on booking, skipping receipt", "test_drive_id", ev.TestDriveID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Email)
	defer cancel()

	id, err := mailer.SendReceipt(ctx, mail, mailer.Receipt{
		CustomerName:  ev.CustomerName,
		CustomerEmail: ev.CustomerEmail,
		BikeModel:     ev.BikeModel,
		StartTime:     ev.StartTime.In(cfg.Shop.Timezone),
		EndTime:       ev.EndTime.In(cfg.Shop.Timezone),
		Location:      cfg.Shop.Location,
		PaymentID:     ev.PaymentID,
	})
	if err != nil {
		logger.Error("Failed to send receipt", "error", err, "test_drive_id", ev.TestDriveID)
		return
	}
	logger.Info("Receipt sent", "test_drive_id", ev.TestDriveID, "message_id", id)
}

func handlePaymentStatus(msg *events.Message) {
	var ev events.PaymentStatusEvent
	if err := msg.Decode(&ev); err != nil {
		logger.Error("Malformed payment event", "error", err, "subject", msg.Subject)
		return
	}
	logger.Info("Payment status changed", "intent_id", ev.IntentID, "status", ev.Status, "amount", ev.Amount, "reason", ev.Reason)
}
