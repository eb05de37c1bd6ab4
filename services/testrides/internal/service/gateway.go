package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/diagnosis/testride-bookings/pkg/logger"
	"github.com/diagnosis/testride-bookings/services/testrides/internal/domain"
	"github.com/diagnosis/testride-bookings/services/testrides/internal/repository"
	"github.com/diagnosis/testride-bookings/services/testrides/internal/waiver"
	"github.com/google/uuid"
)

// WaiverProducer renders and stores a waiver, returning its URL.
type WaiverProducer interface {
	ProduceWaiver(ctx context.Context, doc waiver.Document) (string, error)
}

// PersistenceGateway writes the customer/test-drive pair without a
// distributed transaction: a failed test-drive insert is compensated by
// deleting the customer.
type PersistenceGateway interface {
	CreateTestDrive(ctx context.Context, req *domain.BookingReq) (*domain.Booking, error)
	GetActiveTestDrives(ctx context.Context) ([]domain.ActiveTestDrive, error)
	CompleteTestDrive(ctx context.Context, id uuid.UUID) error
}

type persistenceGateway struct {
	repo     repository.TestDriveRepository
	waivers  WaiverProducer
	location string
}

func NewPersistenceGateway(repo repository.TestDriveRepository, waivers WaiverProducer, location string) PersistenceGateway {
	return &persistenceGateway{repo: repo, waivers: waivers, location: location}
}

func (g *persistenceGateway) CreateTestDrive(ctx context.Context, req *domain.BookingReq) (*domain.Booking, error) {
	if err := req.TestDrive.Validate(); err != nil {
		return nil, err
	}

	customer, err := g.repo.CreateCustomer(ctx, &req.Customer)
	if err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	testDrive, err := g.repo.CreateTestDrive(ctx, customer.ID, &req.TestDrive)
	if err != nil {
		g.compensate(ctx, customer.ID, err)
		return nil, fmt.Errorf("failed to create test drive: %w", err)
	}

	if customer.WaiverSigned && customer.WaiverURL == "" {
		g.backfillWaiver(ctx, customer)
	}

	return &domain.Booking{Customer: *customer, TestDrive: *testDrive}, nil
}

// compensate removes the customer row left behind by a failed test-drive
// insert. A failed delete leaves an orphan for manual reconciliation.
func (g *persistenceGateway) compensate(ctx context.Context, customerID uuid.UUID, cause error) {
	ctx = context.WithoutCancel(ctx)
	if err := g.repo.DeleteCustomer(ctx, customerID); err != nil {
		logger.ErrorContext(ctx, "Compensating customer delete failed, orphan left for reconciliation",
			"error", err, "cause", cause, "customer_id", customerID)
		return
	}
	logger.WarnContext(ctx, "Deleted customer after failed test drive insert",
		"cause", cause, "customer_id", customerID)
}

// backfillWaiver re-renders the waiver when no upload had finished before the
// customer row was written. Failures are logged only.
func (g *persistenceGateway) backfillWaiver(ctx context.Context, c *domain.Customer) {
	if g.waivers == nil || c.SignatureData == "" {
		logger.ErrorContext(ctx, "Waiver missing and cannot be backfilled", "customer_id", c.ID)
		return
	}
	signedAt := c.CreatedAt
	if c.SubmittedAt != nil {
		signedAt = *c.SubmittedAt
	}

	url, err := g.waivers.ProduceWaiver(ctx, waiver.Document{
		ShopLocation:  g.location,
		CustomerName:  c.Name,
		SignatureData: c.SignatureData,
		SignedAt:      signedAt,
	})
	if err != nil {
		logger.ErrorContext(ctx, "Waiver backfill render failed", "error", err, "customer_id", c.ID)
		return
	}
	if err := g.repo.UpdateWaiverURL(ctx, c.ID, url); err != nil {
		logger.ErrorContext(ctx, "Waiver backfill update failed", "error", err, "customer_id", c.ID, "waiver_url", url)
		return
	}
	c.WaiverURL = url
	logger.InfoContext(ctx, "Backfilled waiver url", "customer_id", c.ID)
}

func (g *persistenceGateway) GetActiveTestDrives(ctx context.Context) ([]domain.ActiveTestDrive, error) {
	drives, err := g.repo.ListActiveTestDrives(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active test drives: %w", err)
	}
	return drives, nil
}

func (g *persistenceGateway) CompleteTestDrive(ctx context.Context, id uuid.UUID) error {
	if err := g.repo.CompleteTestDrive(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to complete test drive: %w", err)
	}
	return nil
}
