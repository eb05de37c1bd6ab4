package service

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/testride-bookings/pkg/auth"
	"github.com/diagnosis/testride-bookings/pkg/config"
	"github.com/diagnosis/testride-bookings/pkg/events"
	"github.com/diagnosis/testride-bookings/pkg/logger"
	"github.com/diagnosis/testride-bookings/pkg/utils"
	"github.com/diagnosis/testride-bookings/services/testrides/internal/domain"
	"github.com/diagnosis/testride-bookings/services/testrides/internal/repository"
	"github.com/google/uuid"
)

// orphanGrace keeps in-progress bookings out of the orphan list.
const orphanGrace = 10 * time.Minute

type AdminService interface {
	Login(ctx context.Context, password string) (string, error)
	ListActive(ctx context.Context, query string) ([]domain.ActiveTestDrive, error)
	Complete(ctx context.Context, id uuid.UUID) error
	ListOrphans(ctx context.Context) ([]domain.Customer, error)
}

type adminService struct {
	gateway  PersistenceGateway
	repo     repository.TestDriveRepository
	eventBus events.Publisher
	auth     config.AuthConfig
	now      func() time.Time
}

func NewAdminService(gateway PersistenceGateway, repo repository.TestDriveRepository, eventBus events.Publisher, authCfg config.AuthConfig) AdminService {
	return &adminService{
		gateway:  gateway,
		repo:     repo,
		eventBus: eventBus,
		auth:     authCfg,
		now:      time.Now,
	}
}

func (s *adminService) Login(ctx context.Context, password string) (string, error) {
	if err := auth.CheckPassword(password, s.auth.AdminPasswordHash); err != nil {
		logger.WarnContext(ctx, "Admin login rejected")
		return "", auth.ErrInvalidCredentials
	}
	token, err := auth.NewAdminToken("shop-admin", s.auth.JWTSecret, s.auth.AdminTokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign admin token: %w", err)
	}
	return token, nil
}

func (s *adminService) ListActive(ctx context.Context, query string) ([]domain.ActiveTestDrive, error) {
	drives, err := s.gateway.GetActiveTestDrives(ctx)
	if err != nil {
		return nil, err
	}
	return FilterActive(drives, query), nil
}

// Complete marks a drive returned. Completing an already completed drive is
// not an error.
func (s *adminService) Complete(ctx context.Context, id uuid.UUID) error {
	if err := s.gateway.CompleteTestDrive(ctx, id); err != nil {
		return err
	}

	event := events.TestRideCompletedEvent{TestDriveID: id.String(), CompletedAt: s.now().UTC()}
	if err := s.eventBus.Publish(ctx, events.TestRideCompleted, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish test ride completed event", "error", err, "test_drive_id", id)
	}
	return nil
}

func (s *adminService) ListOrphans(ctx context.Context) ([]domain.Customer, error) {
	customers, err := s.repo.ListOrphanCustomers(ctx, s.now().Add(-orphanGrace))
	if err != nil {
		return nil, fmt.Errorf("failed to list orphan customers: %w", err)
	}
	return customers, nil
}

// FilterActive keeps the drives whose customer name, phone or bike model
// contains query, ignoring case. An empty query keeps everything.
func FilterActive(drives []domain.ActiveTestDrive, query string) []domain.ActiveTestDrive {
	if query == "" {
		return drives
	}
	out := make([]domain.ActiveTestDrive, 0, len(drives))
	for _, d := range drives {
		if utils.ContainsFold(d.CustomerName, query) ||
			utils.ContainsFold(d.CustomerPhone, query) ||
			utils.ContainsFold(d.BikeModel, query) {
			out = append(out, d)
		}
	}
	return out
}
