package repository

import (
	"context"
	"errors"
	"time"

	"github.com/diagnosis/testride-bookings/services/testrides/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

type TestDriveRepository interface {
	CreateCustomer(ctx context.Context, req *domain.CustomerReq) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID) error
	UpdateWaiverURL(ctx context.Context, customerID uuid.UUID, url string) error
	CreateTestDrive(ctx context.Context, customerID uuid.UUID, req *domain.TestDriveReq) (*domain.TestDrive, error)
	ListActiveTestDrives(ctx context.Context) ([]domain.ActiveTestDrive, error)
	CompleteTestDrive(ctx context.Context, id uuid.UUID) error
	ListOrphanCustomers(ctx context.Context, createdBefore time.Time) ([]domain.Customer, error)
}

type testDriveRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func NewTestDriveRepository(pool *pgxpool.Pool, timeout time.Duration) TestDriveRepository {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &testDriveRepository{pool: pool, timeout: timeout}
}

const customerCols = `id, name, phone, COALESCE(email, ''),
id_photo_url, signature_data, waiver_url, waiver_signed,
COALESCE(submission_ip, ''), submitted_at, created_at, updated_at`

const testDriveCols = `id, customer_id, bike_model, start_time, end_time, status, created_at, updated_at`

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(
		&c.ID, &c.Name, &c.Phone, &c.Email,
		&c.IDPhotoURL, &c.SignatureData, &c.WaiverURL, &c.WaiverSigned,
		&c.SubmissionIP, &c.SubmittedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *testDriveRepository) CreateCustomer(ctx context.Context, req *domain.CustomerReq) (*domain.Customer, error) {
	const q = `INSERT INTO customers (
		name, phone, email,
		id_photo_url, signature_data, waiver_url, waiver_signed,
		submission_ip, submitted_at
	) VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, NULLIF($8, ''), $9)
	RETURNING ` + customerCols

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return scanCustomer(r.pool.QueryRow(ctx, q,
		req.Name, req.Phone, req.Email,
		req.IDPhotoURL, req.SignatureData, req.WaiverURL, req.WaiverSigned,
		req.SubmissionIP, req.SubmittedAt,
	))
}

func (r *testDriveRepository) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	return err
}

func (r *testDriveRepository) UpdateWaiverURL(ctx context.Context, customerID uuid.UUID, url string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx,
		`UPDATE customers SET waiver_url = $2, updated_at = now() WHERE id = $1`, customerID, url)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *testDriveRepository) CreateTestDrive(ctx context.Context, customerID uuid.UUID, req *domain.TestDriveReq) (*domain.TestDrive, error) {
	const q = `INSERT INTO test_drives (customer_id, bike_model, start_time, end_time, status)
	VALUES ($1, $2, $3, $4, 'active')
	RETURNING ` + testDriveCols

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var td domain.TestDrive
	err := r.pool.QueryRow(ctx, q, customerID, req.BikeModel, req.StartTime, req.EndTime).Scan(
		&td.ID, &td.CustomerID, &td.BikeModel, &td.StartTime, &td.EndTime,
		&td.Status, &td.CreatedAt, &td.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &td, nil
}

func (r *testDriveRepository) ListActiveTestDrives(ctx context.Context) ([]domain.ActiveTestDrive, error) {
	const q = `SELECT td.id, td.customer_id, td.bike_model, td.start_time, td.end_time,
		td.status, td.created_at, td.updated_at,
		c.name, c.phone, COALESCE(c.email, ''), c.id_photo_url, c.waiver_url
	FROM test_drives td
	JOIN customers c ON c.id = td.customer_id
	WHERE td.status = 'active'
	ORDER BY td.created_at DESC`

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	drives := []domain.ActiveTestDrive{}
	for rows.Next() {
		var a domain.ActiveTestDrive
		if err := rows.Scan(
			&a.ID, &a.CustomerID, &a.BikeModel, &a.StartTime, &a.EndTime,
			&a.Status, &a.CreatedAt, &a.UpdatedAt,
			&a.CustomerName, &a.CustomerPhone, &a.CustomerEmail, &a.IDPhotoURL, &a.WaiverURL,
		); err != nil {
			return nil, err
		}
		drives = append(drives, a)
	}
	return drives, rows.Err()
}

// CompleteTestDrive marks the drive completed. Completing an already completed
// drive succeeds and only bumps updated_at.
func (r *testDriveRepository) CompleteTestDrive(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx,
		`UPDATE test_drives SET status = 'completed', updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOrphanCustomers returns customers without a test drive, left behind by a
// failed compensating delete.
func (r *testDriveRepository) ListOrphanCustomers(ctx context.Context, createdBefore time.Time) ([]domain.Customer, error) {
	const q = `SELECT ` + customerCols + `
	FROM customers c
	WHERE c.created_at < $1
	  AND NOT EXISTS (SELECT 1 FROM test_drives td WHERE td.customer_id = c.id)
	ORDER BY c.created_at DESC
	LIMIT 200`

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, createdBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := []domain.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}
