package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type TestDriveStatus string

const (
	TestDriveActive    TestDriveStatus = "active"
	TestDriveCompleted TestDriveStatus = "completed"
)

var ErrInvalidWindow = errors.New("end_time must be after start_time")

// Customer is one walk-in rider and their verification artifacts.
type Customer struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Phone         string     `json:"phone"`
	Email         string     `json:"email,omitempty"`
	IDPhotoURL    string     `json:"id_photo_url"`
	SignatureData string     `json:"-"`
	WaiverURL     string     `json:"waiver_url"`
	WaiverSigned  bool       `json:"waiver_signed"`
	SubmissionIP  string     `json:"submission_ip,omitempty"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type TestDrive struct {
	ID         uuid.UUID       `json:"id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	BikeModel  string          `json:"bike_model"`
	StartTime  time.Time       `json:"start_time"`
	EndTime    time.Time       `json:"end_time"`
	Status     TestDriveStatus `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ActiveTestDrive is a test drive joined with the customer who has the bike.
type ActiveTestDrive struct {
	TestDrive
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	CustomerEmail string `json:"customer_email,omitempty"`
	IDPhotoURL    string `json:"id_photo_url"`
	WaiverURL     string `json:"waiver_url"`
}

type CustomerReq struct {
	Name          string
	Phone         string
	Email         string
	IDPhotoURL    string
	SignatureData string
	WaiverURL     string
	WaiverSigned  bool
	SubmissionIP  string
	SubmittedAt   *time.Time
}

type TestDriveReq struct {
	BikeModel string
	StartTime time.Time
	EndTime   time.Time
}

// Validate checks the rental window. The bike model is checked by the
// datastore so that a bad model fails the test-drive insert itself.
func (r TestDriveReq) Validate() error {
	if !r.EndTime.After(r.StartTime) {
		return ErrInvalidWindow
	}
	return nil
}

// BookingReq is everything needed to persist one booking.
type BookingReq struct {
	Customer  CustomerReq
	TestDrive TestDriveReq
}

type Booking struct {
	Customer  Customer  `json:"customer"`
	TestDrive TestDrive `json:"test_drive"`
}
