package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/diagnosis/testride-bookings/pkg/payments"
	"github.com/diagnosis/testride-bookings/pkg/sms"
	"github.com/diagnosis/testride-bookings/pkg/storage"
	"github.com/diagnosis/testride-bookings/services/testrides/internal/domain"
	"github.com/diagnosis/testride-bookings/services/testrides/internal/repository"
	"github.com/diagnosis/testride-bookings/services/testrides/internal/waiver"
	"github.com/google/uuid"
)

// ---------- Repository ----------

// mockRepo mimics the schema: the bike model CHECK and the customer FK.
type mockRepo struct {
	mu         sync.Mutex
	customers  map[uuid.UUID]domain.Customer
	drives     map[uuid.UUID]domain.TestDrive
	clock      time.Time
	createErr  error
	deleteErr  error
	updateErr  error
	waiverSets int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		customers: make(map[uuid.UUID]domain.Customer),
		drives:    make(map[uuid.UUID]domain.TestDrive),
		clock:     time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *mockRepo) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *mockRepo) CreateCustomer(_ context.Context, req *domain.CustomerReq) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	now := m.tick()
	c := domain.Customer{
		ID:            uuid.New(),
		Name:          req.Name,
		Phone:         req.Phone,
		Email:         req.Email,
		IDPhotoURL:    req.IDPhotoURL,
		SignatureData: req.SignatureData,
		WaiverURL:     req.WaiverURL,
		WaiverSigned:  req.WaiverSigned,
		SubmissionIP:  req.SubmissionIP,
		SubmittedAt:   req.SubmittedAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.customers[c.ID] = c
	return &c, nil
}

func (m *mockRepo) DeleteCustomer(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.customers, id)
	for tid, td := range m.drives {
		if td.CustomerID == id {
			delete(m.drives, tid)
		}
	}
	return nil
}

func (m *mockRepo) UpdateWaiverURL(_ context.Context, id uuid.UUID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	c, ok := m.customers[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.WaiverURL = url
	m.customers[id] = c
	m.waiverSets++
	return nil
}

func (m *mockRepo) CreateTestDrive(_ context.Context, customerID uuid.UUID, req *domain.TestDriveReq) (*domain.TestDrive, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[customerID]; !ok {
		return nil, errors.New("violates foreign key constraint")
	}
	if _, ok := domain.LookupBike(req.BikeModel); !ok {
		return nil, errors.New(`violates check constraint "test_drives_bike_model"`)
	}
	now := m.tick()
	td := domain.TestDrive{
		ID:         uuid.New(),
		CustomerID: customerID,
		BikeModel:  req.BikeModel,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Status:     domain.TestDriveActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.drives[td.ID] = td
	return &td, nil
}

func (m *mockRepo) ListActiveTestDrives(_ context.Context) ([]domain.ActiveTestDrive, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.ActiveTestDrive{}
	for _, td := range m.drives {
		if td.Status != domain.TestDriveActive {
			continue
		}
		c := m.customers[td.CustomerID]
		out = append(out, domain.ActiveTestDrive{
			TestDrive:     td,
			CustomerName:  c.Name,
			CustomerPhone: c.Phone,
			CustomerEmail: c.Email,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockRepo) CompleteTestDrive(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	td, ok := m.drives[id]
	if !ok {
		return repository.ErrNotFound
	}
	td.Status = domain.TestDriveCompleted
	td.UpdatedAt = m.tick()
	m.drives[id] = td
	return nil
}

func (m *mockRepo) ListOrphanCustomers(_ context.Context, before time.Time) ([]domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Customer{}
	for _, c := range m.customers {
		if !c.CreatedAt.Before(before) {
			continue
		}
		owned := false
		for _, td := range m.drives {
			if td.CustomerID == c.ID {
				owned = true
				break
			}
		}
		if !owned {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockRepo) counts() (customers, drives int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.customers), len(m.drives)
}

// ---------- Waivers / uploads ----------

type mockWaivers struct {
	calls int
	err   error
}

func (m *mockWaivers) ProduceWaiver(_ context.Context, doc waiver.Document) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return "https://cdn.test/waivers/" + doc.CustomerName + ".pdf", nil
}

type mockUploader struct {
	mu      sync.Mutex
	objects []storage.Object
	err     error
	errFor  string // prefix that fails
}

func (m *mockUploader) Upload(_ context.Context, obj storage.Object) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil && (m.errFor == "" || m.errFor == obj.Prefix) {
		return "", m.err
	}
	m.objects = append(m.objects, obj)
	return "https://cdn.test/" + storage.ObjectKey(obj.Prefix, obj.Ext, time.Now()), nil
}

// ---------- Payments ----------

type mockPayments struct {
	mu            sync.Mutex
	created       int
	confirms      int
	gets          int
	confirmStatus payments.Status
	confirmErr    error
	getStatus     payments.Status
	block         chan struct{}
}

func (m *mockPayments) CreateAuthorization(_ context.Context, req payments.CreateRequest) (*payments.Authorization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
	id := "pi_" + uuid.NewString()[:8]
	return &payments.Authorization{ID: id, ClientSecret: id + "_secret", Amount: req.Amount, Currency: "usd", Status: payments.StatusRequiresPaymentMethod}, nil
}

func (m *mockPayments) ConfirmAuthorization(_ context.Context, id, _ string) (*payments.Authorization, error) {
	m.mu.Lock()
	m.confirms++
	block := m.block
	m.mu.Unlock()
	if block != nil {
		<-block
	}
	if m.confirmErr != nil {
		return nil, m.confirmErr
	}
	return &payments.Authorization{ID: id, Status: m.confirmStatus}, nil
}

func (m *mockPayments) GetAuthorization(_ context.Context, id string) (*payments.Authorization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	return &payments.Authorization{ID: id, Status: m.getStatus}, nil
}

func (m *mockPayments) confirmCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.confirms
}

// ---------- SMS ----------

type mockSMS struct {
	configured bool
	err        error
	last       sms.Message
	sent       int
}

func (m *mockSMS) IsConfigured() bool { return m.configured }

func (m *mockSMS) SendSMS(_ context.Context, msg sms.Message) (*sms.Response, error) {
	m.sent++
	m.last = msg
	if m.err != nil {
		return nil, m.err
	}
	return &sms.Response{MessageID: "sms-1", Provider: "mock", Status: "Success"}, nil
}

type recordingBus struct {
	mu       sync.Mutex
	subjects []string
}

func (b *recordingBus) Publish(_ context.Context, subject string, _ interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subjects = append(b.subjects, subject)
	return nil
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) published(subject string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, s := range b.subjects {
		if s == subject {
			n++
		}
	}
	return n
}
