package wizard

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds wizard sessions between requests.
type Store interface {
	Create() Session
	Get(id string) (Session, error)
	// Update applies fn atomically. When fn fails the stored session is kept
	// and returned alongside the error.
	Update(id string, fn func(Session) (Session, error)) (Session, error)
}

// MemoryStore keeps sessions in process memory. Idle sessions are dropped
// lazily when a new one is created.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemoryStore) Create() Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.evictLocked(now)

	s := New(uuid.NewString(), now)
	m.sessions[s.ID] = s
	return s
}

func (m *MemoryStore) Get(id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

func (m *MemoryStore) Update(id string, fn func(Session) (Session, error)) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	next, err := fn(cur)
	if err != nil {
		return cur, err
	}
	next.UpdatedAt = m.now()
	m.sessions[id] = next
	return next, nil
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// evictLocked drops idle sessions. Sessions with a call in flight are kept.
func (m *MemoryStore) evictLocked(now time.Time) {
	if m.ttl <= 0 {
		return
	}
	for id, s := range m.sessions {
		if s.Committing || s.Payment.InFlight {
			continue
		}
		if now.Sub(s.UpdatedAt) > m.ttl {
			delete(m.sessions, id)
		}
	}
}

var _ Store = (*MemoryStore)(nil)
