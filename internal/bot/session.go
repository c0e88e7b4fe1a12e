package bot

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the step of the custom forecast dialogue.
type State string

const (
	StateWaitingDate    State = "WAITING_DATE"
	StateWaitingPeriods State = "WAITING_PERIODS"
)

// Session is the per-chat dialogue state.
type Session struct {
	ChatID    int64     `json:"chat_id"`
	State     State     `json:"state"`
	StartDate time.Time `json:"start_date,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrNoSession is returned when a chat has no active session.
var ErrNoSession = errors.New("session not found")

// SessionStore keeps dialogue sessions keyed by chat.
type SessionStore interface {
	Get(ctx context.Context, chatID int64) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, chatID int64) error
	// Sweep removes expired sessions and returns how many remain.
	Sweep(ctx context.Context) (int, error)
}

// MemorySessionStore is an in-process SessionStore with a TTL.
type MemorySessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[int64]Session
	now      func() time.Time
}

// NewMemorySessionStore creates a store whose sessions expire after ttl.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{ttl: ttl, sessions: make(map[int64]Session), now: time.Now}
}

func (m *MemorySessionStore) Get(_ context.Context, chatID int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[chatID]
	if !ok || m.expired(s) {
		delete(m.sessions, chatID)
		return nil, ErrNoSession
	}
	return &s, nil
}

func (m *MemorySessionStore) Put(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	cp.UpdatedAt = m.now()
	m.sessions[s.ChatID] = cp
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
	return nil
}

func (m *MemorySessionStore) Sweep(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
		}
	}
	return len(m.sessions), nil
}

func (m *MemorySessionStore) expired(s Session) bool {
	return m.ttl > 0 && m.now().Sub(s.UpdatedAt) > m.ttl
}
