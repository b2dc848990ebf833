package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dagim-a/solar-data-dashboard/internal/analysis"
)

// ErrNotFound is returned when no session exists for a given ID.
var ErrNotFound = errors.New("no analysis session for id")

// Session binds one loaded dataset to its analyzer state.
type Session struct {
	ID        string    `json:"id"`
	Dataset   string    `json:"dataset"`
	Country   string    `json:"country"`
	CreatedAt time.Time `json:"createdAt"`

	Analyzer *analysis.Analyzer `json:"-"`
}

// MemoryStore is a concurrency-safe in-memory session store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: session ID
	sessions map[string]*Session

	// retention configuration
	maxSessions int           // max number of live sessions
	maxAge      time.Duration // optional max session age
}

// NewMemoryStore creates a MemoryStore with optional limits.
// If maxSessions is <= 0, it is treated as unlimited.
func NewMemoryStore(maxSessions int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		maxAge:      maxAge,
	}
}

// Create registers a new session for an analyzer and enforces retention.
func (s *MemoryStore) Create(dataset, country string, a *analysis.Analyzer) *Session {
	sess := &Session{
		ID:        uuid.NewString(),
		Dataset:   dataset,
		Country:   country,
		CreatedAt: time.Now().UTC(),
		Analyzer:  a,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ID] = sess
	s.pruneLocked()
	return sess
}

// Get returns the session for an ID.
func (s *MemoryStore) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// List returns all live sessions, newest first.
func (s *MemoryStore) List() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Delete removes a session.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// pruneLocked enforces retention by age and by count. Callers must hold mu.
func (s *MemoryStore) pruneLocked() {
	if s.maxAge > 0 {
		cutoff := time.Now().UTC().Add(-s.maxAge)
		for id, sess := range s.sessions {
			if sess.CreatedAt.Before(cutoff) {
				delete(s.sessions, id)
			}
		}
	}

	if s.maxSessions > 0 && len(s.sessions) > s.maxSessions {
		// Drop oldest sessions first.
		ordered := make([]*Session, 0, len(s.sessions))
		for _, sess := range s.sessions {
			ordered = append(ordered, sess)
		}
		sort.Slice(ordered, func(i, j int) bool {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		})
		for _, sess := range ordered[:len(ordered)-s.maxSessions] {
			delete(s.sessions, sess.ID)
		}
	}
}
