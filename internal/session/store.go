// Package session keeps the filter state of each open dashboard.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/couchcryptid/parking-ticket-explorer/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

// Session is a snapshot of one dashboard's state.
type Session struct {
	ID        string             `json:"session_id"`
	State     domain.FilterState `json:"state"`
	CreatedAt time.Time          `json:"created_at"`
	LastSeen  time.Time          `json:"last_seen"`
}

// Store holds sessions in memory and expires them after a period of
// inactivity. Transitions on one session are serialized; different sessions
// proceed independently.
type Store struct {
	ttl   time.Duration
	clock clockwork.Clock

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	mu        sync.Mutex
	id        string
	state     domain.FilterState
	createdAt time.Time
	lastSeen  time.Time
}

func (e *entry) snapshot() Session {
	return Session{ID: e.id, State: e.state.Clone(), CreatedAt: e.createdAt, LastSeen: e.lastSeen}
}

// NewStore creates a store whose sessions expire ttl after their last use.
func NewStore(ttl time.Duration, clock clockwork.Clock) *Store {
	return &Store{
		ttl:      ttl,
		clock:    clock,
		sessions: make(map[string]*entry),
	}
}

// Create opens a session with an empty filter state.
func (s *Store) Create() Session {
	now := s.clock.Now().UTC()
	e := &entry{id: uuid.NewString(), createdAt: now, lastSeen: now}

	s.mu.Lock()
	s.sessions[e.id] = e
	s.mu.Unlock()

	return e.snapshot()
}

// Get returns the session and refreshes its expiry.
func (s *Store) Get(id string) (Session, error) {
	e, err := s.lookup(id)
	if err != nil {
		return Session{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	s.touch(e)
	return e.snapshot(), nil
}

// Update replaces the session state with fn(current). fn runs while the
// session is locked, so concurrent updates to one session apply in order.
// When fn fails the state is left unchanged.
func (s *Store) Update(id string, fn func(domain.FilterState) (domain.FilterState, error)) (Session, error) {
	e, err := s.lookup(id)
	if err != nil {
		return Session{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	next, err := fn(e.state.Clone())
	if err != nil {
		return Session{}, err
	}
	e.state = next
	s.touch(e)
	return e.snapshot(), nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len returns the number of live sessions, expired ones included until the
// next Sweep.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops every expired session and returns how many were removed.
func (s *Store) Sweep() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		if s.expired(e, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps expired sessions every interval until ctx is cancelled.
// onSweep, when non-nil, receives the live count after each pass.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration, onSweep func(live int)) {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.Sweep()
			if onSweep != nil {
				onSweep(s.Len())
			}
		}
	}
}

func (s *Store) lookup(id string) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.expired(e, s.clock.Now()) {
		delete(s.sessions, id)
		return nil, ErrNotFound
	}
	return e, nil
}

// touch refreshes lastSeen. Callers hold e.mu; lastSeen is written under both
// locks so it may be read under either.
func (s *Store) touch(e *entry) {
	s.mu.Lock()
	e.lastSeen = s.clock.Now().UTC()
	s.mu.Unlock()
}

// expired must be called with s.mu held.
func (s *Store) expired(e *entry, now time.Time) bool {
	return now.Sub(e.lastSeen) > s.ttl
}
