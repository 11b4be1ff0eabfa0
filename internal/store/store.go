// Package store implements the append-only sample store: sessions holding
// time-indexed channels, with an Open → Sealed lifecycle enforced on every
// mutating and deriving call.
package store

import (
	"sort"
	"sync"

	"github.com/xtxerr/trackside/internal/errors"
)

// Store holds sessions keyed by name.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	stats Stats
}

// Stats holds store statistics.
type Stats struct {
	SessionsCreated int64
	SessionsSealed  int64
	SessionsDropped int64
}

// New creates an empty store.
func New() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// CreateSession creates a new open session. Fails with ErrSessionExists
// if the name is taken and ErrInvalidName if the name is empty.
func (s *Store) CreateSession(name string) (*Session, error) {
	if name == "" {
		return nil, errors.Wrap(errors.ErrInvalidName, "session name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[name]; ok {
		return nil, errors.Wrapf(errors.ErrSessionExists, "session '%s'", name)
	}

	sess := newSession(name)
	s.sessions[name] = sess
	s.stats.SessionsCreated++
	return sess, nil
}

// Session returns the named session.
func (s *Store) Session(name string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrSessionNotFound, "session '%s'", name)
	}
	return sess, nil
}

// Seal seals the named session and updates store counters.
func (s *Store) Seal(name string) error {
	sess, err := s.Session(name)
	if err != nil {
		return err
	}
	if err := sess.Seal(); err != nil {
		return err
	}

	s.mu.Lock()
	s.stats.SessionsSealed++
	s.mu.Unlock()
	return nil
}

// Drop removes the named session from the store.
func (s *Store) Drop(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[name]; !ok {
		return errors.Wrapf(errors.ErrSessionNotFound, "session '%s'", name)
	}
	delete(s.sessions, name)
	s.stats.SessionsDropped++
	return nil
}

// Sessions returns all session names in sorted order.
func (s *Store) Sessions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.sessions))
	for name := range s.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Stats returns store statistics.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}
