package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xtxerr/trackside/internal/errors"
	"github.com/xtxerr/trackside/internal/series"
)

// State is the lifecycle state of a session.
type State int32

const (
	// StateOpen accepts samples from a single producer. Readers must wait
	// for Seal.
	StateOpen State = iota
	// StateSealed is terminal: the session is immutable and safe for
	// unlimited concurrent readers.
	StateSealed
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateSealed:
		return "sealed"
	default:
		return "unknown"
	}
}

// Session is a named collection of channels sharing one recording origin.
//
// Lifecycle: Open → Sealed, one way, via Seal. While open, exactly one
// producer appends samples under the session mutex; after sealing, all
// reads are lock-free on immutable data.
type Session struct {
	mu sync.Mutex

	name      string
	id        string
	createdAt time.Time

	state    State
	builders map[string]*series.Builder

	// Populated by Seal.
	channels map[string]*series.Channel
	order    []string
	start    float64
	end      float64
}

// newSession creates an open session. Sessions are created through a Store.
func newSession(name string) *Session {
	return &Session{
		name:      name,
		id:        uuid.NewString(),
		createdAt: time.Now(),
		state:     StateOpen,
		builders:  make(map[string]*series.Builder),
	}
}

// Name returns the session name.
func (s *Session) Name() string { return s.name }

// ID returns the session UUID assigned at creation.
func (s *Session) ID() string { return s.id }

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Sealed reports whether the session has been sealed.
func (s *Session) Sealed() bool { return s.State() == StateSealed }

// AddSample appends one sample to the named channel. The channel is created
// on first use with the width of the supplied value vector. Fails with
// ErrSessionSealed after Seal, ErrOutOfOrder if t does not strictly increase
// within the channel, and ErrWidthMismatch if the vector width changes.
// A failed call leaves the session unchanged.
func (s *Session) AddSample(channel string, t float64, values ...float64) error {
	if len(values) == 0 {
		values = []float64{series.Missing()}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen {
		return errors.Wrapf(errors.ErrSessionSealed, "session '%s'", s.name)
	}

	b, ok := s.builders[channel]
	if !ok {
		b = series.NewBuilder(channel, len(values))
		if err := b.Append(t, values...); err != nil {
			return err
		}
		s.builders[channel] = b
		return nil
	}

	return b.Append(t, values...)
}

// Seal transitions the session to its terminal immutable state. Fails with
// ErrEmptySession if no channel received a sample, and ErrSessionSealed if
// called twice.
func (s *Session) Seal() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSealed {
		return errors.Wrapf(errors.ErrSessionSealed, "session '%s'", s.name)
	}
	if len(s.builders) == 0 {
		return errors.Wrapf(errors.ErrEmptySession, "session '%s'", s.name)
	}

	s.channels = make(map[string]*series.Channel, len(s.builders))
	s.order = make([]string, 0, len(s.builders))

	first := true
	for name, b := range s.builders {
		ch := b.Build()
		s.channels[name] = ch
		s.order = append(s.order, name)

		if first {
			s.start, s.end = ch.Start(), ch.End()
			first = false
			continue
		}
		if ch.Start() < s.start {
			s.start = ch.Start()
		}
		if ch.End() > s.end {
			s.end = ch.End()
		}
	}
	sort.Strings(s.order)

	s.builders = nil
	s.state = StateSealed
	return nil
}

// requireSealed returns an error unless the session is sealed.
func (s *Session) requireSealed() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSealed {
		return errors.Wrapf(errors.ErrSessionOpen, "session '%s'", s.name)
	}
	return nil
}

// Channel returns an immutable view of the named channel.
// Requires a sealed session.
func (s *Session) Channel(name string) (*series.Channel, error) {
	if err := s.requireSealed(); err != nil {
		return nil, err
	}
	ch, ok := s.channels[name]
	if !ok {
		return nil, errors.NewUnknownChannel(name)
	}
	return ch, nil
}

// Channels returns the channel names in sorted order.
// Requires a sealed session.
func (s *Session) Channels() ([]string, error) {
	if err := s.requireSealed(); err != nil {
		return nil, err
	}
	return s.order, nil
}

// Start returns the minimum timestamp across all channels.
// Requires a sealed session.
func (s *Session) Start() (float64, error) {
	if err := s.requireSealed(); err != nil {
		return 0, err
	}
	return s.start, nil
}

// End returns the maximum timestamp across all channels.
// Requires a sealed session.
func (s *Session) End() (float64, error) {
	if err := s.requireSealed(); err != nil {
		return 0, err
	}
	return s.end, nil
}

// SampleCount returns the total number of samples across all channels.
// Requires a sealed session.
func (s *Session) SampleCount() (int, error) {
	if err := s.requireSealed(); err != nil {
		return 0, err
	}
	n := 0
	for _, ch := range s.channels {
		n += ch.Len()
	}
	return n, nil
}
