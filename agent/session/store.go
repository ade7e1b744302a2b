package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	contractx "github.com/careline/clinic-agent/agent/contract"
)

const DefaultMaxTurns = 20

// Store holds bounded, ordered conversational turns per session identifier.
// Sessions are process-lifetime only: a restart loses everything, so callers
// must treat identifiers as soft. All operations are safe for concurrent use;
// append and cap enforcement happen under one lock.
type Store struct {
	mu       sync.Mutex
	sessions map[string][]contractx.Turn
	maxTurns int
	now      func() time.Time
}

type Option func(*Store)

// WithMaxTurns overrides the per-session turn cap.
func WithMaxTurns(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxTurns = n
		}
	}
}

// WithClock overrides the timestamp source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string][]contractx.Turn),
		maxTurns: DefaultMaxTurns,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Create registers a new empty session and returns its identifier.
func (s *Store) Create() string {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = nil
	return id
}

// Known reports whether the identifier refers to an existing session.
func (s *Store) Known(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[strings.TrimSpace(id)]
	return ok
}

// Append adds one turn, creating the session implicitly if the identifier is
// unknown. The oldest turn is evicted once the cap is exceeded.
func (s *Store) Append(id string, role contractx.TurnRole, content string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.sessions[id], contractx.Turn{
		Role:    role,
		Content: content,
		Time:    s.now().UTC(),
	})
	if len(turns) > s.maxTurns {
		turns = turns[len(turns)-s.maxTurns:]
	}
	s.sessions[id] = turns
}

// History returns a copy of the session's turns in append order. Unknown
// identifiers yield an empty slice, never an error.
func (s *Store) History(id string) []contractx.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.sessions[strings.TrimSpace(id)]
	out := make([]contractx.Turn, len(turns))
	copy(out, turns)
	return out
}
