// Package session keeps the caller-owned state that outlives a single computation: the last
// governance assessment of each client. The simulation core never reads it implicitly;
// callers resolve a score here and pass it down explicitly.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/aristath/govsim/internal/domain"
	"github.com/aristath/govsim/internal/modules/governance"
)

// DefaultID names the session used when a client doesn't identify itself.
const DefaultID = "default"

// Header is the HTTP header carrying a client's session identifier.
const Header = "X-Session-ID"

// ErrNoAssessment is returned when a score is needed before any was computed.
var ErrNoAssessment = errors.New("no governance assessment recorded yet, compute a governance score first")

// Session holds the last assessment of one client. It is safe for concurrent use.
type Session struct {
	mu         sync.RWMutex
	assessment *governance.Assessment
	updatedAt  time.Time
}

// record stores a, replacing any previous assessment.
func (s *Session) record(a *governance.Assessment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessment = a
	s.updatedAt = time.Now()
}

// Assessment returns the last recorded assessment.
func (s *Session) Assessment() (*governance.Assessment, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.assessment == nil {
		return nil, time.Time{}, domain.WrapError(domain.KindValidation, ErrNoAssessment, "governance score unavailable")
	}
	return s.assessment, s.updatedAt, nil
}

// ResolveScore returns explicit when set, otherwise the recorded score.
func (s *Session) ResolveScore(explicit *float64) (float64, error) {
	if explicit != nil {
		return *explicit, nil
	}
	a, _, err := s.Assessment()
	if err != nil {
		return 0, err
	}
	return a.Score, nil
}

// Store maps client identifiers to sessions. A session is created by its first Record and lives
// as long as the store.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Get returns the session for id. Unknown ids get an empty session that is not stored.
// An empty id selects DefaultID.
func (st *Store) Get(id string) *Session {
	if id == "" {
		id = DefaultID
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[id]; ok {
		return s
	}
	return &Session{}
}

// Record stores a in the session for id, creating the session if needed, and returns it.
func (st *Store) Record(id string, a *governance.Assessment) *Session {
	if id == "" {
		id = DefaultID
	}
	st.mu.Lock()
	s, ok := st.sessions[id]
	if !ok {
		s = &Session{}
		st.sessions[id] = s
	}
	st.mu.Unlock()

	s.record(a)
	return s
}

// Len returns the number of sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
