// Package session holds the in-memory editing sessions in which a user
// layers edits over one proposal before saving it.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/procurement-decisions/internal/domain/apperror"
	"github.com/garyjia/procurement-decisions/internal/domain/entity"
	"github.com/garyjia/procurement-decisions/internal/domain/proposal"
)

// Session is one user's edits over one proposal. Nothing in it is persisted.
type Session struct {
	ID           string
	OwnerID      string
	RunID        string
	ProposalName string
	Base         entity.Proposal
	Ledger       *proposal.Ledger
	CreatedAt    time.Time

	mu         sync.Mutex
	lastAccess time.Time
}

// Store is a concurrency-safe registry of sessions. Each session has its
// own lock so a slow save in one session does not block the others.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Open starts a session over a private copy of base
func (s *Store) Open(ownerID, runID string, base entity.Proposal) *Session {
	now := s.now()
	sess := &Session{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		RunID:        runID,
		ProposalName: base.ProposalName,
		Base:         base.Clone(),
		Ledger:       proposal.NewLedger(),
		CreatedAt:    now,
		lastAccess:   now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// With runs fn while holding the session's lock
func (s *Store) With(id string, fn func(*Session) error) error {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return apperror.NotFound("session", id)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastAccess = s.now()
	return fn(sess)
}

// Discard drops a session and its edits. Unknown ids are ignored.
func (s *Store) Discard(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Sweep discards sessions idle for longer than ttl and returns how many were dropped
func (s *Store) Sweep(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.lastAccess.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of open sessions
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
