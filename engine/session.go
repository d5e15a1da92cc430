/*
session.go - Per-requester disambiguation sessions

PURPOSE:
  When a query matches more than one open credit, the engine parks the
  query in a session and asks the operator to choose. The session is a
  two-state machine per requester: Idle -> AwaitingChoice -> Idle.

TRANSITIONS:
  - New query while AwaitingChoice supersedes the pending session: the
    operator changed their mind, requests are not queued.
  - A valid choice resolves to the chosen candidate and destroys the
    session. An expired or out-of-range choice ALSO destroys the session
    and returns ErrInvalidSelection; the requester is back to Idle either
    way and must resend the query.
  - A choice with no pending session (stale button press, or the process
    was recycled and in-memory state evaporated) returns ErrNoSession,
    which callers treat as a no-op signal, never a crash.

EXPIRY:
  Sessions unresolved past the TTL are abandoned. Expiry is checked lazily
  on the next choice; there is no background sweeper, because an expired
  session costs only a few hundred bytes until its requester acts again.
*/
package engine

import (
	"sync"
	"time"
)

// DefaultSessionTTL bounds how long a disambiguation may stay unresolved.
const DefaultSessionTTL = 10 * time.Minute

// Session tracks one requester's in-flight query awaiting a choice.
type Session struct {
	Requester  string
	Query      MatchQuery
	Candidates []MatchCandidate
	CreatedAt  time.Time
}

// SessionStore holds at most one active session per requester, guarded by
// a mutex because choice events and new queries may race for the same
// requester across transport goroutines.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session
	now      func() time.Time
}

// NewSessionStore creates a store with the given TTL; ttl <= 0 falls back
// to DefaultSessionTTL.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		ttl:      ttl,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Begin creates a session for the requester, superseding any pending one.
func (s *SessionStore) Begin(requester string, q MatchQuery, candidates []MatchCandidate) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &Session{
		Requester:  requester,
		Query:      q,
		Candidates: candidates,
		CreatedAt:  s.now(),
	}
	s.sessions[requester] = sess
	return sess
}

// Cancel discards the requester's pending session, if any. Used when a new
// query arrives while a choice is still outstanding.
func (s *SessionStore) Cancel(requester string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, requester)
}

// Take resolves a choice. Whatever the result, the session is destroyed:
// the requester is Idle after this call.
//
// Returns ErrNoSession when nothing is pending, a *SelectionError wrapping
// ErrInvalidSelection when the session expired or the index is out of
// range, and otherwise the chosen candidate together with the originating
// query.
func (s *SessionStore) Take(requester string, index int) (MatchCandidate, MatchQuery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[requester]
	if !ok {
		return MatchCandidate{}, MatchQuery{}, ErrNoSession
	}
	delete(s.sessions, requester)

	if s.now().Sub(sess.CreatedAt) > s.ttl {
		return MatchCandidate{}, MatchQuery{}, &SelectionError{Index: index, Candidates: len(sess.Candidates), Expired: true}
	}
	if index < 0 || index >= len(sess.Candidates) {
		return MatchCandidate{}, MatchQuery{}, &SelectionError{Index: index, Candidates: len(sess.Candidates)}
	}
	return sess.Candidates[index], sess.Query, nil
}

// Pending reports whether the requester has an unresolved session.
func (s *SessionStore) Pending(requester string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[requester]
	return ok
}
