package zerotrust

import (
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionStore issues and tracks sessions, matching the teacher's
// sortable-ULID identifier convention so sessions remain time-ordered
// for audit review.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]Session), now: time.Now}
}

// Create issues a new session bound to user, role, source IP, and device
// fingerprint, expiring per role.timeout after idle.
func (s *SessionStore) Create(userID string, role Role, sourceIP, deviceFingerprint string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := Session{
		Token:             ulid.Make().String(),
		UserID:            userID,
		Role:              role.Name,
		SourceIP:          sourceIP,
		DeviceFingerprint: deviceFingerprint,
		CreatedAt:         now,
		LastActivity:      now,
		Timeout:           role.SessionTimeout,
	}
	s.sessions[sess.Token] = sess
	return sess
}

// Touch refreshes a session's last-activity time, returning an error if
// the session is unknown or has already expired.
func (s *SessionStore) Touch(token string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return Session{}, fmt.Errorf("zerotrust: unknown session token")
	}
	now := s.now()
	if sess.Expired(now) {
		delete(s.sessions, token)
		return Session{}, fmt.Errorf("zerotrust: session %s expired", token)
	}
	sess.LastActivity = now
	s.sessions[token] = sess
	return sess, nil
}

// Revoke removes a session immediately.
func (s *SessionStore) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// SweepExpired removes every session idle beyond its timeout, returning
// the tokens removed.
func (s *SessionStore) SweepExpired() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var expired []string
	for token, sess := range s.sessions {
		if sess.Expired(now) {
			expired = append(expired, token)
			delete(s.sessions, token)
		}
	}
	return expired
}

// Count returns the number of live sessions.
func (s *SessionStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
