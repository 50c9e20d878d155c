package chat

import (
	"context"
	"sync"
	"time"
)

// memorySession bundles the per-session state with its expiry deadline.
type memorySession struct {
	history     []Message
	proposal    string
	hasProposal bool
	expiresAt   time.Time
}

// MemorySessionStore is the in-process fallback used when no Redis address
// is configured. State is lost on restart, which is acceptable for local
// development and single-node demos.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
	ttl      time.Duration
	now      func() time.Time
}

// NewMemorySessionStore creates an in-memory store. ttl <= 0 falls back to 24h.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemorySessionStore{
		sessions: make(map[string]*memorySession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// session returns the live session, pruning it first if expired.
// Callers must hold mu.
func (s *MemorySessionStore) session(sessionID string, create bool) *memorySession {
	sess, ok := s.sessions[sessionID]
	if ok && s.now().After(sess.expiresAt) {
		delete(s.sessions, sessionID)
		ok = false
	}
	if !ok {
		if !create {
			return nil
		}
		sess = &memorySession{}
		s.sessions[sessionID] = sess
	}
	sess.expiresAt = s.now().Add(s.ttl)
	return sess
}

func (s *MemorySessionStore) History(_ context.Context, sessionID string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(sessionID, false)
	if sess == nil {
		return nil, nil
	}
	out := make([]Message, len(sess.history))
	copy(out, sess.history)
	return out, nil
}

func (s *MemorySessionStore) AppendHistory(_ context.Context, sessionID string, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(sessionID, true)
	sess.history = append(sess.history, msgs...)
	return nil
}

func (s *MemorySessionStore) Proposal(_ context.Context, sessionID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(sessionID, false)
	if sess == nil || !sess.hasProposal {
		return "", false, nil
	}
	return sess.proposal, true, nil
}

func (s *MemorySessionStore) SaveProposal(_ context.Context, sessionID, candidate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(sessionID, true)
	sess.proposal = candidate
	sess.hasProposal = true
	return nil
}

func (s *MemorySessionStore) ClearProposal(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess := s.session(sessionID, false); sess != nil {
		sess.proposal = ""
		sess.hasProposal = false
	}
	return nil
}

func (s *MemorySessionStore) ActiveSessions(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	count := 0
	for id, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			delete(s.sessions, id)
			continue
		}
		if len(sess.history) > 0 {
			count++
		}
	}
	return count, nil
}
