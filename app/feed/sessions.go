package feed

import (
	"log/slog"
	"sync"
	"time"
)

// SessionStore keeps one workspace per session token.
type SessionStore struct {
	parser     *Parser
	generator  *Generator
	thresholds ThresholdSource
	ttl        time.Duration
	sessions   map[string]*Session
	mu         sync.Mutex
}

func NewSessionStore(parser *Parser, generator *Generator, thresholds ThresholdSource, ttl time.Duration) *SessionStore {
	return &SessionStore{
		parser:     parser,
		generator:  generator,
		thresholds: thresholds,
		ttl:        ttl,
		sessions:   make(map[string]*Session),
	}
}

// Get returns the session for token, creating it on first use.
func (ss *SessionStore) Get(token string) *Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if session, ok := ss.sessions[token]; ok {
		return session
	}

	session := NewSession(token, ss.parser, ss.generator, ss.thresholds)
	ss.sessions[token] = session
	slog.Debug("Workspace session created", "session", shortToken(token))
	return session
}

func (ss *SessionStore) Len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.sessions)
}

// Prune drops sessions idle for longer than the TTL and returns how many
// were removed. A non-positive TTL keeps every session.
func (ss *SessionStore) Prune(now time.Time) int {
	if ss.ttl <= 0 {
		return 0
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()

	pruned := 0
	for token, session := range ss.sessions {
		if now.Sub(session.LastUsed()) > ss.ttl {
			delete(ss.sessions, token)
			pruned++
		}
	}
	return pruned
}

func shortToken(token string) string {
	if len(token) > 8 {
		return token[:8]
	}
	return token
}
