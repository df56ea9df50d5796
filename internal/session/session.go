// Package session keeps the in-memory chat sessions of the web UI.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/garyellow/chatshhs-go/internal/chat"
	domerrors "github.com/garyellow/chatshhs-go/internal/errors"
)

// DefaultIdleTimeout is how long an untouched session survives.
const DefaultIdleTimeout = 30 * time.Minute

// Session is one browser conversation.
type Session struct {
	ID        string
	CreatedAt time.Time
	History   *chat.History

	turn       *semaphore.Weighted
	mu         sync.Mutex
	lastActive time.Time
}

// LastActive returns the time of the last access.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActive = now
	s.mu.Unlock()
}

// Lock serializes turns within the session. It honors ctx so a client that
// gives up does not keep waiting behind a slow turn.
func (s *Session) Lock(ctx context.Context) error {
	return s.turn.Acquire(ctx, 1)
}

// Unlock releases the turn lock.
func (s *Session) Unlock() {
	s.turn.Release(1)
}

// Recorder receives the active session count. *metrics.Metrics implements it.
type Recorder interface {
	SetActiveSessions(count int)
}

// Config configures a Store.
type Config struct {
	IdleTimeout time.Duration
	MaxHistory  int // completed exchanges kept per session
	MaxSessions int // 0 = unlimited
	Recorder    Recorder
}

// Store holds live sessions.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cfg      Config
	now      func() time.Time
}

// NewStore creates an empty store.
func NewStore(cfg Config) *Store {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	return &Store{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		now:      time.Now,
	}
}

// Create starts a new session with an empty history.
func (st *Store) Create() (*Session, error) {
	now := st.now()
	s := &Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		History:    chat.NewHistory(st.cfg.MaxHistory),
		turn:       semaphore.NewWeighted(1),
		lastActive: now,
	}

	st.mu.Lock()
	if st.cfg.MaxSessions > 0 && len(st.sessions) >= st.cfg.MaxSessions {
		st.mu.Unlock()
		return nil, domerrors.ErrRateLimitExceeded
	}
	st.sessions[s.ID] = s
	count := len(st.sessions)
	st.mu.Unlock()

	st.report(count)
	return s, nil
}

// Get returns a live session and marks it active. Expired sessions are
// treated as missing.
func (st *Store) Get(id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domerrors.ErrSessionNotFound
	}

	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, domerrors.ErrSessionNotFound
	}

	now := st.now()
	if now.Sub(s.LastActive()) > st.cfg.IdleTimeout {
		st.End(id)
		return nil, domerrors.ErrSessionNotFound
	}
	s.touch(now)
	return s, nil
}

// End discards a session and its history. Ending an unknown session is a no-op.
func (st *Store) End(id string) bool {
	st.mu.Lock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	count := len(st.sessions)
	st.mu.Unlock()

	if ok {
		st.report(count)
	}
	return ok
}

// Sweep drops sessions idle longer than the timeout and returns how many
// were removed.
func (st *Store) Sweep() int {
	cutoff := st.now().Add(-st.cfg.IdleTimeout)

	st.mu.Lock()
	removed := 0
	for id, s := range st.sessions {
		if s.LastActive().Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	count := len(st.sessions)
	st.mu.Unlock()

	st.report(count)
	return removed
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

func (st *Store) report(count int) {
	if st.cfg.Recorder != nil {
		st.cfg.Recorder.SetActiveSessions(count)
	}
}
