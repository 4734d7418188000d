// Package session keeps one page state per browser, keyed by an opaque cookie
// value. State lives in memory only and is dropped after an idle period.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kankou/internal/service"
)

// Factory builds the page state of a new session.
type Factory func() *service.Page

type entry struct {
	page     *service.Page
	lastSeen time.Time
}

// Store maps session ids to pages.
type Store struct {
	factory Factory
	idle    time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

// NewStore creates a store whose sessions expire after idle without use.
func NewStore(factory Factory, idle time.Duration, l *zap.Logger) *Store {
	if l == nil {
		l = zap.NewNop()
	}
	return &Store{
		factory:  factory,
		idle:     idle,
		logger:   l,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Get returns the page of id, creating a fresh session when id is unknown or
// expired. The returned id is the one to send back to the browser.
func (s *Store) Get(id string) (string, *service.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.sessions[id]; ok && id != "" {
		if s.idle <= 0 || now.Sub(e.lastSeen) < s.idle {
			e.lastSeen = now
			return id, e.page
		}
		delete(s.sessions, id)
	}

	newID := uuid.NewString()
	e := &entry{page: s.factory(), lastSeen: now}
	s.sessions[newID] = e
	return newID, e.page
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than the idle timeout and returns how
// many were removed.
func (s *Store) Sweep() int {
	if s.idle <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, e := range s.sessions {
		if now.Sub(e.lastSeen) >= s.idle {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug("expired sessions removed", zap.Int("count", n), zap.Int("remaining", s.Len()))
			}
		}
	}
}
