package memory

import (
	"context"
	"sync"
	"time"

	"screencast/internal/domain"
)

type sessionEntry struct {
	session   domain.Session
	createdAt time.Time
}

// Store keeps a bounded, TTL-limited history of viewer sessions.
type Store struct {
	mu sync.RWMutex
	// ring by insertion order of session ids
	order []string
	items map[string]*sessionEntry

	maxSessions int
	ttl         time.Duration
}

func NewStore(maxSessions int, ttl time.Duration) *Store {
	if maxSessions <= 0 {
		maxSessions = 1
	}
	return &Store{
		order:       make([]string, 0, maxSessions),
		items:       make(map[string]*sessionEntry, maxSessions),
		maxSessions: maxSessions,
		ttl:         ttl,
	}
}

// SaveSession inserts a new record or replaces the one with the same ID.
func (s *Store) SaveSession(ctx context.Context, sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.items[sess.ID]; ok {
		e.session = sess
		return nil
	}
	s.evictExpiredLocked()
	if len(s.order) >= s.maxSessions {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.items, oldest)
	}
	s.items[sess.ID] = &sessionEntry{session: sess, createdAt: time.Now()}
	s.order = append(s.order, sess.ID)
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (domain.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.items[id]; ok {
		return e.session, true, nil
	}
	return domain.Session{}, false, nil
}

// ClearAllSessions removes all history.
func (s *Store) ClearAllSessions(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*sessionEntry, len(s.items))
	s.order = s.order[:0]
	return nil
}

// ListSessions returns newest first. limit <= 0 means no limit.
func (s *Store) ListSessions(ctx context.Context, limit, offset int) ([]domain.Session, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]domain.Session, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		e := s.items[s.order[i]]
		if e == nil {
			continue
		}
		if s.ttl > 0 && time.Since(e.createdAt) > s.ttl {
			continue
		}
		results = append(results, e.session)
	}
	total := len(results)
	start := offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := start + limit
	if limit <= 0 || end > total {
		end = total
	}
	return results[start:end], total, nil
}

func (s *Store) evictExpiredLocked() {
	if s.ttl <= 0 {
		return
	}
	now := time.Now()
	i := 0
	for i < len(s.order) {
		id := s.order[i]
		e := s.items[id]
		if e == nil || now.Sub(e.createdAt) > s.ttl {
			delete(s.items, id)
			s.order = append(s.order[:i], s.order[i+1:]...)
			continue
		}
		i++
	}
}
