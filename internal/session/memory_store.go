package session

import (
	"context"
	"sync"
	"time"
)

const memorySweepInterval = time.Minute

type MemoryStore struct {
	mu        sync.Mutex
	items     map[string]*Session
	lastSweep time.Time
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string]*Session{}, now: time.Now}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Load(_ context.Context, token string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[token]
	if !ok {
		return nil, ErrNotFound
	}
	if item.expired(s.now()) {
		delete(s.items, token)
		return nil, ErrExpired
	}
	return item.clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, sess *Session) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= memorySweepInterval {
		for id, item := range s.items {
			if item.expired(now) {
				delete(s.items, id)
			}
		}
		s.lastSweep = now
	}
	s.items[sess.ID] = sess.clone()
	return sess.ID, nil
}

func (s *MemoryStore) Delete(_ context.Context, sess *Session) error {
	s.mu.Lock()
	delete(s.items, sess.ID)
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored sessions, expired ones included until the
// next sweep.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
