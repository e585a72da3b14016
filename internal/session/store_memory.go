package session

import (
	"context"
	"sync"
	"time"

	"sahaya/pkg/domain"
	"sahaya/pkg/platform/sentinel"
)

// MemoryStore keeps sessions in a sync.Map with a lock per session, so the
// idle sweep and concurrent attribute writes on different sessions never
// block each other. An ended session's entry flips to a tombstone before
// removal: a mutation racing with expiry either completes first or observes
// ErrNotFound, never a half-erased context.
type MemoryStore struct {
	sessions sync.Map // domain.SessionID -> *sessionEntry
}

type sessionEntry struct {
	mu    sync.Mutex
	sess  *Session
	ended bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Create(_ context.Context, sess *Session) error {
	entry := &sessionEntry{sess: sess.Clone()}
	if _, loaded := s.sessions.LoadOrStore(sess.ID, entry); loaded {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id domain.SessionID) (*Session, error) {
	v, ok := s.sessions.Load(id)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	entry := v.(*sessionEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.ended {
		return nil, sentinel.ErrNotFound
	}
	return entry.sess.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, id domain.SessionID, now time.Time, mutate func(*Session) error) error {
	v, ok := s.sessions.Load(id)
	if !ok {
		return sentinel.ErrNotFound
	}
	entry := v.(*sessionEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.ended {
		return sentinel.ErrNotFound
	}
	if err := mutate(entry.sess); err != nil {
		return err
	}
	entry.sess.LastActivityAt = now
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id domain.SessionID) error {
	v, ok := s.sessions.Load(id)
	if !ok {
		return sentinel.ErrNotFound
	}
	entry := v.(*sessionEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.ended {
		return sentinel.ErrNotFound
	}
	entry.sess.erase()
	entry.ended = true
	s.sessions.Delete(id)
	return nil
}

func (s *MemoryStore) SweepExpired(_ context.Context, cutoff time.Time) (int, error) {
	swept := 0
	s.sessions.Range(func(key, v any) bool {
		entry := v.(*sessionEntry)
		entry.mu.Lock()
		if !entry.ended && entry.sess.LastActivityAt.Before(cutoff) {
			entry.sess.erase()
			entry.ended = true
			s.sessions.Delete(key)
			swept++
		}
		entry.mu.Unlock()
		return true
	})
	return swept, nil
}
