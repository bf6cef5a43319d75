package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps refresh sessions in process memory. Used when no Redis
// is configured; sessions do not survive a restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
}

type memorySession struct {
	userID    string
	expiresAt time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memorySession)}
}

func (s *MemoryStore) SaveRefreshSession(_ context.Context, tokenHash, userID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[tokenHash] = memorySession{userID: userID, expiresAt: expiresAt}
	return nil
}

func (s *MemoryStore) LookupRefreshSession(_ context.Context, tokenHash string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[tokenHash]
	if !ok {
		return "", ErrNotFound
	}
	if time.Now().After(sess.expiresAt) {
		delete(s.sessions, tokenHash)
		return "", ErrNotFound
	}
	return sess.userID, nil
}

func (s *MemoryStore) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tokenHash)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
func (s *MemoryStore) Close() error               { return nil }
