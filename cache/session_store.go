package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/icoxfog417/agentcore-handshake/domain"
	"github.com/icoxfog417/agentcore-handshake/errors"
)

// expiryGrace keeps a record resolvable for a short window past its
// expiry, so the verifier can report a precise expiry failure instead of a
// generic miss. ttlcache sweeps the record afterwards.
const expiryGrace = 15 * time.Minute

// MemorySessionStore implements domain.SessionRepository with ttlcache.
// The mutex makes consume a compare-and-set: concurrent callback
// deliveries for one session see exactly one successful flip.
type MemorySessionStore struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, *domain.BindingSession]
}

// NewMemorySessionStore creates an in-memory session store with automatic
// cleanup of expired records.
func NewMemorySessionStore() *MemorySessionStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, *domain.BindingSession](),
	)

	go cache.Start()

	return &MemorySessionStore{
		cache: cache,
	}
}

// CreateSession implements domain.SessionRepository.
func (s *MemorySessionStore) CreateSession(_ context.Context, session *domain.BindingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache.Get(session.ID) != nil {
		return errors.ErrStorageUnavailable
	}

	stored := *session
	s.cache.Set(session.ID, &stored, time.Until(session.ExpiresAt)+expiryGrace)

	return nil
}

// GetSessionByID implements domain.SessionRepository. Callers get a copy;
// mutations only take effect through ConsumeSession.
func (s *MemorySessionStore) GetSessionByID(_ context.Context, id string) (*domain.BindingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(id)
	if item == nil {
		return nil, errors.ErrSessionNotFound
	}

	session := *item.Value()

	return &session, nil
}

// ConsumeSession implements domain.SessionRepository.
func (s *MemorySessionStore) ConsumeSession(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(id)
	if item == nil {
		return false, errors.ErrSessionNotFound
	}

	session := item.Value()
	if session.Consumed {
		return false, nil
	}
	session.Consumed = true

	return true, nil
}

// DeleteExpiredSessions implements domain.SessionRepository. ttlcache
// already sweeps in the background; this forces a pass.
func (s *MemorySessionStore) DeleteExpiredSessions(_ context.Context) error {
	s.cache.DeleteExpired()

	return nil
}

// Count reports the number of live records, expired-but-unswept included.
func (s *MemorySessionStore) Count() int {
	return s.cache.Len()
}

// Close stops the cleanup goroutine.
func (s *MemorySessionStore) Close() error {
	s.cache.Stop()

	return nil
}
