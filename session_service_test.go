package handshake

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icoxfog417/agentcore-handshake/cache"
	"github.com/icoxfog417/agentcore-handshake/domain"
	"github.com/icoxfog417/agentcore-handshake/log"
)

func newTestSessionService(t *testing.T, ttl time.Duration) (*SessionService, *cache.MemorySessionStore) {
	t.Helper()
	store := cache.NewMemorySessionStore()
	t.Cleanup(func() { _ = store.Close() })
	return NewSessionService(store, ttl, log.NewNop()), store
}

func TestCreateSessionGeneratesUniqueIDs(t *testing.T) {
	svc, _ := newTestSessionService(t, time.Minute)
	ctx := context.Background()

	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		id, err := svc.CreateSession(ctx, "user-42")
		require.NoError(t, err)
		require.NotEmpty(t, id)

		_, dup := seen[id]
		require.False(t, dup, "session id collision after %d generations", i)
		seen[id] = struct{}{}
	}
}

func TestCreateSessionRejectsEmptyIdentity(t *testing.T) {
	svc, _ := newTestSessionService(t, time.Minute)

	for _, identity := range []string{"", "   "} {
		_, err := svc.CreateSession(context.Background(), identity)
		assert.Error(t, err)
	}
}

type failingSessionRepo struct{}

func (failingSessionRepo) CreateSession(context.Context, *domain.BindingSession) error {
	return assert.AnError
}

func (failingSessionRepo) GetSessionByID(context.Context, string) (*domain.BindingSession, error) {
	return nil, assert.AnError
}

func (failingSessionRepo) ConsumeSession(context.Context, string) (bool, error) {
	return false, assert.AnError
}

func (failingSessionRepo) DeleteExpiredSessions(context.Context) error {
	return assert.AnError
}

func TestCreateSessionStorageUnavailable(t *testing.T) {
	svc := NewSessionService(failingSessionRepo{}, time.Minute, log.NewNop())

	_, err := svc.CreateSession(context.Background(), "user-42")
	require.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestVerifyAndConsumeHappyPath(t *testing.T) {
	svc, _ := newTestSessionService(t, time.Minute)
	ctx := context.Background()

	id, err := svc.CreateSession(ctx, "user-42")
	require.NoError(t, err)

	binding, err := svc.VerifyAndConsume(ctx, id, "user-42")
	require.NoError(t, err)
	assert.Equal(t, id, binding.SessionID)
	assert.Equal(t, "user-42", binding.BoundIdentity)
}

func TestVerifyAndConsumeReplayRejected(t *testing.T) {
	svc, _ := newTestSessionService(t, time.Minute)
	ctx := context.Background()

	id, err := svc.CreateSession(ctx, "user-42")
	require.NoError(t, err)

	_, err = svc.VerifyAndConsume(ctx, id, "user-42")
	require.NoError(t, err)

	_, err = svc.VerifyAndConsume(ctx, id, "user-42")
	require.ErrorIs(t, err, ErrSessionAlreadyConsumed)
}

func TestVerifyAndConsumeIdentityMismatchLeavesSessionOpen(t *testing.T) {
	svc, store := newTestSessionService(t, time.Minute)
	ctx := context.Background()

	id, err := svc.CreateSession(ctx, "user-42")
	require.NoError(t, err)

	_, err = svc.VerifyAndConsume(ctx, id, "user-99")
	require.ErrorIs(t, err, ErrIdentityMismatch)

	// The rejected attempt must not consume the session: the rightful
	// owner can still complete it before expiry.
	session, err := store.GetSessionByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, session.Consumed)

	binding, err := svc.VerifyAndConsume(ctx, id, "user-42")
	require.NoError(t, err)
	assert.Equal(t, "user-42", binding.BoundIdentity)
}

func TestVerifyAndConsumeExpired(t *testing.T) {
	svc, _ := newTestSessionService(t, 30*time.Millisecond)
	ctx := context.Background()

	id, err := svc.CreateSession(ctx, "user-42")
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)

	_, err = svc.VerifyAndConsume(ctx, id, "user-42")
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestVerifyAndConsumeExpiredRecord(t *testing.T) {
	svc, store := newTestSessionService(t, time.Minute)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, store.CreateSession(ctx, &domain.BindingSession{
		ID:            "stale-session",
		BoundIdentity: "user-42",
		CreatedAt:     now.Add(-10 * time.Minute),
		ExpiresAt:     now.Add(-5 * time.Minute),
	}))

	_, err := svc.VerifyAndConsume(ctx, "stale-session", "user-42")
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestVerifyAndConsumeUnknownSession(t *testing.T) {
	svc, _ := newTestSessionService(t, time.Minute)

	_, err := svc.VerifyAndConsume(context.Background(), "no-such-session", "user-42")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestVerifyAndConsumeConcurrentDeliveries(t *testing.T) {
	svc, _ := newTestSessionService(t, time.Minute)
	ctx := context.Background()

	id, err := svc.CreateSession(ctx, "user-42")
	require.NoError(t, err)

	const workers = 32
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.VerifyAndConsume(ctx, id, "user-42")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, replays int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case assert.ErrorIs(t, err, ErrSessionAlreadyConsumed):
			replays++
		}
	}

	assert.Equal(t, 1, successes, "exactly one delivery may win")
	assert.Equal(t, workers-1, replays)
}
