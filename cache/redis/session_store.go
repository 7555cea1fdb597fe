package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/icoxfog417/agentcore-handshake/domain"
	serrors "github.com/icoxfog417/agentcore-handshake/errors"
)

// expiryGrace mirrors the in-memory store: records stay resolvable briefly
// past expiry so the verifier reports expiry, not a miss.
const expiryGrace = 15 * time.Minute

// SessionStore implements domain.SessionRepository using Redis hashes.
type SessionStore struct {
	client *redis.Client
	prefix string
}

// NewSessionStore creates a new [SessionStore] instance.
func NewSessionStore(client *redis.Client, prefix string) *SessionStore {
	return &SessionStore{
		client: client,
		prefix: prefix,
	}
}

func (r *SessionStore) redisKey(id string) string {
	return fmt.Sprintf("%s:binding:%s", r.prefix, id)
}

// consumeScript flips the consumed flag exactly once. Returns -1 when the
// key is gone, 0 when already consumed, 1 when this call did the flip.
var consumeScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return -1
end
if redis.call("HGET", KEYS[1], "consumed") == "1" then
  return 0
end
redis.call("HSET", KEYS[1], "consumed", "1")
return 1
`)

// CreateSession stores a session hash and arms its expiry.
func (r *SessionStore) CreateSession(ctx context.Context, session *domain.BindingSession) error {
	key := r.redisKey(session.ID)

	entry := map[string]interface{}{
		"bound_identity": session.BoundIdentity,
		"created_at":     session.CreatedAt.Unix(),
		"expires_at":     session.ExpiresAt.Unix(),
		"consumed":       boolField(session.Consumed),
	}

	if _, err := r.client.HSet(ctx, key, entry).Result(); err != nil {
		return fmt.Errorf("%w: %v", serrors.ErrStorageUnavailable, err)
	}

	if _, err := r.client.ExpireAt(ctx, key, session.ExpiresAt.Add(expiryGrace)).Result(); err != nil {
		return fmt.Errorf("%w: %v", serrors.ErrStorageUnavailable, err)
	}

	return nil
}

// GetSessionByID implements domain.SessionRepository.
func (r *SessionStore) GetSessionByID(ctx context.Context, id string) (*domain.BindingSession, error) {
	res, err := r.client.HGetAll(ctx, r.redisKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session from redis: %w", err)
	}
	if len(res) == 0 {
		return nil, serrors.ErrSessionNotFound
	}

	createdAt, err := strconv.ParseInt(res["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt session record: %w", err)
	}
	expiresAt, err := strconv.ParseInt(res["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt session record: %w", err)
	}

	return &domain.BindingSession{
		ID:            id,
		BoundIdentity: res["bound_identity"],
		CreatedAt:     time.Unix(createdAt, 0).UTC(),
		ExpiresAt:     time.Unix(expiresAt, 0).UTC(),
		Consumed:      res["consumed"] == "1",
	}, nil
}

// ConsumeSession implements domain.SessionRepository via a Lua script so
// the check-then-mark is a single server-side operation.
func (r *SessionStore) ConsumeSession(ctx context.Context, id string) (bool, error) {
	res, err := consumeScript.Run(ctx, r.client, []string{r.redisKey(id)}).Int()
	if err != nil {
		return false, fmt.Errorf("failed to consume session: %w", err)
	}

	switch res {
	case -1:
		return false, serrors.ErrSessionNotFound
	case 0:
		return false, nil
	default:
		return true, nil
	}
}

// DeleteExpiredSessions is a no-op: Redis key expiry handles cleanup.
func (r *SessionStore) DeleteExpiredSessions(_ context.Context) error {
	return nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
