package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/icoxfog417/agentcore-handshake/domain"
)

// TokenCache caches vault tokens on the read path so every outbound tool
// call does not round-trip to the vault.
type TokenCache interface {
	Get(ctx context.Context, providerARN, userID string) (*domain.VaultToken, bool)
	Set(ctx context.Context, token *domain.VaultToken)
	Delete(ctx context.Context, providerARN, userID string)
}

// MemoryTokenCache implements TokenCache using ttlcache, keyed by a hash of
// (provider, user) so raw identities never sit in cache keys.
type MemoryTokenCache struct {
	cache *ttlcache.Cache[string, *domain.VaultToken]
	ttl   time.Duration
}

// NewMemoryTokenCache creates an in-memory token cache with the given
// default entry TTL.
func NewMemoryTokenCache(ttl time.Duration) *MemoryTokenCache {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *domain.VaultToken](ttl),
		ttlcache.WithDisableTouchOnHit[string, *domain.VaultToken](),
	)

	go cache.Start()

	return &MemoryTokenCache{
		cache: cache,
		ttl:   ttl,
	}
}

// Get implements TokenCache.
func (c *MemoryTokenCache) Get(_ context.Context, providerARN, userID string) (*domain.VaultToken, bool) {
	item := c.cache.Get(HashKey(providerARN, userID))
	if item == nil {
		return nil, false
	}

	return item.Value(), true
}

// Set implements TokenCache. An entry never outlives the token itself.
func (c *MemoryTokenCache) Set(_ context.Context, token *domain.VaultToken) {
	ttl := c.ttl
	if !token.ExpiresAt.IsZero() {
		if until := time.Until(token.ExpiresAt); until < ttl {
			ttl = until
		}
	}
	if ttl <= 0 {
		return
	}

	c.cache.Set(HashKey(token.ProviderARN, token.UserID), token, ttl)
}

// Delete implements TokenCache.
func (c *MemoryTokenCache) Delete(_ context.Context, providerARN, userID string) {
	c.cache.Delete(HashKey(providerARN, userID))
}

// Close stops the cleanup goroutine.
func (c *MemoryTokenCache) Close() error {
	c.cache.Stop()

	return nil
}
