package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icoxfog417/agentcore-handshake/domain"
)

func TestMemoryTokenCacheRoundTrip(t *testing.T) {
	cache := NewMemoryTokenCache(time.Minute)
	t.Cleanup(func() { _ = cache.Close() })
	ctx := context.Background()

	cache.Set(ctx, &domain.VaultToken{
		AccessToken: "tok-1",
		ProviderARN: "arn:aws:acps:provider/google",
		UserID:      "user-42",
	})

	got, ok := cache.Get(ctx, "arn:aws:acps:provider/google", "user-42")
	require.True(t, ok)
	assert.Equal(t, "tok-1", got.AccessToken)

	_, ok = cache.Get(ctx, "arn:aws:acps:provider/google", "someone-else")
	assert.False(t, ok)
}

func TestMemoryTokenCacheDelete(t *testing.T) {
	cache := NewMemoryTokenCache(time.Minute)
	t.Cleanup(func() { _ = cache.Close() })
	ctx := context.Background()

	cache.Set(ctx, &domain.VaultToken{
		AccessToken: "tok-1",
		ProviderARN: "arn:aws:acps:provider/google",
		UserID:      "user-42",
	})
	cache.Delete(ctx, "arn:aws:acps:provider/google", "user-42")

	_, ok := cache.Get(ctx, "arn:aws:acps:provider/google", "user-42")
	assert.False(t, ok)
}

func TestMemoryTokenCacheSkipsExpiredTokens(t *testing.T) {
	cache := NewMemoryTokenCache(time.Minute)
	t.Cleanup(func() { _ = cache.Close() })
	ctx := context.Background()

	cache.Set(ctx, &domain.VaultToken{
		AccessToken: "tok-1",
		ProviderARN: "arn:aws:acps:provider/google",
		UserID:      "user-42",
		ExpiresAt:   time.Now().UTC().Add(-time.Minute),
	})

	_, ok := cache.Get(ctx, "arn:aws:acps:provider/google", "user-42")
	assert.False(t, ok, "a token that already expired must not be cached")
}

func TestHashKeyDisambiguatesParts(t *testing.T) {
	assert.NotEqual(t, HashKey("ab", "c"), HashKey("a", "bc"))
	assert.Equal(t, HashKey("arn", "user"), HashKey("arn", "user"))
}
