package handshake

import (
	"context"
	"errors"

	"github.com/icoxfog417/agentcore-handshake/cache"
	"github.com/icoxfog417/agentcore-handshake/domain"
	"github.com/icoxfog417/agentcore-handshake/log"
)

// AuthorizationRequest tells the caller that no token is stored yet and a
// new authorization flow was started for them. The URL carries the session
// id as an opaque correlator back to the callback endpoint.
type AuthorizationRequest struct {
	SessionID        string `json:"session_id"`
	AuthorizationURL string `json:"authorization_url"`
}

// TokenService is the read path: it resolves the third-party token for a
// (credential provider, user) pair, caching hits, and on a vault miss
// starts a fresh binding session.
type TokenService struct {
	vault    domain.TokenVault
	cache    cache.TokenCache
	sessions *SessionService
	logger   log.Logger
}

func NewTokenService(vault domain.TokenVault, tokenCache cache.TokenCache, sessions *SessionService, logger log.Logger) *TokenService {
	return &TokenService{
		vault:    vault,
		cache:    tokenCache,
		sessions: sessions,
		logger:   logger,
	}
}

// GetToken returns the stored token for the user, consulting the cache
// first. A vault miss returns ErrTokenNotFound.
func (t *TokenService) GetToken(ctx context.Context, providerARN, userID string) (*domain.VaultToken, error) {
	if t.cache != nil {
		if token, ok := t.cache.Get(ctx, providerARN, userID); ok {
			return token, nil
		}
	}

	token, _, err := t.vault.GetResourceOAuth2Token(ctx, providerARN, userID)
	if err != nil {
		return nil, err
	}

	if t.cache != nil {
		t.cache.Set(ctx, token)
	}

	return token, nil
}

// EnsureToken returns the stored token when one exists. On a vault miss it
// issues a new binding session bound to userID and returns an
// AuthorizationRequest instead, so the caller can send the user off to
// consent and retry after the callback completes.
func (t *TokenService) EnsureToken(ctx context.Context, providerARN, userID string) (*domain.VaultToken, *AuthorizationRequest, error) {
	if t.cache != nil {
		if token, ok := t.cache.Get(ctx, providerARN, userID); ok {
			return token, nil, nil
		}
	}

	token, authURL, err := t.vault.GetResourceOAuth2Token(ctx, providerARN, userID)
	if err == nil {
		if t.cache != nil {
			t.cache.Set(ctx, token)
		}
		return token, nil, nil
	}

	if !errors.Is(err, ErrTokenNotFound) {
		return nil, nil, err
	}

	sessionID, err := t.sessions.CreateSession(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	t.logger.Info(ctx, "token vault miss, authorization flow started")

	return nil, &AuthorizationRequest{
		SessionID:        sessionID,
		AuthorizationURL: authURL,
	}, nil
}

// Invalidate drops a cached token, forcing the next read through to the
// vault. Used after a completion so stale negative state cannot linger.
func (t *TokenService) Invalidate(ctx context.Context, providerARN, userID string) {
	if t.cache != nil {
		t.cache.Delete(ctx, providerARN, userID)
	}
}
