package domain

import "context"

// SessionRepository is the durable store for binding sessions. It is owned
// exclusively by the handshake services; nothing else mutates it.
//
// GetSessionByID returns errors.ErrSessionNotFound when no record exists.
// ConsumeSession must be an atomic compare-and-set: it flips Consumed from
// false to true and reports whether this call did the flip. Two concurrent
// callback deliveries for the same session must see exactly one true.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *BindingSession) error
	GetSessionByID(ctx context.Context, id string) (*BindingSession, error)
	ConsumeSession(ctx context.Context, id string) (bool, error)
	DeleteExpiredSessions(ctx context.Context) error
}

// TokenVault is the external service that exchanges authorization codes for
// tokens and stores them durably. Its internals are out of scope here; the
// handshake only completes bindings against it and reads tokens back.
type TokenVault interface {
	// CompleteResourceTokenAuth finalizes token storage for a verified
	// (session, identity) pair. Authorization codes are single-use, so a
	// failed completion is never retried with the same session.
	CompleteResourceTokenAuth(ctx context.Context, sessionURI string, user UserIdentifier) error

	// GetResourceOAuth2Token looks up the stored token for a user. When no
	// token is stored it returns ErrTokenNotFound together with an
	// authorization URL the user must visit, carried in the returned value.
	GetResourceOAuth2Token(ctx context.Context, providerARN, userID string) (*VaultToken, string, error)
}

// IdentityProvider exchanges an authorization code from the login redirect
// for the caller's own access token (the Cognito leg of the flow).
type IdentityProvider interface {
	ExchangeCode(ctx context.Context, code, redirectURI string) (string, error)
}
