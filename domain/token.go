package domain

import "time"

// VaultToken is a third-party access token retrieved from the external
// token vault, keyed by (credential provider, user identity).
type VaultToken struct {
	AccessToken string    `json:"access_token"`
	ProviderARN string    `json:"provider_arn"`
	UserID      string    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// UserIdentifier names the user completing a token-vault operation. Exactly
// one field is set: UserToken carries the caller's own bearer token so the
// vault can re-derive the identity itself, UserID is the bare-id legacy
// variant.
type UserIdentifier struct {
	UserToken string `json:"userToken,omitempty"`
	UserID    string `json:"userId,omitempty"`
}
