package domain

import "time"

// BindingSession correlates a single third-party authorization attempt with
// the identity of the user who started it. The record is created when a
// token-vault miss triggers an authorization flow, and is consumed at most
// once when the OAuth callback arrives.
type BindingSession struct {
	ID            string    `bson:"_id" json:"session_id"`
	BoundIdentity string    `bson:"bound_identity" json:"bound_identity"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt     time.Time `bson:"expires_at" json:"expires_at"`
	Consumed      bool      `bson:"consumed" json:"consumed"`
}

// Expired reports whether the session may no longer be completed.
func (s *BindingSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// VerifiedBinding is the result of a successful callback verification:
// the session exists, is fresh, was not consumed before, and the caller's
// identity matches the one the session was bound to at creation.
type VerifiedBinding struct {
	SessionID     string `json:"session_id"`
	BoundIdentity string `json:"bound_identity"`
}
