package handshake

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/icoxfog417/agentcore-handshake/domain"
	"github.com/icoxfog417/agentcore-handshake/log"
)

// DefaultSessionTTL bounds the window during which a leaked callback URL is
// exploitable, while leaving a human enough time to click through a
// third-party consent screen.
const DefaultSessionTTL = 5 * time.Minute

// sessionIDBytes is 256 bits of entropy, base64url encoded.
const sessionIDBytes = 32

// SessionService issues binding sessions when an authorization flow starts
// and verifies-and-consumes them when the OAuth callback arrives.
type SessionService struct {
	sessions domain.SessionRepository
	ttl      time.Duration
	logger   log.Logger
}

// NewSessionService creates a SessionService. A non-positive ttl falls back
// to DefaultSessionTTL.
func NewSessionService(sessions domain.SessionRepository, ttl time.Duration, logger log.Logger) *SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionService{
		sessions: sessions,
		ttl:      ttl,
		logger:   logger,
	}
}

// GenerateSessionID returns a cryptographically random session identifier.
func GenerateSessionID() (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CreateSession persists a fresh binding session for an already
// authenticated identity and returns its id. The caller must not redirect
// the user to the authorization server if this fails.
func (s *SessionService) CreateSession(ctx context.Context, identity string) (string, error) {
	if strings.TrimSpace(identity) == "" {
		return "", fmt.Errorf("identity must not be empty")
	}

	id, err := GenerateSessionID()
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	session := &domain.BindingSession{
		ID:            id,
		BoundIdentity: identity,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.ttl),
		Consumed:      false,
	}

	if err := s.sessions.CreateSession(ctx, session); err != nil {
		s.logger.Error(ctx, "failed to persist binding session", err)
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	s.logger.Debug(ctx, "binding session created", map[string]interface{}{
		"expires_at": session.ExpiresAt,
	})

	return id, nil
}

// VerifyAndConsume validates that presentedIdentity may complete the
// session and atomically marks the session consumed.
//
// Checks run in a fixed order so error responses leak the minimum:
// existence, expiry, prior consumption, identity match. A mismatched
// identity leaves the session unconsumed so the rightful owner can still
// complete it before expiry; the attempt is logged.
func (s *SessionService) VerifyAndConsume(ctx context.Context, sessionID, presentedIdentity string) (*domain.VerifiedBinding, error) {
	session, err := s.sessions.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if session.Expired(time.Now().UTC()) {
		return nil, ErrSessionExpired
	}

	if session.Consumed {
		return nil, ErrSessionAlreadyConsumed
	}

	if presentedIdentity == "" || presentedIdentity != session.BoundIdentity {
		s.logger.Warn(ctx, "callback identity does not match session binding", map[string]interface{}{
			"session_created_at": session.CreatedAt,
		})
		return nil, ErrIdentityMismatch
	}

	// CAS against the store closes the race between two concurrent callback
	// deliveries: exactly one caller flips consumed.
	consumed, err := s.sessions.ConsumeSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, ErrSessionAlreadyConsumed
	}

	return &domain.VerifiedBinding{
		SessionID:     sessionID,
		BoundIdentity: session.BoundIdentity,
	}, nil
}

// SweepExpired removes expired session records. Stores with native TTL
// expiry make this a no-op.
func (s *SessionService) SweepExpired(ctx context.Context) error {
	return s.sessions.DeleteExpiredSessions(ctx)
}
