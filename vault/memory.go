package vault

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/icoxfog417/agentcore-handshake/domain"
	serrors "github.com/icoxfog417/agentcore-handshake/errors"
)

type pendingAuth struct {
	providerARN string
	accessToken string
}

// Memory is an in-process stand-in for the external vault, used in tests
// and local development. A miss stages a pending authorization keyed by a
// fresh elicitation id; completing a session with that id stores the token.
type Memory struct {
	mu       sync.Mutex
	authBase string
	tokens   map[string]string      // provider \x00 user -> access token
	pending  map[string]pendingAuth // session URI -> staged exchange
}

// NewMemory creates an in-memory vault. authBase is the consent URL the
// fake hands out on a miss.
func NewMemory(authBase string) *Memory {
	return &Memory{
		authBase: authBase,
		tokens:   make(map[string]string),
		pending:  make(map[string]pendingAuth),
	}
}

func tokenKey(providerARN, userID string) string {
	return providerARN + "\x00" + userID
}

// SeedToken stores a token directly, bypassing the handshake.
func (m *Memory) SeedToken(providerARN, userID, accessToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[tokenKey(providerARN, userID)] = accessToken
}

// StagePending registers the token a later completion of sessionURI will
// store, playing the role of the vault-side authorization code.
func (m *Memory) StagePending(sessionURI, providerARN, accessToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[sessionURI] = pendingAuth{
		providerARN: providerARN,
		accessToken: accessToken,
	}
}

// CompleteResourceTokenAuth implements domain.TokenVault. The staged
// exchange is single-use: a second completion of the same session fails.
func (m *Memory) CompleteResourceTokenAuth(_ context.Context, sessionURI string, user domain.UserIdentifier) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged, ok := m.pending[sessionURI]
	if !ok {
		return fmt.Errorf("no pending authorization for session")
	}
	delete(m.pending, sessionURI)

	userID := user.UserID
	if userID == "" {
		userID = user.UserToken
	}
	if userID == "" {
		return fmt.Errorf("user identifier is empty")
	}

	m.tokens[tokenKey(staged.providerARN, userID)] = staged.accessToken

	return nil
}

// GetResourceOAuth2Token implements domain.TokenVault.
func (m *Memory) GetResourceOAuth2Token(_ context.Context, providerARN, userID string) (*domain.VaultToken, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	accessToken, ok := m.tokens[tokenKey(providerARN, userID)]
	if !ok {
		authURL := fmt.Sprintf("%s/authorize?elicitation=%s", m.authBase, uuid.NewString())
		return nil, authURL, serrors.ErrTokenNotFound
	}

	return &domain.VaultToken{
		AccessToken: accessToken,
		ProviderARN: providerARN,
		UserID:      userID,
	}, "", nil
}
