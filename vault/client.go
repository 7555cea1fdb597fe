// Package vault talks to the external token vault: the service that owns
// the code-for-token exchange and durable token storage. Only its
// completion and read APIs are consumed here.
package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/icoxfog417/agentcore-handshake/domain"
	serrors "github.com/icoxfog417/agentcore-handshake/errors"
	"github.com/icoxfog417/agentcore-handshake/log"
)

// Client implements domain.TokenVault over the vault's HTTP data plane.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     log.Logger
}

// NewClient creates a vault client. httpClient may be nil.
func NewClient(endpoint string, httpClient *http.Client, logger log.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: httpClient,
		logger:     logger,
	}
}

type completeRequest struct {
	SessionURI     string                `json:"sessionUri"`
	UserIdentifier domain.UserIdentifier `json:"userIdentifier"`
}

type tokenRequest struct {
	ProviderARN    string `json:"oauth2CredentialProviderArn"`
	UserIdentifier string `json:"userIdentifier"`
}

type tokenResponse struct {
	AccessToken      string `json:"accessToken,omitempty"`
	AuthorizationURL string `json:"authorizationUrl,omitempty"`
	ExpiresAt        int64  `json:"expiresAt,omitempty"`
}

// CompleteResourceTokenAuth implements domain.TokenVault.
func (c *Client) CompleteResourceTokenAuth(ctx context.Context, sessionURI string, user domain.UserIdentifier) error {
	body := completeRequest{
		SessionURI:     sessionURI,
		UserIdentifier: user,
	}

	var out struct{}
	if err := c.post(ctx, "/identities/complete-resource-token-auth", body, &out); err != nil {
		return err
	}

	c.logger.Debug(ctx, "vault completion acknowledged")

	return nil
}

// GetResourceOAuth2Token implements domain.TokenVault. On a miss the vault
// answers with an authorization URL instead of a token; that URL is
// returned alongside ErrTokenNotFound.
func (c *Client) GetResourceOAuth2Token(ctx context.Context, providerARN, userID string) (*domain.VaultToken, string, error) {
	body := tokenRequest{
		ProviderARN:    providerARN,
		UserIdentifier: userID,
	}

	var out tokenResponse
	if err := c.post(ctx, "/identities/get-resource-oauth2-token", body, &out); err != nil {
		return nil, "", err
	}

	if out.AccessToken == "" {
		return nil, out.AuthorizationURL, serrors.ErrTokenNotFound
	}

	token := &domain.VaultToken{
		AccessToken: out.AccessToken,
		ProviderARN: providerARN,
		UserID:      userID,
	}
	if out.ExpiresAt > 0 {
		token.ExpiresAt = time.Unix(out.ExpiresAt, 0).UTC()
	}

	return token, "", nil
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal vault request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vault request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read vault response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return serrors.ErrTokenNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("vault returned HTTP %d: %s", resp.StatusCode, string(raw))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode vault response: %w", err)
	}

	return nil
}
