// Package idp exchanges login-redirect authorization codes for the
// caller's own access token against a Cognito-style token endpoint.
package idp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/icoxfog417/agentcore-handshake/log"
)

// CognitoProvider implements domain.IdentityProvider against an OAuth2
// token endpoint using the authorization_code grant.
type CognitoProvider struct {
	tokenURL   string
	clientID   string
	httpClient *http.Client
	logger     log.Logger
}

// NewCognitoProvider creates a provider. httpClient may be nil.
func NewCognitoProvider(tokenURL, clientID string, httpClient *http.Client, logger log.Logger) *CognitoProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &CognitoProvider{
		tokenURL:   tokenURL,
		clientID:   clientID,
		httpClient: httpClient,
		logger:     logger,
	}
}

// ExchangeCode implements domain.IdentityProvider.
func (p *CognitoProvider) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {p.clientID},
		"code":         {code},
		"redirect_uri": {redirectURI},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token endpoint request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		p.logger.Warn(ctx, "code exchange rejected", map[string]interface{}{
			"status": resp.StatusCode,
		})
		return "", fmt.Errorf("token endpoint returned HTTP %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	return body.AccessToken, nil
}
