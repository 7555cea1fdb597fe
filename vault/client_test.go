package vault

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icoxfog417/agentcore-handshake/domain"
	serrors "github.com/icoxfog417/agentcore-handshake/errors"
	"github.com/icoxfog417/agentcore-handshake/log"
)

func newTestVaultClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(srv.URL, srv.Client(), log.NewNop())
}

func TestClientCompleteResourceTokenAuth(t *testing.T) {
	var captured map[string]interface{}

	client := newTestVaultClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/identities/complete-resource-token-auth", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte("{}"))
	})

	err := client.CompleteResourceTokenAuth(context.Background(), "session-abc", domain.UserIdentifier{UserToken: "jwt-token"})
	require.NoError(t, err)

	assert.Equal(t, "session-abc", captured["sessionUri"])
	user, ok := captured["userIdentifier"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "jwt-token", user["userToken"])
}

func TestClientCompleteReportsHTTPFailure(t *testing.T) {
	client := newTestVaultClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "session already completed", http.StatusConflict)
	})

	err := client.CompleteResourceTokenAuth(context.Background(), "session-abc", domain.UserIdentifier{UserID: "user-42"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 409")
}

func TestClientGetTokenHit(t *testing.T) {
	client := newTestVaultClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/identities/get-resource-oauth2-token", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "arn:aws:acps:provider/google", req["oauth2CredentialProviderArn"])
		assert.Equal(t, "user-42", req["userIdentifier"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"accessToken": "yt-token",
			"expiresAt":   1767225600,
		})
	})

	token, authURL, err := client.GetResourceOAuth2Token(context.Background(), "arn:aws:acps:provider/google", "user-42")
	require.NoError(t, err)
	assert.Empty(t, authURL)
	assert.Equal(t, "yt-token", token.AccessToken)
	assert.Equal(t, "arn:aws:acps:provider/google", token.ProviderARN)
	assert.Equal(t, "user-42", token.UserID)
	assert.Equal(t, int64(1767225600), token.ExpiresAt.Unix())
}

func TestClientGetTokenMissReturnsAuthorizationURL(t *testing.T) {
	client := newTestVaultClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"authorizationUrl": "https://idp.example.com/consent?state=abc",
		})
	})

	token, authURL, err := client.GetResourceOAuth2Token(context.Background(), "arn:aws:acps:provider/google", "user-42")
	require.ErrorIs(t, err, serrors.ErrTokenNotFound)
	assert.Nil(t, token)
	assert.Equal(t, "https://idp.example.com/consent?state=abc", authURL)
}

func TestClientGetTokenNotFoundStatus(t *testing.T) {
	client := newTestVaultClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such provider", http.StatusNotFound)
	})

	_, _, err := client.GetResourceOAuth2Token(context.Background(), "arn:aws:acps:provider/missing", "user-42")
	require.ErrorIs(t, err, serrors.ErrTokenNotFound)
}
