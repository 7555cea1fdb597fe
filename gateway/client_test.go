package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icoxfog417/agentcore-handshake/log"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(srv.URL, srv.Client(), log.NewNop())
}

func TestCallToolReturnsResult(t *testing.T) {
	var captured struct {
		Method string                 `json:"method"`
		Params map[string]interface{} `json:"params"`
	}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2025-11-25", r.Header.Get("MCP-Protocol-Version"))
		assert.Equal(t, "Bearer gw-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"result": map[string]interface{}{
				"content": []map[string]string{{"type": "text", "text": "3 unread videos"}},
			},
		})
	})

	result, authReq, err := client.CallTool(context.Background(), "gw-token", "youtube___list_videos", map[string]interface{}{"max": 3}, nil)
	require.NoError(t, err)
	require.Nil(t, authReq)
	assert.Equal(t, "3 unread videos", result.Text())

	assert.Equal(t, "tools/call", captured.Method)
	assert.Equal(t, "youtube___list_videos", captured.Params["name"])
	assert.NotContains(t, captured.Params, "_meta")
}

func TestCallToolSendsCredentialProviderMeta(t *testing.T) {
	var params map[string]interface{}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Params map[string]interface{} `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		params = req.Params

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"result":  map[string]interface{}{"content": []map[string]string{}},
		})
	})

	_, _, err := client.CallTool(context.Background(), "gw-token", "youtube___list_videos", nil, &CallOptions{
		ReturnURL:           "https://handshake.example.com/oauth2/callback",
		ForceAuthentication: true,
	})
	require.NoError(t, err)

	meta, ok := params["_meta"].(map[string]interface{})
	require.True(t, ok, "params must carry a _meta block when a return URL is set")

	config, ok := meta["aws.bedrock-agentcore.gateway/credentialProviderConfiguration"].(map[string]interface{})
	require.True(t, ok)

	provider, ok := config["oauthCredentialProvider"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "https://handshake.example.com/oauth2/callback", provider["returnUrl"])
	assert.Equal(t, true, provider["forceAuthentication"])
}

func TestCallToolParsesElicitation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"error": map[string]interface{}{
				"code":    -32042,
				"message": "authorization required",
				"data": map[string]interface{}{
					"elicitations": []map[string]string{
						{
							"url":           "https://idp.example.com/consent?state=abc",
							"elicitationId": "elic-123",
						},
					},
				},
			},
		})
	})

	result, authReq, err := client.CallTool(context.Background(), "gw-token", "youtube___list_videos", nil, nil)
	require.NoError(t, err)
	require.Nil(t, result)
	require.NotNil(t, authReq)
	assert.Equal(t, "https://idp.example.com/consent?state=abc", authReq.URL)
	assert.Equal(t, "elic-123", authReq.ElicitationID)
}

func TestCallToolReturnsOtherErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"error":   map[string]interface{}{"code": -32601, "message": "method not found"},
		})
	})

	_, authReq, err := client.CallTool(context.Background(), "gw-token", "nope", nil, nil)
	require.Error(t, err)
	assert.Nil(t, authReq)
	assert.Contains(t, err.Error(), "method not found")
}

func TestCallToolHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})

	_, _, err := client.CallTool(context.Background(), "bad-token", "youtube___list_videos", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 403")
}

func TestListTools(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tools/list", req.Method)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"result": map[string]interface{}{
				"tools": []map[string]string{
					{"name": "youtube___list_videos", "description": "List videos"},
					{"name": "youtube___search"},
				},
			},
		})
	})

	tools, err := client.ListTools(context.Background(), "gw-token")
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "youtube___list_videos", tools[0].Name)
}
