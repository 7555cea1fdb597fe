package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/icoxfog417/agentcore-handshake/log"
)

const (
	// protocolVersion is sent on every gateway request.
	protocolVersion = "2025-11-25"

	// ElicitationErrorCode is the vendor JSON-RPC error code the gateway
	// returns when the target tool needs the user's authorization first.
	ElicitationErrorCode = -32042

	// credentialProviderMetaKey carries the OAuth return URL inside the
	// tools/call params so the gateway knows where to send the user back.
	credentialProviderMetaKey = "aws.bedrock-agentcore.gateway/credentialProviderConfiguration"
)

// Client is a thin JSON-RPC client for an MCP gateway endpoint. It speaks
// the wire protocol directly because the elicitation error carries vendor
// data that SDK clients flatten into opaque error strings.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     log.Logger
	nextID     atomic.Int64
}

// NewClient creates a gateway client. httpClient may be nil.
func NewClient(endpoint string, httpClient *http.Client, logger log.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: httpClient,
		logger:     logger,
	}
}

// CallOptions configures the OAuth leg of a tool call. ReturnURL points at
// this service's callback endpoint; the gateway appends the session id.
type CallOptions struct {
	ReturnURL           string
	ForceAuthentication bool
}

// AuthorizationRequired is returned instead of a result when the gateway
// elicits user authorization. The user visits URL, then retries the call.
type AuthorizationRequired struct {
	URL           string `json:"url"`
	ElicitationID string `json:"elicitationId"`
}

// Tool describes a tool exposed by the gateway.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ToolContent is one content block of a tool result.
type ToolContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ToolResult is the result payload of a tools/call.
type ToolResult struct {
	Content []ToolContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// Text returns the first text content block, or the empty string.
func (r *ToolResult) Text() string {
	for _, c := range r.Content {
		if c.Type == "text" {
			return c.Text
		}
	}
	return ""
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("gateway error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type elicitationData struct {
	Elicitations []AuthorizationRequired `json:"elicitations"`
}

// CallTool invokes a gateway tool. When the gateway answers with an
// elicitation, the AuthorizationRequired return value is set and both the
// result and the error are nil; every other error is returned as-is.
func (c *Client) CallTool(ctx context.Context, bearerToken, name string, arguments map[string]interface{}, opts *CallOptions) (*ToolResult, *AuthorizationRequired, error) {
	params := map[string]interface{}{
		"name":      name,
		"arguments": arguments,
	}
	if opts != nil && opts.ReturnURL != "" {
		params["_meta"] = map[string]interface{}{
			credentialProviderMetaKey: map[string]interface{}{
				"oauthCredentialProvider": map[string]interface{}{
					"returnUrl":           opts.ReturnURL,
					"forceAuthentication": opts.ForceAuthentication,
				},
			},
		}
	}

	resp, err := c.do(ctx, bearerToken, "tools/call", params)
	if err != nil {
		return nil, nil, err
	}

	if resp.Error != nil {
		if resp.Error.Code == ElicitationErrorCode && len(resp.Error.Data) > 0 {
			var data elicitationData
			if err := json.Unmarshal(resp.Error.Data, &data); err == nil && len(data.Elicitations) > 0 {
				c.logger.Debug(ctx, "gateway requires user authorization", map[string]interface{}{
					"tool": name,
				})
				return nil, &data.Elicitations[0], nil
			}
		}
		return nil, nil, resp.Error
	}

	var result ToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, nil, fmt.Errorf("failed to decode tool result: %w", err)
	}

	return &result, nil, nil
}

// ListTools enumerates the gateway's tools. Used as a connectivity probe.
func (c *Client) ListTools(ctx context.Context, bearerToken string) ([]Tool, error) {
	resp, err := c.do(ctx, bearerToken, "tools/list", nil)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	var result struct {
		Tools []Tool `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to decode tool list: %w", err)
	}

	return result.Tools, nil
}

func (c *Client) do(ctx context.Context, bearerToken, method string, params interface{}) (*rpcResponse, error) {
	payload := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearerToken)
	req.Header.Set("MCP-Protocol-Version", protocolVersion)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned HTTP %d: %s", httpResp.StatusCode, truncate(string(raw), 200))
	}

	var resp rpcResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return &resp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
