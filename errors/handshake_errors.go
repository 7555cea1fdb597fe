package errors

import (
	"errors"
	"fmt"
)

// Handshake failure taxonomy. All callback-side failures are terminal for
// the session; the user restarts the flow with a fresh session.
var (
	// ErrStorageUnavailable means the session record could not be persisted.
	// The caller must not redirect the user to the authorization server.
	ErrStorageUnavailable = errors.New("session storage unavailable")

	ErrSessionNotFound        = errors.New("binding session not found")
	ErrSessionExpired         = errors.New("binding session expired")
	ErrSessionAlreadyConsumed = errors.New("binding session already consumed")
	ErrIdentityMismatch       = errors.New("presented identity does not match bound identity")

	// ErrVaultCompletionFailed wraps the external vault's completion error.
	// Never retried: the underlying authorization code is single-use.
	ErrVaultCompletionFailed = errors.New("token vault completion failed")

	// ErrTokenNotFound is the vault's read-path miss. It triggers a new
	// authorization flow rather than being treated as fatal.
	ErrTokenNotFound = errors.New("no token stored for user")
)

// HandshakeError is the JSON error body returned by the HTTP surface.
type HandshakeError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Error codes surfaced over HTTP. Callback failures deliberately collapse
// into a single code so responses give no session-guessing feedback.
const (
	AuthorizationFailed = "authorization_failed"
	InvalidRequest      = "invalid_request"
	ServerError         = "server_error"
	Unauthorized        = "unauthorized"
)

// NewAuthorizationFailed is the generic callback failure. The specific
// cause (not found, expired, consumed, mismatch) is logged, never returned.
func NewAuthorizationFailed() *HandshakeError {
	return &HandshakeError{
		Code:        AuthorizationFailed,
		Description: "authorization failed, please retry",
	}
}

func NewInvalidRequest(description string) *HandshakeError {
	return &HandshakeError{
		Code:        InvalidRequest,
		Description: description,
	}
}

func NewServerError(description string) *HandshakeError {
	return &HandshakeError{
		Code:        ServerError,
		Description: description,
	}
}

func NewUnauthorized(description string) *HandshakeError {
	return &HandshakeError{
		Code:        Unauthorized,
		Description: description,
	}
}
