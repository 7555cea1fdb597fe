package handshake

import (
	serrors "github.com/icoxfog417/agentcore-handshake/errors"
)

// Re-exported so callers of the services need a single import.
var (
	ErrStorageUnavailable     = serrors.ErrStorageUnavailable
	ErrSessionNotFound        = serrors.ErrSessionNotFound
	ErrSessionExpired         = serrors.ErrSessionExpired
	ErrSessionAlreadyConsumed = serrors.ErrSessionAlreadyConsumed
	ErrIdentityMismatch       = serrors.ErrIdentityMismatch
	ErrVaultCompletionFailed  = serrors.ErrVaultCompletionFailed
	ErrTokenNotFound          = serrors.ErrTokenNotFound
)
