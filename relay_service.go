package handshake

import (
	"context"
	"fmt"

	"github.com/icoxfog417/agentcore-handshake/domain"
	"github.com/icoxfog417/agentcore-handshake/log"
)

// RelayService forwards a verified binding to the external token vault,
// which performs the actual code-for-token exchange and durable storage.
type RelayService struct {
	vault  domain.TokenVault
	logger log.Logger
}

func NewRelayService(vault domain.TokenVault, logger log.Logger) *RelayService {
	return &RelayService{
		vault:  vault,
		logger: logger,
	}
}

// Complete finalizes token storage for the binding. userToken is the
// caller's own bearer token; the vault re-derives the identity from it.
//
// Failures are surfaced wrapped in ErrVaultCompletionFailed and never
// retried here: the authorization code behind the session is single-use,
// so the only recovery is a fresh session.
func (r *RelayService) Complete(ctx context.Context, binding *domain.VerifiedBinding, userToken string) error {
	user := domain.UserIdentifier{UserToken: userToken}
	if userToken == "" {
		// Bare-id fallback for callers without their own bearer token.
		// Weaker than the token variant; kept for SigV4-style clients.
		user = domain.UserIdentifier{UserID: binding.BoundIdentity}
	}

	if err := r.vault.CompleteResourceTokenAuth(ctx, binding.SessionID, user); err != nil {
		r.logger.Error(ctx, "vault completion failed", err)
		return fmt.Errorf("%w: %v", ErrVaultCompletionFailed, err)
	}

	r.logger.Info(ctx, "session binding completed")

	return nil
}
