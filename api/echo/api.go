package echo

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	handshake "github.com/icoxfog417/agentcore-handshake"
	"github.com/icoxfog417/agentcore-handshake/domain"
	serrors "github.com/icoxfog417/agentcore-handshake/errors"
	"github.com/icoxfog417/agentcore-handshake/log"
	"github.com/icoxfog417/agentcore-handshake/middleware"
)

// APIConfig carries the static settings of the HTTP surface.
type APIConfig struct {
	// ProviderARN identifies the third-party credential provider whose
	// tokens this deployment brokers.
	ProviderARN string
	// CallbackBaseURL is this service's externally reachable base URL.
	CallbackBaseURL string
	// IDPAuthURL, when set, is linked from the landing page for login.
	IDPAuthURL string
}

// HandshakeAPI exposes the callback surface of the session-binding
// handshake.
type HandshakeAPI struct {
	sessions *handshake.SessionService
	relay    *handshake.RelayService
	tokens   *handshake.TokenService
	idp      domain.IdentityProvider
	verifier middleware.IdentityVerifier
	config   APIConfig
	logger   log.Logger
}

// NewHandshakeAPI initializes the API. idp may be nil when the login leg
// is handled elsewhere.
func NewHandshakeAPI(
	sessions *handshake.SessionService,
	relay *handshake.RelayService,
	tokens *handshake.TokenService,
	idp domain.IdentityProvider,
	verifier middleware.IdentityVerifier,
	config APIConfig,
	logger log.Logger,
) *HandshakeAPI {
	return &HandshakeAPI{
		sessions: sessions,
		relay:    relay,
		tokens:   tokens,
		idp:      idp,
		verifier: verifier,
		config:   config,
		logger:   logger,
	}
}

// RegisterRoutes registers the handshake routes.
func (a *HandshakeAPI) RegisterRoutes(e *echo.Echo) {
	e.GET("/", a.HomeHandler)
	e.GET("/healthz", a.HealthHandler)
	e.GET("/oauth2/callback", a.OAuthCallbackHandler, middleware.RequireIdentity(a.verifier, a.logger))
	if a.idp != nil {
		e.GET("/cognito/callback", a.LoginCallbackHandler)
	}
}

// HomeHandler serves a landing page describing the callback server.
func (a *HandshakeAPI) HomeHandler(c echo.Context) error {
	login := ""
	if a.config.IDPAuthURL != "" {
		login = fmt.Sprintf(`<p><a href="%s">Login</a></p>`, a.config.IDPAuthURL)
	}
	return c.HTML(http.StatusOK, fmt.Sprintf(`<html><body>
<h1>OAuth Callback Server</h1>
<p>This server completes OAuth session bindings. When you authorize
third-party access, you'll be redirected here.</p>
%s</body></html>`, login))
}

// HealthHandler reports liveness.
func (a *HandshakeAPI) HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// OAuthCallbackHandler completes a session binding after the user
// authorized third-party access. The session id arrives as a query
// parameter; the completing identity comes from the caller's own verified
// bearer token, never from the URL.
//
// Every verification failure collapses into one generic response so the
// endpoint gives no feedback useful for guessing session ids. The cause is
// logged.
func (a *HandshakeAPI) OAuthCallbackHandler(c echo.Context) error {
	ctx := c.Request().Context()

	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, serrors.NewInvalidRequest("session_id is required"))
	}

	identity := middleware.IdentityFromContext(c)

	binding, err := a.sessions.VerifyAndConsume(ctx, sessionID, identity)
	if err != nil {
		a.logger.Warn(ctx, "callback verification failed", map[string]interface{}{
			"cause": err.Error(),
		})
		return c.HTML(http.StatusBadRequest, failurePage())
	}

	if err := a.relay.Complete(ctx, binding, middleware.BearerFromContext(c)); err != nil {
		a.logger.Error(ctx, "session completion relay failed", err)
		return c.HTML(http.StatusBadGateway, failurePage())
	}

	if a.tokens != nil {
		a.tokens.Invalidate(ctx, a.config.ProviderARN, binding.BoundIdentity)
	}

	return c.HTML(http.StatusOK, `<html><body>
<h1>Authorization Successful</h1>
<p>You have successfully authorized third-party access.</p>
<p><strong>Next step:</strong> Return to your MCP client and retry the tool call.</p>
</body></html>`)
}

// LoginCallbackHandler handles the identity provider's login redirect: it
// exchanges the authorization code for the caller's access token, then
// checks the vault so the user either sees that they are ready or gets the
// consent link for the third-party authorization.
func (a *HandshakeAPI) LoginCallbackHandler(c echo.Context) error {
	ctx := c.Request().Context()

	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, serrors.NewInvalidRequest("code is required"))
	}

	accessToken, err := a.idp.ExchangeCode(ctx, code, a.config.CallbackBaseURL+"/cognito/callback")
	if err != nil {
		a.logger.Error(ctx, "login code exchange failed", err)
		return c.HTML(http.StatusBadGateway, failurePage())
	}

	identity, err := a.verifier.Identity(accessToken)
	if err != nil {
		a.logger.Warn(ctx, "exchanged token rejected", map[string]interface{}{
			"reason": err.Error(),
		})
		return c.HTML(http.StatusBadRequest, failurePage())
	}

	_, authReq, err := a.tokens.EnsureToken(ctx, a.config.ProviderARN, identity)
	if err != nil {
		if errors.Is(err, handshake.ErrStorageUnavailable) {
			a.logger.Error(ctx, "cannot start authorization flow", err)
			return c.HTML(http.StatusInternalServerError, failurePage())
		}
		a.logger.Error(ctx, "token lookup failed", err)
		return c.HTML(http.StatusBadGateway, failurePage())
	}

	if authReq != nil {
		return c.HTML(http.StatusOK, fmt.Sprintf(`<html><body>
<h1>Authorize Third-Party Access</h1>
<p><a href="%s">Click here to authorize</a></p>
</body></html>`, authReq.AuthorizationURL))
	}

	return c.HTML(http.StatusOK, `<html><body>
<h1>You're all set</h1>
<p>A third-party token is already stored for your account.</p>
</body></html>`)
}

func failurePage() string {
	return `<html><body>
<h1>Authorization Failed</h1>
<p>Authorization failed, please retry.</p>
</body></html>`
}
