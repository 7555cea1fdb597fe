package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	serrors "github.com/icoxfog417/agentcore-handshake/errors"
	"github.com/icoxfog417/agentcore-handshake/log"
)

const (
	identityContextKey = "presented_identity"
	bearerContextKey   = "bearer_token"
)

// IdentityVerifier derives a user identity from a bearer token.
type IdentityVerifier interface {
	Identity(tokenString string) (string, error)
}

// RequireIdentity authenticates the request's own bearer token and stashes
// the derived identity in the echo context. The callback must never take
// an identity from a URL parameter; this is the independent derivation.
func RequireIdentity(verifier IdentityVerifier, logger log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return c.JSON(http.StatusUnauthorized, serrors.NewUnauthorized("missing bearer token"))
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return c.JSON(http.StatusUnauthorized, serrors.NewUnauthorized("invalid authorization header format: expected Bearer token"))
			}

			identity, err := verifier.Identity(parts[1])
			if err != nil {
				logger.Warn(c.Request().Context(), "bearer token rejected", map[string]interface{}{
					"reason": err.Error(),
				})
				return c.JSON(http.StatusUnauthorized, serrors.NewUnauthorized("invalid bearer token"))
			}

			c.Set(identityContextKey, identity)
			c.Set(bearerContextKey, parts[1])

			return next(c)
		}
	}
}

// IdentityFromContext returns the identity set by RequireIdentity.
func IdentityFromContext(c echo.Context) string {
	identity, _ := c.Get(identityContextKey).(string)
	return identity
}

// BearerFromContext returns the raw bearer token set by RequireIdentity.
func BearerFromContext(c echo.Context) string {
	token, _ := c.Get(bearerContextKey).(string)
	return token
}
