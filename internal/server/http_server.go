package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	echoapi "github.com/icoxfog417/agentcore-handshake/api/echo"
	"github.com/icoxfog417/agentcore-handshake/config"
	"github.com/icoxfog417/agentcore-handshake/log"
)

// NewHTTPServer creates and configures the echo HTTP server hosting the
// callback surface.
func NewHTTPServer(cfg *config.ServerConfig, appLogger log.Logger, api *echoapi.HandshakeAPI) *http.Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.Recover())

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			fields := map[string]interface{}{
				"method":  c.Request().Method,
				"path":    c.Request().URL.Path,
				"status":  c.Response().Status,
				"latency": time.Since(start).String(),
				"ip":      c.RealIP(),
			}
			if err != nil {
				appLogger.Error(c.Request().Context(), "HTTP request", err, fields)
			} else {
				appLogger.Info(c.Request().Context(), "HTTP request", fields)
			}

			return err
		}
	})

	api.RegisterRoutes(e)

	return &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      e,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
