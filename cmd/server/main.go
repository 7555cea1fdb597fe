package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	handshake "github.com/icoxfog417/agentcore-handshake"
	echoapi "github.com/icoxfog417/agentcore-handshake/api/echo"
	"github.com/icoxfog417/agentcore-handshake/cache"
	redisstore "github.com/icoxfog417/agentcore-handshake/cache/redis"
	"github.com/icoxfog417/agentcore-handshake/config"
	"github.com/icoxfog417/agentcore-handshake/domain"
	"github.com/icoxfog417/agentcore-handshake/idp"
	"github.com/icoxfog417/agentcore-handshake/internal/auth"
	"github.com/icoxfog417/agentcore-handshake/internal/server"
	"github.com/icoxfog417/agentcore-handshake/log"
	"github.com/icoxfog417/agentcore-handshake/mongodb"
	"github.com/icoxfog417/agentcore-handshake/tracing"
	"github.com/icoxfog417/agentcore-handshake/vault"
)

var (
	appLogger      log.Logger
	httpServer     *http.Server
	tracerProvider *sdktrace.TracerProvider
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		stdLog := zerolog.New(os.Stdout).With().Timestamp().Logger()
		stdLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
		stdLog := zerolog.New(os.Stdout).With().Timestamp().Logger()
		stdLog.Warn().
			Str("configured_log_level", cfg.LogLevel).
			Err(parseErr).
			Msg("Invalid LOG_LEVEL configured, defaulting to 'info'")
	}
	appLogger = log.NewZerologAdapter(logLevel, cfg.LogPretty)

	ctx := context.Background()
	appLogger.Info(ctx, "Starting handshake server...", map[string]interface{}{
		"http_port":     cfg.HTTPPort,
		"session_store": cfg.SessionStore,
		"session_ttl_s": cfg.SessionTTLSeconds,
	})

	tp, err := tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize TracerProvider", err)
	}
	tracerProvider = tp

	// Session store selection
	var sessionRepo domain.SessionRepository
	switch cfg.SessionStore {
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			appLogger.Fatal(ctx, "Failed to connect to Redis", err)
		}
		sessionRepo = redisstore.NewSessionStore(client, "handshake")
	case "mongo":
		if err := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); err != nil {
			appLogger.Fatal(ctx, "Failed to initialize MongoDB connection", err)
		}
		repo, err := mongodb.NewSessionRepositoryMongo(ctx, mongodb.GetDB())
		if err != nil {
			appLogger.Fatal(ctx, "Failed to initialize session repository", err)
		}
		sessionRepo = repo
	default:
		sessionRepo = cache.NewMemorySessionStore()
	}

	// External collaborators
	var tokenVault domain.TokenVault
	if cfg.VaultEndpoint != "" {
		tokenVault = vault.NewClient(cfg.VaultEndpoint, nil, appLogger)
	} else {
		appLogger.Warn(ctx, "VAULT_ENDPOINT not set, using in-memory vault fake")
		tokenVault = vault.NewMemory(cfg.CallbackBaseURL)
	}

	var identityProvider domain.IdentityProvider
	if cfg.IDPTokenURL != "" {
		identityProvider = idp.NewCognitoProvider(cfg.IDPTokenURL, cfg.IDPClientID, nil, appLogger)
	}

	verifier := auth.NewVerifier(cfg.IdentitySigningKey)
	if cfg.IdentitySigningKey == "" {
		appLogger.Warn(ctx, "IDENTITY_SIGNING_KEY not set, bearer tokens are parsed without verification")
	}

	// Services
	sessionTTL := time.Duration(cfg.SessionTTLSeconds) * time.Second
	sessionService := handshake.NewSessionService(sessionRepo, sessionTTL, appLogger)
	relayService := handshake.NewRelayService(tokenVault, appLogger)
	tokenCache := cache.NewMemoryTokenCache(time.Duration(cfg.TokenCacheTTLSeconds) * time.Second)
	tokenService := handshake.NewTokenService(tokenVault, tokenCache, sessionService, appLogger)

	api := echoapi.NewHandshakeAPI(sessionService, relayService, tokenService, identityProvider, verifier, echoapi.APIConfig{
		ProviderARN:     cfg.VaultProviderARN,
		CallbackBaseURL: cfg.CallbackBaseURL,
		IDPAuthURL:      cfg.IDPAuthURL,
	}, appLogger)

	httpServer = server.NewHTTPServer(cfg, appLogger, api)
	go func() {
		appLogger.Info(ctx, fmt.Sprintf("HTTP server listening on port %s", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(ctx, "Failed to start HTTP server", err)
		}
	}()

	// Periodic sweep for stores without native TTL expiry.
	sweepCtx, cancelSweep := context.WithCancel(ctx)
	go func() {
		interval := time.Duration(cfg.SweepIntervalSec) * time.Second
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if err := sessionService.SweepExpired(sweepCtx); err != nil {
					appLogger.Error(sweepCtx, "expired session sweep failed", err)
				}
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quit

	appLogger.Info(ctx, fmt.Sprintf("Received signal: %v. Shutting down server...", receivedSignal))
	cancelSweep()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error(shutdownCtx, "HTTP server shutdown error", err)
		}
	}

	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			appLogger.Error(shutdownCtx, "TracerProvider shutdown error", err)
		}
	}

	if cfg.SessionStore == "mongo" {
		mongodb.CloseMongoDB(shutdownCtx)
	}

	appLogger.Info(shutdownCtx, "Server gracefully stopped.")
}
