package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the handshake server.
type ServerConfig struct {
	HTTPPort string `mapstructure:"HTTP_PORT"`

	// SessionStore selects the binding-session backend: memory, redis or mongo.
	SessionStore      string `mapstructure:"SESSION_STORE"`
	SessionTTLSeconds int    `mapstructure:"SESSION_TTL_SECONDS"`
	SweepIntervalSec  int    `mapstructure:"SWEEP_INTERVAL_SECONDS"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDBName   string `mapstructure:"MONGO_DB_NAME"`

	// VaultEndpoint is the external token-vault (identity data plane) base URL.
	VaultEndpoint    string `mapstructure:"VAULT_ENDPOINT"`
	VaultProviderARN string `mapstructure:"VAULT_PROVIDER_ARN"`

	GatewayURL      string `mapstructure:"GATEWAY_URL"`
	CallbackBaseURL string `mapstructure:"CALLBACK_BASE_URL"`

	// Cognito-style identity provider settings for the login leg.
	IDPTokenURL string `mapstructure:"IDP_TOKEN_URL"`
	IDPAuthURL  string `mapstructure:"IDP_AUTH_URL"`
	IDPClientID string `mapstructure:"IDP_CLIENT_ID"`

	// IdentitySigningKey verifies the caller's bearer JWT (HS256). Empty
	// means unverified claim extraction, the discouraged legacy mode.
	IdentitySigningKey string `mapstructure:"IDENTITY_SIGNING_KEY"`

	TokenCacheTTLSeconds int `mapstructure:"TOKEN_CACHE_TTL_SECONDS"`

	LogLevel        string `mapstructure:"LOG_LEVEL"`
	LogPretty       bool   `mapstructure:"LOG_PRETTY"`
	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/agentcore-handshake/")
	v.AddConfigPath("$HOME/.agentcore-handshake")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("SESSION_STORE", "memory")
	v.SetDefault("SESSION_TTL_SECONDS", 300)
	v.SetDefault("SWEEP_INTERVAL_SECONDS", 60)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/agentcore_handshake")
	v.SetDefault("MONGO_DB_NAME", "agentcore_handshake")
	v.SetDefault("CALLBACK_BASE_URL", "http://localhost:8080")
	v.SetDefault("TOKEN_CACHE_TTL_SECONDS", 300)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("OTEL_SERVICE_NAME", "agentcore-handshake")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env vars apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
