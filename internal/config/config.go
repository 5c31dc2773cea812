package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Authentication modes
const (
	AuthModeOIDC   = "oidc"
	AuthModeSecret = "secret"

	minJWTSecretLength = 16
)

// Config holds application configuration
type Config struct {
	DatabaseURL      string
	ServerPort       string
	BaseURL          string
	FrontendURL      string
	EnableHSTS       bool
	AuthMode         string
	OIDCProvider     string
	JWTSecret        string
	JWTIssuer        string
	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int
	WorkerDebugMode  bool
	ServerDebugMode  bool
	LogDevelopment   bool
	OTELEnabled      bool
	OTELEndpoint     string
	RequestTimeout   time.Duration
	RateLimitDefault string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom loads configuration through getenv, which lets tests supply values
// without touching the process environment
func LoadFrom(getenv func(string) string) (*Config, error) {
	env := source(getenv)
	cfg := &Config{
		DatabaseURL:      env.str("DATABASE_URL", ""),
		ServerPort:       env.str("SERVER_PORT", "8080"),
		BaseURL:          env.str("BASE_URL", "http://localhost:8080"),
		FrontendURL:      env.str("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:       env.boolean("ENABLE_HSTS", false),
		AuthMode:         strings.ToLower(env.str("AUTH_MODE", AuthModeOIDC)),
		OIDCProvider:     env.str("OIDC_PROVIDER", "cognito"),
		JWTSecret:        env.str("JWT_SECRET", ""),
		JWTIssuer:        env.str("JWT_ISSUER", "smart-snippets"),
		RedisURL:         env.str("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:      env.str("RABBITMQ_URL", ""),
		RabbitMQPrefetch: env.integer("RABBITMQ_PREFETCH", 1),
		WorkerDebugMode:  env.boolean("WORKER_DEBUG_MODE", false),
		ServerDebugMode:  env.boolean("SERVER_DEBUG_MODE", false),
		LogDevelopment:   env.boolean("LOG_DEVELOPMENT", false),
		OTELEnabled:      env.boolean("OTEL_ENABLED", false),
		OTELEndpoint:     env.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		RequestTimeout:   time.Duration(env.integer("REQUEST_TIMEOUT", 30)) * time.Second,
		RateLimitDefault: env.str("RATE_LIMIT_DEFAULT", "5-S"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	switch c.AuthMode {
	case AuthModeOIDC:
	case AuthModeSecret:
		if len(c.JWTSecret) < minJWTSecretLength {
			return fmt.Errorf("JWT_SECRET must be at least %d characters when AUTH_MODE=secret", minJWTSecretLength)
		}
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeOIDC, AuthModeSecret, c.AuthMode)
	}
	if c.RabbitMQPrefetch < 1 {
		c.RabbitMQPrefetch = 1
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	return nil
}

// QueueEnabled reports whether tag statistics jobs can be published
func (c *Config) QueueEnabled() bool {
	return c.RabbitMQURL != ""
}

type source func(string) string

func (s source) str(key, defaultValue string) string {
	if value := strings.TrimSpace(s(key)); value != "" {
		return value
	}
	return defaultValue
}

func (s source) boolean(key string, defaultValue bool) bool {
	if value := strings.ToLower(strings.TrimSpace(s(key))); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func (s source) integer(key string, defaultValue int) int {
	if value := strings.TrimSpace(s(key)); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
