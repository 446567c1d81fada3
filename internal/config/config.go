// Package config loads application configuration from the environment.
//
// An optional .env file is read first (godotenv), then caarlos0/env parses the
// process environment into the Config struct via struct tags. Real environment
// variables always win over .env entries, so deployments that set variables
// directly need no file at all.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every externally provided setting.
type Config struct {
	// Port the HTTP server listens on.
	Port int `env:"PORT" envDefault:"8080"`

	// DBPath is the SQLite database location. ":memory:" is valid and used
	// by the tests.
	DBPath string `env:"DB_PATH" envDefault:"data/accounts.db"`

	// JWTSecret signs bearer tokens. Must be set; short secrets are rejected
	// by the token service at startup.
	JWTSecret string `env:"JWT_SECRET"`

	// JWTIssuer is the iss claim stamped into and required from every token.
	JWTIssuer string `env:"JWT_ISSUER" envDefault:"accounts-api"`

	// DefaultOAuthPassword is the placeholder credential stored for accounts
	// created through an OAuth first login, until the user sets a real
	// password. It is exempt from the password complexity policy.
	DefaultOAuthPassword string `env:"DEFAULT_OAUTH_PASSWORD" envDefault:"oauth-placeholder"`

	// OAuthTimeout bounds each call to a provider's userinfo endpoint.
	OAuthTimeout time.Duration `env:"OAUTH_TIMEOUT" envDefault:"5s"`

	// LogLevel: DEBUG, INFO, WARN, or ERROR.
	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`
}

// Load reads the optional .env file and parses the environment.
func Load() (Config, error) {
	// Missing .env is fine — variables may come from the real environment.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing environment: %w", err)
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("config: JWT_SECRET must be set")
	}

	return cfg, nil
}
