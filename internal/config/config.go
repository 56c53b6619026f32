package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"8080"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json" validate:"omitempty,oneof=json console"`

	// StateSecret signs the OAuth state tokens carried through the provider redirect.
	StateSecret   string        `env:"STATE_SECRET"`
	StateLifetime time.Duration `env:"STATE_LIFETIME" envDefault:"1h"`

	JWTSecret   string        `env:"JWT_SECRET"`
	JWTLifetime time.Duration `env:"JWT_LIFETIME" envDefault:"1h"`

	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"true"`

	DefaultBackend string `env:"DEFAULT_AUTH_BACKEND" envDefault:"jwt" validate:"omitempty,oneof=jwt cookie"`

	GoogleClientID     string   `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string   `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string   `env:"GOOGLE_REDIRECT_URL" validate:"omitempty,url"`
	GoogleScopes       []string `env:"GOOGLE_SCOPES" envSeparator:","`

	KeycloakIssuer        string `env:"KEYCLOAK_ISSUER" validate:"omitempty,url"`
	KeycloakClientID      string `env:"KEYCLOAK_CLIENT_ID"`
	KeycloakClientSecret  string `env:"KEYCLOAK_CLIENT_SECRET"`
	KeycloakRedirectURL   string `env:"KEYCLOAK_REDIRECT_URL" validate:"omitempty,url"`
	KeycloakPublicBaseURL string `env:"KEYCLOAK_PUBLIC_BASE_URL" validate:"omitempty,url"`

	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubRedirectURL  string `env:"GITHUB_REDIRECT_URL" validate:"omitempty,url"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	DatabaseDSN string `env:"DATABASE_DSN"`

	// OTLPEndpoint is the OTLP/HTTP collector host:port. Tracing is
	// disabled when empty.
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" validate:"omitempty,hostname_port"`
	OTLPInsecure bool   `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"false"`
}

// LoadDotEnv loads variables from a .env file without overriding ones
// already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// Load reads the configuration from the environment once at startup.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.StateSecret == "" {
		return errors.New("config: STATE_SECRET is required")
	}
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if c.StateLifetime <= 0 {
		return errors.New("config: STATE_LIFETIME must be positive")
	}
	if c.DatabaseDSN == "" {
		return errors.New("config: DATABASE_DSN is required")
	}
	if !c.CookieSecure {
		return errors.New("config: COOKIE_SECURE must be true, the __Host- session cookie is dropped by browsers otherwise")
	}
	if !c.GoogleEnabled() && !c.KeycloakEnabled() && !c.GitHubEnabled() {
		return errors.New("config: at least one oauth provider must be configured")
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c Config) GoogleEnabled() bool   { return c.GoogleClientID != "" }
func (c Config) KeycloakEnabled() bool { return c.KeycloakClientID != "" }
func (c Config) GitHubEnabled() bool   { return c.GitHubClientID != "" }
