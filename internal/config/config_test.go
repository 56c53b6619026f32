package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("STATE_SECRET", "state-secret")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("DATABASE_DSN", "postgres://localhost/federation")
	t.Setenv("GOOGLE_CLIENT_ID", "client-id")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AppPort != "8080" {
		t.Errorf("AppPort = %q, want 8080", cfg.AppPort)
	}
	if cfg.StateLifetime != time.Hour {
		t.Errorf("StateLifetime = %v, want 1h", cfg.StateLifetime)
	}
	if cfg.DefaultBackend != "jwt" {
		t.Errorf("DefaultBackend = %q, want jwt", cfg.DefaultBackend)
	}
	if !cfg.GoogleEnabled() || cfg.GitHubEnabled() {
		t.Errorf("provider toggles wrong: google=%v github=%v", cfg.GoogleEnabled(), cfg.GitHubEnabled())
	}
}

func TestLoadParsesScopes(t *testing.T) {
	setRequired(t)
	t.Setenv("GOOGLE_SCOPES", "openid,email")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.GoogleScopes) != 2 || cfg.GoogleScopes[1] != "email" {
		t.Errorf("GoogleScopes = %v", cfg.GoogleScopes)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		StateSecret:    "s",
		JWTSecret:      "j",
		StateLifetime:  time.Hour,
		DatabaseDSN:    "dsn",
		GitHubClientID: "gh",
		CookieSecure:   true,
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing state secret", mutate: func(c *Config) { c.StateSecret = "" }, wantErr: true},
		{name: "missing jwt secret", mutate: func(c *Config) { c.JWTSecret = "" }, wantErr: true},
		{name: "zero state lifetime", mutate: func(c *Config) { c.StateLifetime = 0 }, wantErr: true},
		{name: "missing dsn", mutate: func(c *Config) { c.DatabaseDSN = "" }, wantErr: true},
		{name: "no provider", mutate: func(c *Config) { c.GitHubClientID = "" }, wantErr: true},
		{name: "insecure session cookie", mutate: func(c *Config) { c.CookieSecure = false }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateFormats(t *testing.T) {
	base := Config{
		StateSecret:    "s",
		JWTSecret:      "j",
		StateLifetime:  time.Hour,
		DatabaseDSN:    "dsn",
		GitHubClientID: "gh",
		CookieSecure:   true,
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "redirect not a url", mutate: func(c *Config) { c.GitHubRedirectURL = "not a url" }},
		{name: "unknown default backend", mutate: func(c *Config) { c.DefaultBackend = "saml" }},
		{name: "unknown log format", mutate: func(c *Config) { c.LogFormat = "xml" }},
		{name: "otlp endpoint without port", mutate: func(c *Config) { c.OTLPEndpoint = "collector" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("Validate() should fail")
			}
		})
	}

	cfg := base
	cfg.GitHubRedirectURL = "https://app.example.com/oauth/github/callback"
	cfg.OTLPEndpoint = "localhost:4318"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("FEDERATION_TEST_FROM_DOTENV=yes\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("FEDERATION_TEST_FROM_DOTENV", "")
	os.Unsetenv("FEDERATION_TEST_FROM_DOTENV")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("FEDERATION_TEST_FROM_DOTENV"); got != "yes" {
		t.Errorf("FEDERATION_TEST_FROM_DOTENV = %q, want yes", got)
	}

	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("LoadDotEnv(missing) error = %v", err)
	}
}

func TestLoadRejectsInsecureCookie(t *testing.T) {
	setRequired(t)
	t.Setenv("COOKIE_SECURE", "false")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should reject COOKIE_SECURE=false")
	}
}
