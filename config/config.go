// Package config holds the server configuration: defaults, an optional YAML
// file and environment variable overrides, in that order.
package config

import (
	"net"
	"strconv"
	"time"

	"github.com/lukaszraczylo/mockoauth2/internal/kv"
	"github.com/lukaszraczylo/mockoauth2/internal/scope"
	"github.com/lukaszraczylo/mockoauth2/internal/validator"
	"github.com/lukaszraczylo/mockoauth2/session"
)

// Config is the complete server configuration. It is immutable once loaded.
type Config struct {
	// Registered client
	ClientID     string `yaml:"client_id" env:"EXPECTED_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"EXPECTED_CLIENT_SECRET"`

	// Endpoint paths
	AuthPath      string `yaml:"auth_path" env:"AUTH_REQUEST_PATH"`
	TokenPath     string `yaml:"token_path" env:"ACCESS_TOKEN_REQUEST_PATH"`
	UserinfoPath  string `yaml:"userinfo_path" env:"USERINFO_REQUEST_URL"`
	TokeninfoPath string `yaml:"tokeninfo_path" env:"TOKENINFO_REQUEST_URL"`

	PermittedRedirectURLs []string `yaml:"permitted_redirect_urls" env:"PERMITTED_REDIRECT_URLS" envSeparator:","`

	// Scopes lists the grantable scopes; the first one is the default.
	Scopes []string `yaml:"scopes" env:"SCOPES" envSeparator:","`
	// MatchScope holds "email-substring:scope" rules evaluated in order.
	MatchScope []string `yaml:"match_scope" env:"MATCH_SCOPE" envSeparator:","`

	BindHost         string `yaml:"bind_host" env:"BIND_HOST"`
	Port             int    `yaml:"port" env:"PORT"`
	LogLevel         string `yaml:"log_level" env:"LOG_LEVEL"`
	DefaultExpiresIn int    `yaml:"default_expires_in" env:"DEFAULT_EXPIRES_IN"`

	Session   SessionConfig   `yaml:"session"`
	Store     StoreConfig     `yaml:"store"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// SessionConfig configures the browser session cookie and record lifetime.
type SessionConfig struct {
	Secret     string        `yaml:"secret" env:"SESSION_SECRET"`
	CookieName string        `yaml:"cookie_name" env:"SESSION_COOKIE_NAME"`
	MaxAge     time.Duration `yaml:"max_age" env:"SESSION_MAX_AGE"`
	Secure     bool          `yaml:"secure" env:"SESSION_SECURE"`
}

// StoreConfig selects the key/value backend.
type StoreConfig struct {
	Backend string      `yaml:"backend" env:"STORE_BACKEND"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
	Prefix   string `yaml:"prefix" env:"REDIS_PREFIX"`
}

// RateLimitConfig configures the global request limiter. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" env:"RATE_LIMIT"`
	Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		ClientID:              "dummy-client-id",
		ClientSecret:          "dummy-client-secret",
		AuthPath:              "/o/oauth2/v2/auth",
		TokenPath:             "/oauth2/v4/token",
		UserinfoPath:          "/oauth2/v3/userinfo",
		TokeninfoPath:         "/oauth2/v3/tokeninfo",
		PermittedRedirectURLs: []string{"http://localhost:8181/auth/login"},
		Port:                  8282,
		LogLevel:              "info",
		DefaultExpiresIn:      3600,
		Session: SessionConfig{
			Secret:     "keyboard cat",
			CookieName: "mockoauth2_session",
			MaxAge:     time.Hour,
		},
		Store: StoreConfig{
			Backend: string(kv.TypeMemory),
			Redis: RedisConfig{
				Addr:   "127.0.0.1:6379",
				Prefix: "mockoauth2:",
			},
		},
		RateLimit: RateLimitConfig{
			Burst: 10,
		},
	}
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.BindHost, strconv.Itoa(c.Port))
}

// ScopeRules parses MatchScope.
func (c *Config) ScopeRules() ([]scope.Rule, error) {
	return scope.ParseRules(c.MatchScope)
}

// Resolver builds the scope resolver for the configured scopes and rules.
func (c *Config) Resolver() (*scope.Resolver, error) {
	rules, err := c.ScopeRules()
	if err != nil {
		return nil, err
	}
	return scope.NewResolver(c.Scopes, rules), nil
}

// ValidatorSettings returns the registered client for request validation.
func (c *Config) ValidatorSettings() validator.Settings {
	return validator.Settings{
		ClientID:              c.ClientID,
		ClientSecret:          c.ClientSecret,
		PermittedRedirectURIs: c.PermittedRedirectURLs,
	}
}

// KVConfig returns the backend configuration.
func (c *Config) KVConfig() *kv.Config {
	return &kv.Config{
		Type:          kv.BackendType(c.Store.Backend),
		RedisAddr:     c.Store.Redis.Addr,
		RedisPassword: c.Store.Redis.Password,
		RedisDB:       c.Store.Redis.DB,
		RedisPrefix:   c.Store.Redis.Prefix,
	}
}

// SessionManagerConfig returns the cookie settings for session.NewManager.
func (c *Config) SessionManagerConfig() session.ManagerConfig {
	return session.ManagerConfig{
		Secret:     c.Session.Secret,
		CookieName: c.Session.CookieName,
		MaxAge:     c.Session.MaxAge,
		Secure:     c.Session.Secure,
	}
}
