package config

import (
	"fmt"
	"strings"

	"github.com/lukaszraczylo/mockoauth2/internal/kv"
	"github.com/lukaszraczylo/mockoauth2/internal/logger"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: %s (value: %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found by Validate.
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	messages := make([]string, 0, len(e))
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// reservedPaths are mounted regardless of configuration.
var reservedPaths = []string{"/login-as", "/healthz"}

// Validate checks the configuration and reports all problems at once.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, message string, value interface{}) {
		errs = append(errs, ValidationError{Field: field, Message: message, Value: value})
	}

	if c.ClientID == "" {
		add("client_id", "must not be empty", nil)
	}
	if c.ClientSecret == "" {
		add("client_secret", "must not be empty", nil)
	}

	seen := make(map[string]string, 4)
	for _, p := range reservedPaths {
		seen[p] = "built-in endpoint"
	}
	for _, p := range []struct{ field, value string }{
		{"auth_path", c.AuthPath},
		{"token_path", c.TokenPath},
		{"userinfo_path", c.UserinfoPath},
		{"tokeninfo_path", c.TokeninfoPath},
	} {
		switch {
		case p.value == "":
			add(p.field, "must not be empty", nil)
		case !strings.HasPrefix(p.value, "/"):
			add(p.field, "must start with /", p.value)
		case strings.ContainsAny(p.value, " \t\r\n{}"):
			add(p.field, "must not contain whitespace or braces", p.value)
		case seen[p.value] != "":
			add(p.field, "collides with "+seen[p.value], p.value)
		default:
			seen[p.value] = p.field
		}
	}

	if len(c.PermittedRedirectURLs) == 0 {
		add("permitted_redirect_urls", "at least one redirect URL is required", nil)
	}
	for _, u := range c.PermittedRedirectURLs {
		if strings.TrimSpace(u) == "" {
			add("permitted_redirect_urls", "must not contain empty entries", nil)
			break
		}
		if strings.Contains(u, "#") {
			add("permitted_redirect_urls", "must not contain a fragment", u)
			break
		}
	}

	if c.Port < 1 || c.Port > 65535 {
		add("port", "must be between 1 and 65535", c.Port)
	}
	if !logger.ValidLogLevel(c.LogLevel) {
		add("log_level", "must be one of debug, info, error, none", c.LogLevel)
	}
	if c.DefaultExpiresIn <= 0 {
		add("default_expires_in", "must be positive", c.DefaultExpiresIn)
	}

	if _, err := c.ScopeRules(); err != nil {
		add("match_scope", err.Error(), nil)
	}

	if c.Session.Secret == "" {
		add("session.secret", "must not be empty", nil)
	}
	if c.Session.CookieName == "" {
		add("session.cookie_name", "must not be empty", nil)
	}
	if c.Session.MaxAge <= 0 {
		add("session.max_age", "must be positive", c.Session.MaxAge)
	}

	switch kv.BackendType(c.Store.Backend) {
	case kv.TypeMemory:
	case kv.TypeRedis:
		if c.Store.Redis.Addr == "" {
			add("store.redis.addr", "required for the redis backend", nil)
		}
	default:
		add("store.backend", "must be memory or redis", c.Store.Backend)
	}

	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		add("rate_limit.burst", "must be at least 1 when rate limiting is enabled", c.RateLimit.Burst)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Warnings reports settings that are accepted but probably unintended.
func (c *Config) Warnings() []string {
	var warnings []string

	resolver, err := c.Resolver()
	if err != nil {
		return nil
	}
	for _, s := range resolver.UnknownScopes() {
		warnings = append(warnings, fmt.Sprintf("match_scope grants %q which is not listed in scopes", s))
	}
	if len(c.MatchScope) > 0 && len(c.Scopes) == 0 {
		warnings = append(warnings, "match_scope is ignored because no scopes are configured")
	}
	if c.Session.Secret == Default().Session.Secret {
		warnings = append(warnings, "session.secret uses the built-in default")
	}
	return warnings
}
