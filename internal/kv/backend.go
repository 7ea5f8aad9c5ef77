// Package kv provides the key/value backends behind the token and session stores.
package kv

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrBackendClosed is returned when operating on a closed backend
	ErrBackendClosed = errors.New("kv backend is closed")

	// ErrKeyNotFound is returned when a key doesn't exist
	ErrKeyNotFound = errors.New("key not found")
)

// Backend is a byte-oriented key/value store. Every operation is atomic for
// the key it touches; no operation spans keys.
type Backend interface {
	// Get returns ErrKeyNotFound when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value. A zero ttl keeps the value until it is deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}

// BackendType names a backend implementation.
type BackendType string

const (
	TypeMemory BackendType = "memory"
	TypeRedis  BackendType = "redis"
)

// Config selects and configures a backend.
type Config struct {
	Type BackendType

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// DefaultRedisConfig returns a Redis configuration for addr.
func DefaultRedisConfig(addr string) *Config {
	return &Config{
		Type:        TypeRedis,
		RedisAddr:   addr,
		RedisPrefix: "mockoauth2:",
	}
}

// New builds the backend described by cfg. A nil cfg yields a memory backend.
func New(ctx context.Context, cfg *Config) (Backend, error) {
	if cfg == nil {
		return NewMemoryBackend(), nil
	}
	switch cfg.Type {
	case "", TypeMemory:
		return NewMemoryBackend(), nil
	case TypeRedis:
		return NewRedisBackend(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown kv backend type %q", cfg.Type)
	}
}
