package kv

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

// newMiniredisBackend starts a miniredis server and a backend connected to it.
func newMiniredisBackend(t *testing.T, prefix string) (*miniredis.Miniredis, *RedisBackend) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err, "failed to start miniredis")

	cfg := DefaultRedisConfig(mr.Addr())
	cfg.RedisPrefix = prefix
	backend, err := NewRedisBackend(context.Background(), cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = backend.Close()
		mr.Close()
	})
	return mr, backend
}
