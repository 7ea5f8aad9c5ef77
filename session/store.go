// Package session keeps the per-browser state that links an authorize request
// to the login-as and token-exchange steps that follow it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lukaszraczylo/mockoauth2/internal/kv"
)

// ErrNotFound is returned when no authorization session exists for an id.
var ErrNotFound = errors.New("session: not found")

const keyPrefix = "session:"

// Authorization is the state captured by the authorize endpoint.
type Authorization struct {
	RedirectURI string `json:"redirect_uri"`
	ClientState string `json:"client_state,omitempty"`
}

// Store persists Authorization records keyed by session id. Records expire after ttl.
type Store struct {
	backend kv.Backend
	ttl     time.Duration
}

// NewStore creates a Store over backend. A zero ttl keeps records forever.
func NewStore(backend kv.Backend, ttl time.Duration) *Store {
	return &Store{backend: backend, ttl: ttl}
}

// Get returns the authorization recorded for id.
func (s *Store) Get(ctx context.Context, id string) (*Authorization, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	data, err := s.backend.Get(ctx, keyPrefix+id)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	var auth Authorization
	if err := json.Unmarshal(data, &auth); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &auth, nil
}

// Put replaces the authorization recorded for id.
func (s *Store) Put(ctx context.Context, id string, auth Authorization) error {
	if id == "" {
		return fmt.Errorf("session id is required")
	}
	data, err := json.Marshal(auth)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.backend.Set(ctx, keyPrefix+id, data, s.ttl); err != nil {
		return fmt.Errorf("store session %s: %w", id, err)
	}
	return nil
}
