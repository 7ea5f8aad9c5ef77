// Package token issues authorization codes and keeps the records they map to.
package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lukaszraczylo/mockoauth2/internal/kv"
	"github.com/lukaszraczylo/mockoauth2/internal/random"
	"github.com/lukaszraczylo/mockoauth2/internal/scope"
)

// ErrNotFound is returned by lookups for unknown codes and tokens.
var ErrNotFound = errors.New("token: not found")

// maxCodeAttempts bounds regeneration when a freshly drawn code is already taken.
const maxCodeAttempts = 8

const (
	codeKeyPrefix          = "code:"
	authorizationKeyPrefix = "userinfo:"
	idTokenKeyPrefix       = "idtoken:"
)

// Store maps codes to token records and tokens to profiles.
// Records never expire and codes are not invalidated by Exchange.
type Store struct {
	backend  kv.Backend
	gen      random.Generator
	resolver *scope.Resolver
}

// NewStore creates a Store. A nil generator defaults to random.Default();
// a nil resolver disables scopes.
func NewStore(backend kv.Backend, gen random.Generator, resolver *scope.Resolver) *Store {
	if gen == nil {
		gen = random.Default()
	}
	return &Store{backend: backend, gen: gen, resolver: resolver}
}

// IssueCode mints a code plus access, refresh and ID tokens, and records the
// profile under both the bearer authorization value and the ID token.
func (s *Store) IssueCode(ctx context.Context, req IssueRequest) (string, error) {
	code := s.newCode()
	record := Record{
		AccessToken:  AccessTokenPrefix + s.gen.Generate(TokenLength),
		ExpiresIn:    req.ExpiresIn,
		RefreshToken: RefreshTokenPrefix + s.gen.Generate(TokenLength),
		IDToken:      IDTokenPrefix + s.gen.Generate(TokenLength),
		State:        req.State,
		TokenType:    BearerType,
	}
	profile := Profile{
		Email:         req.Email,
		EmailVerified: true,
		Name:          req.Name,
	}

	if s.resolver.Enabled() {
		granted := req.Scope
		if granted == "" {
			granted, _ = s.resolver.Resolve(req.Email)
		}
		record.Scope = granted
		profile.Scope = granted
	}

	profileData, err := json.Marshal(profile)
	if err != nil {
		return "", fmt.Errorf("encode profile: %w", err)
	}
	recordData, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("encode token record: %w", err)
	}

	// Profiles go in first so any code visible to Exchange already resolves.
	if err := s.backend.Set(ctx, authorizationKeyPrefix+AuthorizationKey(record.AccessToken), profileData, 0); err != nil {
		return "", fmt.Errorf("store userinfo profile: %w", err)
	}
	if err := s.backend.Set(ctx, idTokenKeyPrefix+record.IDToken, profileData, 0); err != nil {
		return "", fmt.Errorf("store tokeninfo profile: %w", err)
	}

	for attempt := 1; ; attempt++ {
		ok, err := s.backend.SetNX(ctx, codeKeyPrefix+code, recordData, 0)
		if err != nil {
			return "", fmt.Errorf("store code: %w", err)
		}
		if ok {
			return code, nil
		}
		if attempt == maxCodeAttempts {
			return "", fmt.Errorf("could not allocate a unique code after %d attempts", maxCodeAttempts)
		}
		code = s.newCode()
	}
}

func (s *Store) newCode() string {
	return CodePrefix + s.gen.Generate(CodeLength)
}

// Exchange returns the record issued for code. The code stays valid.
func (s *Store) Exchange(ctx context.Context, code string) (*Record, error) {
	var record Record
	if err := s.load(ctx, codeKeyPrefix+code, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// ProfileByAuthorization looks a profile up by the raw Authorization header value.
func (s *Store) ProfileByAuthorization(ctx context.Context, header string) (*Profile, error) {
	return s.loadProfile(ctx, authorizationKeyPrefix+header)
}

// ProfileByIDToken looks a profile up by ID token.
func (s *Store) ProfileByIDToken(ctx context.Context, idToken string) (*Profile, error) {
	return s.loadProfile(ctx, idTokenKeyPrefix+idToken)
}

func (s *Store) loadProfile(ctx context.Context, key string) (*Profile, error) {
	var profile Profile
	if err := s.load(ctx, key, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *Store) load(ctx context.Context, key string, into interface{}) error {
	data, err := s.backend.Get(ctx, key)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Ping reports whether the backing store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}
