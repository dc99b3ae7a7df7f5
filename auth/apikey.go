package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultAPIKeyHeader carries API keys unless configured otherwise.
const DefaultAPIKeyHeader = "X-API-Key"

// APIKey is one configured key. Key may be plaintext or the hex SHA-256
// of the key (prefix "sha256:"); only the hash is kept in memory.
type APIKey struct {
	Name      string
	Key       string
	Roles     []string
	ExpiresAt time.Time
}

type storedKey struct {
	name      string
	hash      []byte
	roles     []string
	expiresAt time.Time
}

// APIKeyAuthenticator validates the API key header against a fixed set
// of keys.
type APIKeyAuthenticator struct {
	header string
	keys   []storedKey
	now    func() time.Time
}

// NewAPIKeyAuthenticator hashes keys and builds the authenticator. An
// empty header uses DefaultAPIKeyHeader.
func NewAPIKeyAuthenticator(header string, keys []APIKey) (*APIKeyAuthenticator, error) {
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	a := &APIKeyAuthenticator{header: header, now: time.Now}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k.Name == "" || k.Key == "" {
			return nil, errors.New("auth: api key needs a name and a key")
		}
		if seen[k.Name] {
			return nil, fmt.Errorf("auth: duplicate api key name %q", k.Name)
		}
		seen[k.Name] = true
		hash, err := keyHash(k.Key)
		if err != nil {
			return nil, fmt.Errorf("auth: api key %q: %w", k.Name, err)
		}
		a.keys = append(a.keys, storedKey{name: k.Name, hash: hash, roles: k.Roles, expiresAt: k.ExpiresAt})
	}
	return a, nil
}

func keyHash(key string) ([]byte, error) {
	if h, ok := strings.CutPrefix(key, "sha256:"); ok {
		b, err := hex.DecodeString(h)
		if err != nil || len(b) != sha256.Size {
			return nil, errors.New("malformed sha256 hash")
		}
		return b, nil
	}
	sum := sha256.Sum256([]byte(key))
	return sum[:], nil
}

// HashAPIKey returns the "sha256:<hex>" form of key for config files.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// Name returns "api_key".
func (a *APIKeyAuthenticator) Name() string { return string(MethodAPIKey) }

// Supports reports whether the key header is present.
func (a *APIKeyAuthenticator) Supports(_ context.Context, req *Request) bool {
	return req.Header(a.header) != ""
}

// Authenticate compares the presented key against every configured key
// in constant time.
func (a *APIKeyAuthenticator) Authenticate(_ context.Context, req *Request) (*Result, error) {
	presented := strings.TrimSpace(req.Header(a.header))
	if presented == "" {
		return Failure(ErrMissingCredentials, MethodAPIKey), nil
	}
	sum := sha256.Sum256([]byte(presented))

	var match *storedKey
	for i := range a.keys {
		if subtle.ConstantTimeCompare(sum[:], a.keys[i].hash) == 1 {
			match = &a.keys[i]
		}
	}
	if match == nil {
		return Failure(ErrInvalidCredentials, MethodAPIKey), nil
	}
	if !match.expiresAt.IsZero() && a.now().After(match.expiresAt) {
		return Failure(ErrTokenExpired, MethodAPIKey), nil
	}
	return Success(&Identity{
		Principal: match.name,
		Roles:     match.roles,
		Method:    MethodAPIKey,
		Claims:    map[string]any{"key_name": match.name},
		ExpiresAt: match.expiresAt,
	}), nil
}

var _ Authenticator = (*APIKeyAuthenticator)(nil)
