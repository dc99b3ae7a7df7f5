package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Keyer derives cache keys from a query's category, shape and parameters.
// Equal parameters yield equal keys whatever the map order. Implementations
// must be safe for concurrent use.
type Keyer interface {
	// Key generates a cache key from a category, a query shape and input.
	Key(category Category, shape string, input any) (string, error)
}

// DefaultKeyer hashes parameters with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key returns focusops:<category>:<shape>:<hash>, hash being the first
// 16 hex characters of SHA-256 over the JSON encoding of input.
// encoding/json writes map keys sorted, so parameter order never matters.
func (k *DefaultKeyer) Key(category Category, shape string, input any) (string, error) {
	if !category.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if shape == "" || strings.ContainsAny(shape, ":\n\r") {
		return "", fmt.Errorf("%w: shape %q", ErrInvalidKey, shape)
	}

	h := sha256.New()
	enc := json.NewEncoder(h)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(input); err != nil {
		return "", fmt.Errorf("cache: encode key input: %w", err)
	}

	key := "focusops:" + string(category) + ":" + shape + ":" + hex.EncodeToString(h.Sum(nil)[:8])
	return key, ValidateKey(key)
}

var _ Keyer = (*DefaultKeyer)(nil)
