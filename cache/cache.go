package cache

import (
	"errors"
	"fmt"
	"strings"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrInvalidKey      = errors.New("cache: key is invalid")
	ErrKeyTooLong      = errors.New("cache: key exceeds max length")
	ErrUnknownCategory = errors.New("cache: unknown category")
	ErrNilFetch        = errors.New("cache: fetch function is nil")
)

// Category is a named partition of cached results.
type Category string

const (
	Tasks     Category = "tasks"
	Projects  Category = "projects"
	Tags      Category = "tags"
	Folders   Category = "folders"
	Analytics Category = "analytics"
	Reviews   Category = "reviews"
)

// Categories returns every category in a stable order.
func Categories() []Category {
	return []Category{Tasks, Projects, Tags, Folders, Analytics, Reviews}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case Tasks, Projects, Tags, Folders, Analytics, Reviews:
		return true
	}
	return false
}

// ParseCategory parses a category name.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
