package secret

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/99designs/keyring"
)

// ServiceName is the keychain service focusops items live under.
const ServiceName = "focusops"

// KeychainConfig configures the keychain provider.
type KeychainConfig struct {
	// Service overrides ServiceName.
	Service string

	// Backends restricts the keyring backends tried, in order. Default:
	// the macOS Keychain, then pass; the Secret Service on Linux.
	Backends []keyring.BackendType
}

// KeychainProvider resolves refs as item keys in the OS credential store.
type KeychainProvider struct {
	mu   sync.RWMutex
	ring keyring.Keyring
}

// openKeyring is a package-level var to allow test injection.
var openKeyring = keyring.Open

// NewKeychainProvider opens the credential store.
func NewKeychainProvider(cfg KeychainConfig) (*KeychainProvider, error) {
	service := cfg.Service
	if service == "" {
		service = ServiceName
	}
	backends := cfg.Backends
	if len(backends) == 0 {
		backends = defaultBackends()
	}
	ring, err := openKeyring(keyring.Config{
		ServiceName:                    service,
		AllowedBackends:                backends,
		KeychainTrustApplication:       true,
		KeychainSynchronizable:         false,
		KeychainAccessibleWhenUnlocked: true,
		PassPrefix:                     service,
		LibSecretCollectionName:        service,
	})
	if err != nil {
		return nil, fmt.Errorf("secret: open keychain: %w", err)
	}
	return &KeychainProvider{ring: ring}, nil
}

// NewKeychainProviderWithRing wraps an already opened keyring.
func NewKeychainProviderWithRing(ring keyring.Keyring) *KeychainProvider {
	return &KeychainProvider{ring: ring}
}

func defaultBackends() []keyring.BackendType {
	switch runtime.GOOS {
	case "darwin":
		return []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		return []keyring.BackendType{keyring.WinCredBackend}
	default:
		return []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
	}
}

// Name returns "keychain".
func (p *KeychainProvider) Name() string { return "keychain" }

// Resolve returns the item stored under ref.
func (p *KeychainProvider) Resolve(_ context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrInvalidRef
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.ring == nil {
		return "", errors.New("secret: keychain closed")
	}
	item, err := p.ring.Get(ref)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: keychain item %q", ErrNotFound, ref)
	}
	if err != nil {
		return "", fmt.Errorf("secret: keychain item %q: %w", ref, err)
	}
	return string(item.Data), nil
}

// Set stores value under key, replacing any existing item.
func (p *KeychainProvider) Set(key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrInvalidRef
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ring == nil {
		return errors.New("secret: keychain closed")
	}
	return p.ring.Set(keyring.Item{
		Key:         key,
		Data:        []byte(value),
		Label:       ServiceName + " " + key,
		Description: "focusops credential",
	})
}

// Remove deletes the item under key. A missing item is not an error.
func (p *KeychainProvider) Remove(key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ring == nil {
		return errors.New("secret: keychain closed")
	}
	if err := p.ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("secret: remove keychain item %q: %w", key, err)
	}
	return nil
}

// Keys lists stored item keys.
func (p *KeychainProvider) Keys() ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.ring == nil {
		return nil, errors.New("secret: keychain closed")
	}
	return p.ring.Keys()
}

// Close releases the keyring.
func (p *KeychainProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ring = nil
	return nil
}
