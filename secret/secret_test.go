package secret

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/99designs/keyring"
)

type stubProvider struct {
	name   string
	values map[string]string
	err    error
	closed bool
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Resolve(_ context.Context, ref string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	v, ok := s.values[ref]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *stubProvider) Close() error {
	s.closed = true
	return nil
}

func newTestKeychain(items ...keyring.Item) *KeychainProvider {
	return NewKeychainProviderWithRing(keyring.NewArrayKeyring(items))
}

func TestParseSecretRef(t *testing.T) {
	tests := []struct {
		in       string
		provider string
		ref      string
		ok       bool
	}{
		{"secretref:keychain:jwt-secret", "keychain", "jwt-secret", true},
		{"secretref:env:A:B", "env", "A:B", true},
		{"secretref:env:", "", "", false},
		{"secretref::x", "", "", false},
		{"plain", "", "", false},
	}
	for _, tt := range tests {
		p, r, ok := ParseSecretRef(tt.in)
		if p != tt.provider || r != tt.ref || ok != tt.ok {
			t.Errorf("ParseSecretRef(%q) = %q, %q, %v", tt.in, p, r, ok)
		}
	}
}

func TestResolver_ResolveValue(t *testing.T) {
	t.Setenv("FOCUSOPS_TEST_HOST", "localhost")
	stub := &stubProvider{name: "stub", values: map[string]string{"alpha": "one", "empty": ""}}
	r := NewResolver(true, stub)
	ctx := context.Background()

	tests := []struct {
		name string
		in   string
		want string
		err  error
	}{
		{"plain", "no refs here", "no refs here", nil},
		{"whole ref", "secretref:stub:alpha", "one", nil},
		{"inline ref", "Bearer secretref:stub:alpha", "Bearer one", nil},
		{"two inline refs", "secretref:stub:alpha secretref:stub:alpha", "one one", nil},
		{"env then ref", "${FOCUSOPS_TEST_HOST}:secretref:stub:alpha", "localhost:one", nil},
		{"unknown provider", "secretref:vault:x", "", ErrUnknownProvider},
		{"missing item", "secretref:stub:beta", "", ErrNotFound},
		{"strict empty", "secretref:stub:empty", "", ErrEmptyValue},
		{"missing env", "${FOCUSOPS_TEST_UNSET}", "", ErrMissingEnv},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveValue(ctx, tt.in)
			if !errors.Is(err, tt.err) {
				t.Fatalf("err = %v, want %v", err, tt.err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolver_NonStrictAllowsEmpty(t *testing.T) {
	r := NewResolver(false, &stubProvider{name: "stub", values: map[string]string{"empty": ""}})
	if got, err := r.ResolveValue(context.Background(), "secretref:stub:empty"); err != nil || got != "" {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestResolver_ResolveFields(t *testing.T) {
	r := NewResolver(true, newTestKeychain(keyring.Item{Key: "jwt-secret", Data: []byte("s3cret")}))
	jwt := "secretref:keychain:jwt-secret"
	empty := ""
	bad := "secretref:keychain:nope"

	if err := r.ResolveFields(context.Background(), map[string]*string{"auth.jwt_secret": &jwt, "auth.other": &empty}); err != nil {
		t.Fatalf("ResolveFields: %v", err)
	}
	if jwt != "s3cret" || empty != "" {
		t.Errorf("jwt = %q, empty = %q", jwt, empty)
	}

	err := r.ResolveFields(context.Background(), map[string]*string{"auth.api_keys": &bad})
	if !errors.Is(err, ErrNotFound) || !strings.Contains(err.Error(), "auth.api_keys") {
		t.Errorf("err = %v", err)
	}
}

func TestResolver_ResolveMapAndClose(t *testing.T) {
	stub := &stubProvider{name: "stub", values: map[string]string{"k": "v"}}
	r := NewResolver(true, stub)
	m, err := r.ResolveMap(context.Background(), map[string]string{"a": "secretref:stub:k"})
	if err != nil || m["a"] != "v" {
		t.Errorf("ResolveMap = %v, %v", m, err)
	}
	if err := r.Close(); err != nil || !stub.closed {
		t.Errorf("Close = %v, closed = %v", err, stub.closed)
	}
}

func TestResolver_NilOnlyExpands(t *testing.T) {
	t.Setenv("FOCUSOPS_TEST_X", "y")
	var r *Resolver
	got, err := r.ResolveValue(context.Background(), "${FOCUSOPS_TEST_X}-secretref:env:Z")
	if err != nil || got != "y-secretref:env:Z" {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestIsRef(t *testing.T) {
	if !IsRef("Bearer secretref:keychain:x") || IsRef("secret") {
		t.Error("IsRef mismatch")
	}
}

func TestExpandEnvStrict(t *testing.T) {
	t.Setenv("FOCUSOPS_TEST_PRESENT", "ok")

	out, err := ExpandEnvStrict("$$${FOCUSOPS_TEST_PRESENT}")
	if err != nil || out != "$ok" {
		t.Errorf("got %q, %v", out, err)
	}

	_, err = ExpandEnvStrict("${FOCUSOPS_TEST_B_MISSING} ${FOCUSOPS_TEST_A_MISSING} ${FOCUSOPS_TEST_A_MISSING}")
	if !errors.Is(err, ErrMissingEnv) {
		t.Fatalf("err = %v", err)
	}
	if !strings.HasSuffix(err.Error(), "FOCUSOPS_TEST_A_MISSING, FOCUSOPS_TEST_B_MISSING") {
		t.Errorf("missing names should be sorted and unique: %v", err)
	}
}

func TestEnvProvider(t *testing.T) {
	t.Setenv("FOCUSOPS_JWT_SECRET", "abc")
	p := NewEnvProvider("FOCUSOPS_")
	ctx := context.Background()

	for _, ref := range []string{"jwt_secret", "FOCUSOPS_JWT_SECRET"} {
		if v, err := p.Resolve(ctx, ref); err != nil || v != "abc" {
			t.Errorf("Resolve(%q) = %q, %v", ref, v, err)
		}
	}
	if _, err := p.Resolve(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing = %v", err)
	}
}

func TestKeychainProvider(t *testing.T) {
	p := newTestKeychain()
	ctx := context.Background()

	if _, err := p.Resolve(ctx, "api-key"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty ring = %v", err)
	}
	if err := p.Set("api-key", "k-123"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, err := p.Resolve(ctx, "api-key"); err != nil || v != "k-123" {
		t.Errorf("Resolve = %q, %v", v, err)
	}
	keys, err := p.Keys()
	if err != nil || len(keys) != 1 || keys[0] != "api-key" {
		t.Errorf("Keys = %v, %v", keys, err)
	}
	if err := p.Remove("api-key"); err != nil {
		t.Errorf("Remove: %v", err)
	}
	if _, err := p.Resolve(ctx, " "); !errors.Is(err, ErrInvalidRef) {
		t.Errorf("blank ref = %v", err)
	}

	_ = p.Close()
	if _, err := p.Resolve(ctx, "api-key"); err == nil {
		t.Error("closed provider should fail")
	}
}

func TestNewKeychainProvider_UsesService(t *testing.T) {
	var got keyring.Config
	orig := openKeyring
	openKeyring = func(cfg keyring.Config) (keyring.Keyring, error) {
		got = cfg
		return keyring.NewArrayKeyring(nil), nil
	}
	t.Cleanup(func() { openKeyring = orig })

	if _, err := NewKeychainProvider(KeychainConfig{}); err != nil {
		t.Fatalf("NewKeychainProvider: %v", err)
	}
	if got.ServiceName != ServiceName || len(got.AllowedBackends) == 0 {
		t.Errorf("config = %+v", got)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	if names := reg.List(); strings.Join(names, ",") != "env,keychain" {
		t.Errorf("builtins = %v", names)
	}

	if err := reg.Register("stub", func(map[string]any) (Provider, error) {
		return &stubProvider{name: "stub"}, nil
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register("stub", func(map[string]any) (Provider, error) { return nil, nil }); err == nil {
		t.Error("duplicate registration should fail")
	}
	if err := reg.Register(" ", nil); !errors.Is(err, ErrInvalidRef) {
		t.Errorf("invalid registration = %v", err)
	}

	p, err := reg.Create("env", map[string]any{"prefix": "FOCUSOPS_"})
	if err != nil || p.Name() != "env" {
		t.Errorf("Create(env) = %v, %v", p, err)
	}
	if _, err := reg.Create("vault", nil); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("Create(vault) = %v", err)
	}
}
