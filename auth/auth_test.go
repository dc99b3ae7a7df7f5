package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func headers(kv ...string) *Request {
	h := http.Header{}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return &Request{Headers: h}
}

func TestNewAPIKeyAuthenticator_Validation(t *testing.T) {
	tests := []struct {
		name string
		keys []APIKey
	}{
		{"missing name", []APIKey{{Key: "k"}}},
		{"missing key", []APIKey{{Name: "ci"}}},
		{"duplicate", []APIKey{{Name: "ci", Key: "a"}, {Name: "ci", Key: "b"}}},
		{"bad hash", []APIKey{{Name: "ci", Key: "sha256:zz"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewAPIKeyAuthenticator("", tt.keys); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestAPIKeyAuthenticator_Authenticate(t *testing.T) {
	a, err := NewAPIKeyAuthenticator("", []APIKey{
		{Name: "laptop", Key: "plain-key", Roles: []string{RoleOperator}},
		{Name: "ci", Key: HashAPIKey("hashed-key")},
		{Name: "old", Key: "old-key", ExpiresAt: time.Now().Add(-time.Hour)},
	})
	if err != nil {
		t.Fatalf("NewAPIKeyAuthenticator: %v", err)
	}
	ctx := context.Background()

	tests := []struct {
		name      string
		key       string
		principal string
		err       error
	}{
		{"plain", "plain-key", "laptop", nil},
		{"hashed", " hashed-key ", "ci", nil},
		{"unknown", "nope", "", ErrInvalidCredentials},
		{"expired", "old-key", "", ErrTokenExpired},
		{"empty", "", "", ErrMissingCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := a.Authenticate(ctx, headers(DefaultAPIKeyHeader, tt.key))
			if err != nil {
				t.Fatalf("internal error: %v", err)
			}
			if tt.err != nil {
				if res.Authenticated || !errors.Is(res.Err, tt.err) {
					t.Errorf("res = %+v, want %v", res, tt.err)
				}
				return
			}
			if !res.Authenticated || res.Identity.Principal != tt.principal {
				t.Errorf("res = %+v", res)
			}
		})
	}

	if !a.Supports(ctx, headers("x-api-key", "k")) {
		t.Error("header lookup should be case-insensitive")
	}
}

func sign(t *testing.T, claims jwt.MapClaims, secret []byte) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewJWTAuthenticator_ShortSecret(t *testing.T) {
	if _, err := NewJWTAuthenticator(JWTConfig{Secret: []byte("short")}); err == nil {
		t.Error("expected error for short secret")
	}
}

func TestJWTAuthenticator_Authenticate(t *testing.T) {
	a, err := NewJWTAuthenticator(JWTConfig{Secret: testSecret, Issuer: "focusops"})
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	valid := jwt.MapClaims{"sub": "alice", "iss": "focusops", "roles": []string{"reader"}, "iat": now.Unix(), "exp": now.Add(time.Hour).Unix()}

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, valid).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
		err   error
	}{
		{"valid", sign(t, valid, testSecret), nil},
		{"wrong secret", sign(t, valid, []byte("ffffffffffffffffffffffffffffffff")), ErrInvalidCredentials},
		{"expired", sign(t, jwt.MapClaims{"sub": "alice", "iss": "focusops", "exp": now.Add(-time.Hour).Unix()}, testSecret), ErrTokenExpired},
		{"no exp", sign(t, jwt.MapClaims{"sub": "alice", "iss": "focusops"}, testSecret), ErrInvalidCredentials},
		{"wrong issuer", sign(t, jwt.MapClaims{"sub": "alice", "iss": "other", "exp": now.Add(time.Hour).Unix()}, testSecret), ErrInvalidCredentials},
		{"no subject", sign(t, jwt.MapClaims{"iss": "focusops", "exp": now.Add(time.Hour).Unix()}, testSecret), ErrInvalidCredentials},
		{"alg none", none, ErrInvalidCredentials},
		{"garbage", "not.a.jwt", ErrTokenMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := a.Authenticate(context.Background(), headers("Authorization", "Bearer "+tt.token))
			if err != nil {
				t.Fatalf("internal error: %v", err)
			}
			if tt.err != nil {
				if res.Authenticated || !errors.Is(res.Err, tt.err) {
					t.Errorf("res = %+v, want %v", res, tt.err)
				}
				return
			}
			if !res.Authenticated || res.Identity.Principal != "alice" || !res.Identity.HasRole("reader") {
				t.Errorf("identity = %+v", res.Identity)
			}
			if res.Identity.ExpiresAt.IsZero() || res.Identity.IssuedAt.IsZero() {
				t.Errorf("times not set: %+v", res.Identity)
			}
		})
	}
}

func TestSignToken_RoundTrip(t *testing.T) {
	a, _ := NewJWTAuthenticator(JWTConfig{Secret: testSecret})
	tok, err := SignToken(testSecret, "bob", []string{RoleOperator}, time.Hour, "", "")
	if err != nil {
		t.Fatal(err)
	}
	res, _ := a.Authenticate(context.Background(), headers("Authorization", "bearer "+tok))
	if !res.Authenticated || !res.Identity.HasRole(RoleOperator) {
		t.Errorf("res = %+v", res)
	}
}

func TestJWTAuthenticator_Supports(t *testing.T) {
	a, _ := NewJWTAuthenticator(JWTConfig{Secret: testSecret})
	tests := []struct {
		header string
		want   bool
	}{
		{"Bearer abc", true},
		{"bearer abc", true},
		{"Bearer ", false},
		{"Basic abc", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := a.Supports(context.Background(), headers("Authorization", tt.header)); got != tt.want {
			t.Errorf("Supports(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

func TestCompositeAuthenticator(t *testing.T) {
	keys, _ := NewAPIKeyAuthenticator("", []APIKey{{Name: "laptop", Key: "k1"}})
	tokens, _ := NewJWTAuthenticator(JWTConfig{Secret: testSecret})
	c := NewCompositeAuthenticator(keys, nil, tokens)
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want nil dropped", c.Len())
	}
	ctx := context.Background()

	res, _ := c.Authenticate(ctx, headers(DefaultAPIKeyHeader, "k1"))
	if !res.Authenticated || res.Method != MethodAPIKey {
		t.Errorf("api key = %+v", res)
	}

	res, _ = c.Authenticate(ctx, headers(DefaultAPIKeyHeader, "bad", "Authorization", "Bearer bad"))
	if res.Authenticated || res.Method != MethodJWT {
		t.Errorf("both bad should report the last failure: %+v", res)
	}

	res, _ = c.Authenticate(ctx, headers())
	if res.Authenticated || !errors.Is(res.Err, ErrMissingCredentials) {
		t.Errorf("no credentials = %+v", res)
	}

	boom := NewAuthenticatorFunc("boom", func(context.Context, *Request) (*Result, error) {
		return nil, errors.New("store down")
	})
	if _, err := NewCompositeAuthenticator(boom).Authenticate(ctx, headers()); err == nil {
		t.Error("internal errors should propagate")
	}
}

func TestRBACAuthorizer_DefaultPolicy(t *testing.T) {
	a := NewRBACAuthorizer(DefaultRBACConfig())
	ctx := context.Background()

	tests := []struct {
		roles []string
		tool  string
		allow bool
	}{
		{nil, "list_tasks", true},
		{nil, "create_task", false},
		{[]string{RoleReader}, "diagnose", true},
		{[]string{RoleReader}, "warm_cache", false},
		{[]string{RoleOperator}, "create_task", true},
		{[]string{RoleOperator}, "list_tags", true},
		{[]string{RoleOperator}, "delete_task", false},
		{[]string{RoleOperator, RoleAdmin}, "delete_task", true},
		{[]string{"unknown"}, "list_tasks", false},
	}
	for _, tt := range tests {
		err := a.Authorize(ctx, &Identity{Principal: "p", Roles: tt.roles}, tt.tool)
		if (err == nil) != tt.allow {
			t.Errorf("roles %v tool %s: err = %v, want allow=%v", tt.roles, tt.tool, err, tt.allow)
		}
		if err != nil && !errors.Is(err, ErrForbidden) {
			t.Errorf("denial should match ErrForbidden: %v", err)
		}
	}

	if err := a.Authorize(ctx, nil, "list_tasks"); !errors.Is(err, ErrForbidden) {
		t.Errorf("nil identity = %v", err)
	}
}

func TestRBACAuthorizer_InheritanceCycle(t *testing.T) {
	a := NewRBACAuthorizer(RBACConfig{Roles: map[string]RoleConfig{
		"a": {Inherits: []string{"b"}},
		"b": {Inherits: []string{"a"}, AllowedTools: []string{"get_*"}},
	}})
	if err := a.Authorize(context.Background(), &Identity{Roles: []string{"a"}}, "get_task"); err != nil {
		t.Errorf("inherited grant = %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	keys, _ := NewAPIKeyAuthenticator("", []APIKey{{Name: "laptop", Key: "k1"}})
	var seen string
	h := Middleware(keys, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set(DefaultAPIKeyHeader, "k1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || seen != "laptop" {
		t.Errorf("code = %d, principal = %q", rec.Code, seen)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" || !strings.Contains(rec.Body.String(), `"unauthorized"`) {
		t.Errorf("401 response = %v %s", rec.Header(), rec.Body)
	}
}

func TestMiddleware_Disabled(t *testing.T) {
	var id *Identity
	h := Middleware(nil, nil)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		id = IdentityFromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/mcp", nil))
	if id == nil || id.Method != MethodAnonymous || !id.HasRole(RoleAdmin) {
		t.Errorf("identity = %+v", id)
	}
}

func TestMiddleware_InternalError(t *testing.T) {
	boom := NewAuthenticatorFunc("boom", func(context.Context, *Request) (*Result, error) {
		return nil, errors.New("store down")
	})
	rec := httptest.NewRecorder()
	Middleware(boom, nil)(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("code = %d", rec.Code)
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if IdentityFromContext(ctx) != nil || PrincipalFromContext(ctx) != "" {
		t.Error("empty context should have no identity")
	}
	ctx = WithIdentity(ctx, &Identity{Principal: "alice"})
	if PrincipalFromContext(ctx) != "alice" {
		t.Error("principal not attached")
	}
}
