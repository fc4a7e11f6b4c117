package service

import (
	"crypto/tls"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type fakeRequestAuthorizer struct {
	calls int
	err   error
}

func (f *fakeRequestAuthorizer) Authorize(*http.Request) error {
	f.calls++
	return f.err
}

type fakeRateLimiter struct {
	calls int
	err   error
}

func (f *fakeRateLimiter) Allow(*http.Request) error {
	f.calls++
	return f.err
}

func signedToken(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestApplyConfigUsesCustomRequestAuthorizer(t *testing.T) {
	transport := NewHTTPTransport("localhost:8081")
	customAuthorizer := &fakeRequestAuthorizer{}
	rateLimiter := &fakeRateLimiter{}
	cfg := Config{
		AuthToken:         "ignored-token",
		RequestAuthorizer: customAuthorizer,
		RateLimiter:       rateLimiter,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
	}
	transport.applyConfig(cfg)

	if transport.requestAuthz != customAuthorizer {
		t.Fatalf("expected custom request authorizer to be used")
	}
	if transport.rateLimiter != rateLimiter {
		t.Fatalf("expected custom rate limiter to be used")
	}
	if transport.tlsConfig == nil || transport.tlsConfig.MinVersion != tls.VersionTLS12 {
		t.Fatalf("expected TLS config to be stored on transport")
	}
}

func TestApplyConfigBuildsHybridAuthorizerWhenTokenConfigured(t *testing.T) {
	transport := NewHTTPTransport("localhost:8081")
	transport.applyConfig(Config{AuthToken: "api-token", JWTSecret: "jwt-secret"})

	authz, ok := transport.requestAuthz.(*hybridRequestAuthorizer)
	if !ok {
		t.Fatalf("expected hybridRequestAuthorizer, got %T", transport.requestAuthz)
	}
	if authz.apiToken != "api-token" {
		t.Fatalf("expected api token to be configured on hybrid authorizer")
	}
	if authz.jwt == nil {
		t.Fatalf("expected jwt validation to be configured on hybrid authorizer")
	}
}

func TestApplyConfigWithoutCredentialsDisablesAuthorization(t *testing.T) {
	transport := NewHTTPTransport("localhost:8081")
	transport.applyConfig(Config{})

	if transport.requestAuthz != nil {
		t.Fatalf("expected no authorizer, got %T", transport.requestAuthz)
	}
	if transport.rateLimiter != nil {
		t.Fatalf("expected no rate limiter, got %T", transport.rateLimiter)
	}
}

func TestApplyConfigBuildsAddressRateLimiter(t *testing.T) {
	transport := NewHTTPTransport("localhost:8081")
	transport.applyConfig(Config{RateLimitRPS: 1, RateLimitBurst: 1})

	if _, ok := transport.rateLimiter.(*addrRateLimiter); !ok {
		t.Fatalf("expected addrRateLimiter, got %T", transport.rateLimiter)
	}
}

func TestApplyConfigOmitsTLSConfigWhenNotProvided(t *testing.T) {
	transport := NewHTTPTransport("localhost:8081")
	transport.tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	transport.applyConfig(Config{})

	if transport.tlsConfig != nil {
		t.Fatalf("expected TLS config to be cleared when not configured")
	}
}

func TestAdmitRequestRespectsRateLimiter(t *testing.T) {
	transport := NewHTTPTransport("localhost:8081")
	limiter := &fakeRateLimiter{err: errors.New("rate exceeded")}
	authorizer := &fakeRequestAuthorizer{}
	transport.applyConfig(Config{
		RequestAuthorizer: authorizer,
		RateLimiter:       limiter,
	})

	nextCalls := 0
	handler := transport.admitRequest(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { nextCalls++ }))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/mcp", nil))

	if limiter.calls != 1 {
		t.Fatalf("expected 1 rate limiter call, got %d", limiter.calls)
	}
	if authorizer.calls != 0 {
		t.Fatalf("expected authorizer to be skipped when rate limiter rejects request")
	}
	if nextCalls != 0 {
		t.Fatalf("expected rejected request not to reach handler")
	}
	if got := w.Result().StatusCode; got != http.StatusTooManyRequests {
		t.Fatalf("expected status %d, got %d", http.StatusTooManyRequests, got)
	}
}

func TestAdmitRequestRejectsUnauthorized(t *testing.T) {
	transport := NewHTTPTransport("localhost:8081")
	transport.applyConfig(Config{RequestAuthorizer: &fakeRequestAuthorizer{err: errInvalidAccessToken}})

	handler := transport.admitRequest(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("expected handler to be skipped")
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/mcp", nil))

	if got := w.Result().StatusCode; got != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, got)
	}
	if got := w.Header().Get("WWW-Authenticate"); got == "" {
		t.Fatal("expected WWW-Authenticate header")
	}
}

func TestHybridRequestAuthorizer(t *testing.T) {
	const secret = "jwt-secret"
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	past := jwt.NewNumericDate(time.Now().Add(-time.Hour))

	authz := &hybridRequestAuthorizer{
		apiToken: "expected-token",
		jwt:      newJWTAuth(secret, "https://issuer.test"),
	}

	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{name: "missing header", header: "", wantErr: errAuthorizationRequired},
		{name: "non bearer scheme", header: "Basic abc", wantErr: errAuthorizationRequired},
		{name: "matching api token", header: "Bearer expected-token"},
		{
			name:   "valid jwt",
			header: "Bearer " + signedToken(t, secret, jwt.RegisteredClaims{Issuer: "https://issuer.test", ExpiresAt: future}),
		},
		{
			name:    "expired jwt",
			header:  "Bearer " + signedToken(t, secret, jwt.RegisteredClaims{Issuer: "https://issuer.test", ExpiresAt: past}),
			wantErr: errInvalidAccessToken,
		},
		{
			name:    "wrong issuer",
			header:  "Bearer " + signedToken(t, secret, jwt.RegisteredClaims{Issuer: "https://other.test", ExpiresAt: future}),
			wantErr: errInvalidAccessToken,
		},
		{
			name:    "wrong secret",
			header:  "Bearer " + signedToken(t, "other-secret", jwt.RegisteredClaims{Issuer: "https://issuer.test", ExpiresAt: future}),
			wantErr: errInvalidAccessToken,
		},
		{name: "garbage token", header: "Bearer wrong-token", wantErr: errInvalidAccessToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			err := authz.Authorize(req)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestHybridRequestAuthorizerWithoutJWTRejectsTokenMiss(t *testing.T) {
	authz := &hybridRequestAuthorizer{apiToken: "expected-token"}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")

	if err := authz.Authorize(req); !errors.Is(err, errInvalidAccessToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestAddrRateLimiterKeysByRemoteHost(t *testing.T) {
	limiter := newAddrRateLimiter(1, 1)
	fixed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return fixed }

	first := httptest.NewRequest(http.MethodGet, "/", nil)
	first.RemoteAddr = "10.0.0.1:1234"
	second := httptest.NewRequest(http.MethodGet, "/", nil)
	second.RemoteAddr = "10.0.0.1:5678"
	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "10.0.0.2:1234"

	if err := limiter.Allow(first); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if err := limiter.Allow(second); !errors.Is(err, errRateLimited) {
		t.Fatalf("expected same host to be limited, got %v", err)
	}
	if err := limiter.Allow(other); err != nil {
		t.Fatalf("expected other host to be allowed, got %v", err)
	}
}

func TestNewAddrRateLimiterDisabled(t *testing.T) {
	if limiter := newAddrRateLimiter(0, 10); limiter != nil {
		t.Fatalf("expected nil limiter for zero rps")
	}
}
