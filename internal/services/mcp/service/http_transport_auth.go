package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lusky3/play-store-mcp/internal/platform/ratelimiter"
)

// RequestAuthorizer admits or rejects an HTTP request.
type RequestAuthorizer interface {
	Authorize(*http.Request) error
}

// RequestRateLimiter rejects requests over budget.
type RequestRateLimiter interface {
	Allow(*http.Request) error
}

var (
	errAuthorizationRequired = errors.New("authorization required")
	errInvalidAccessToken    = errors.New("invalid access token")
	errRateLimited           = errors.New("rate limit exceeded")
)

const rateLimiterIdleTTL = 10 * time.Minute

// requireLocalRequest rejects requests whose Host or Origin is not allowed.
func (t *HTTPTransport) requireLocalRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := t.validateLocalRequest(r); err != nil {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// admitRequest applies rate limiting and then authorization.
func (t *HTTPTransport) admitRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if t.rateLimiter != nil {
			if err := t.rateLimiter.Allow(r); err != nil {
				http.Error(w, err.Error(), http.StatusTooManyRequests)
				return
			}
		}
		if t.requestAuthz != nil {
			if err := t.requestAuthz.Authorize(r); err != nil {
				t.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("request unauthorized")
				writeUnauthorized(w, err.Error())
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// validateLocalRequest enforces host access to mitigate DNS rebinding.
// It checks Host and Origin headers against allowed hosts.
func (t *HTTPTransport) validateLocalRequest(r *http.Request) error {
	if r == nil {
		return fmt.Errorf("invalid request")
	}
	if t.allowAnyHost {
		return nil
	}

	if !t.isAllowedHostHeader(r.Host) {
		return fmt.Errorf("invalid host")
	}

	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return nil
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("invalid origin")
	}

	originHost := parsed.Host
	if originHost == "" {
		return fmt.Errorf("invalid origin")
	}

	if !t.isAllowedHostHeader(originHost) {
		return fmt.Errorf("invalid origin")
	}

	return nil
}

// isAllowedHostHeader reports whether a Host/Origin header resolves to an allowed host.
func (t *HTTPTransport) isAllowedHostHeader(host string) bool {
	resolvedHost, ok := normalizeHost(host)
	if !ok {
		return false
	}

	if isLoopbackHost(resolvedHost) {
		return true
	}

	allowed := t.allowedHosts
	if len(allowed) == 0 {
		return false
	}

	_, ok = allowed[strings.ToLower(resolvedHost)]
	return ok
}

func isLoopbackHost(host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}

// parseAllowedHosts parses allowed hosts from env-loaded values.
func parseAllowedHosts(hosts []string) map[string]struct{} {
	result := make(map[string]struct{}, len(hosts))
	for _, entry := range hosts {
		trimmed := strings.TrimSpace(entry)
		if trimmed == "" {
			continue
		}
		result[strings.ToLower(trimmed)] = struct{}{}
	}
	return result
}

// normalizeHost extracts the hostname portion from Host/Origin headers.
func normalizeHost(host string) (string, bool) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", false
	}

	if strings.HasPrefix(host, "[") {
		if splitHost, _, err := net.SplitHostPort(host); err == nil {
			return splitHost, true
		}
		if strings.HasSuffix(host, "]") {
			return strings.TrimSuffix(strings.TrimPrefix(host, "["), "]"), true
		}
		return "", false
	}

	if strings.Count(host, ":") > 1 {
		return host, true
	}

	if strings.Contains(host, ":") {
		splitHost, _, err := net.SplitHostPort(host)
		if err != nil {
			return "", false
		}
		return splitHost, true
	}

	return host, true
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="`+serverName+`"`)
	http.Error(w, message, http.StatusUnauthorized)
}

// hybridRequestAuthorizer accepts the static API token or a signed JWT.
type hybridRequestAuthorizer struct {
	apiToken string
	jwt      *jwtAuth
}

func (a *hybridRequestAuthorizer) Authorize(r *http.Request) error {
	token, ok := bearerToken(r)
	if !ok {
		return errAuthorizationRequired
	}
	if a.apiToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(a.apiToken)) == 1 {
		return nil
	}
	if a.jwt != nil {
		return a.jwt.validateToken(token)
	}
	return errInvalidAccessToken
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

// jwtAuth validates HS256 bearer tokens and, when set, their issuer.
type jwtAuth struct {
	secret []byte
	issuer string
}

func newJWTAuth(secret, issuer string) *jwtAuth {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil
	}
	return &jwtAuth{secret: []byte(secret), issuer: strings.TrimSpace(issuer)}
}

func (a *jwtAuth) validateToken(token string) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidAccessToken, err)
	}
	return nil
}

// addrRateLimiter limits requests per client address.
type addrRateLimiter struct {
	limiter *ratelimiter.MapLimiter
	now     func() time.Time
}

func newAddrRateLimiter(rps float64, burst int) *addrRateLimiter {
	limiter := ratelimiter.New(rps, burst, rateLimiterIdleTTL)
	if limiter == nil {
		return nil
	}
	return &addrRateLimiter{limiter: limiter, now: time.Now}
}

func (l *addrRateLimiter) Allow(r *http.Request) error {
	if !l.limiter.Allow(clientAddr(r), l.now()) {
		return errRateLimited
	}
	return nil
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
