package service

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lusky3/play-store-mcp/internal/platform/telemetry/metrics"
	"github.com/lusky3/play-store-mcp/internal/platform/timeouts"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/netutil"
)

var listenTCP = net.Listen
var newTLSListener = tls.NewListener

// HTTPTransport serves MCP over streamable HTTP or SSE next to the health,
// credentials and metrics routes. Every route shares the host guard; all but
// /health also pass rate limiting and bearer authorization.
type HTTPTransport struct {
	addr         string
	kind         TransportKind
	allowedHosts map[string]struct{}
	allowAnyHost bool
	server       *Server
	httpServer   *http.Server
	requestAuthz RequestAuthorizer
	apiToken     string
	jwt          *jwtAuth
	rateLimiter  RequestRateLimiter
	tlsConfig    *tls.Config
	maxConns     int

	credentials CredentialStore
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

func (t *HTTPTransport) applyConfig(cfg Config) {
	if t == nil {
		return
	}

	if cfg.Transport != "" {
		t.kind = cfg.Transport
	}
	t.allowedHosts = parseAllowedHosts(cfg.AllowedHosts)
	_, t.allowAnyHost = t.allowedHosts["*"]
	t.tlsConfig = cfg.TLSConfig
	t.maxConns = cfg.MaxConnections
	t.apiToken = strings.TrimSpace(cfg.AuthToken)
	t.jwt = newJWTAuth(cfg.JWTSecret, cfg.JWTIssuer)

	t.rateLimiter = cfg.RateLimiter
	if t.rateLimiter == nil {
		if limiter := newAddrRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst); limiter != nil {
			t.rateLimiter = limiter
		}
	}

	if cfg.RequestAuthorizer != nil {
		t.requestAuthz = cfg.RequestAuthorizer
		return
	}
	if t.apiToken == "" && t.jwt == nil {
		t.requestAuthz = nil
		return
	}
	t.requestAuthz = &hybridRequestAuthorizer{
		apiToken: t.apiToken,
		jwt:      t.jwt,
	}
}

// NewHTTPTransport creates an HTTP transport bound to addr. Only loopback
// hosts are accepted until applyConfig widens the allow list.
func NewHTTPTransport(addr string) *HTTPTransport {
	if addr == "" {
		addr = defaultHTTPAddr
	}
	return &HTTPTransport{
		addr:         addr,
		kind:         TransportStreamableHTTP,
		allowedHosts: map[string]struct{}{},
		logger:       zerolog.Nop(),
	}
}

// NewHTTPTransportWithServer creates an HTTP transport serving server and
// its credential store, metrics and logger.
func NewHTTPTransportWithServer(addr string, server *Server) *HTTPTransport {
	transport := NewHTTPTransport(addr)
	transport.server = server
	if server != nil {
		transport.credentials = server.deps.Credentials
		transport.metrics = server.deps.Metrics
		transport.logger = server.deps.Logger
	}
	return transport
}

// Handler returns the routed HTTP handler.
func (t *HTTPTransport) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(t.requireLocalRequest)

	r.Get("/health", t.handleHealth)
	r.Group(func(r chi.Router) {
		r.Use(t.admitRequest)
		r.Handle("/mcp", t.mcpHandler())
		r.Post("/credentials", t.handleCredentials)
		if t.metrics != nil {
			r.Method(http.MethodGet, "/metrics", t.metrics.Handler())
		}
	})
	return otelhttp.NewHandler(r, "mcp.http")
}

func (t *HTTPTransport) mcpHandler() http.Handler {
	getServer := func(*http.Request) *mcp.Server {
		if t.server == nil {
			return nil
		}
		return t.server.mcpServer
	}
	if t.kind == TransportSSE {
		return mcp.NewSSEHandler(getServer, nil)
	}
	return mcp.NewStreamableHTTPHandler(getServer, nil)
}

// Start starts the HTTP server and blocks until ctx ends or the server fails.
func (t *HTTPTransport) Start(ctx context.Context) error {
	t.httpServer = &http.Server{
		Addr:              t.addr,
		Handler:           t.Handler(),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	t.logger.Info().Str("addr", t.addr).Str("transport", string(t.kind)).Msg("starting MCP HTTP server")

	errChan := make(chan error, 1)
	go func() {
		listener, err := listenTCP("tcp", t.addr)
		if err != nil {
			errChan <- err
			return
		}

		serverListener := listener
		if t.maxConns > 0 {
			serverListener = netutil.LimitListener(serverListener, t.maxConns)
		}
		if t.tlsConfig != nil {
			serverListener = newTLSListener(serverListener, t.tlsConfig)
		}

		if err := t.httpServer.Serve(serverListener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		t.logger.Info().Msg("shutting down MCP HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := t.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown HTTP server: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("HTTP server error: %w", err)
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// handleHealth handles GET /health.
func (t *HTTPTransport) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Service: serverName})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
