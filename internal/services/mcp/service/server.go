package service

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/lusky3/play-store-mcp/internal/platform/telemetry/metrics"
	"github.com/lusky3/play-store-mcp/internal/services/mcp/domain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
)

const (
	// serverName identifies this MCP server to clients.
	serverName = "play-store-mcp"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"
)

// TransportKind identifies the MCP transport implementation.
type TransportKind string

const (
	// TransportStdio uses standard input/output for MCP.
	TransportStdio TransportKind = "stdio"
	// TransportStreamableHTTP serves MCP over streamable HTTP.
	TransportStreamableHTTP TransportKind = "streamable-http"
	// TransportHTTP is an alias of TransportStreamableHTTP.
	TransportHTTP TransportKind = "http"
	// TransportSSE serves MCP over the legacy SSE transport.
	TransportSSE TransportKind = "sse"
)

// CredentialStore replaces the process-wide credentials at runtime.
type CredentialStore interface {
	Replace(ctx context.Context, creds *google.Credentials) error
}

// Dependencies are the services the MCP tools delegate to.
type Dependencies struct {
	Publisher   domain.Publisher
	Catalog     domain.Catalog
	Journal     domain.Journal
	Credentials CredentialStore
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
}

// Config configures the MCP server.
type Config struct {
	Transport TransportKind
	// HTTPAddr defaults to 0.0.0.0:8000 for HTTP transports.
	HTTPAddr     string
	AllowedHosts []string
	AuthToken    string
	JWTSecret    string
	JWTIssuer    string
	// RateLimitRPS and RateLimitBurst bound requests per client address.
	// Zero disables rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int
	// MaxConnections caps concurrent HTTP connections. Zero means no cap.
	MaxConnections int
	TLSConfig      *tls.Config

	// RequestAuthorizer and RateLimiter override the ones built from the
	// fields above.
	RequestAuthorizer RequestAuthorizer
	RateLimiter       RequestRateLimiter
}

// Server hosts the MCP server.
type Server struct {
	mcpServer *mcp.Server
	deps      Dependencies
}

// New creates an MCP server with every tool module registered.
func New(deps Dependencies) (*Server, error) {
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	mcpServer.AddReceivingMiddleware(requestCredentialsMiddleware(deps.Logger))

	for _, module := range newMCPRegistrationModules(deps) {
		if err := module.register(mcpServerRegistrationAdapter{server: mcpServer}); err != nil {
			return nil, fmt.Errorf("register MCP module %q: %w", module.name, err)
		}
	}
	return &Server{mcpServer: mcpServer, deps: deps}, nil
}
