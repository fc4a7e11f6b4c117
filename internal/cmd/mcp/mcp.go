// Package mcp parses MCP command flags and wires the publishing services
// behind the selected transport.
package mcp

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/lusky3/play-store-mcp/internal/play/catalog"
	"github.com/lusky3/play-store-mcp/internal/play/edit"
	"github.com/lusky3/play-store-mcp/internal/play/gateway"
	"github.com/lusky3/play-store-mcp/internal/play/publish"
	"github.com/lusky3/play-store-mcp/internal/play/retry"
	entrypoint "github.com/lusky3/play-store-mcp/internal/platform/cmd"
	"github.com/lusky3/play-store-mcp/internal/platform/logging"
	"github.com/lusky3/play-store-mcp/internal/platform/otel"
	"github.com/lusky3/play-store-mcp/internal/platform/storage/journal"
	"github.com/lusky3/play-store-mcp/internal/platform/telemetry/metrics"
	"github.com/lusky3/play-store-mcp/internal/services/mcp/service"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
)

// Version is reported to MCP clients and telemetry.
const Version = "0.1.0"

// Config holds MCP command configuration.
type Config struct {
	Transport string `env:"MCP_TRANSPORT" envDefault:"stdio"`
	Host      string `env:"MCP_HOST"      envDefault:"0.0.0.0"`
	Port      int    `env:"MCP_PORT"      envDefault:"8000"`

	Credentials     string `env:"GOOGLE_PLAY_STORE_CREDENTIALS"`
	CredentialsPath string `env:"GOOGLE_APPLICATION_CREDENTIALS"`

	LogLevel    string `env:"PLAY_STORE_MCP_LOG_LEVEL"    envDefault:"info"`
	JournalPath string `env:"PLAY_STORE_MCP_JOURNAL_PATH"`

	AllowedHosts   []string `env:"PLAY_STORE_MCP_ALLOWED_HOSTS"     envSeparator:","`
	AuthToken      string   `env:"PLAY_STORE_MCP_AUTH_TOKEN"`
	JWTSecret      string   `env:"PLAY_STORE_MCP_JWT_SECRET"`
	JWTIssuer      string   `env:"PLAY_STORE_MCP_JWT_ISSUER"`
	RateLimitRPS   float64  `env:"PLAY_STORE_MCP_RATE_LIMIT_RPS"    envDefault:"10"`
	RateLimitBurst int      `env:"PLAY_STORE_MCP_RATE_LIMIT_BURST"  envDefault:"20"`
	MaxConnections int      `env:"PLAY_STORE_MCP_MAX_CONNECTIONS"   envDefault:"64"`
	TLSCertFile    string   `env:"PLAY_STORE_MCP_TLS_CERT_FILE"`
	TLSKeyFile     string   `env:"PLAY_STORE_MCP_TLS_KEY_FILE"`

	OTel otel.Config
}

// HTTPAddr joins the configured host and port.
func (c Config) HTTPAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ParseConfig parses environment and flags into a Config. A nil environ
// reads the process environment.
func ParseConfig(fs *flag.FlagSet, args []string, environ map[string]string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg, environ); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "Transport type: stdio, sse or streamable-http")
	fs.StringVar(&cfg.Host, "host", cfg.Host, "Host to bind for HTTP transports")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "Port to bind for HTTP transports")
	fs.StringVar(&cfg.Credentials, "credentials", cfg.Credentials, "Service account JSON or path to the key file")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	fs.StringVar(&cfg.JournalPath, "journal", cfg.JournalPath, "SQLite path for the operation journal (disabled when empty)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if err := validateTransport(cfg.Transport); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateTransport(kind string) error {
	switch service.TransportKind(kind) {
	case service.TransportStdio, service.TransportStreamableHTTP, service.TransportHTTP, service.TransportSSE:
		return nil
	default:
		return fmt.Errorf("transport %q is not supported", kind)
	}
}

// Run starts the MCP server and blocks until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	logger, err := logging.New(os.Stderr, entrypoint.ServiceMCP, cfg.LogLevel)
	if err != nil {
		return err
	}

	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMCP, entrypoint.RunOptions{
		Version: Version,
		OTel:    cfg.OTel,
		Logger:  logger,
	}, func(ctx context.Context) error {
		return run(ctx, cfg, logger)
	})
}

func run(ctx context.Context, cfg Config, logger zerolog.Logger) error {
	mx := metrics.New()
	deps := service.Dependencies{Metrics: mx, Logger: logging.Component(logger, "mcp")}

	var recorder publish.Recorder
	if path := strings.TrimSpace(cfg.JournalPath); path != "" {
		store, err := journal.Open(ctx, path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Warn().Err(err).Msg("close journal")
			}
		}()
		recorder = store
		deps.Journal = store
	}

	resolver := gateway.NewResolver(
		gateway.ProcessCredentials(cfg.Credentials, cfg.CredentialsPath),
		guardedBuilder(logger, mx),
		logging.Component(logger, "gateway"),
	)
	// Missing or invalid credentials do not stop startup; calls fail until
	// headers or POST /credentials supply working ones.
	_ = resolver.Init(ctx)
	deps.Credentials = resolver

	edits := edit.NewManager(
		edit.WithLogger(logging.Component(logger, "edit")),
		edit.WithMetrics(mx),
	)
	publishOpts := []publish.Option{
		publish.WithLogger(logging.Component(logger, "publish")),
		publish.WithMetrics(mx),
		publish.WithEditManager(edits),
	}
	if recorder != nil {
		publishOpts = append(publishOpts, publish.WithRecorder(recorder))
	}
	deps.Publisher = publish.New(resolver, publishOpts...)
	deps.Catalog = catalog.New(resolver,
		catalog.WithLogger(logging.Component(logger, "catalog")),
		catalog.WithEditManager(edits),
	)

	tlsConfig, err := loadTLSConfig(cfg.TLSCertFile, cfg.TLSKeyFile)
	if err != nil {
		return err
	}

	logger.Info().Str("transport", cfg.Transport).Msg("starting play store MCP server")
	return service.Run(ctx, service.Config{
		Transport:      service.TransportKind(cfg.Transport),
		HTTPAddr:       cfg.HTTPAddr(),
		AllowedHosts:   cfg.AllowedHosts,
		AuthToken:      cfg.AuthToken,
		JWTSecret:      cfg.JWTSecret,
		JWTIssuer:      cfg.JWTIssuer,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		MaxConnections: cfg.MaxConnections,
		TLSConfig:      tlsConfig,
	}, deps)
}

// guardedBuilder builds API clients whose calls retry transient failures.
func guardedBuilder(logger zerolog.Logger, mx *metrics.Metrics) gateway.Builder {
	policy := retry.Default(logging.Component(logger, "retry"))
	policy.Notify = func(state retry.State) {
		mx.Retried(state.Status)
	}
	return func(ctx context.Context, creds *google.Credentials) (gateway.Gateway, error) {
		client, err := gateway.NewClient(ctx, creds)
		if err != nil {
			return nil, err
		}
		return gateway.Guard(client, policy), nil
	}
}

func loadTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	if certFile == "" && keyFile == "" {
		return nil, nil
	}
	if certFile == "" || keyFile == "" {
		return nil, fmt.Errorf("both TLS cert and key files are required")
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load TLS key pair: %w", err)
	}
	return &tls.Config{MinVersion: tls.VersionTLS12, Certificates: []tls.Certificate{cert}}, nil
}
