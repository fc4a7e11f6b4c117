// Package cmd holds the startup helpers shared by command entry points:
// env and flag parsing plus telemetry lifetime.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/lusky3/play-store-mcp/internal/platform/config"
	"github.com/lusky3/play-store-mcp/internal/platform/otel"
	"github.com/rs/zerolog"
)

const defaultOTelShutdownTimeout = 5 * time.Second

// ServiceMCP names the MCP server in telemetry and logs.
const ServiceMCP = "play-store-mcp"

// RunOptions configures RunWithTelemetry.
type RunOptions struct {
	Version         string
	OTel            otel.Config
	Logger          zerolog.Logger
	ShutdownTimeout time.Duration
}

// ParseConfig loads env values into cfg. A nil environ reads the process
// environment.
func ParseConfig[T any](cfg *T, environ map[string]string) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnvFrom(cfg, environ)
}

// ParseArgs parses flags; nil args parse as empty.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// RunWithTelemetry runs fn between tracing setup and a bounded flush.
func RunWithTelemetry(ctx context.Context, service string, options RunOptions, run func(context.Context) error) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return fmt.Errorf("service name is required")
	}
	if run == nil {
		return fmt.Errorf("run function is required")
	}
	shutdown, err := otel.Setup(ctx, service, options.Version, options.OTel)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		shutdownTimeout := options.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = defaultOTelShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			options.Logger.Warn().Err(err).Str("service", service).Msg("otel shutdown")
		}
	}()
	return run(ctx)
}
