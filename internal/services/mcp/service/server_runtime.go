package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const defaultHTTPAddr = "0.0.0.0:8000"

// Run is the service entrypoint for MCP and blocks until context cancellation.
func Run(ctx context.Context, cfg Config, deps Dependencies) error {
	if cfg.Transport == "" {
		cfg.Transport = TransportStdio
	}

	switch cfg.Transport {
	case TransportStdio:
		return runWithTransport(ctx, deps, &mcp.StdioTransport{})
	case TransportStreamableHTTP, TransportHTTP, TransportSSE:
		return runWithHTTPTransport(ctx, cfg, deps)
	default:
		return fmt.Errorf("transport %q is not supported", cfg.Transport)
	}
}

// runWithHTTPTransport serves the same tool handlers used by stdio over HTTP.
func runWithHTTPTransport(ctx context.Context, cfg Config, deps Dependencies) error {
	httpAddr := cfg.HTTPAddr
	if httpAddr == "" {
		httpAddr = defaultHTTPAddr
	}

	server, err := New(deps)
	if err != nil {
		return err
	}

	httpTransport := NewHTTPTransportWithServer(httpAddr, server)
	httpTransport.applyConfig(cfg)
	return httpTransport.Start(ctx)
}

// Serve starts the MCP server on stdio and blocks until it stops or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	return s.serveWithTransport(ctx, &mcp.StdioTransport{})
}

// serveWithTransport starts the MCP server using the provided transport.
func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// runWithTransport creates a server and serves it over the provided transport.
func runWithTransport(ctx context.Context, deps Dependencies, transport mcp.Transport) error {
	server, err := New(deps)
	if err != nil {
		return err
	}
	return server.serveWithTransport(ctx, transport)
}
