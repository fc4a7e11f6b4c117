package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	mcpcmd "github.com/lusky3/play-store-mcp/internal/cmd/mcp"
	"github.com/lusky3/play-store-mcp/internal/platform/config"
)

// main starts the Play Store MCP server on stdio, SSE or streamable HTTP.
func main() {
	cfg, err := mcpcmd.ParseConfig(flag.CommandLine, os.Args[1:], nil)
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mcpcmd.Run(ctx, cfg); err != nil {
		config.Exitf("failed to serve MCP: %v", err)
	}
}
