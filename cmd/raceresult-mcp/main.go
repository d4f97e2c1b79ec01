package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/usestring/raceresult-go/pkg/mcpsrv"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Everything is configured from environment variables:
	// - RR_SERVER, RR_HTTPS: RACE RESULT server (default events.raceresult.com)
	// - RR_API_KEY or RR_USER/RR_PASSWORD/RR_TOTP: login credentials
	// - RR_EVENT: default event for the query tools
	// - RR_SCHEMA_FILE: extra table schemas
	// - LOG_LEVEL, LOG_FILE: logging (default: info to stderr)
	// (see internal/config for all options)
	server, err := mcpsrv.NewServer(nil)
	if err != nil {
		slog.Error("failed to create MCP server", "error", err)
		os.Exit(1)
	}
	defer server.Close()

	slog.Info("starting raceresult MCP server on stdio")
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server error", "error", err)
		server.Close()
		os.Exit(1)
	}

	slog.Info("server stopped")
}
