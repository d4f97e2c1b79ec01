package mcpsrv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/raceresult-go/internal/config"
	"github.com/usestring/raceresult-go/internal/jq"
	"github.com/usestring/raceresult-go/internal/logging"
	"github.com/usestring/raceresult-go/internal/mcp"
	"github.com/usestring/raceresult-go/internal/mcp/tools"
	"github.com/usestring/raceresult-go/internal/schemafile"
	"github.com/usestring/raceresult-go/pkg/client"
	"github.com/usestring/raceresult-go/pkg/endpoints"
	"github.com/usestring/raceresult-go/pkg/query"
)

// Server is the RACE RESULT MCP server.
// It wraps the internal implementation and provides extension points.
type Server struct {
	internal   *mcp.Server
	deps       *Deps
	logCleanup func() error
}

// NewServer creates a new MCP server with builtin rr_* tools.
//
// c is the RACE RESULT client the tools use; nil builds one from the
// environment. Use functional options to configure logging, add custom
// tools, etc.
func NewServer(c *client.Client, opts ...Option) (*Server, error) {
	cfg := &serverConfig{
		config: config.Load(), // Load defaults from environment
	}
	for _, opt := range opts {
		opt(cfg)
	}

	logCfg := cfg.config.Log
	if cfg.logLevel != "" {
		logCfg.Level = cfg.logLevel
	}
	if cfg.logFile != "" {
		logCfg.FilePath = cfg.logFile
	}
	logCleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	if c == nil {
		c = cfg.config.NewClient()
	}

	jqEngine, err := jq.NewEngine(cfg.config.JQCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create jq engine: %w", err)
	}

	tables, err := loadTables(cfg)
	if err != nil {
		return nil, err
	}

	creds := cfg.credentials
	loginOpts := cfg.loginOpts
	if creds == nil {
		creds, err = cfg.config.Credentials()
		switch {
		case errors.Is(err, config.ErrNoCredentials):
			// A session given via RR_SESSION or the client is used as is.
			slog.Debug("no credentials configured")
		case err != nil:
			return nil, err
		default:
			loginOpts = cfg.config.LoginOptions()
		}
	}

	toolDeps := &tools.Deps{
		Client:      c,
		Config:      cfg.config,
		JQ:          jqEngine,
		Tables:      tables,
		Credentials: creds,
		LoginOpts:   loginOpts,
	}

	// Public deps share the values of the tool deps.
	deps := &Deps{
		Client: c,
		Config: cfg.config,
		JQ:     jqEngine,
		Tables: tables,
		tools:  toolDeps,
	}

	var internalOpts []mcp.ServerOption
	if !cfg.disableBuiltinTools {
		internalOpts = append(internalOpts, mcp.WithBuiltinTools())
	}
	if !cfg.disableBuiltinPrompts {
		internalOpts = append(internalOpts, mcp.WithBuiltinPrompts())
	}

	for _, fn := range cfg.toolRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(fn))
	}
	for _, fn := range cfg.promptRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(fn))
	}
	for _, fn := range cfg.resourceRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(fn))
	}

	for _, fn := range cfg.deferredToolRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(func(srv *sdkmcp.Server) {
			fn(srv, deps)
		}))
	}

	internal, err := mcp.NewServer(toolDeps, internalOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	return &Server{
		internal:   internal,
		deps:       deps,
		logCleanup: logCleanup,
	}, nil
}

// loadTables merges the built-in tables, the schema file and WithTables, in
// that order; later tables replace earlier ones of the same name.
func loadTables(cfg *serverConfig) (map[string]query.Schema, error) {
	tables := endpoints.Schemas()
	if path := cfg.config.SchemaFile; path != "" {
		schemas, err := schemafile.Load(path)
		if err != nil {
			return nil, err
		}
		for _, s := range schemas {
			tables[s.Table] = s
		}
		slog.Info("loaded table schemas", slog.String("file", path), slog.Int("tables", len(schemas)))
	}
	for _, s := range cfg.tables {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("table %q: %w", s.Table, err)
		}
		tables[s.Table] = s
	}
	return tables, nil
}

// Run logs in if credentials are configured and serves MCP over stdio.
// The server runs until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.internal.Run(ctx)
}

// Close logs out of the RACE RESULT session and cleans up server resources.
func (s *Server) Close() error {
	if s.deps.Client.State() == client.StateAuthenticated && s.deps.tools.Credentials != nil {
		if err := s.deps.Client.Logout(context.Background()); err != nil {
			slog.Warn("logout failed", slog.String("error", err.Error()))
		}
	}
	if s.logCleanup != nil {
		return s.logCleanup()
	}
	return nil
}

// Deps returns the dependencies for building custom tools.
func (s *Server) Deps() *Deps {
	return s.deps
}
