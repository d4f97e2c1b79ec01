package mcpsrv

import (
	"context"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/raceresult-go/internal/config"
	"github.com/usestring/raceresult-go/pkg/client"
	"github.com/usestring/raceresult-go/pkg/query"
)

// serverConfig holds configuration built from options.
type serverConfig struct {
	config *config.Config

	// Logging overrides
	logLevel string
	logFile  string

	// Tables added to the built-in ones
	tables []query.Schema

	// Login credentials; nil falls back to the environment
	credentials client.Credentials
	loginOpts   []client.LoginOption

	// Extension toggles
	disableBuiltinTools   bool
	disableBuiltinPrompts bool

	// Custom extensions - registration callbacks that preserve generic type info
	toolRegistrations     []func(*mcp.Server)
	promptRegistrations   []func(*mcp.Server)
	resourceRegistrations []func(*mcp.Server)

	// Deferred tool registrations that need access to Deps
	deferredToolRegistrations []func(*mcp.Server, *Deps)
}

// Option configures the server.
type Option func(*serverConfig)

// WithLogLevel sets the log level (debug, info, warn, error).
func WithLogLevel(level string) Option {
	return func(cfg *serverConfig) {
		cfg.logLevel = level
	}
}

// WithLogFile sets the log file path.
// If empty, logs are written to stderr only.
func WithLogFile(path string) Option {
	return func(cfg *serverConfig) {
		cfg.logFile = path
	}
}

// WithEvent sets the event the query tools use when the caller names none.
func WithEvent(eventID string) Option {
	return func(cfg *serverConfig) {
		cfg.config.EventID = eventID
	}
}

// WithMaxRows caps the rows returned by rr_list and rr_distinct.
func WithMaxRows(n int) Option {
	return func(cfg *serverConfig) {
		cfg.config.MaxRows = n
	}
}

// WithTables makes additional tables queryable. A table with the name of a
// built-in table replaces it.
func WithTables(schemas ...query.Schema) Option {
	return func(cfg *serverConfig) {
		cfg.tables = append(cfg.tables, schemas...)
	}
}

// WithCredentials sets the credentials the server logs in with at startup
// and again after the session expired. Without it, credentials come from
// RR_API_KEY or RR_USER and RR_PASSWORD.
func WithCredentials(creds client.Credentials, opts ...client.LoginOption) Option {
	return func(cfg *serverConfig) {
		cfg.credentials = creds
		cfg.loginOpts = opts
	}
}

// WithoutBuiltinTools disables all builtin rr_* tools.
// Use this if you want to register only your own tools.
func WithoutBuiltinTools() Option {
	return func(cfg *serverConfig) {
		cfg.disableBuiltinTools = true
	}
}

// WithoutBuiltinPrompts disables all builtin prompts.
// Use this if you want to register only your own prompts.
func WithoutBuiltinPrompts() Option {
	return func(cfg *serverConfig) {
		cfg.disableBuiltinPrompts = true
	}
}

// WithTool registers a tool that needs nothing from the server, such as a
// bib range calculator. In is decoded from the call arguments and Out is
// returned as structured content; see [AddTool] for the checks on Out.
//
//	type BibRangeInput struct {
//	    First int `json:"first"`
//	    Count int `json:"count"`
//	}
//
//	mcpsrv.WithTool(&mcp.Tool{Name: "bib_range", Description: "Last bib of a block"},
//	    func(ctx context.Context, req *mcp.CallToolRequest, in BibRangeInput) (*mcp.CallToolResult, BibRangeOutput, error) {
//	        return nil, BibRangeOutput{Last: in.First + in.Count - 1}, nil
//	    })
func WithTool[In, Out any](tool *mcp.Tool, handler func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, Out, error)) Option {
	return func(cfg *serverConfig) {
		cfg.toolRegistrations = append(cfg.toolRegistrations, func(srv *mcp.Server) {
			AddTool(srv, tool, handler)
		})
	}
}

// WithDepsTool registers a tool built from the server's [Deps], for tools
// that query events. The builder runs once, after the server is set up.
//
//	mcpsrv.WithDepsTool(
//	    &mcp.Tool{Name: "finishers", Description: "Count finishers of a contest"},
//	    func(d *mcpsrv.Deps) func(context.Context, *mcp.CallToolRequest, FinishersInput) (*mcp.CallToolResult, FinishersOutput, error) {
//	        return func(ctx context.Context, req *mcp.CallToolRequest, in FinishersInput) (*mcp.CallToolResult, FinishersOutput, error) {
//	            e, err := d.Engine(in.EventID, "participants")
//	            if err != nil {
//	                return nil, FinishersOutput{}, err
//	            }
//	            n, err := e.Count(ctx, query.Selector{Filter: fmt.Sprintf("[Contest]=%d AND [Finished]=1", in.Contest)})
//	            return nil, FinishersOutput{Count: n}, err
//	        }
//	    },
//	)
func WithDepsTool[In, Out any](tool *mcp.Tool, builder func(*Deps) func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, Out, error)) Option {
	return func(cfg *serverConfig) {
		cfg.deferredToolRegistrations = append(cfg.deferredToolRegistrations, func(srv *mcp.Server, deps *Deps) {
			AddTool(srv, tool, builder(deps))
		})
	}
}

// WithPrompt registers a prompt, e.g. a guide for a club's own result
// lists.
func WithPrompt(prompt *mcp.Prompt, handler mcp.PromptHandler) Option {
	return func(cfg *serverConfig) {
		cfg.promptRegistrations = append(cfg.promptRegistrations, func(srv *mcp.Server) {
			srv.AddPrompt(prompt, handler)
		})
	}
}

// WithResourceTemplate registers a resource template next to the built-in
// raceresult://table/{table}.
//
//	mcpsrv.WithResourceTemplate(
//	    &mcp.ResourceTemplate{URITemplate: "contests://{event}", Name: "contests", MIMEType: "application/json"},
//	    handleContests,
//	)
func WithResourceTemplate(template *mcp.ResourceTemplate, handler mcp.ResourceHandler) Option {
	return func(cfg *serverConfig) {
		cfg.resourceRegistrations = append(cfg.resourceRegistrations, func(srv *mcp.Server) {
			srv.AddResourceTemplate(template, handler)
		})
	}
}
