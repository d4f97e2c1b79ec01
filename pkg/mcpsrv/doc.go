// Package mcpsrv provides an extensible MCP server for the RACE RESULT API.
//
// This package exposes a high-level API for creating and running an MCP server
// with all builtin rr_* tools, prompts, and resources. Users can extend the
// server with custom tools, prompts, and resources using functional options.
//
// # Basic Usage
//
// Create a server configured from the environment (RR_SERVER, RR_API_KEY,
// RR_EVENT, ...):
//
//	server, err := mcpsrv.NewServer(nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer server.Close()
//	server.Run(ctx)
//
// Or pass a client and credentials explicitly:
//
//	server, err := mcpsrv.NewServer(
//	    client.New(client.WithServer("events.raceresult.com", true)),
//	    mcpsrv.WithCredentials(client.APIKey{Key: key}),
//	    mcpsrv.WithEvent("123456"),
//	)
//
// # Extension
//
// Tools that query events are built from [Deps] with WithDepsTool; the
// handler gets the same client, session handling and table schemas as the
// builtin tools:
//
//	server, err := mcpsrv.NewServer(nil,
//	    mcpsrv.WithDepsTool(&mcp.Tool{Name: "finishers", Description: "Count finishers"}, newFinishersTool),
//	)
//
// WithTool, WithPrompt and WithResourceTemplate take plain MCP SDK
// handlers. Output types are checked at startup by [AddTool].
//
// Make more tables queryable with WithTables, or with a schema file named by
// RR_SCHEMA_FILE (see internal/schemafile for the format).
//
// # Configuration
//
// Configure logging and other options:
//
//	server, err := mcpsrv.NewServer(
//	    nil,
//	    mcpsrv.WithLogLevel("debug"),
//	    mcpsrv.WithLogFile("/var/log/raceresult-mcp.log"),
//	)
package mcpsrv
