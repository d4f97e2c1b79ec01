package mcpsrv

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/raceresult-go/internal/mcp/tools"
)

// AddTool registers a tool like [sdkmcp.AddTool] but panics at startup if
// results of type Out could fail the inferred output schema: nil slices
// without omitzero, or rrtype values and other types with their own
// MarshalJSON. Return rows and cells as any instead.
func AddTool[In, Out any](srv *sdkmcp.Server, t *sdkmcp.Tool, h sdkmcp.ToolHandlerFor[In, Out]) {
	tools.AddTool(srv, t, h)
}
