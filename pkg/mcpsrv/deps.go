package mcpsrv

import (
	"github.com/usestring/raceresult-go/internal/config"
	"github.com/usestring/raceresult-go/internal/jq"
	"github.com/usestring/raceresult-go/internal/mcp/tools"
	"github.com/usestring/raceresult-go/pkg/client"
	"github.com/usestring/raceresult-go/pkg/query"
)

// Deps contains all dependencies available to custom tools.
// This gives custom tools access to the same infrastructure as builtin tools.
type Deps struct {
	Client *client.Client
	Config *config.Config
	JQ     *jq.Engine
	Tables map[string]query.Schema

	tools *tools.Deps
}

// Engine returns a query engine for a registered table. An empty eventID
// selects the configured default event.
func (d *Deps) Engine(eventID, table string) (*query.Engine, error) {
	return d.tools.Engine(eventID, table)
}
