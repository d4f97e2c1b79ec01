package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/raceresult-go/internal/mcp/tools"
	"github.com/usestring/raceresult-go/internal/schemafile"
)

// Resource URI scheme: raceresult://
// Supported URIs:
//   raceresult://table/{table}
//   raceresult://schemafile

const uriScheme = "raceresult://"

// registerResources registers resource templates and handlers.
func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(&sdkmcp.ResourceTemplate{
		URITemplate: uriScheme + "table/{table}",
		Name:        "Table Schema",
		Description: "Typed columns and paging dialect of one queryable table. rr_tables already returns the same data for every table.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.5,
		},
	}, s.handleResourceTable)

	s.mcpServer.AddResource(&sdkmcp.Resource{
		URI:         uriScheme + "schemafile",
		Name:        "Schema File Format",
		Description: "JSON Schema of the table schema files accepted via RR_SCHEMA_FILE.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"user"},
			Priority: 0.2,
		},
	}, s.handleResourceSchemaFile)
}

func (s *Server) handleResourceTable(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	params, err := parseResourceURI(req.Params.URI)
	if err != nil {
		return nil, err
	}
	schema, ok := s.deps.Tables[params["table"]]
	if !ok {
		return nil, tools.ErrNotFound("table", params["table"])
	}
	return toResourceResult(req.Params.URI, tools.DescribeTable(schema))
}

func (s *Server) handleResourceSchemaFile(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	return toResourceResult(req.Params.URI, schemafile.JSONSchema())
}

// parseResourceURI extracts parameters from a raceresult:// URI.
func parseResourceURI(uri string) (map[string]string, error) {
	if !strings.HasPrefix(uri, uriScheme) {
		return nil, tools.ErrInvalidInput("invalid URI scheme: expected " + uriScheme)
	}

	parts := strings.Split(strings.TrimPrefix(uri, uriScheme), "/")
	params := make(map[string]string)

	switch parts[0] {
	case "table":
		if len(parts) < 2 || parts[1] == "" {
			return nil, tools.ErrInvalidInput("table URI requires a table name")
		}
		params["table"] = parts[1]
	default:
		return nil, tools.ErrInvalidInput("unknown resource type: " + parts[0])
	}

	return params, nil
}

// toResourceResult converts content to a ReadResourceResult.
func toResourceResult(uri string, content any) (*sdkmcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing resource: %w", err)
	}

	return &sdkmcp.ReadResourceResult{
		Contents: []*sdkmcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: tools.MimeJSON,
				Text:     string(data),
			},
		},
	}, nil
}
