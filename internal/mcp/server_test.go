package mcp

import (
	"context"
	"encoding/json"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/raceresult-go/internal/config"
	"github.com/usestring/raceresult-go/internal/jq"
	"github.com/usestring/raceresult-go/internal/mcp/tools"
	"github.com/usestring/raceresult-go/pkg/client"
	"github.com/usestring/raceresult-go/pkg/endpoints"
)

func testDeps() *tools.Deps {
	return &tools.Deps{
		Client: client.New(),
		Config: &config.Config{EventID: "123456", MaxRows: 100},
		JQ:     jq.Default(),
		Tables: endpoints.Schemas(),
	}
}

func TestNewServer_RequiresDeps(t *testing.T) {
	_, err := NewServer(nil)
	assert.Error(t, err)

	_, err = NewServer(&tools.Deps{})
	assert.Error(t, err)
}

func TestNewServer_RegistersBuiltins(t *testing.T) {
	var custom bool
	s, err := NewServer(testDeps(),
		WithBuiltinTools(),
		WithBuiltinPrompts(),
		WithCustomRegistration(func(*sdkmcp.Server) { custom = true }),
	)
	require.NoError(t, err)
	assert.NotNil(t, s.MCPServer())
	assert.True(t, custom)
}

func TestParseResourceURI(t *testing.T) {
	params, err := parseResourceURI("raceresult://table/participants")
	require.NoError(t, err)
	assert.Equal(t, "participants", params["table"])

	for _, uri := range []string{"http://table/x", "raceresult://table/", "raceresult://flow/1"} {
		_, err := parseResourceURI(uri)
		assert.Error(t, err, uri)
	}
}

func TestHandleResourceTable(t *testing.T) {
	s, err := NewServer(testDeps(), WithBuiltinTools())
	require.NoError(t, err)
	ctx := context.Background()

	res, err := s.handleResourceTable(ctx, &sdkmcp.ReadResourceRequest{
		Params: &sdkmcp.ReadResourceParams{URI: "raceresult://table/history"},
	})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)

	var info tools.TableInfo
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &info))
	assert.Equal(t, "history", info.Name)
	assert.Equal(t, "none", info.Paging)
	assert.NotEmpty(t, info.Columns)

	_, err = s.handleResourceTable(ctx, &sdkmcp.ReadResourceRequest{
		Params: &sdkmcp.ReadResourceParams{URI: "raceresult://table/shoes"},
	})
	var ce *tools.CodedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, tools.ErrCodeNotFound, ce.Code)
}
