package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/raceresult-go/internal/rrtest"
)

const testEvent = "123456"

func newTestServer(t *testing.T) *rrtest.Server {
	t.Helper()
	srv := rrtest.NewServer(t)
	srv.AddAPIKey("key-1")

	t.Setenv("RR_SERVER", strings.TrimPrefix(srv.URL, "http://"))
	t.Setenv("RR_HTTPS", "false")
	t.Setenv("RR_API_KEY", "key-1")
	t.Setenv("RR_USER", "")
	t.Setenv("RR_SESSION", "")
	t.Setenv("RR_EVENT", "")
	t.Setenv("RR_SCHEMA_FILE", "")
	t.Setenv("LOG_LEVEL", "")
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCount(t *testing.T) {
	srv := newTestServer(t)
	srv.Handle(testEvent, "data/count", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("1234"))
	})

	out, err := run(t, "count", "--event", testEvent, "participants", "--filter", "[Contest]=1")
	require.NoError(t, err)
	assert.Equal(t, "1,234\n", out)
	assert.Equal(t, "[Contest]=1", srv.CommandRequests("data/count")[0].Query.Get("filter"))
	assert.Zero(t, srv.ActiveSessions(), "session is closed after the command")

	out, err = run(t, "count", "-e", testEvent, "-o", "json", "participants")
	require.NoError(t, err)
	assert.JSONEq(t, `{"table":"participants","count":1234}`, out)
}

func TestList(t *testing.T) {
	srv := newTestServer(t)
	srv.Handle(testEvent, "data/list", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[7,"Roe"],[9,"Doe"]]`))
	})
	t.Setenv("RR_EVENT", testEvent)

	out, err := run(t, "list", "participants", "--fields", "Bib,Lastname", "-n", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "Roe")
	assert.Contains(t, out, "2 rows")

	q := srv.CommandRequests("data/list")[0].Query
	assert.Equal(t, "Bib,Lastname", q.Get("fields"))
	assert.Equal(t, "10", q.Get("limitTo"))

	out, err = run(t, "list", "participants", "--fields", "Bib,Lastname", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"Bib":7,"Lastname":"Roe"},{"Bib":9,"Lastname":"Doe"}]`, out)

	out, err = run(t, "list", "participants", "--fields", "Bib,Lastname", "--jq", "map(.Bib) | add")
	require.NoError(t, err)
	assert.Equal(t, "16\n", out)

	out, err = run(t, "list", "participants", "--fields", "Bib", "-o", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "\n7\n9\n")
}

func TestDistinct(t *testing.T) {
	srv := newTestServer(t)
	srv.HandleJSON(testEvent, "rawdata/distinctvalues", map[string]any{"DecoderID": []string{"D2", "D1"}})

	out, err := run(t, "distinct", "-e", testEvent, "rawdata", "DecoderID", "--jq", ".[]")
	require.NoError(t, err)
	assert.Equal(t, "\"D2\"\n\"D1\"\n", out)
}

func TestEvents(t *testing.T) {
	srv := newTestServer(t)
	srv.HandleJSON("", "public/eventlist", []map[string]any{
		{"ID": "1", "EventName": "City Run", "EventDate": "2024-05-17T00:00:00Z", "Participants": 1812},
		{"ID": "2", "EventName": "Trail Ultra"},
	})

	out, err := run(t, "events", "--name", "city", "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "| 1 | City Run | 2024-05-17 |")
	assert.Contains(t, out, "1,812")
	assert.NotContains(t, out, "Trail")
}

func TestWhoAmI(t *testing.T) {
	srv := newTestServer(t)
	srv.HandleJSON("", "public/userinfo", map[string]any{"CustNo": 4711, "UserName": "alice"})

	out, err := run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "User:     alice")
	assert.Contains(t, out, "Customer: 4711")
}

func TestTables(t *testing.T) {
	newTestServer(t)
	path := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tables:
  - table: results
    listCommand: data/list
    columns:
      - {name: Bib, type: integer}
      - {name: Splits, type: "list<decimal>"}
`), 0o644))

	out, err := run(t, "tables", "--schema-file", path)
	require.NoError(t, err)
	for _, name := range []string{"history", "participants", "rawdata", "results"} {
		assert.Contains(t, out, name)
	}

	out, err = run(t, "tables", "results", "--schema-file", path, "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"Bib","type":"integer"},{"name":"Splits","type":"list<decimal>"}]`, out)
}

func TestErrors(t *testing.T) {
	srv := newTestServer(t)

	_, err := run(t, "count", "participants")
	assert.ErrorContains(t, err, "no event")

	_, err = run(t, "count", "-e", testEvent, "shoes")
	assert.ErrorContains(t, err, `unknown table "shoes"`)

	_, err = run(t, "count", "-e", testEvent, "-o", "yaml", "participants")
	assert.ErrorContains(t, err, "unknown output format")

	_, err = run(t, "count", "-e", testEvent, "participants", "--bib", "1", "--pid", "2")
	assert.ErrorContains(t, err, "mutually exclusive")

	t.Setenv("RR_API_KEY", "wrong")
	_, err = run(t, "count", "-e", testEvent, "participants")
	assert.Error(t, err)

	assert.Empty(t, srv.CommandRequests("data/count"))
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, errors.New("unknown table \"shoes\""))
	assert.Equal(t, "rr: unknown table \"shoes\"\n", buf.String())
}
