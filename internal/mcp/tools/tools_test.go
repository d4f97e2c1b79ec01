package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/raceresult-go/internal/config"
	"github.com/usestring/raceresult-go/internal/jq"
	"github.com/usestring/raceresult-go/internal/rrtest"
	"github.com/usestring/raceresult-go/pkg/client"
	"github.com/usestring/raceresult-go/pkg/endpoints"
	"github.com/usestring/raceresult-go/pkg/query"
	"github.com/usestring/raceresult-go/pkg/rrtype"
)

const testEvent = "123456"

func newTestDeps(t *testing.T) (*Deps, *rrtest.Server) {
	t.Helper()
	srv := rrtest.NewServer(t)
	srv.AddAPIKey("key-1")
	c := client.New(client.WithBaseURL(srv.URL), client.WithHTTPClient(srv.Client()))

	d := &Deps{
		Client:      c,
		Config:      &config.Config{EventID: testEvent, MaxRows: 3},
		JQ:          jq.Default(),
		Tables:      endpoints.Schemas(),
		Credentials: client.APIKey{Key: "key-1"},
	}
	require.NoError(t, d.Login(context.Background()))
	return d, srv
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var ce *CodedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, code, ce.Code)
}

func TestToolCount(t *testing.T) {
	d, srv := newTestDeps(t)
	srv.Handle(testEvent, "data/count", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("812"))
	})

	_, out, err := ToolCount(d)(context.Background(), nil, CountInput{Table: "participants", Filter: "[Contest]=1", Bib: 7})
	require.NoError(t, err)
	assert.Equal(t, 812, out.Count)

	q := srv.CommandRequests("data/count")[0].Query
	assert.Equal(t, "[Contest]=1", q.Get("filter"))
	assert.Equal(t, "7", q.Get("bib"))
}

func TestToolCount_InputErrors(t *testing.T) {
	d, srv := newTestDeps(t)
	ctx := context.Background()

	_, _, err := ToolCount(d)(ctx, nil, CountInput{Table: "shoes"})
	requireCode(t, err, ErrCodeNotFound)

	_, _, err = ToolCount(d)(ctx, nil, CountInput{})
	requireCode(t, err, ErrCodeInvalidInput)

	_, _, err = ToolCount(d)(ctx, nil, CountInput{Table: "participants", Bib: 1, PID: 2})
	requireCode(t, err, ErrCodeInvalidInput)

	d.Config.EventID = ""
	_, _, err = ToolCount(d)(ctx, nil, CountInput{Table: "participants"})
	requireCode(t, err, ErrCodeInvalidInput)

	assert.Empty(t, srv.CommandRequests("data/count"))
}

func TestToolCount_LogsInAgainAfterExpiry(t *testing.T) {
	d, srv := newTestDeps(t)
	srv.Handle(testEvent, "data/count", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("5"))
	})
	srv.Invalidate()

	_, out, err := ToolCount(d)(context.Background(), nil, CountInput{Table: "participants"})
	require.NoError(t, err)
	assert.Equal(t, 5, out.Count)
	assert.Len(t, srv.CommandRequests("public/login"), 2)
	assert.Len(t, srv.CommandRequests("data/count"), 2)
}

func TestToolCount_ValidationIsQueryError(t *testing.T) {
	d, srv := newTestDeps(t)
	srv.Handle(testEvent, "data/count", func(w http.ResponseWriter, r *http.Request) {
		rrtest.WriteError(w, http.StatusBadRequest, "Validation", "unknown field [Shoe]")
	})

	_, _, err := ToolCount(d)(context.Background(), nil, CountInput{Table: "participants", Filter: "[Shoe]=1"})
	requireCode(t, err, ErrCodeQuery)
	assert.True(t, client.IsValidation(err))
}

func TestToolList(t *testing.T) {
	d, srv := newTestDeps(t)
	srv.Handle(testEvent, "data/list", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[1,"Roe"],[2,"Doe"],[3,"Poe"],[4,"Moe"]]`))
	})
	ctx := context.Background()

	_, out, err := ToolList(d)(ctx, nil, ListInput{Table: "participants", Fields: []string{"Bib", "Lastname"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bib", "Lastname"}, out.Columns)
	assert.True(t, out.Truncated)
	assert.Equal(t, 3, out.RowCount)
	require.Len(t, out.Rows, 3)
	assert.Equal(t, map[string]any{"Bib": 1, "Lastname": "Roe"}, out.Rows[0])

	q := srv.CommandRequests("data/list")[0].Query
	assert.Equal(t, "Bib,Lastname", q.Get("fields"))
	assert.Equal(t, "4", q.Get("limitTo"), "one row past the cap")

	_, out, err = ToolList(d)(ctx, nil, ListInput{Table: "participants", Fields: []string{"Bib", "Lastname"}, JQ: "map(.Bib)"})
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{1, 2, 3}}, out.Rows)
}

func TestToolList_InputErrors(t *testing.T) {
	d, srv := newTestDeps(t)
	ctx := context.Background()

	_, _, err := ToolList(d)(ctx, nil, ListInput{Table: "participants", JQ: ".[] | "})
	requireCode(t, err, ErrCodeInvalidInput)

	_, _, err = ToolList(d)(ctx, nil, ListInput{Table: "participants", Limit: -1})
	requireCode(t, err, ErrCodeInvalidInput)

	_, _, err = ToolList(d)(ctx, nil, ListInput{Table: "participants", Fields: []string{"Shoe"}})
	requireCode(t, err, ErrCodeQuery)

	_, _, err = ToolList(d)(ctx, nil, ListInput{Table: "history", Offset: 5})
	requireCode(t, err, ErrCodeInvalidInput)

	assert.Empty(t, srv.CommandRequests("data/list"))
}

func TestToolList_DecodeError(t *testing.T) {
	d, srv := newTestDeps(t)
	srv.Handle(testEvent, "data/list", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[["x"]]`))
	})

	_, _, err := ToolList(d)(context.Background(), nil, ListInput{Table: "participants", Fields: []string{"Bib"}})
	requireCode(t, err, ErrCodeDecode)
}

func TestToolDistinct(t *testing.T) {
	d, srv := newTestDeps(t)
	srv.HandleJSON(testEvent, "rawdata/distinctvalues", map[string]any{
		"DecoderID": []string{"D2", "D1", "D3", "D4"},
	})

	_, out, err := ToolDistinct(d)(context.Background(), nil, DistinctInput{Table: "rawdata", Column: "DecoderID"})
	require.NoError(t, err)
	assert.Equal(t, 4, out.Count)
	assert.Equal(t, []any{"D2", "D1", "D3"}, out.Values)

	_, _, err = ToolDistinct(d)(context.Background(), nil, DistinctInput{Table: "rawdata"})
	requireCode(t, err, ErrCodeInvalidInput)
}

func TestToolTables(t *testing.T) {
	d, _ := newTestDeps(t)

	_, out, err := ToolTables(d)(context.Background(), nil, TablesInput{})
	require.NoError(t, err)
	require.Len(t, out.Tables, 3)
	assert.Equal(t, "history", out.Tables[0].Name)
	assert.Equal(t, "none", out.Tables[0].Paging)
	assert.Equal(t, "rawdata", out.Tables[2].Name)
	assert.Equal(t, "rawdata/distinctvalues", out.Tables[2].Distinct)
	assert.Equal(t, "grouped list", out.Tables[1].Distinct)
}

func TestToolEvents(t *testing.T) {
	d, srv := newTestDeps(t)
	srv.HandleJSON("", "public/eventlist", []map[string]any{
		{"ID": "1", "EventName": "City Run", "EventDate": "2024-05-17T00:00:00Z", "Participants": 812},
		{"ID": "2", "EventName": "Trail Ultra"},
	})

	_, out, err := ToolEvents(d)(context.Background(), nil, EventsInput{Year: 2024, Name: "city"})
	require.NoError(t, err)
	require.Len(t, out.Events, 1)
	assert.Equal(t, EventSummary{ID: "1", Name: "City Run", Date: "2024-05-17", Participants: 812}, out.Events[0])
	assert.Equal(t, "2024", srv.CommandRequests("public/eventlist")[0].Query.Get("year"))
}

func TestToolWhoAmI(t *testing.T) {
	d, srv := newTestDeps(t)
	srv.HandleJSON("", "public/userinfo", map[string]any{"CustNo": 4711, "UserName": "alice"})

	_, out, err := ToolWhoAmI(d)(context.Background(), nil, WhoAmIInput{})
	require.NoError(t, err)
	assert.Equal(t, 4711, out.CustomerNo)
	assert.Equal(t, "alice", out.UserName)
	assert.Equal(t, client.StateAuthenticated.String(), out.State)
}

func TestWrapRRError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"session expired", fmt.Errorf("%w: boom", client.ErrSessionExpired), ErrCodeSessionExpired},
		{"not logged in", client.ErrNotLoggedIn, ErrCodeAuthRequired},
		{"auth", &client.AuthenticationError{StatusCode: 401, Message: "bad key"}, ErrCodeAuthRequired},
		{"query", &query.QueryError{Table: "t", Reason: "unknown column"}, ErrCodeQuery},
		{"decode", &rrtype.DecodeError{Reason: "not a number"}, ErrCodeDecode},
		{"build", &client.BuildError{Reason: "bad param"}, ErrCodeInvalidInput},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), ErrCodeTimeout},
		{"other", errors.New("boom"), ErrCodeRaceResult},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WrapRRError(tt.err)
			requireCode(t, err, tt.code)
			assert.ErrorIs(t, err, tt.err)
		})
	}
	assert.NoError(t, WrapRRError(nil))
}

func TestShared_CallerCancelDoesNotCancelOthers(t *testing.T) {
	d := &Deps{}
	started := make(chan struct{})
	release := make(chan struct{})
	fnErr := make(chan error, 2)
	fn := func(ctx context.Context) (int, error) {
		select {
		case <-started:
		default:
			close(started)
		}
		<-release
		fnErr <- ctx.Err()
		return 42, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := shared(ctx, d, "count", fn)
		first <- err
	}()
	<-started

	second := make(chan int, 1)
	go func() {
		n, err := shared(context.Background(), d, "count", fn)
		assert.NoError(t, err)
		second <- n
	}()

	cancel()
	require.ErrorIs(t, <-first, context.Canceled)
	close(release)

	assert.Equal(t, 42, <-second)
	assert.NoError(t, <-fnErr, "shared work keeps running after the first caller cancels")
}
