package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/usestring/raceresult-go/pkg/client"
)

// QueryError reports a query the engine or the server refused: an unknown
// column, an invalid limit, or a filter or sort the server rejected.
type QueryError struct {
	Table         string
	Column        string // offending column, if any
	Reason        string
	ServerMessage string // message returned by the server, if any
	Err           error
}

func (e *QueryError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "query %s", e.Table)
	if e.Column != "" {
		fmt.Fprintf(&b, " column %q", e.Column)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.ServerMessage != "" {
		b.WriteString(": ")
		b.WriteString(e.ServerMessage)
	}
	return b.String()
}

func (e *QueryError) Unwrap() error { return e.Err }

// IsQueryError reports whether err is or wraps a *QueryError.
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}

// serverError turns a server rejection of the query into a *QueryError.
// Other errors, including session and transport failures, pass through.
func (e *Engine) serverError(err error) error {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case client.IsInvalidSession(err):
		return err
	case client.IsValidation(err):
		return &QueryError{Table: e.schema.Table, Reason: "rejected by server", ServerMessage: apiErr.Message(), Err: err}
	case client.IsNotFound(err):
		return &QueryError{Table: e.schema.Table, Reason: "not found", ServerMessage: apiErr.Message(), Err: err}
	}
	return err
}
