package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
)

// EventHandle addresses the commands of one event. It is a cheap value
// sharing the Client's session; copies are interchangeable.
type EventHandle struct {
	client *Client
	id     string
}

// Event returns a handle for the event with the given ID.
func (c *Client) Event(id string) EventHandle {
	return EventHandle{client: c, id: id}
}

// ID returns the event ID.
func (e EventHandle) ID() string { return e.id }

// Client returns the client the handle sends through.
func (e EventHandle) Client() *Client { return e.client }

// Do sends call scoped to this event.
func (e EventHandle) Do(ctx context.Context, call Call) ([]byte, error) {
	if e.client == nil {
		return nil, fmt.Errorf("event %q: %w", e.id, ErrNotLoggedIn)
	}
	call.EventID = e.id
	return e.client.Do(ctx, call)
}

// Get sends a GET command and returns the raw body.
func (e EventHandle) Get(ctx context.Context, command string, params *Params) ([]byte, error) {
	return e.Do(ctx, Call{Method: http.MethodGet, Command: command, Params: params})
}

// GetJSON sends a GET command and decodes the JSON response into result.
func (e EventHandle) GetJSON(ctx context.Context, command string, params *Params, result any) error {
	body, err := e.Get(ctx, command, params)
	if err != nil {
		return err
	}
	return decodeJSON(body, result)
}

// PostJSON sends body as JSON and decodes the JSON response into result,
// which may be nil.
func (e EventHandle) PostJSON(ctx context.Context, command string, params *Params, body, result any) error {
	resp, err := e.Do(ctx, Call{Method: http.MethodPost, Command: command, Params: params, Body: JSONBody(body)})
	if err != nil {
		return err
	}
	return decodeJSON(resp, result)
}

// Logger returns the default logger tagged with the event ID.
func (e EventHandle) Logger() *slog.Logger {
	return slog.Default().With("event", e.id)
}
