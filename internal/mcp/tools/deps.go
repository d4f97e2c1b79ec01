package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/singleflight"

	"github.com/usestring/raceresult-go/internal/config"
	"github.com/usestring/raceresult-go/internal/jq"
	"github.com/usestring/raceresult-go/pkg/client"
	"github.com/usestring/raceresult-go/pkg/query"
)

// Deps contains all dependencies needed by tool handlers.
type Deps struct {
	Client *client.Client
	Config *config.Config
	JQ     *jq.Engine
	Tables map[string]query.Schema

	// Credentials, when set, are used to log in again after the server
	// dropped the session.
	Credentials client.Credentials
	LoginOpts   []client.LoginOption

	calls singleflight.Group
}

// TableNames returns the registered table names in order.
func (d *Deps) TableNames() []string {
	names := make([]string, 0, len(d.Tables))
	for name := range d.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Engine returns a query engine for table of the given event.
func (d *Deps) Engine(eventID, table string) (*query.Engine, error) {
	schema, ok := d.Tables[table]
	if !ok {
		return nil, ErrNotFound("table", table)
	}
	ev, err := d.event(eventID)
	if err != nil {
		return nil, err
	}
	return query.New(d.Client.Event(ev), schema, query.WithJQ(d.JQ))
}

func (d *Deps) event(eventID string) (string, error) {
	if eventID != "" {
		return eventID, nil
	}
	if d.Config != nil && d.Config.EventID != "" {
		return d.Config.EventID, nil
	}
	return "", ErrInvalidInput("event_id is required (or set RR_EVENT)")
}

// Login logs in with the configured credentials unless a session is active.
// Concurrent callers share one login round trip.
func (d *Deps) Login(ctx context.Context) error {
	if d.Client.EnsureAuthenticated() == nil {
		return nil
	}
	if d.Credentials == nil {
		return client.ErrNotLoggedIn
	}
	_, err := shared(ctx, d, "login", func(ctx context.Context) (struct{}, error) {
		if d.Client.EnsureAuthenticated() == nil {
			return struct{}{}, nil
		}
		slog.Info("logging in", slog.String("server", d.Client.BaseURL()))
		return struct{}{}, d.Client.Login(ctx, d.Credentials, d.LoginOpts...)
	})
	return err
}

// withSession runs fn and, when the session was rejected or is missing,
// logs in once and runs fn again.
func (d *Deps) withSession(ctx context.Context, fn func() error) error {
	err := fn()
	if !errors.Is(err, client.ErrSessionExpired) && !errors.Is(err, client.ErrNotLoggedIn) {
		return err
	}
	if d.Credentials == nil {
		return err
	}
	if lerr := d.Login(ctx); lerr != nil {
		return fmt.Errorf("logging in again: %w", lerr)
	}
	return fn()
}

// shared coalesces identical in-flight calls identified by key. fn runs
// detached from the cancellation of the caller that started it, so other
// callers waiting on the key still get its result; each caller stops
// waiting when its own ctx is done.
func shared[T any](ctx context.Context, d *Deps, key string, fn func(context.Context) (T, error)) (T, error) {
	ch := d.calls.DoChan(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})
	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return zero, r.Err
		}
		return r.Val.(T), nil
	}
}
