package tools

import (
	"context"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/raceresult-go/pkg/client"
)

// EventsInput is the input for rr_events.
type EventsInput struct {
	Year   int    `json:"year,omitempty" jsonschema:"Only events of this year (default: all years)"`
	Filter string `json:"filter,omitempty" jsonschema:"Server-side filter expression"`
	Name   string `json:"name,omitempty" jsonschema:"Case-insensitive substring of the event name"`
}

// EventSummary is one event of the account.
type EventSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Date         string `json:"date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`
	Location     string `json:"location,omitempty"`
	Owner        string `json:"owner,omitempty"`
	Participants int    `json:"participants"`
}

// EventsOutput is the output of rr_events.
type EventsOutput struct {
	Events []EventSummary `json:"events,omitzero"`
	Total  int            `json:"total"`
}

// ToolEvents lists the events of the account.
func ToolEvents(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input EventsInput) (*sdkmcp.CallToolResult, EventsOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input EventsInput) (*sdkmcp.CallToolResult, EventsOutput, error) {
		if input.Year < 0 {
			return nil, EventsOutput{}, ErrInvalidInput("year must not be negative")
		}
		var events []client.EventListItem
		err := d.withSession(ctx, func() error {
			var err error
			events, err = d.Client.EventList(ctx, input.Year, input.Filter)
			return err
		})
		if err != nil {
			return nil, EventsOutput{}, WrapRRError(err)
		}

		name := strings.ToLower(input.Name)
		var out EventsOutput
		for _, ev := range events {
			if name != "" && !strings.Contains(strings.ToLower(ev.EventName), name) {
				continue
			}
			out.Events = append(out.Events, EventSummary{
				ID:           ev.ID,
				Name:         ev.EventName,
				Date:         formatDate(ev.EventDate),
				EndDate:      formatDate(ev.EventDate2),
				Location:     ev.EventLocation,
				Owner:        ev.UserName,
				Participants: ev.Participants,
			})
		}
		out.Total = len(out.Events)
		if limit := d.maxRows(); len(out.Events) > limit {
			out.Events = out.Events[:limit]
		}
		return nil, out, nil
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

// WhoAmIInput is the input for rr_whoami.
type WhoAmIInput struct{}

// WhoAmIOutput is the output of rr_whoami.
type WhoAmIOutput struct {
	CustomerNo int    `json:"customer_no"`
	UserName   string `json:"user_name"`
	Server     string `json:"server"`
	State      string `json:"state"`
	SignedInAs string `json:"signed_in_as,omitempty"`
	Expires    string `json:"expires,omitempty"`
}

// ToolWhoAmI describes the logged-in account and the session.
func ToolWhoAmI(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input WhoAmIInput) (*sdkmcp.CallToolResult, WhoAmIOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input WhoAmIInput) (*sdkmcp.CallToolResult, WhoAmIOutput, error) {
		var info *client.UserInfo
		err := d.withSession(ctx, func() error {
			var err error
			info, err = d.Client.UserInfo(ctx)
			return err
		})
		if err != nil {
			return nil, WhoAmIOutput{}, WrapRRError(err)
		}

		out := WhoAmIOutput{
			CustomerNo: info.CustNo,
			UserName:   info.UserName,
			Server:     d.Client.BaseURL(),
			State:      d.Client.State().String(),
			SignedInAs: d.Client.SignedInAs(),
		}
		if exp := d.Client.Expiry(); !exp.IsZero() {
			out.Expires = exp.Format(time.RFC3339)
		}
		return nil, out, nil
	}
}
