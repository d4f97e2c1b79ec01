package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// eventListSettings are the event settings requested alongside the list.
const eventListSettings = "EventName,EventDate,EventDate2,EventLocation,EventCountry"

// EventList returns the events of the account. A year of 0 lists all years;
// filter is an optional filter expression.
func (c *Client) EventList(ctx context.Context, year int, filter string) ([]EventListItem, error) {
	params := NewParams("year", year, "filter", filter, "addsettings", eventListSettings)
	var events []EventListItem
	if err := c.GetJSON(ctx, Call{Command: "public/eventlist", Params: params}, &events); err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return events, nil
}

// CreateEvent creates an event and returns a handle for it.
func (c *Client) CreateEvent(ctx context.Context, ev NewEvent) (EventHandle, error) {
	params := NewParams(
		"name", ev.Name,
		"country", ev.Country,
		"copyOf", ev.CopyOf,
		"templateID", ev.TemplateID,
		"mode", ev.Mode,
		"laps", ev.Laps,
	)
	if !ev.Date.IsZero() {
		params.Set("date", ev.Date)
	}
	body, err := c.Do(ctx, Call{Command: "public/createevent", Params: params})
	if err != nil {
		return EventHandle{}, fmt.Errorf("creating event %q: %w", ev.Name, err)
	}

	id := strings.TrimSpace(string(body))
	if strings.HasPrefix(id, `"`) {
		if err := json.Unmarshal([]byte(id), &id); err != nil {
			return EventHandle{}, fmt.Errorf("creating event %q: decoding event ID: %w", ev.Name, err)
		}
	}
	if id == "" {
		return EventHandle{}, fmt.Errorf("creating event %q: server returned no event ID", ev.Name)
	}
	return c.Event(id), nil
}

// DeleteEvent permanently deletes an event.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	if _, err := c.Do(ctx, Call{Command: "public/deleteevent", Params: NewParams("eventID", eventID)}); err != nil {
		return fmt.Errorf("deleting event %q: %w", eventID, err)
	}
	return nil
}

// UserInfo returns the logged-in account.
func (c *Client) UserInfo(ctx context.Context) (*UserInfo, error) {
	var info UserInfo
	if err := c.GetJSON(ctx, Call{Command: "public/userinfo"}, &info); err != nil {
		return nil, fmt.Errorf("getting user info: %w", err)
	}
	return &info, nil
}

// TokenFromSession exchanges the session for an OAuth token usable with
// other RACE RESULT services.
func (c *Client) TokenFromSession(ctx context.Context) (*OAuthToken, error) {
	var tok OAuthToken
	if err := c.GetJSON(ctx, Call{Command: "public/tokenfromsession"}, &tok); err != nil {
		return nil, fmt.Errorf("getting token from session: %w", err)
	}
	return &tok, nil
}

// UserRights lists the users with access to an event.
func (c *Client) UserRights(ctx context.Context, eventID string) ([]UserRight, error) {
	var rights []UserRight
	if err := c.GetJSON(ctx, Call{Command: "userrights/get", Params: NewParams("eventID", eventID)}, &rights); err != nil {
		return nil, fmt.Errorf("getting user rights for event %q: %w", eventID, err)
	}
	return rights, nil
}

// SaveUserRights grants user (name or email) the given rights on an event.
func (c *Client) SaveUserRights(ctx context.Context, eventID, user, rights string) error {
	params := NewParams("eventID", eventID, "user", user, "rights", rights)
	if _, err := c.Do(ctx, Call{Command: "userrights/save", Params: params}); err != nil {
		return fmt.Errorf("saving user rights for %q on event %q: %w", user, eventID, err)
	}
	return nil
}

// DeleteUserRights revokes all rights of a user on an event.
func (c *Client) DeleteUserRights(ctx context.Context, eventID string, userID int) error {
	params := NewParams("eventID", eventID, "userID", userID)
	if _, err := c.Do(ctx, Call{Command: "userrights/delete", Params: params}); err != nil {
		return fmt.Errorf("deleting user rights for %d on event %q: %w", userID, eventID, err)
	}
	return nil
}
