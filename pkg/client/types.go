package client

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/usestring/raceresult-go/pkg/rrtype"
)

// EventListItem is one event of the account's event list.
type EventListItem struct {
	ID            string    `json:"ID"`
	UserID        int       `json:"UserID"`
	UserName      string    `json:"UserName"`
	CheckedOut    bool      `json:"CheckedOut"`
	Participants  int       `json:"Participants"`
	NotActivated  int       `json:"NotActivated"`
	EventName     string    `json:"EventName"`
	EventDate     time.Time `json:"EventDate"`  // zero when unset
	EventDate2    time.Time `json:"EventDate2"` // last day of multi-day events
	EventLocation string    `json:"EventLocation"`
	EventCountry  int       `json:"EventCountry"`
}

// UnmarshalJSON decodes the event dates with the API's date grammar, which
// includes the "no date" sentinel.
func (e *EventListItem) UnmarshalJSON(data []byte) error {
	type plain EventListItem
	var aux struct {
		plain
		EventDate  json.RawMessage `json:"EventDate"`
		EventDate2 json.RawMessage `json:"EventDate2"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*e = EventListItem(aux.plain)

	var err error
	if e.EventDate, err = decodeTime(aux.EventDate); err != nil {
		return err
	}
	e.EventDate2, err = decodeTime(aux.EventDate2)
	return err
}

func decodeTime(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 {
		return time.Time{}, nil
	}
	v, err := rrtype.DecodeJSON(raw, rrtype.DateTime)
	if err != nil {
		return time.Time{}, err
	}
	t, _ := v.AsTime()
	return t, nil
}

// NewEvent describes an event to create. Zero values use server defaults.
type NewEvent struct {
	Name       string
	Date       time.Time
	Country    int
	CopyOf     int // event to copy settings from
	TemplateID int
	Mode       int
	Laps       int
}

// UserInfo describes the logged-in account.
type UserInfo struct {
	CustNo   int    `json:"CustNo"`
	UserName string `json:"UserName"`
	UserPic  string `json:"UserPic"`
}

// UserRight lists the rights one user holds on an event. Rights maps a
// module to its permissions; "*" grants everything at either level.
type UserRight struct {
	UserID   int                 `json:"UserID"`
	UserName string              `json:"UserName"`
	UserPic  string              `json:"UserPic"`
	Rights   map[string][]string `json:"Rights"`
}

// HasRight reports whether the user holds right, given as "module" or
// "module.permission".
func (u UserRight) HasRight(right string) bool {
	if len(u.Rights) == 0 {
		return false
	}
	if _, ok := u.Rights["*"]; ok {
		return true
	}
	module, perm, hasPerm := strings.Cut(right, ".")
	perms, ok := u.Rights[module]
	if !ok {
		return false
	}
	if !hasPerm {
		return true
	}
	for _, p := range perms {
		if p == "*" || p == perm {
			return true
		}
	}
	return false
}

// OAuthToken is a token for other RACE RESULT services, derived from the
// current session.
type OAuthToken struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	Expiry       string `json:"expiry"`
}
