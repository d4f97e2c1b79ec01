// Package endpoints exposes the per-event command groups of the RACE RESULT
// API as typed operations. Table-shaped commands run through a query.Engine
// with a built-in schema; the rest are single typed calls.
//
//	ev := c.Event("123456")
//	e, err := endpoints.ForEvent(ev)
//	n, err := e.Participants.Count(ctx, query.Selector{Filter: "[Contest]=1"})
package endpoints

import (
	"github.com/usestring/raceresult-go/pkg/client"
	"github.com/usestring/raceresult-go/pkg/query"
	"github.com/usestring/raceresult-go/pkg/rrtype"
)

// Event bundles the endpoint modules of one event.
type Event struct {
	Data         *Data
	Participants *Participants
	RawData      *RawData
	History      *History
}

// ForEvent returns the endpoint modules for ev. opts apply to every query
// engine created for it.
func ForEvent(ev client.EventHandle, opts ...query.Option) (*Event, error) {
	part, err := NewParticipants(ev, opts...)
	if err != nil {
		return nil, err
	}
	raw, err := NewRawData(ev, opts...)
	if err != nil {
		return nil, err
	}
	hist, err := NewHistory(ev, opts...)
	if err != nil {
		return nil, err
	}
	return &Event{
		Data:         NewData(ev, opts...),
		Participants: part,
		RawData:      raw,
		History:      hist,
	}, nil
}

// Schemas returns the built-in table schemas keyed by table name. The data
// table is omitted since its columns are chosen per query.
func Schemas() map[string]query.Schema {
	return map[string]query.Schema{
		ParticipantSchema().Table: ParticipantSchema(),
		RawDataSchema().Table:     RawDataSchema(),
		HistorySchema().Table:     HistorySchema(),
	}
}

func col(name string, t rrtype.Tag) query.Column { return query.Column{Name: name, Type: t} }
