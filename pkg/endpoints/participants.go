package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/usestring/raceresult-go/pkg/client"
	"github.com/usestring/raceresult-go/pkg/query"
	"github.com/usestring/raceresult-go/pkg/rrtype"
)

// ParticipantSchema returns the schema of the participant table.
func ParticipantSchema() query.Schema {
	s := DataSchema(
		col("ID", rrtype.Integer),
		col("Bib", rrtype.Integer),
		col("Transponder1", rrtype.String),
		col("Transponder2", rrtype.String),
		col("RegNo", rrtype.String),
		col("Title", rrtype.String),
		col("Lastname", rrtype.String),
		col("Firstname", rrtype.String),
		col("Sex", rrtype.String),
		col("DateOfBirth", rrtype.Date),
		col("Street", rrtype.String),
		col("ZIP", rrtype.String),
		col("City", rrtype.String),
		col("State2", rrtype.String),
		col("Country", rrtype.String),
		col("Nation", rrtype.String),
		col("AgeGroup1", rrtype.Integer),
		col("AgeGroup2", rrtype.Integer),
		col("AgeGroup3", rrtype.Integer),
		col("Club", rrtype.String),
		col("Contest", rrtype.Integer),
		col("Status", rrtype.Integer),
		col("PaidEntryFee", rrtype.Decimal),
		col("Phone", rrtype.String),
		col("CellPhone", rrtype.String),
		col("Email", rrtype.String),
		col("Comment", rrtype.String),
		col("Created", rrtype.DateTime),
		col("Modified", rrtype.DateTime),
		col("CreatedBy", rrtype.String),
	)
	s.Table = "participants"
	return s
}

// Participants wraps the part/* commands.
type Participants struct {
	ev     client.EventHandle
	engine *query.Engine
}

// NewParticipants returns the participant module for ev.
func NewParticipants(ev client.EventHandle, opts ...query.Option) (*Participants, error) {
	e, err := query.New(ev, ParticipantSchema(), opts...)
	if err != nil {
		return nil, err
	}
	return &Participants{ev: ev, engine: e}, nil
}

// Engine returns the query engine of the participant table.
func (p *Participants) Engine() *query.Engine { return p.engine }

// Count returns the number of participants matching sel.
func (p *Participants) Count(ctx context.Context, sel query.Selector) (int, error) {
	return p.engine.Count(ctx, sel)
}

// List returns participant rows.
func (p *Participants) List(ctx context.Context, spec query.Spec) (*query.ResultTable, error) {
	return p.engine.List(ctx, spec)
}

// GetFields returns fields of the participant selected by id, decoded with
// the participant schema.
func (p *Participants) GetFields(ctx context.Context, id client.Identifier, fields ...string) (map[string]rrtype.Value, error) {
	schema := p.engine.Schema()
	cols := make([]query.Column, len(fields))
	for i, name := range fields {
		c, ok := schema.Column(name)
		if !ok {
			return nil, &query.QueryError{Table: schema.Table, Column: name, Reason: "unknown column"}
		}
		cols[i] = c
	}

	var raw map[string]json.RawMessage
	params := id.Apply(client.NewParams("fields", fields))
	if err := p.ev.GetJSON(ctx, "part/getfields", params, &raw); err != nil {
		return nil, fmt.Errorf("getting participant fields: %w", err)
	}

	out := make(map[string]rrtype.Value, len(cols))
	for i, c := range cols {
		v, err := rrtype.DecodeJSON(raw[c.Name], c.Type)
		if err != nil {
			var de *rrtype.DecodeError
			if errors.As(err, &de) {
				return nil, de.InCell(0, i, c.Name)
			}
			return nil, err
		}
		out[c.Name] = v
	}
	return out, nil
}

// SaveFields writes values to the participant selected by id. Values may be
// plain Go values or rrtype.Values.
func (p *Participants) SaveFields(ctx context.Context, id client.Identifier, values map[string]any, noHistory bool) error {
	if id.IsZero() {
		return &client.BuildError{Command: "part/savefields", Reason: "participant identifier is required"}
	}
	params := id.Apply(client.NewParams("noHistory", noHistory))
	if err := p.ev.PostJSON(ctx, "part/savefields", params, values, nil); err != nil {
		return fmt.Errorf("saving participant fields: %w", err)
	}
	return nil
}

// DeleteParticipants selects participants to delete. At least one field must
// be set.
type DeleteParticipants struct {
	Filter      string
	Participant client.Identifier
	Contest     int
}

// Delete removes the selected participants.
func (p *Participants) Delete(ctx context.Context, d DeleteParticipants) error {
	sel := query.Selector{Filter: strings.TrimSpace(d.Filter), Participant: d.Participant}
	if d.Contest != 0 {
		sel.Extra = client.NewParams("contest", d.Contest)
	}
	if sel.Filter == "" && sel.Participant.IsZero() && d.Contest == 0 {
		return &client.BuildError{Command: "part/delete", Reason: "refusing to delete without a selector"}
	}
	if _, err := p.ev.Get(ctx, "part/delete", sel.Params()); err != nil {
		return fmt.Errorf("deleting participants: %w", err)
	}
	return nil
}

// NewParticipant describes a participant to create. A zero Bib lets the
// server pick one; FirstFree takes the first free bib of the contest.
type NewParticipant struct {
	Bib       int
	Contest   int
	FirstFree bool
}

// CreatedParticipant identifies a newly created participant.
type CreatedParticipant struct {
	ID  int `json:"ID"`
	Bib int `json:"Bib"`
}

// New creates a participant.
func (p *Participants) New(ctx context.Context, np NewParticipant) (CreatedParticipant, error) {
	params := client.NewParams(
		"bib", np.Bib,
		"contest", np.Contest,
		"firstfree", np.FirstFree,
		"v2", true,
	)
	var out CreatedParticipant
	if err := p.ev.GetJSON(ctx, "part/new", params, &out); err != nil {
		return CreatedParticipant{}, fmt.Errorf("creating participant: %w", err)
	}
	return out, nil
}
