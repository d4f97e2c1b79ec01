package endpoints

import (
	"context"
	"fmt"
	"time"

	"github.com/usestring/raceresult-go/pkg/client"
	"github.com/usestring/raceresult-go/pkg/query"
	"github.com/usestring/raceresult-go/pkg/rrtype"
)

// HistorySchema returns the schema of the participant change history.
// history/get takes no field list or paging and answers with objects.
func HistorySchema() query.Schema {
	return query.Schema{
		Table: "history",
		Columns: []query.Column{
			col("ID", rrtype.Integer),
			col("Bib", rrtype.Integer),
			col("PartID", rrtype.Integer),
			col("DateTime", rrtype.DateTime),
			col("FieldName", rrtype.String),
			col("OldValue", rrtype.String),
			col("NewValue", rrtype.String),
			col("User", rrtype.String),
			col("Application", rrtype.String),
		},
		CountCommand: "history/count",
		ListCommand:  "history/get",
		Paging:       query.PagingNone,
		FieldsParam:  "-",
	}
}

// HistoryEntry is one recorded change of a participant field.
type HistoryEntry struct {
	ID          int64
	Bib         int64
	PartID      int64
	DateTime    time.Time
	FieldName   string
	OldValue    string
	NewValue    string
	User        string
	Application string
}

// HistoryFilter selects history entries. Zero fields are not sent.
type HistoryFilter struct {
	Participant client.Identifier
	Contest     int
	Field       string
	From, To    time.Time
	Filter      string
}

func (f HistoryFilter) selector() query.Selector {
	extra := client.NewParams()
	if f.Contest != 0 {
		extra.Set("contest", f.Contest)
	}
	if f.Field != "" {
		extra.Set("field", f.Field)
	}
	if !f.From.IsZero() {
		extra.Set("dateFrom", f.From)
	}
	if !f.To.IsZero() {
		extra.Set("dateTo", f.To)
	}
	return query.Selector{Filter: f.Filter, Participant: f.Participant, Extra: extra}
}

// History wraps the history/* commands.
type History struct {
	ev     client.EventHandle
	engine *query.Engine
}

// NewHistory returns the history module for ev.
func NewHistory(ev client.EventHandle, opts ...query.Option) (*History, error) {
	e, err := query.New(ev, HistorySchema(), opts...)
	if err != nil {
		return nil, err
	}
	return &History{ev: ev, engine: e}, nil
}

// Engine returns the query engine of the history table.
func (h *History) Engine() *query.Engine { return h.engine }

// Count returns the number of history entries matching f.
func (h *History) Count(ctx context.Context, f HistoryFilter) (int, error) {
	return h.engine.Count(ctx, f.selector())
}

// Get returns the history entries matching f.
func (h *History) Get(ctx context.Context, f HistoryFilter) ([]HistoryEntry, error) {
	t, err := h.engine.List(ctx, query.Spec{Selector: f.selector()})
	if err != nil {
		return nil, fmt.Errorf("getting history: %w", err)
	}

	out := make([]HistoryEntry, t.Len())
	for i := range out {
		e := &out[i]
		e.ID, _ = t.Value(i, "ID").AsInt()
		e.Bib, _ = t.Value(i, "Bib").AsInt()
		e.PartID, _ = t.Value(i, "PartID").AsInt()
		e.DateTime, _ = t.Value(i, "DateTime").AsTime()
		e.FieldName, _ = t.Value(i, "FieldName").AsString()
		e.OldValue, _ = t.Value(i, "OldValue").AsString()
		e.NewValue, _ = t.Value(i, "NewValue").AsString()
		e.User, _ = t.Value(i, "User").AsString()
		e.Application, _ = t.Value(i, "Application").AsString()
	}
	return out, nil
}

// Delete removes the history entries matching f.
func (h *History) Delete(ctx context.Context, f HistoryFilter) error {
	if _, err := h.ev.Get(ctx, "history/delete", f.selector().Params()); err != nil {
		return fmt.Errorf("deleting history: %w", err)
	}
	return nil
}
