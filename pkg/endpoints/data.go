package endpoints

import (
	"context"
	"fmt"

	"github.com/usestring/raceresult-go/internal/jq"
	"github.com/usestring/raceresult-go/pkg/client"
	"github.com/usestring/raceresult-go/pkg/query"
	"github.com/usestring/raceresult-go/pkg/rrtype"
)

// DataSchema returns the schema of the generic data table with the given
// columns. Column names are field expressions such as "Bib" or
// "[Finish.Time]".
func DataSchema(cols ...query.Column) query.Schema {
	return query.Schema{
		Table:        "data",
		Columns:      cols,
		CountCommand: "data/count",
		ListCommand:  "data/list",
		Paging:       query.PagingLimitRange,
		ListParams:   client.NewParams("listFormat", "JSON"),
	}
}

// Data wraps the data/* commands, which evaluate arbitrary field
// expressions over the participants of an event.
type Data struct {
	ev   client.EventHandle
	opts []query.Option
}

// NewData returns the data module for ev.
func NewData(ev client.EventHandle, opts ...query.Option) *Data {
	return &Data{ev: ev, opts: opts}
}

// Table returns a query engine over the given columns.
func (d *Data) Table(cols ...query.Column) (*query.Engine, error) {
	return query.New(d.ev, DataSchema(cols...), d.opts...)
}

// Count returns the number of records matching filter.
func (d *Data) Count(ctx context.Context, filter string) (int, error) {
	e, err := d.Table(col("ID", rrtype.Integer))
	if err != nil {
		return 0, err
	}
	n, err := e.Count(ctx, query.Selector{Filter: filter})
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// List returns the records selected by spec with cells decoded by cols.
// spec.Fields may name a subset of cols.
func (d *Data) List(ctx context.Context, cols []query.Column, spec query.Spec) (*query.ResultTable, error) {
	e, err := d.Table(cols...)
	if err != nil {
		return nil, err
	}
	t, err := e.List(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	return t, nil
}

// Aggregate selects the statistic of a transformation.
type Aggregate int

const (
	AggregateCount Aggregate = iota
	AggregateSum
	AggregateAvg
	AggregateMin
	AggregateMax
)

// Transformation describes a pivot of the data: one column per distinct
// value of ColField, one row per combination of RowFields, each cell
// aggregating Field.
type Transformation struct {
	ColField    string
	RowFields   []string
	Filter      string
	Field       string
	Mode        Aggregate
	SortByValue bool
}

// Transformation returns the pivot matrix. Cells hold the JSON values the
// server sent, with integers kept exact.
func (d *Data) Transformation(ctx context.Context, t Transformation) ([][]any, error) {
	params := client.NewParams(
		"colField", t.ColField,
		"rowFields", t.RowFields,
		"filter", t.Filter,
		"field", t.Field,
		"mode", int(t.Mode),
		"sortByValue", t.SortByValue,
	)
	body, err := d.ev.Get(ctx, "data/transformation", params)
	if err != nil {
		return nil, fmt.Errorf("getting transformation: %w", err)
	}

	v, err := jq.DecodeJSON(body)
	if err != nil {
		return nil, fmt.Errorf("decoding transformation: %w", err)
	}
	if v == nil {
		return [][]any{}, nil
	}
	rows, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("decoding transformation: expected array, got %T", v)
	}
	out := make([][]any, len(rows))
	for i, r := range rows {
		cells, ok := r.([]any)
		if !ok {
			return nil, fmt.Errorf("decoding transformation: row %d is %T", i, r)
		}
		out[i] = cells
	}
	return out, nil
}
