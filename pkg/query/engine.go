// Package query runs typed table queries against an event: counting rows,
// listing selected fields with filter, sort and paging, and fetching the
// distinct values of a column. Every cell is decoded with the column type
// declared by the table's Schema.
package query

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/usestring/raceresult-go/internal/jq"
	"github.com/usestring/raceresult-go/pkg/client"
	"github.com/usestring/raceresult-go/pkg/rrtype"
)

// DefaultDistinctPath extracts one column from an object of column arrays.
const DefaultDistinctPath = `.[$column][]?`

// Selector restricts the rows a query touches.
type Selector struct {
	Filter      string            // filter expression, e.g. "[Contest]=1"
	Participant client.Identifier // optional bib, pid or filter selector
	Extra       *client.Params    // command-specific parameters
}

// Spec describes one list call. Zero Fields means all schema columns; zero
// Limit means no limit.
type Spec struct {
	Selector
	Fields []string
	Sort   []string
	Limit  int
	Offset int
}

// Engine queries one table of one event.
type Engine struct {
	ev     client.EventHandle
	schema Schema
	jq     *jq.Engine
}

// Option configures an Engine.
type Option func(*Engine)

// WithJQ sets the jq engine used for distinct-value extraction.
func WithJQ(e *jq.Engine) Option {
	return func(en *Engine) {
		if e != nil {
			en.jq = e
		}
	}
}

// New returns an engine for the table described by schema.
func New(ev client.EventHandle, schema Schema, opts ...Option) (*Engine, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{ev: ev, schema: schema, jq: jq.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Schema returns the table schema.
func (e *Engine) Schema() Schema { return e.schema }

// Count returns the number of rows matching sel.
func (e *Engine) Count(ctx context.Context, sel Selector) (int, error) {
	if e.schema.CountCommand == "" {
		return 0, &QueryError{Table: e.schema.Table, Reason: "table cannot be counted"}
	}
	body, err := e.ev.Get(ctx, e.schema.CountCommand, sel.Params())
	if err != nil {
		return 0, e.serverError(err)
	}

	v, err := rrtype.DecodeJSON(bytes.TrimSpace(body), rrtype.Integer)
	if err != nil {
		return 0, err
	}
	n, ok := v.AsInt()
	if !ok || n < 0 || int64(int(n)) != n {
		return 0, &rrtype.DecodeError{
			Wire:   string(body),
			Type:   rrtype.Integer,
			Reason: "count is not a non-negative integer",
			Row:    -1,
			Column: -1,
		}
	}
	return int(n), nil
}

// List returns the rows selected by spec, with cells in the order of
// spec.Fields. It sends exactly one request.
func (e *Engine) List(ctx context.Context, spec Spec) (*ResultTable, error) {
	cols, err := e.columns(spec.Fields)
	if err != nil {
		return nil, err
	}
	params, err := e.listParams(spec, cols)
	if err != nil {
		return nil, err
	}

	body, err := e.ev.Get(ctx, e.schema.ListCommand, params)
	if err != nil {
		return nil, e.serverError(err)
	}

	rows, err := decodeRows(body, cols)
	if err != nil {
		return nil, err
	}
	e.ev.Logger().Debug("query list", "table", e.schema.Table, "fields", len(cols), "rows", len(rows))
	return &ResultTable{Columns: cols, Rows: rows}, nil
}

// DistinctValues returns the distinct values of column in server order.
func (e *Engine) DistinctValues(ctx context.Context, column string) ([]rrtype.Value, error) {
	return e.DistinctValuesMatching(ctx, column, Selector{})
}

// DistinctValuesMatching returns the distinct values of column among the
// rows selected by sel.
func (e *Engine) DistinctValuesMatching(ctx context.Context, column string, sel Selector) ([]rrtype.Value, error) {
	col, ok := e.schema.Column(column)
	if !ok {
		return nil, &QueryError{Table: e.schema.Table, Column: column, Reason: "unknown column"}
	}
	if e.schema.DistinctCommand != "" {
		return e.distinctFromCommand(ctx, col, sel)
	}
	return e.distinctFromList(ctx, col, sel)
}

func (e *Engine) distinctFromCommand(ctx context.Context, col Column, sel Selector) ([]rrtype.Value, error) {
	body, err := e.ev.Get(ctx, e.schema.DistinctCommand, sel.Params())
	if err != nil {
		return nil, e.serverError(err)
	}
	input, err := jq.DecodeJSON(body)
	if err != nil {
		return nil, &rrtype.DecodeError{Wire: string(body), Type: col.Type, Reason: err.Error(), Row: -1, Column: -1, Name: col.Name, Err: err}
	}

	path := orDefault(e.schema.DistinctPath, DefaultDistinctPath)
	items, err := e.jq.Extract(input, path, map[string]any{"$column": col.Name})
	if err != nil {
		return nil, fmt.Errorf("extracting %s from %s: %w", col.Name, e.schema.DistinctCommand, err)
	}

	out := make([]rrtype.Value, 0, len(items))
	for i, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("re-encoding distinct value %d: %w", i, err)
		}
		v, err := rrtype.DecodeJSON(raw, col.Type)
		if err != nil {
			return nil, cellError(err, i, 0, col.Name)
		}
		out = append(out, v)
	}
	return out, nil
}

// distinctFromList groups a one-field list by the column. Groups arrive in
// server order; duplicates that survive grouping are dropped.
func (e *Engine) distinctFromList(ctx context.Context, col Column, sel Selector) ([]rrtype.Value, error) {
	params, err := e.listParams(Spec{Selector: sel}, []Column{col})
	if err != nil {
		return nil, err
	}
	params.Set(e.schema.groupsParam(), col.Name)

	body, err := e.ev.Get(ctx, e.schema.ListCommand, params)
	if err != nil {
		return nil, e.serverError(err)
	}
	rows, err := decodeRows(body, []Column{col})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(rows))
	out := make([]rrtype.Value, 0, len(rows))
	for _, row := range rows {
		key := valueKey(row[0])
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, row[0])
	}
	return out, nil
}

func (e *Engine) columns(fields []string) ([]Column, error) {
	if len(fields) == 0 {
		return append([]Column(nil), e.schema.Columns...), nil
	}
	cols := make([]Column, len(fields))
	for i, name := range fields {
		c, ok := e.schema.Column(name)
		if !ok {
			return nil, &QueryError{Table: e.schema.Table, Column: name, Reason: "unknown column"}
		}
		cols[i] = c
	}
	return cols, nil
}

func (e *Engine) listParams(spec Spec, cols []Column) (*client.Params, error) {
	if spec.Limit < 0 || spec.Offset < 0 {
		return nil, &QueryError{Table: e.schema.Table, Reason: fmt.Sprintf("invalid limit %d or offset %d", spec.Limit, spec.Offset)}
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	p := &client.Params{}
	if fp := e.schema.fieldsParam(); fp != "-" {
		p.Set(fp, names)
	}
	if f := spec.filter(); f != "" {
		p.Set("filter", f)
	}
	if len(spec.Sort) > 0 {
		p.Set(e.schema.sortParam(), spec.Sort)
	}

	switch e.schema.Paging {
	case PagingLimitRange:
		if spec.Offset > 0 {
			p.Set("limitFrom", spec.Offset)
		}
		if spec.Limit > 0 {
			p.Set("limitTo", spec.Offset+spec.Limit)
		}
	case PagingFirstMax:
		if spec.Offset > 0 {
			p.Set("firstRow", spec.Offset)
		}
		if spec.Limit > 0 {
			p.Set("maxRows", spec.Limit)
		}
	case PagingNone:
		if spec.Limit > 0 || spec.Offset > 0 {
			return nil, &QueryError{Table: e.schema.Table, Reason: "table does not support paging"}
		}
	}

	spec.applyParticipant(p)
	p.Merge(spec.Extra)
	p.Merge(e.schema.ListParams)
	return p, nil
}

// Params returns the request parameters of the selector.
func (s Selector) Params() *client.Params {
	p := &client.Params{}
	if f := s.filter(); f != "" {
		p.Set("filter", f)
	}
	s.applyParticipant(p)
	return p.Merge(s.Extra)
}

// filter returns Filter ANDed with a filter identifier, if any.
func (s Selector) filter() string {
	if expr, ok := s.Participant.FilterExpr(); ok {
		return client.AndFilters(s.Filter, expr)
	}
	return s.Filter
}

// applyParticipant sets a bib or pid identifier; filter identifiers are
// part of filter.
func (s Selector) applyParticipant(p *client.Params) {
	if _, ok := s.Participant.FilterExpr(); !ok {
		s.Participant.Apply(p)
	}
}

// decodeRows decodes a JSON array of rows. Each row is either an array of
// cells in column order or an object keyed by column name, in which case
// missing keys are Null.
func decodeRows(body []byte, cols []Column) ([]Row, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return []Row{}, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &rrtype.DecodeError{Wire: string(body), Reason: "response is not a JSON array of rows", Row: -1, Column: -1, Err: err}
	}

	rows := make([]Row, len(raw))
	for r, rawRow := range raw {
		cells, err := splitRow(rawRow, cols)
		if err != nil {
			return nil, &rrtype.DecodeError{Wire: string(rawRow), Reason: err.Error(), Row: r, Column: -1, Err: err}
		}
		row := make(Row, len(cols))
		for c, col := range cols {
			v, err := rrtype.DecodeJSON(cells[c], col.Type)
			if err != nil {
				return nil, cellError(err, r, c, col.Name)
			}
			row[c] = v
		}
		rows[r] = row
	}
	return rows, nil
}

func splitRow(raw json.RawMessage, cols []Column) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("empty row")
	}
	switch raw[0] {
	case '[':
		var cells []json.RawMessage
		if err := json.Unmarshal(raw, &cells); err != nil {
			return nil, err
		}
		if len(cells) != len(cols) {
			return nil, fmt.Errorf("row has %d cells, want %d", len(cells), len(cols))
		}
		return cells, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, err
		}
		cells := make([]json.RawMessage, len(cols))
		for i, c := range cols {
			cells[i] = obj[c.Name]
		}
		return cells, nil
	}
	return nil, errors.New("row is neither an array nor an object")
}

func cellError(err error, row, col int, name string) error {
	var de *rrtype.DecodeError
	if errors.As(err, &de) {
		return de.InCell(row, col, name)
	}
	return err
}

func valueKey(v rrtype.Value) string {
	s, err := rrtype.Encode(v)
	if err != nil {
		s = fmt.Sprint(v.Interface())
	}
	return v.Kind().String() + ":" + s
}
