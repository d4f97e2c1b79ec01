package tools

import (
	"context"
	"encoding/json"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/raceresult-go/internal/jq"
	"github.com/usestring/raceresult-go/pkg/client"
	"github.com/usestring/raceresult-go/pkg/query"
	"github.com/usestring/raceresult-go/pkg/rrtype"
)

// selectorInput holds the row selection shared by the query tools.
type selectorInput struct {
	EventID string
	Table   string
	Filter  string
	Bib     int
	PID     int
}

func (in selectorInput) selector() (query.Selector, error) {
	if in.Table == "" {
		return query.Selector{}, ErrInvalidInput("table is required")
	}
	sel := query.Selector{Filter: in.Filter}
	switch {
	case in.Bib != 0 && in.PID != 0:
		return query.Selector{}, ErrInvalidInput("bib and pid are mutually exclusive")
	case in.Bib != 0:
		sel.Participant = client.ByBib(in.Bib)
	case in.PID != 0:
		sel.Participant = client.ByPID(in.PID)
	}
	return sel, nil
}

// key identifies a call for request coalescing.
func (in selectorInput) key(op string, extra ...any) string {
	return jsonKey(append([]any{op, in.EventID, in.Table, in.Filter, in.Bib, in.PID}, extra...)...)
}

func jsonKey(v ...any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// CountInput is the input for rr_count.
type CountInput struct {
	EventID string `json:"event_id,omitempty" jsonschema:"Event ID (default: RR_EVENT)"`
	Table   string `json:"table" jsonschema:"Table name, see rr_tables"`
	Filter  string `json:"filter,omitempty" jsonschema:"Filter expression, e.g. [Contest]=1"`
	Bib     int    `json:"bib,omitempty" jsonschema:"Restrict to the participant with this bib"`
	PID     int    `json:"pid,omitempty" jsonschema:"Restrict to the participant with this ID"`
}

// CountOutput is the output of rr_count.
type CountOutput struct {
	Table string `json:"table"`
	Count int    `json:"count"`
}

// ToolCount counts the rows of a table. Identical concurrent calls share one
// request.
func ToolCount(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input CountInput) (*sdkmcp.CallToolResult, CountOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input CountInput) (*sdkmcp.CallToolResult, CountOutput, error) {
		in := selectorInput(input)
		sel, err := in.selector()
		if err != nil {
			return nil, CountOutput{}, err
		}
		eng, err := d.Engine(input.EventID, input.Table)
		if err != nil {
			return nil, CountOutput{}, WrapRRError(err)
		}

		n, err := shared(ctx, d, in.key("count"), func(ctx context.Context) (int, error) {
			var n int
			err := d.withSession(ctx, func() error {
				var err error
				n, err = eng.Count(ctx, sel)
				return err
			})
			return n, err
		})
		if err != nil {
			return nil, CountOutput{}, WrapRRError(err)
		}
		return nil, CountOutput{Table: input.Table, Count: n}, nil
	}
}

// ListInput is the input for rr_list.
type ListInput struct {
	EventID string   `json:"event_id,omitempty" jsonschema:"Event ID (default: RR_EVENT)"`
	Table   string   `json:"table" jsonschema:"Table name, see rr_tables"`
	Filter  string   `json:"filter,omitempty" jsonschema:"Filter expression, e.g. [Contest]=1"`
	Bib     int      `json:"bib,omitempty" jsonschema:"Restrict to the participant with this bib"`
	PID     int      `json:"pid,omitempty" jsonschema:"Restrict to the participant with this ID"`
	Fields  []string `json:"fields,omitempty" jsonschema:"Columns to return (default: all columns of the table)"`
	Sort    []string `json:"sort,omitempty" jsonschema:"Sort columns; prefix with - for descending where the server supports it"`
	Limit   int      `json:"limit,omitempty" jsonschema:"Max rows (default and cap: RR_MAX_ROWS)"`
	Offset  int      `json:"offset,omitempty" jsonschema:"Rows to skip"`
	All     bool     `json:"all,omitempty" jsonschema:"Fetch every matching row in concurrent pages, still capped by RR_MAX_ROWS"`
	JQ      string   `json:"jq,omitempty" jsonschema:"Optional jq expression applied to the array of row objects"`
}

// ListOutput is the output of rr_list.
type ListOutput struct {
	Table     string   `json:"table"`
	Columns   []string `json:"columns,omitzero"`
	Rows      []any    `json:"rows,omitzero"`
	RowCount  int      `json:"row_count"`
	Truncated bool     `json:"truncated,omitempty"`
	JQErrors  []string `json:"jq_errors,omitzero"`
}

// ToolList lists rows of a table, optionally post-processed with jq.
func ToolList(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ListInput) (*sdkmcp.CallToolResult, ListOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ListInput) (*sdkmcp.CallToolResult, ListOutput, error) {
		in := selectorInput{EventID: input.EventID, Table: input.Table, Filter: input.Filter, Bib: input.Bib, PID: input.PID}
		sel, err := in.selector()
		if err != nil {
			return nil, ListOutput{}, err
		}
		if input.Limit < 0 || input.Offset < 0 {
			return nil, ListOutput{}, ErrInvalidInput("limit and offset must not be negative")
		}
		if input.JQ != "" {
			if err := d.JQ.ValidateExpression(input.JQ); err != nil {
				return nil, ListOutput{}, ErrInvalidInput(err.Error())
			}
		}
		eng, err := d.Engine(input.EventID, input.Table)
		if err != nil {
			return nil, ListOutput{}, WrapRRError(err)
		}

		maxRows := d.maxRows()
		limit := input.Limit
		if limit == 0 || limit > maxRows {
			limit = maxRows
		}
		// One extra row tells whether the result was cut.
		spec := query.Spec{
			Selector: sel,
			Fields:   input.Fields,
			Sort:     input.Sort,
			Limit:    limit + 1,
			Offset:   input.Offset,
		}
		if eng.Schema().Paging == query.PagingNone {
			spec.Limit, spec.Offset = 0, 0
			if input.Offset != 0 {
				return nil, ListOutput{}, ErrInvalidInput("table does not support offset")
			}
		}

		var table *query.ResultTable
		err = d.withSession(ctx, func() error {
			var err error
			if input.All && eng.Schema().Paging != query.PagingNone {
				table, err = eng.Scan(ctx, spec, d.scanOptions(eng.Schema(), spec.Fields))
			} else {
				table, err = eng.List(ctx, spec)
			}
			return err
		})
		if err != nil {
			return nil, ListOutput{}, WrapRRError(err)
		}

		out := ListOutput{Table: input.Table, Columns: table.Names()}
		if table.Len() > limit {
			table.Rows = table.Rows[:limit]
			out.Truncated = true
		}
		out.RowCount = table.Len()

		rows, err := recordsJSON(table)
		if err != nil {
			return nil, ListOutput{}, err
		}
		if input.JQ == "" {
			out.Rows, err = decodeRows(rows)
			if err != nil {
				return nil, ListOutput{}, err
			}
			return nil, out, nil
		}

		res, err := d.JQ.Query(rows, input.JQ, false, maxRows)
		if err != nil {
			return nil, ListOutput{}, ErrInvalidInput(err.Error())
		}
		out.Rows = res.Values
		out.JQErrors = res.Errors
		return nil, out, nil
	}
}

func (d *Deps) maxRows() int {
	if d.Config != nil && d.Config.MaxRows > 0 {
		return d.Config.MaxRows
	}
	return 1000
}

func (d *Deps) scanOptions(schema query.Schema, fields []string) query.ScanOptions {
	opts := query.ScanOptions{}
	if d.Config != nil {
		opts.PageSize = d.Config.ScanPageSize
		opts.Workers = d.Config.ScanWorkers
	}
	opts.KeyColumn = schema.KeyFor("ID", fields)
	return opts
}

// recordsJSON renders the rows as a JSON array of objects.
func recordsJSON(t *query.ResultTable) ([]byte, error) {
	return json.Marshal(t.Records())
}

func decodeRows(data []byte) ([]any, error) {
	v, err := jq.DecodeJSON(data)
	if err != nil {
		return nil, err
	}
	rows, _ := v.([]any)
	return rows, nil
}

// DistinctInput is the input for rr_distinct.
type DistinctInput struct {
	EventID string `json:"event_id,omitempty" jsonschema:"Event ID (default: RR_EVENT)"`
	Table   string `json:"table" jsonschema:"Table name, see rr_tables"`
	Column  string `json:"column" jsonschema:"Column whose distinct values are returned"`
	Filter  string `json:"filter,omitempty" jsonschema:"Filter expression, e.g. [Contest]=1"`
	Bib     int    `json:"bib,omitempty" jsonschema:"Restrict to the participant with this bib"`
	PID     int    `json:"pid,omitempty" jsonschema:"Restrict to the participant with this ID"`
}

// DistinctOutput is the output of rr_distinct.
type DistinctOutput struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	Values []any  `json:"values,omitzero"`
	Count  int    `json:"count"`
}

// ToolDistinct returns the distinct values of a column. Identical concurrent
// calls share one request.
func ToolDistinct(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input DistinctInput) (*sdkmcp.CallToolResult, DistinctOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input DistinctInput) (*sdkmcp.CallToolResult, DistinctOutput, error) {
		if input.Column == "" {
			return nil, DistinctOutput{}, ErrInvalidInput("column is required")
		}
		in := selectorInput{EventID: input.EventID, Table: input.Table, Filter: input.Filter, Bib: input.Bib, PID: input.PID}
		sel, err := in.selector()
		if err != nil {
			return nil, DistinctOutput{}, err
		}
		eng, err := d.Engine(input.EventID, input.Table)
		if err != nil {
			return nil, DistinctOutput{}, WrapRRError(err)
		}

		values, err := shared(ctx, d, in.key("distinct", input.Column), func(ctx context.Context) ([]rrtype.Value, error) {
			var vals []rrtype.Value
			err := d.withSession(ctx, func() error {
				var err error
				vals, err = eng.DistinctValuesMatching(ctx, input.Column, sel)
				return err
			})
			return vals, err
		})
		if err != nil {
			return nil, DistinctOutput{}, WrapRRError(err)
		}

		data, err := json.Marshal(values)
		if err != nil {
			return nil, DistinctOutput{}, err
		}
		out := DistinctOutput{Table: input.Table, Column: input.Column, Count: len(values)}
		if out.Values, err = decodeRows(data); err != nil {
			return nil, DistinctOutput{}, err
		}
		if limit := d.maxRows(); len(out.Values) > limit {
			out.Values = out.Values[:limit]
		}
		return nil, out, nil
	}
}

// TablesInput is the input for rr_tables.
type TablesInput struct{}

// TableInfo describes one queryable table.
type TableInfo struct {
	Name     string       `json:"name"`
	Paging   string       `json:"paging"`
	Count    bool         `json:"count"`
	Distinct string       `json:"distinct"`
	Columns  []ColumnInfo `json:"columns,omitzero"`
}

// ColumnInfo describes one column.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TablesOutput is the output of rr_tables.
type TablesOutput struct {
	Tables []TableInfo `json:"tables,omitzero"`
}

// ToolTables lists the tables the query tools accept.
func ToolTables(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input TablesInput) (*sdkmcp.CallToolResult, TablesOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input TablesInput) (*sdkmcp.CallToolResult, TablesOutput, error) {
		var out TablesOutput
		for _, name := range d.TableNames() {
			out.Tables = append(out.Tables, DescribeTable(d.Tables[name]))
		}
		return nil, out, nil
	}
}

// DescribeTable summarizes a schema.
func DescribeTable(s query.Schema) TableInfo {
	info := TableInfo{
		Name:     s.Table,
		Paging:   s.Paging.String(),
		Count:    s.CountCommand != "",
		Distinct: "grouped list",
	}
	if s.DistinctCommand != "" {
		info.Distinct = s.DistinctCommand
	}
	for _, c := range s.Columns {
		info.Columns = append(info.Columns, ColumnInfo{Name: c.Name, Type: c.Type.String()})
	}
	return info
}
