package query

import "github.com/usestring/raceresult-go/pkg/rrtype"

// Row is one result row, positionally aligned with ResultTable.Columns.
type Row []rrtype.Value

// ResultTable holds the decoded rows of one list call.
type ResultTable struct {
	Columns []Column
	Rows    []Row
}

// Len returns the number of rows.
func (t *ResultTable) Len() int { return len(t.Rows) }

// Index returns the position of the named column, or -1.
func (t *ResultTable) Index(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Value returns the cell of row in the named column. Unknown columns and
// out-of-range rows yield Null.
func (t *ResultTable) Value(row int, name string) rrtype.Value {
	i := t.Index(name)
	if i < 0 || row < 0 || row >= len(t.Rows) {
		return rrtype.Null()
	}
	return t.Rows[row][i]
}

// Names returns the column names in order.
func (t *ResultTable) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Records returns every row as a map keyed by column name.
func (t *ResultTable) Records() []map[string]rrtype.Value {
	out := make([]map[string]rrtype.Value, len(t.Rows))
	for r, row := range t.Rows {
		rec := make(map[string]rrtype.Value, len(t.Columns))
		for i, c := range t.Columns {
			rec[c.Name] = row[i]
		}
		out[r] = rec
	}
	return out
}
