package query

import (
	"errors"
	"fmt"

	"github.com/usestring/raceresult-go/pkg/client"
	"github.com/usestring/raceresult-go/pkg/rrtype"
)

// Paging selects how a table's list command takes limit and offset.
type Paging int

const (
	// PagingLimitRange sends limitFrom (offset) and limitTo (offset+limit,
	// exclusive).
	PagingLimitRange Paging = iota
	// PagingFirstMax sends firstRow (offset) and maxRows (limit).
	PagingFirstMax
	// PagingNone never sends paging parameters; Limit and Offset must be 0.
	PagingNone
)

func (p Paging) String() string {
	switch p {
	case PagingLimitRange:
		return "limitRange"
	case PagingFirstMax:
		return "firstMax"
	case PagingNone:
		return "none"
	}
	return fmt.Sprintf("Paging(%d)", int(p))
}

// ParsePaging parses the name returned by Paging.String.
func ParsePaging(s string) (Paging, error) {
	switch s {
	case "", "limitRange":
		return PagingLimitRange, nil
	case "firstMax":
		return PagingFirstMax, nil
	case "none":
		return PagingNone, nil
	}
	return 0, fmt.Errorf("unknown paging dialect %q", s)
}

// Column is a named, typed column of a table.
type Column struct {
	Name string
	Type rrtype.Tag
}

// Schema describes one queryable table: its columns and the commands and
// parameter names its server side uses. Schemas are plain values; the
// endpoints package ships the built-in ones.
type Schema struct {
	Table   string
	Columns []Column

	CountCommand    string // empty when the table cannot be counted
	ListCommand     string
	DistinctCommand string // empty to derive distinct values from a grouped list

	// DistinctPath is the jq program extracting one column's values from
	// the DistinctCommand response. $column is bound to the column name.
	DistinctPath string

	Paging      Paging
	FieldsParam string // default "fields"; "-" never sends the field list
	SortParam   string // default "sort"
	GroupsParam string // default "groups"

	// ListParams are sent with every list request.
	ListParams *client.Params
}

// Column returns the column called name.
func (s *Schema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Names returns the column names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Validate checks that the schema is usable.
func (s *Schema) Validate() error {
	if s.Table == "" {
		return errors.New("schema: table name is required")
	}
	if s.ListCommand == "" {
		return fmt.Errorf("schema %s: list command is required", s.Table)
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("schema %s: no columns", s.Table)
	}
	seen := make(map[string]bool, len(s.Columns))
	for i, c := range s.Columns {
		if c.Name == "" {
			return fmt.Errorf("schema %s: column %d has no name", s.Table, i)
		}
		if seen[c.Name] {
			return fmt.Errorf("schema %s: duplicate column %q", s.Table, c.Name)
		}
		seen[c.Name] = true
		if !c.Type.Valid() {
			return fmt.Errorf("schema %s: column %q has invalid type %s", s.Table, c.Name, c.Type)
		}
	}
	if s.Paging < PagingLimitRange || s.Paging > PagingNone {
		return fmt.Errorf("schema %s: invalid paging %d", s.Table, int(s.Paging))
	}
	return nil
}

func (s *Schema) fieldsParam() string { return orDefault(s.FieldsParam, "fields") }
func (s *Schema) sortParam() string   { return orDefault(s.SortParam, "sort") }
func (s *Schema) groupsParam() string { return orDefault(s.GroupsParam, "groups") }

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
