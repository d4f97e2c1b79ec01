package rrtype

import (
	"fmt"
	"strings"
)

// DecodeError reports wire text that does not match its declared type.
// Row and Column are -1 unless the value came from a result table.
type DecodeError struct {
	Wire   string
	Type   Tag
	Reason string
	Row    int
	Column int
	Name   string // column name, if known
	Err    error
}

func newDecodeError(wire string, t Tag, err error) *DecodeError {
	return &DecodeError{Wire: wire, Type: t, Reason: err.Error(), Row: -1, Column: -1, Err: err}
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	b.WriteString("decode ")
	b.WriteString(e.Type.String())
	if e.Row >= 0 || e.Column >= 0 {
		fmt.Fprintf(&b, " at row %d column %d", e.Row, e.Column)
	}
	if e.Name != "" {
		fmt.Fprintf(&b, " (%s)", e.Name)
	}
	fmt.Fprintf(&b, ": %q: %s", truncate(e.Wire, 64), e.Reason)
	return b.String()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// InCell returns a copy of e located at the given table cell.
func (e *DecodeError) InCell(row, column int, name string) *DecodeError {
	c := *e
	c.Row, c.Column, c.Name = row, column, name
	return &c
}

// EncodeError reports a value that has no wire representation.
type EncodeError struct {
	Kind   Kind
	Reason string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %s", e.Kind, e.Reason)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
