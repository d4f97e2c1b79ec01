package client

import "strings"

// Identifier selects participants for commands that accept a bib, a
// participant ID or a filter expression. The zero Identifier selects
// nothing and adds no parameter.
type Identifier struct {
	name  string
	value any
}

// ByBib selects the participant with the given bib number.
func ByBib(bib int) Identifier { return Identifier{name: "bib", value: bib} }

// ByPID selects the participant with the given internal ID.
func ByPID(pid int) Identifier { return Identifier{name: "pid", value: pid} }

// ByFilter selects participants matching a filter expression such as
// "[Contest]=1". A blank expression gives the zero Identifier; the server
// reads an empty filter as "all participants".
func ByFilter(expr string) Identifier {
	if strings.TrimSpace(expr) == "" {
		return Identifier{}
	}
	return Identifier{name: "filter", value: expr}
}

// IsZero reports whether the identifier selects nothing.
func (i Identifier) IsZero() bool {
	if i.name == "filter" {
		expr, _ := i.value.(string)
		return strings.TrimSpace(expr) == ""
	}
	return i.name == ""
}

// Name returns the parameter name: "bib", "pid" or "filter".
func (i Identifier) Name() string { return i.name }

// FilterExpr returns the expression of a filter identifier.
func (i Identifier) FilterExpr() (string, bool) {
	if i.name != "filter" || i.IsZero() {
		return "", false
	}
	return i.value.(string), true
}

// Apply sets the identifier's parameter on p.
func (i Identifier) Apply(p *Params) *Params {
	if !i.IsZero() {
		p.Set(i.name, i.value)
	}
	return p
}

// AndFilters joins the non-blank expressions with AND. A single expression
// is returned as is.
func AndFilters(exprs ...string) string {
	var parts []string
	for _, e := range exprs {
		if strings.TrimSpace(e) != "" {
			parts = append(parts, e)
		}
	}
	if len(parts) < 2 {
		return strings.Join(parts, "")
	}
	return "(" + strings.Join(parts, ") AND (") + ")"
}
