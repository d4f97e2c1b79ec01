package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/usestring/raceresult-go/internal/jq"
	"github.com/usestring/raceresult-go/pkg/query"
	"github.com/usestring/raceresult-go/pkg/rrtype"
)

var printer = message.NewPrinter(language.English)

// view is what a command prints: a table for humans and a value for JSON.
type view struct {
	header []string
	rows   [][]any
	right  []int // 1-based columns aligned right
	footer []any
	value  any
}

func (a *app) render(w io.Writer, v view) error {
	if a.flags.format == "json" || a.flags.jq != "" {
		return a.renderJSON(w, v.value)
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(toRow(v.header))
	for _, r := range v.rows {
		t.AppendRow(table.Row(r))
	}
	if v.footer != nil {
		t.AppendFooter(table.Row(v.footer))
	}
	var cfgs []table.ColumnConfig
	for _, n := range v.right {
		cfgs = append(cfgs, table.ColumnConfig{Number: n, Align: text.AlignRight})
	}
	t.SetColumnConfigs(cfgs)

	var out string
	switch a.flags.format {
	case "markdown":
		out = t.RenderMarkdown()
	case "csv":
		out = t.RenderCSV()
	default:
		out = t.Render()
	}
	_, err := fmt.Fprintln(w, out)
	return err
}

func (a *app) renderJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	if a.flags.jq == "" {
		var pretty any
		if err := json.Unmarshal(data, &pretty); err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(pretty)
	}

	res, err := jq.Default().Query(data, a.flags.jq, false, 0)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	for _, item := range res.Values {
		if err := enc.Encode(item); err != nil {
			return err
		}
	}
	if len(res.Errors) > 0 {
		return fmt.Errorf("jq: %s", res.Errors[0])
	}
	return nil
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}

// tableView renders a result table; integer and decimal columns are right
// aligned.
func tableView(t *query.ResultTable) view {
	v := view{header: t.Names(), value: t.Records()}
	for i, c := range t.Columns {
		if c.Type == rrtype.Integer || c.Type == rrtype.Decimal {
			v.right = append(v.right, i+1)
		}
	}
	for _, row := range t.Rows {
		cells := make([]any, len(row))
		for i, cell := range row {
			cells[i] = cellText(cell)
		}
		v.rows = append(v.rows, cells)
	}
	return v
}

func cellText(v rrtype.Value) string {
	if v.IsNull() {
		return ""
	}
	if b, ok := v.AsBool(); ok {
		if b {
			return "yes"
		}
		return "no"
	}
	return v.String()
}

// formatCount renders n with thousands separators.
func formatCount(n int) string {
	return printer.Sprintf("%d", n)
}
