package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newTablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables [table]",
		Short: "List the queryable tables, or the columns of one table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := a.tables()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				s, ok := tables[args[0]]
				if !ok {
					return unknownTable(args[0])
				}
				v := view{header: []string{"Column", "Type"}}
				type column struct {
					Name string `json:"name"`
					Type string `json:"type"`
				}
				var cols []column
				for _, c := range s.Columns {
					v.rows = append(v.rows, []any{c.Name, c.Type.String()})
					cols = append(cols, column{Name: c.Name, Type: c.Type.String()})
				}
				v.value = cols
				return a.render(cmd.OutOrStdout(), v)
			}

			names := make([]string, 0, len(tables))
			for name := range tables {
				names = append(names, name)
			}
			sort.Strings(names)

			v := view{header: []string{"Table", "List", "Count", "Paging", "Columns"}, right: []int{5}}
			type tableInfo struct {
				Name    string   `json:"name"`
				List    string   `json:"list"`
				Count   string   `json:"count,omitempty"`
				Paging  string   `json:"paging"`
				Columns []string `json:"columns"`
			}
			var infos []tableInfo
			for _, name := range names {
				s := tables[name]
				v.rows = append(v.rows, []any{name, s.ListCommand, s.CountCommand, s.Paging.String(), len(s.Columns)})
				infos = append(infos, tableInfo{name, s.ListCommand, s.CountCommand, s.Paging.String(), s.Names()})
			}
			v.value = infos
			return a.render(cmd.OutOrStdout(), v)
		},
	}
}

func unknownTable(name string) error {
	return fmt.Errorf("unknown table %q (see rr tables)", name)
}
