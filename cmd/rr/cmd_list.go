package main

import (
	"github.com/spf13/cobra"

	"github.com/usestring/raceresult-go/pkg/query"
)

func newListCmd(a *app) *cobra.Command {
	var (
		sel   selectorFlags
		flags struct {
			fields  []string
			sort    []string
			limit   int
			offset  int
			all     bool
			workers int
		}
	)
	cmd := &cobra.Command{
		Use:   "list <table>",
		Short: "List rows of a table",
		Long:  "List rows of a table. With --all, the rows are counted first and fetched\nin concurrent pages of RR_SCAN_PAGE_SIZE rows.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := sel.selector()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			e, done, err := a.engine(ctx, args[0])
			if err != nil {
				return err
			}
			defer done()

			spec := query.Spec{
				Selector: s,
				Fields:   flags.fields,
				Sort:     flags.sort,
				Limit:    flags.limit,
				Offset:   flags.offset,
			}
			var t *query.ResultTable
			if flags.all {
				opts := query.ScanOptions{PageSize: a.cfg.ScanPageSize, Workers: a.cfg.ScanWorkers}
				if flags.workers > 0 {
					opts.Workers = flags.workers
				}
				schema := e.Schema()
				opts.KeyColumn = schema.KeyFor("ID", flags.fields)
				t, err = e.Scan(ctx, spec, opts)
			} else {
				t, err = e.List(ctx, spec)
			}
			if err != nil {
				return err
			}

			v := tableView(t)
			if len(t.Rows) > 0 {
				v.footer = make([]any, len(t.Columns))
				v.footer[0] = formatCount(t.Len()) + " rows"
			}
			return a.render(cmd.OutOrStdout(), v)
		},
	}
	f := cmd.Flags()
	sel.register(f)
	f.StringSliceVar(&flags.fields, "fields", nil, "Columns to return (default: all)")
	f.StringSliceVar(&flags.sort, "sort", nil, "Sort columns")
	f.IntVarP(&flags.limit, "limit", "n", 0, "Max rows (0: no limit)")
	f.IntVar(&flags.offset, "offset", 0, "Rows to skip")
	f.BoolVar(&flags.all, "all", false, "Fetch all rows in concurrent pages")
	f.IntVar(&flags.workers, "workers", 0, "Concurrent page requests with --all (default: RR_SCAN_WORKERS)")
	return cmd
}
