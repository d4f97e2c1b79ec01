package main

import (
	"github.com/spf13/cobra"
)

func newDistinctCmd(a *app) *cobra.Command {
	var sel selectorFlags
	cmd := &cobra.Command{
		Use:   "distinct <table> <column>",
		Short: "Show the distinct values of a column",
		Args:  cobra.ExactArgs(2),
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

			values, err := e.DistinctValuesMatching(ctx, args[1], s)
			if err != nil {
				return err
			}

			v := view{header: []string{args[1]}, value: values}
			for _, val := range values {
				v.rows = append(v.rows, []any{cellText(val)})
			}
			return a.render(cmd.OutOrStdout(), v)
		},
	}
	sel.register(cmd.Flags())
	return cmd
}
