package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCountCmd(a *app) *cobra.Command {
	var sel selectorFlags
	cmd := &cobra.Command{
		Use:   "count <table>",
		Short: "Count the rows of a table",
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

			n, err := e.Count(ctx, s)
			if err != nil {
				return err
			}
			if a.flags.format == "json" || a.flags.jq != "" {
				return a.renderJSON(cmd.OutOrStdout(), map[string]any{"table": args[0], "count": n})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), formatCount(n))
			return err
		},
	}
	sel.register(cmd.Flags())
	return cmd
}
