package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWhoAmICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, done, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer done()

			info, err := c.UserInfo(ctx)
			if err != nil {
				return err
			}
			if a.flags.format == "json" || a.flags.jq != "" {
				return a.renderJSON(cmd.OutOrStdout(), info)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "User:     %s\n", info.UserName)
			fmt.Fprintf(out, "Customer: %d\n", info.CustNo)
			fmt.Fprintf(out, "Server:   %s\n", c.BaseURL())
			if as := c.SignedInAs(); as != "" {
				fmt.Fprintf(out, "As:       %s\n", as)
			}
			return nil
		},
	}
}
