package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newEventsCmd(a *app) *cobra.Command {
	var flags struct {
		year   int
		filter string
		name   string
	}
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List the events of the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, done, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer done()

			events, err := c.EventList(ctx, flags.year, flags.filter)
			if err != nil {
				return err
			}

			v := view{header: []string{"ID", "Name", "Date", "Location", "Participants"}, right: []int{5}}
			var listed []any
			name := strings.ToLower(flags.name)
			for _, ev := range events {
				if name != "" && !strings.Contains(strings.ToLower(ev.EventName), name) {
					continue
				}
				date := ""
				if !ev.EventDate.IsZero() {
					date = ev.EventDate.Format(time.DateOnly)
				}
				v.rows = append(v.rows, []any{ev.ID, ev.EventName, date, ev.EventLocation, formatCount(ev.Participants)})
				listed = append(listed, ev)
			}
			v.value = listed
			return a.render(cmd.OutOrStdout(), v)
		},
	}
	f := cmd.Flags()
	f.IntVar(&flags.year, "year", 0, "Only events of this year")
	f.StringVar(&flags.filter, "filter", "", "Server-side filter expression")
	f.StringVar(&flags.name, "name", "", "Case-insensitive substring of the event name")
	return cmd
}
