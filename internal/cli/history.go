package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"strava-dashboard/internal/service"
	"strava-dashboard/internal/store"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent ETL runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := store.Open(cfg.RunLogPath())
			if err != nil {
				return err
			}
			defer runs.Close()

			list, err := runs.ListRuns(limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No ETL runs recorded yet")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tSTATUS\tPAGES\tFETCHED\tROWS\tDROPPED\tTOOK\tERROR")
			for _, r := range list {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
					humanize.Time(r.StartedAt), r.Status, r.Pages, r.Fetched, r.Rows, r.Dropped,
					r.Duration().Round(time.Millisecond), r.Error)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", service.RunHistoryLimit, "number of runs to show")
	return cmd
}
