package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"strava-dashboard/internal/activity"
	"strava-dashboard/internal/config"
	"strava-dashboard/internal/service"
	"strava-dashboard/internal/store"
)

type etlFlags struct {
	from, to string
	perPage  int
	maxPages int
	output   string
}

func newETLCmd() *cobra.Command {
	var f etlFlags

	cmd := &cobra.Command{
		Use:   "etl",
		Short: "Fetch activities from Strava and rebuild the activity table",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := parseRange(f.from, f.to)
			if err != nil {
				return err
			}
			opts, err := etlOptions(cfg, f, cmd.Flags().Changed)
			if err != nil {
				return err
			}
			opts.From, opts.To = from, to

			runs := openRunLog(cfg)
			if runs != nil {
				defer runs.Close()
				if at, err := runs.LastRunAt(); err == nil && !at.IsZero() {
					log.Info().Str("previous_run", humanize.Time(at)).Msg("Starting ETL run")
				}
			}
			pipeline, err := newPipeline(cfg, runs)
			if err != nil {
				return err
			}

			result, err := pipeline.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch result.Status {
			case store.RunEmpty:
				fmt.Fprintln(out, "No activities found, existing table left untouched")
			case store.RunPartial:
				fmt.Fprintf(out, "Saved %s activities to %s (partial: %v)\n",
					humanize.Comma(int64(result.Rows)), result.OutputPath, result.FetchErr)
			case store.RunSuccess:
				if result.Rows == 0 {
					fmt.Fprintf(out, "No activities matched, saved an empty table to %s\n", result.OutputPath)
					break
				}
				fmt.Fprintf(out, "Saved %s activities to %s in %s\n",
					humanize.Comma(int64(result.Rows)), result.OutputPath,
					result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
			}
			if d := result.Stats.Dropped(); d > 0 {
				fmt.Fprintf(out, "Dropped %d records (missing id %d, bad date %d, duplicates %d)\n",
					d, result.Stats.MissingID, result.Stats.BadDate, result.Stats.Duplicates)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&f.from, "from", "", "keep activities on or after this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "keep activities on or before this day (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.perPage, "per-page", 0, "activities per page, 1-200 (default from config)")
	cmd.Flags().IntVar(&f.maxPages, "max-pages", 0, "maximum pages to fetch, 1-50 (default from config)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "table file (default data_dir/csv_name)")
	return cmd
}

// etlOptions applies the flag overrides to the configured fetch settings and
// checks them against the same bounds as the config file
func etlOptions(base *config.Config, f etlFlags, changed func(string) bool) (service.RunOptions, error) {
	c := *base
	if changed("per-page") {
		c.Fetch.PerPage = f.perPage
	}
	if changed("max-pages") {
		c.Fetch.MaxPages = f.maxPages
	}
	if err := c.Validate(); err != nil {
		return service.RunOptions{}, fmt.Errorf("invalid flags: %w", err)
	}

	opts := runOptions(&c)
	if f.output != "" {
		opts.OutputPath = f.output
	}
	return opts, nil
}

// parseRange parses the optional inclusive day range
func parseRange(fromStr, toStr string) (from, to time.Time, err error) {
	if fromStr != "" {
		if from, err = time.Parse(activity.DayLayout, fromStr); err != nil {
			return from, to, fmt.Errorf("invalid --from %q: want YYYY-MM-DD", fromStr)
		}
	}
	if toStr != "" {
		if to, err = time.Parse(activity.DayLayout, toStr); err != nil {
			return from, to, fmt.Errorf("invalid --to %q: want YYYY-MM-DD", toStr)
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, fmt.Errorf("--to %s is before --from %s", toStr, fromStr)
	}
	return from, to, nil
}
