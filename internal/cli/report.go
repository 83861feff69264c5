package cli

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"strava-dashboard/internal/analysis"
	"strava-dashboard/internal/report"
	"strava-dashboard/internal/store"
)

func newReportCmd() *cobra.Command {
	var (
		output string
		title  string
		sel    analysis.Selection
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a Markdown report with Mermaid charts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validator.New().Struct(sel); err != nil {
				return fmt.Errorf("invalid filter: %w", err)
			}

			t, err := store.LoadOrEmpty(cfg.CSVPath())
			if err != nil {
				log.Warn().Err(err).Msg("Writing a report over an empty table")
			}

			if err := report.WriteFile(output, t, report.Options{
				Title:     title,
				Selection: sel,
				Locale:    cfg.Display.Locale,
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "report.md", "report file")
	cmd.Flags().StringVar(&title, "title", "", "report title")
	cmd.Flags().IntVar(&sel.Year, "year", analysis.All, "only this year (0 = all)")
	cmd.Flags().IntVar(&sel.Month, "month", analysis.All, "only this month, 1-12 (0 = all)")
	cmd.Flags().IntVar(&sel.Day, "day", analysis.All, "only this day, 1-31 (0 = all)")
	return cmd
}
