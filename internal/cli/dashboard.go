package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"strava-dashboard/internal/service"
	"strava-dashboard/internal/tui"
)

func newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "dashboard",
		Short:       "Explore the activity table in an interactive terminal dashboard",
		Annotations: map[string]string{fullScreen: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			snapshot := service.NewSnapshot(cfg.CSVPath())
			if err := snapshot.Load(); err != nil {
				log.Warn().Err(err).Msg("Starting with an empty table")
			}

			runs := openRunLog(cfg)
			if runs != nil {
				defer runs.Close()
			}

			opts := tui.Options{
				Context:    ctx,
				Snapshot:   snapshot,
				RunOptions: runOptions(cfg),
				Runs:       runs,
				Display:    cfg.Display,
			}
			// Leave Pipeline as a nil interface when credentials are missing
			if pipeline, err := newPipeline(cfg, runs); err != nil {
				log.Info().Err(err).Msg("Refresh disabled")
			} else {
				opts.Pipeline = pipeline
			}

			p := tea.NewProgram(tui.NewApp(opts), tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("running TUI: %w", err)
			}
			return nil
		},
	}
}
