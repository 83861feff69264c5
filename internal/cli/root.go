// Package cli wires configuration, logging and the services into cobra commands.
package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"strava-dashboard/internal/config"
	"strava-dashboard/internal/logging"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose    bool
	configPath string
	cfg        *config.Config
)

// fullScreen marks commands that own the terminal, so logs go to the file only
const fullScreen = "fullscreen"

var rootCmd = &cobra.Command{
	Use:   "strava-dashboard",
	Short: "Fetch Strava activities into a flat table and explore them",
	Long: `strava-dashboard pulls your Strava activities into a local CSV table and
serves a filterable running dashboard over it, in the terminal, over HTTP,
or as a static Markdown report.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		console := cmd.Annotations[fullScreen] == ""

		// Console-only until the config tells us where the log file lives
		if err := logging.Init(logging.Options{Verbose: verbose, Console: console}); err != nil {
			return err
		}

		var err error
		cfg, err = config.Resolve(configPath)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		if err := logging.Init(logging.Options{Verbose: verbose, Dir: cfg.LogsDir(), Console: console}); err != nil {
			return err
		}

		log.Debug().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("command", cmd.Name()).
			Msg("strava-dashboard starting")
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.strava-dashboard/config.json)")
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate)

	rootCmd.AddCommand(newETLCmd())
	rootCmd.AddCommand(newDashboardCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newHistoryCmd())
}
