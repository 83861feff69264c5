package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"strava-dashboard/internal/config"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an example config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				var err error
				if path, err = config.DefaultPath(); err != nil {
					return err
				}
			}
			if err := config.CreateExample(path); err != nil {
				return fmt.Errorf("creating example config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Please edit the config file at:\n  %s\n\n", path)
			fmt.Fprintln(out, "You need to add your Strava API credentials.")
			fmt.Fprintln(out, "Get them from: https://www.strava.com/settings/api")
			return nil
		},
	}
}
