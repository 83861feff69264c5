package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"strava-dashboard/internal/auth"
)

func newLoginCmd() *cobra.Command {
	var noBrowser bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize with Strava and store the refresh token in the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ValidateCredentials(false); err != nil {
				return err
			}

			oauthCfg := auth.NewOAuthConfig(auth.Config{
				ClientID:     cfg.Strava.ClientID,
				ClientSecret: cfg.Strava.ClientSecret,
				RedirectURL:  fmt.Sprintf("http://localhost:%d/callback", auth.CallbackPort),
				TokenURL:     cfg.Strava.TokenURL,
			})

			result, err := auth.Login(cmd.Context(), oauthCfg, auth.LoginOptions{
				OpenBrowser: !noBrowser,
				Out:         cmd.OutOrStdout(),
			})
			if err != nil {
				return fmt.Errorf("authentication: %w", err)
			}

			if err := persistRefreshToken(cfg, result.Token.RefreshToken, true); err != nil {
				return fmt.Errorf("saving refresh token: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Successfully authenticated as athlete %d!\n", result.AthleteID)
			log.Debug().Int64("expires_in", result.ExpiresIn()).Msg("Access token issued")
			fmt.Fprintln(out, "Run 'strava-dashboard etl' to fetch your activities.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "print the consent URL instead of opening a browser")
	return cmd
}
