package cli

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"strava-dashboard/internal/auth"
	"strava-dashboard/internal/config"
	"strava-dashboard/internal/service"
	"strava-dashboard/internal/store"
)

// newPipeline builds the ETL pipeline from cfg. It fails when the Strava
// credentials are missing.
func newPipeline(cfg *config.Config, runs *store.RunLog) (*service.Pipeline, error) {
	if err := cfg.ValidateCredentials(true); err != nil {
		return nil, err
	}
	return &service.Pipeline{
		Tokens: &auth.TokenManager{
			TokenURL: cfg.Strava.TokenURL,
			Timeout:  cfg.Timeout(),
		},
		NewFetcher: service.ClientFactory(cfg.Strava.APIBaseURL, cfg.Timeout()),
		Credentials: service.Credentials{
			ClientID:     cfg.Strava.ClientID,
			ClientSecret: cfg.Strava.ClientSecret,
			RefreshToken: cfg.Strava.RefreshToken,
		},
		Runs: runs,
		OnTokenRotated: func(refreshToken string) error {
			cfg.Strava.RefreshToken = refreshToken
			return persistRefreshToken(cfg, refreshToken, false)
		},
	}, nil
}

// runOptions returns the pipeline options configured in cfg
func runOptions(cfg *config.Config) service.RunOptions {
	return service.RunOptions{
		PerPage:    cfg.Fetch.PerPage,
		MaxPages:   cfg.Fetch.MaxPages,
		OutputPath: cfg.CSVPath(),
	}
}

// openRunLog opens the run history. Failure is not fatal: the dashboard
// works without history.
func openRunLog(cfg *config.Config) *store.RunLog {
	runs, err := store.Open(cfg.RunLogPath())
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.RunLogPath()).Msg("Run history unavailable")
		return nil
	}
	return runs
}

// persistRefreshToken writes token into the config file, leaving the rest of
// the file as it is. Values that came from the environment are not written.
// Without a config file the token is only saved when create is set.
func persistRefreshToken(cfg *config.Config, token string, create bool) error {
	fileCfg, err := config.Load(configPath)
	switch {
	case errors.Is(err, config.ErrNoConfig):
		if !create {
			log.Warn().Msgf("No config file to store the new refresh token in, update %s", config.EnvRefreshToken)
			return nil
		}
		d := config.DefaultConfig()
		fileCfg = &d
		fileCfg.Strava.ClientID = cfg.Strava.ClientID
		fileCfg.Strava.ClientSecret = cfg.Strava.ClientSecret
	case err != nil:
		return fmt.Errorf("reading config file: %w", err)
	}

	fileCfg.Strava.RefreshToken = token
	if err := config.Save(fileCfg, configPath); err != nil {
		return err
	}
	log.Info().Msg("Stored refresh token in config file")
	return nil
}
