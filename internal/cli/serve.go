package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"strava-dashboard/internal/server"
	"strava-dashboard/internal/service"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = cfg.Server.ListenAddr
			}

			snapshot := service.NewSnapshot(cfg.CSVPath())
			if err := snapshot.Load(); err != nil {
				log.Warn().Err(err).Msg("Serving an empty table until the next reload")
			}

			runs := openRunLog(cfg)
			if runs != nil {
				defer runs.Close()
			}

			opts := server.Options{
				Locale:     cfg.Display.Locale,
				RunOptions: runOptions(cfg),
				Runs:       runs,
			}
			if pipeline, err := newPipeline(cfg, runs); err != nil {
				log.Info().Err(err).Msg("Refresh endpoint disabled")
			} else {
				opts.Pipeline = pipeline
			}

			srv := server.New(snapshot, opts).NewHTTPServer(addr)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info().Str("addr", addr).Str("table", snapshot.Path()).Msg("Dashboard API listening")
				if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				log.Info().Msg("Shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.listen_addr)")
	return cmd
}
