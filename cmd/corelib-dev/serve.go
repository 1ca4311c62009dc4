package main

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skymfe/corelib/internal/devserver"
)

func newServeCmd(g *globals) *cobra.Command {
	var addr string
	var latency time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the in-memory users backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") {
				addr = g.cfg.DevServerAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			handler := devserver.New(
				devserver.WithLatency(latency),
				devserver.WithToken(g.token),
				devserver.WithLogger(g.logger),
				devserver.WithUsers(
					devserver.User{ID: 1, Name: "Ada"},
					devserver.User{ID: 2, Name: "Grace", Locked: true},
				),
			)
			server := &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadTimeout:       15 * time.Second,
				ReadHeaderTimeout: 10 * time.Second,
				WriteTimeout:      15 * time.Second,
				IdleTimeout:       60 * time.Second,
				BaseContext:       func(net.Listener) context.Context { return ctx },
			}

			errCh := make(chan error, 1)
			go func() {
				g.logger.Info().Str("addr", addr).Dur("latency", latency).Msg("dev server starting")
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			select {
			case <-ctx.Done():
				g.logger.Info().Msg("Shutting down dev server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					g.logger.Error().Stack().Err(err).Msg("Dev server forced to shutdown")
					return err
				}
				g.logger.Info().Msg("Dev server exited")
				return nil
			case err := <-errCh:
				g.logger.Error().Stack().Err(err).Msg("Dev server failed")
				return err
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8787", "Listen address (default $CORELIB_DEV_SERVER_ADDR)")
	cmd.Flags().DurationVar(&latency, "latency", 0, "Artificial delay added to every response")
	return cmd
}
