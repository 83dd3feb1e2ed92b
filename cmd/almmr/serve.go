package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"almmr/internal/handlers"
	applog "almmr/internal/log"
	"almmr/internal/server"
)

func getServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves the JSON API, health and metrics endpoints",
		Long: `Serves the records API under /api, a readiness probe at /healthz and
prometheus metrics at /metrics until interrupted.

Examples:
  almmr serve
  almmr serve --addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(cmd, a)

			handlers.Configure(a.Dependencies())
			defer handlers.Configure(handlers.Dependencies{})

			if addr == "" {
				addr = getConfig().Server.Addr
			}
			srv, err := server.New(server.Config{Addr: addr})
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				applog.Info(ctx, "starting http server", "addr", addr)
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server stopped: %w", err)
			case <-ctx.Done():
			}

			applog.Info(ctx, "shutting down http server")
			if err := srv.Stop(); err != nil {
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}
			if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: configured server address)")
	return cmd
}
