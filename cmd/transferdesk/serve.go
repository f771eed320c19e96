package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/transferdesk"
	httpAdapter "github.com/aretw0/transferdesk/internal/adapters/http"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the console over HTTP",
	Long:  `Restores the stored session and serves the console state, action dispatch, an event stream and Prometheus metrics as a JSON API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		logger := a.logger
		addr := cfg.Server.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		srv := &http.Server{
			Addr: addr,
			Handler: httpAdapter.NewHandler(a.console,
				httpAdapter.WithMetrics(a.metrics.Handler()),
				httpAdapter.WithVersion(transferdesk.Version),
				httpAdapter.WithLogger(logger),
			),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("starting server", "addr", srv.Addr, "api", cfg.API.BaseURL, "auth", a.console.State().Auth)
			serverErrors <- srv.ListenAndServe()
		}()

		go func() {
			for err := range a.console.BridgeErrors() {
				logger.Warn("push registration failed", "error", err)
			}
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutting down", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("failed to kill server: %w", err)
				}
			}
			logger.Info("server stopped")
			return nil
		}
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default from config, :8080)")
	rootCmd.AddCommand(serveCmd)
}
