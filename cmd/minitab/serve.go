package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/minitab/internal/app"
	"github.com/nikbrunner/minitab/internal/httpapi"
	"github.com/nikbrunner/minitab/internal/logger"
)

var listenFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API for the browser front-end",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		e, err := openEnv(ctx, envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		addr := e.cfg.Server.ListenAddr
		if listenFlag != "" {
			addr = listenFlag
		}

		// Requests carry their own provider, so the library needs no source.
		lib := app.New(app.Options{
			Describer:         e.describe,
			Logger:            e.log,
			ImportConcurrency: e.cfg.Describe.Concurrency,
		})
		srv := httpapi.New(
			httpapi.Options{Addr: addr, AllowedOrigins: e.cfg.Server.AllowedOrigins},
			httpapi.Deps{
				DB:        e.db,
				Auth:      e.auth,
				Library:   lib,
				Migrator:  e.migrator,
				Describer: e.describe,
				Logger:    e.log,
			},
		)

		errc := make(chan error, 1)
		go func() { errc <- srv.Start() }()

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := e.shutdownContext()
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		e.log.Info("server stopped", logger.String("addr", addr))
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVarP(&listenFlag, "listen", "l", "", "listen address (overrides server.listen_addr)")
	rootCmd.AddCommand(serveCmd)
}
