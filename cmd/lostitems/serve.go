package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeonglab2/lost-items-desktop/internal/config"
	"github.com/jeonglab2/lost-items-desktop/internal/relocate"
	"github.com/jeonglab2/lost-items-desktop/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Start the local HTTP API used by the desktop frontend. The server
exposes category suggestion, item registration, lookup, search,
update, and relocation endpoints.`,
		RunE: runServe,
	}

	cmd.Flags().String("listen", "", "listen address (overrides server.listen)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	settings := config.Load()
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		settings.ServerListen = listen
	}

	store, err := initStorage(ctx, settings)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	tax, err := loadTaxonomy(settings)
	if err != nil {
		return err
	}

	svc, cleanup, err := buildService(settings, store, tax)
	if err != nil {
		return err
	}
	defer cleanup()

	runner := relocate.NewRunner(store, relocate.NewScheduler(), settings.LockPath)
	handler := server.Handler(svc, store, runner, tax, server.DefaultConfig(), slog.Default())

	srv := &http.Server{
		Addr:         settings.ServerListen,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "listen", settings.ServerListen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}
