package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"minesweeper/analytics"
	"minesweeper/core"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := BuildApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app (%s): %v\n", startupFailure(err), err)
		os.Exit(1)
	}
	defer cleanup()

	cfg := app.Config

	slog.Info("starting minesweeper leaderboard server",
		"environment", cfg.Environment,
		"profile", cfg.Profile,
		"address", cfg.Server.Address,
		"storage_adapter", cfg.Storage.Adapter,
		"limit", app.Service.Limit())

	if app.Stats != nil && app.Exporter != nil {
		go analytics.RunExport(ctx, app.Stats, app.Exporter, cfg.Analytics.ExportInterval, app.Logger)
	}

	srv := app.Server
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server listening", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			slog.Error("failed to start server", "error", err)
			cleanup()
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down server", "timeout", cfg.Server.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("error during server shutdown", "error", err)
	}
	if app.Exporter != nil {
		_ = app.Exporter.Close()
	}

	slog.Info("server stopped")
}

// startupFailure names the class of a BuildApp error for the exit message.
func startupFailure(err error) string {
	switch {
	case errors.Is(err, core.ErrConnection):
		return "storage unreachable"
	case errors.Is(err, core.ErrSchema):
		return "schema setup failed"
	default:
		return "configuration"
	}
}
