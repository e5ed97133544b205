// api serves the run ledger and run events recorded by the pipeline.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"face-pipeline/internal/api"
	"face-pipeline/internal/observability"
	"face-pipeline/internal/postgresdb"
	"face-pipeline/internal/valkeydb"

	"github.com/joho/godotenv"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("Service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ledger, err := postgresdb.New(ctx, os.Getenv("DATABASE_URL"), slog.Default())
	if err != nil {
		return err
	}
	defer ledger.Close()

	if err := ledger.Migrate(ctx); err != nil {
		return err
	}

	var events api.EventReader
	if url := os.Getenv("VALKEY_URL"); url != "" {
		client, err := valkeydb.New(ctx, url, os.Getenv("VALKEY_PASSWORD"), slog.Default())
		if err != nil {
			return err
		}
		defer client.Close()
		events = client
	}

	_, metricsHandler, err := observability.NewMetrics(ctx)
	if err != nil {
		return err
	}

	addr := os.Getenv("OPS_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      api.NewRouter(api.NewAPIHandler(ledger, events, slog.Default()), metricsHandler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	case err := <-serverErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("Shutdown complete")
	return nil
}
