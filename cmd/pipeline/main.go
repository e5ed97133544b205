// pipeline uploads the configured media, runs face extraction, clustering
// and search against the job service, and prints the search result.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"face-pipeline/internal/api"
	"face-pipeline/internal/assets"
	"face-pipeline/internal/config"
	"face-pipeline/internal/mediator"
	"face-pipeline/internal/observability"
	"face-pipeline/internal/pipeline"
	"face-pipeline/internal/poller"
	"face-pipeline/internal/postgresdb"
	"face-pipeline/internal/s3"
	"face-pipeline/internal/valkeydb"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("Pipeline failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	effort, err := cfg.EffortLevel()
	if err != nil {
		return err
	}
	policy, err := pipeline.ParseQueryPolicy(cfg.QueryPolicy)
	if err != nil {
		return err
	}

	metrics, metricsHandler, err := observability.NewMetrics(ctx)
	if err != nil {
		return err
	}
	observers := pipeline.Observers{metrics}

	var ledger *postgresdb.Store
	if cfg.DatabaseURL != "" {
		ledger, err = postgresdb.New(ctx, cfg.DatabaseURL, slog.Default())
		if err != nil {
			return err
		}
		defer ledger.Close()

		if err := ledger.Migrate(ctx); err != nil {
			return err
		}
		observers = append(observers, ledger)
		slog.Info("Run ledger enabled")
	}

	var events *valkeydb.ValkeyClient
	if cfg.ValkeyURL != "" {
		events, err = valkeydb.New(ctx, cfg.ValkeyURL, cfg.ValkeyPassword, slog.Default())
		if err != nil {
			return err
		}
		defer events.Close()

		observers = append(observers, events)
		slog.Info("Run event stream enabled")
	}

	if cfg.OpsAddr != "" {
		var runs api.RunReader
		if ledger != nil {
			runs = ledger
		}
		var eventReader api.EventReader
		if events != nil {
			eventReader = events
		}

		opsServer := &http.Server{
			Addr:         cfg.OpsAddr,
			Handler:      api.NewRouter(api.NewAPIHandler(runs, eventReader, slog.Default()), metricsHandler),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("Starting ops server", "addr", cfg.OpsAddr)
			if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Ops server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := opsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("Ops server shutdown error", "error", err)
			}
		}()
	}

	store, err := s3.NewFileStore(ctx, s3.S3Config{
		EndpointURL:  cfg.S3Endpoint,
		Region:       cfg.BucketRegion,
		AccessKey:    cfg.AWSAccessKeyID,
		SecretKey:    cfg.AWSSecretAccessKey,
		SessionToken: cfg.AWSSessionToken,
	})
	if err != nil {
		return err
	}
	slog.Info("S3 FileStore initialized", "bucket", cfg.BucketName)

	client, err := mediator.New(mediator.Config{
		BaseURL:      cfg.Host,
		ClientKey:    cfg.ClientKey,
		ClientSecret: cfg.ClientSecret,
	})
	if err != nil {
		return err
	}

	waiter := poller.New(client, poller.Config{
		Interval:     cfg.PollInterval,
		MaxWait:      cfg.PollMaxWait,
		FetchRetries: cfg.FetchRetries,
	}, poller.WithLogger(slog.Default()))

	p, err := pipeline.New(pipeline.Config{
		ProjectServiceID: cfg.ProjectServiceID,
		MediaDuration:    cfg.MediaDuration,
		QueryPolicy:      policy,
	}, pipeline.Deps{
		Auth:     client,
		Jobs:     client,
		Faces:    client,
		Assets:   assets.NewStager(store, cfg.BucketName, cfg.SignedURLTTL, slog.Default()),
		Waiter:   waiter,
		Observer: observers,
		Logger:   slog.Default(),
	})
	if err != nil {
		return err
	}

	result, err := p.Run(ctx, pipeline.Request{
		Media:  cfg.MediaAsset(),
		Probe:  cfg.ProbeAsset(),
		Effort: effort,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
