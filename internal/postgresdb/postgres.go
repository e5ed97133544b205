// Package postgresdb keeps the run ledger: one row per pipeline run and one
// row per stage of that run.
package postgresdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"face-pipeline/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrRunNotFound = errors.New("run not found")

const writeTimeout = 5 * time.Second

type Store struct {
	Pool   *pgxpool.Pool
	logger *slog.Logger
}

func New(ctx context.Context, connString string, logger *slog.Logger) (*Store, error) {
	if connString == "" {
		return nil, fmt.Errorf("database connection string is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Store{Pool: pool, logger: logger}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            UUID PRIMARY KEY,
	status        TEXT NOT NULL,
	error_message TEXT,
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS run_stages (
	run_id     UUID NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
	profile    TEXT NOT NULL,
	job_id     TEXT,
	status     TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, profile)
);
`

// Migrate creates the ledger tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("unable to create ledger schema: %w", err)
	}
	return nil
}

// Observe records ev in the ledger. Write failures are logged and do not
// affect the run. The write outlives ctx so a cancelled run is still marked
// failed.
func (s *Store) Observe(ctx context.Context, ev models.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if err := s.record(ctx, ev); err != nil {
		s.logger.Error("failed to record run event", "run_id", ev.RunID, "kind", ev.Kind, "error", err)
	}
}

func (s *Store) record(ctx context.Context, ev models.Event) error {
	switch ev.Kind {
	case models.EventRunStarted:
		return s.CreateRun(ctx, ev.RunID, ev.At)
	case models.EventRunCompleted:
		return s.FinishRun(ctx, ev.RunID, models.RunCompleted, "", ev.At)
	case models.EventRunFailed:
		return s.FinishRun(ctx, ev.RunID, models.RunFailed, ev.Error, ev.At)
	case models.EventStageStarted:
		return s.UpsertStage(ctx, ev.RunID, ev.Profile, "", "SUBMITTING", ev.At)
	case models.EventJobSubmitted, models.EventJobPolled, models.EventStageCompleted:
		return s.UpsertStage(ctx, ev.RunID, ev.Profile, ev.JobID, ev.Status.String(), ev.At)
	case models.EventStageFailed:
		status := ev.Status.String()
		if status == "" {
			status = "FAILED"
		}
		return s.UpsertStage(ctx, ev.RunID, ev.Profile, ev.JobID, status, ev.At)
	default:
		return nil
	}
}

func (s *Store) CreateRun(ctx context.Context, runID uuid.UUID, startedAt time.Time) error {
	sql := `
		INSERT INTO runs (id, status, started_at)
		VALUES ($1, $2, $3)
		`

	if _, err := s.Pool.Exec(ctx, sql, runID, string(models.RunRunning), startedAt); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", runID, err)
	}
	return nil
}

func (s *Store) FinishRun(ctx context.Context, runID uuid.UUID, status models.RunStatus, errMsg string, finishedAt time.Time) error {
	sql := `
		UPDATE runs
		SET status = $1, error_message = NULLIF($2, ''), finished_at = $3
		WHERE id = $4
		`

	tag, err := s.Pool.Exec(ctx, sql, string(status), errMsg, finishedAt, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// UpsertStage stores the latest state of a stage. An empty jobID keeps the
// job id already recorded.
func (s *Store) UpsertStage(ctx context.Context, runID uuid.UUID, profile models.Profile, jobID, status string, at time.Time) error {
	sql := `
		INSERT INTO run_stages (run_id, profile, job_id, status, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
		ON CONFLICT (run_id, profile) DO UPDATE
		SET job_id = COALESCE(EXCLUDED.job_id, run_stages.job_id),
		    status = EXCLUDED.status,
		    updated_at = EXCLUDED.updated_at
		`

	if _, err := s.Pool.Exec(ctx, sql, runID, profile.String(), jobID, status, at); err != nil {
		return fmt.Errorf("failed to record stage %s of run %s: %w", profile, runID, err)
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, runID uuid.UUID) (*models.Run, error) {
	var run models.Run
	var status string

	sql := `
        SELECT id, status, error_message, started_at, finished_at
        FROM runs
        WHERE id = $1
        `

	err := s.Pool.QueryRow(ctx, sql, runID).Scan(
		&run.ID,
		&status,
		&run.Error,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve run %s: %w", runID, err)
	}
	run.Status = models.RunStatus(status)

	rows, err := s.Pool.Query(ctx, `
        SELECT profile, job_id, status, updated_at
        FROM run_stages
        WHERE run_id = $1
        ORDER BY updated_at
        `, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve stages of run %s: %w", runID, err)
	}

	run.Stages, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.StageRecord, error) {
		var rec models.StageRecord
		var profile string
		err := row.Scan(&profile, &rec.JobID, &rec.Status, &rec.UpdatedAt)
		rec.Profile = models.Profile(profile)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan stages of run %s: %w", runID, err)
	}

	return &run, nil
}
