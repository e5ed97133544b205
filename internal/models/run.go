package models

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one traversal of the pipeline as recorded in the run ledger.
type Run struct {
	ID         uuid.UUID     `json:"id" db:"id"`
	Status     RunStatus     `json:"status" db:"status"`
	Error      *string       `json:"error,omitempty" db:"error_message"`
	StartedAt  time.Time     `json:"started_at" db:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty" db:"finished_at"`
	Stages     []StageRecord `json:"stages"`
}

// StageRecord is the last known state of one stage of a run.
type StageRecord struct {
	Profile   Profile   `json:"profile" db:"profile"`
	JobID     *string   `json:"job_id,omitempty" db:"job_id"`
	Status    string    `json:"status" db:"status"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type EventKind string

const (
	EventRunStarted     EventKind = "run.started"
	EventRunCompleted   EventKind = "run.completed"
	EventRunFailed      EventKind = "run.failed"
	EventStageStarted   EventKind = "stage.started"
	EventJobSubmitted   EventKind = "job.submitted"
	EventJobPolled      EventKind = "job.polled"
	EventStageCompleted EventKind = "stage.completed"
	EventStageFailed    EventKind = "stage.failed"
)

// Event reports one transition of a pipeline run.
type Event struct {
	RunID    uuid.UUID     `json:"run_id"`
	Kind     EventKind     `json:"kind"`
	Profile  Profile       `json:"profile,omitempty"`
	JobID    string        `json:"job_id,omitempty"`
	Status   JobStatus     `json:"status,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	At       time.Time     `json:"at"`
}
