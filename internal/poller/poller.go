// Package poller waits for remote jobs to reach a terminal status.
//
// A submitted job starts in SUBMITTED, moves to POLLING after every fetch
// whose status is neither COMPLETED nor FAILED, and ends in one of those two.
// A FAILED job is returned as a snapshot, not an error; the caller decides
// what it means.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"face-pipeline/internal/apperrors"
	"face-pipeline/internal/models"
)

const (
	DefaultInterval     = 30 * time.Second
	DefaultFetchRetries = 3
	defaultRetryInitial = time.Second
	defaultRetryMax     = 30 * time.Second
)

// Fetcher returns the current snapshot of a job.
type Fetcher interface {
	GetJob(ctx context.Context, jobID string) (models.RemoteJob, error)
}

// Clock lets tests replace real waiting.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Config controls poll cadence. Zero values use defaults, except MaxWait where
// zero means wait indefinitely.
type Config struct {
	Interval     time.Duration // delay between fetches (default: 30s)
	MaxWait      time.Duration // give up after this long (default: never)
	FetchRetries int           // retries of a transient fetch error (default: 3, negative disables)
	RetryInitial time.Duration // first retry delay (default: 1s)
	RetryMax     time.Duration // retry delay cap (default: 30s)
}

// StatusFunc receives every snapshot fetched while waiting.
type StatusFunc func(models.RemoteJob)

type Poller struct {
	fetcher Fetcher
	cfg     Config
	clock   Clock
	logger  *slog.Logger
}

type Option func(*Poller)

func WithClock(c Clock) Option {
	return func(p *Poller) { p.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) { p.logger = l }
}

func New(fetcher Fetcher, cfg Config, opts ...Option) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.FetchRetries == 0 {
		cfg.FetchRetries = DefaultFetchRetries
	}
	if cfg.FetchRetries < 0 {
		cfg.FetchRetries = 0
	}
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = defaultRetryInitial
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = defaultRetryMax
	}

	p := &Poller{fetcher: fetcher, cfg: cfg, clock: systemClock{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wait polls job until it is COMPLETED or FAILED and returns the final
// snapshot. A job that is already terminal is returned without fetching.
// Every fetch uses the id of the submitted job; a snapshot without an id
// gets it filled in.
func (p *Poller) Wait(ctx context.Context, profile models.Profile, job models.RemoteJob, onStatus StatusFunc) (models.RemoteJob, error) {
	id := job.ID
	start := p.clock.Now()

	for !job.Status.Terminal() {
		delay := p.cfg.Interval
		if remaining, bounded := p.remaining(start); bounded {
			if remaining <= 0 {
				return job, apperrors.PollTimeout(profile.String(), id, job.Status.String(), p.clock.Now().Sub(start))
			}
			delay = min(delay, remaining)
		}

		if err := p.sleep(ctx, delay); err != nil {
			return job, apperrors.PollAborted(profile.String(), id, job.Status.String(), err)
		}

		next, err := p.fetch(ctx, profile, id, job, start)
		if err != nil {
			return job, err
		}
		if next.ID == "" {
			next.ID = id
		}
		job = next

		p.logger.Debug("job status", "profile", profile, "job_id", id, "status", job.Status)
		if onStatus != nil {
			onStatus(job)
		}
	}

	p.logger.Info("received job status", "profile", profile, "job_id", id, "status", job.Status)
	return job, nil
}

// remaining is the time left before MaxWait. bounded is false when MaxWait is
// unset.
func (p *Poller) remaining(start time.Time) (d time.Duration, bounded bool) {
	if p.cfg.MaxWait <= 0 {
		return 0, false
	}
	return p.cfg.MaxWait - p.clock.Now().Sub(start), true
}

// fetch gets the job by id, retrying transient errors. Retry delays never
// run past MaxWait.
func (p *Poller) fetch(ctx context.Context, profile models.Profile, id string, last models.RemoteJob, start time.Time) (models.RemoteJob, error) {
	var err error
	for attempt := 0; ; attempt++ {
		var job models.RemoteJob
		job, err = p.fetcher.GetJob(ctx, id)
		if err == nil {
			return job, nil
		}
		if ctx.Err() != nil {
			return last, apperrors.PollAborted(profile.String(), id, last.Status.String(), ctx.Err())
		}
		if attempt >= p.cfg.FetchRetries || !isRetryable(ctx, err) {
			break
		}

		delay := p.retryDelay(attempt + 1)
		if remaining, bounded := p.remaining(start); bounded {
			if remaining <= 0 {
				break
			}
			delay = min(delay, remaining)
		}

		p.logger.Warn("retrying job status fetch",
			"job_id", id, "attempt", attempt+1, "delay", delay, "error", err)
		if serr := p.sleep(ctx, delay); serr != nil {
			return last, apperrors.PollAborted(profile.String(), id, last.Status.String(), serr)
		}
	}

	return last, apperrors.PollTransport(profile.String(), id, last.Status.String(), err)
}

// retryDelay doubles from RetryInitial and is capped at RetryMax.
func (p *Poller) retryDelay(attempt int) time.Duration {
	d := float64(p.cfg.RetryInitial) * math.Pow(2, float64(attempt-1))
	if d > float64(p.cfg.RetryMax) {
		return p.cfg.RetryMax
	}
	return time.Duration(d)
}

func (p *Poller) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.clock.After(d):
		return nil
	}
}

func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !errors.Is(err, apperrors.ErrPermanentFailure) && !errors.Is(err, apperrors.ErrUnauthenticated)
}
