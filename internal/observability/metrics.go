package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"face-pipeline/internal/models"
)

// Metrics records pipeline runs, stages and polls. It implements
// pipeline.Observer.
type Metrics struct {
	meter metric.Meter

	// Run metrics
	RunDuration metric.Float64Histogram
	RunsTotal   metric.Int64Counter
	RunErrors   metric.Int64Counter
	RunsActive  metric.Int64UpDownCounter

	// Stage metrics
	StageDuration metric.Float64Histogram
	StageErrors   metric.Int64Counter
	JobsSubmitted metric.Int64Counter
	JobPolls      metric.Int64Counter
}

// NewMetrics creates and registers all metrics with a Prometheus exporter.
func NewMetrics(ctx context.Context) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	m, err := newMetrics(provider)
	if err != nil {
		return nil, nil, err
	}
	return m, promhttp.Handler(), nil
}

func newMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter("face-pipeline")
	m := &Metrics{meter: meter}
	var err error

	m.RunDuration, err = meter.Float64Histogram(
		"pipeline_run_duration_seconds",
		metric.WithDescription("Pipeline run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(30, 60, 120, 300, 600, 900, 1800, 3600, 7200),
	)
	if err != nil {
		return nil, err
	}

	m.RunsTotal, err = meter.Int64Counter(
		"pipeline_runs_total",
		metric.WithDescription("Total number of finished pipeline runs"),
	)
	if err != nil {
		return nil, err
	}

	m.RunErrors, err = meter.Int64Counter(
		"pipeline_run_errors_total",
		metric.WithDescription("Total number of failed pipeline runs"),
	)
	if err != nil {
		return nil, err
	}

	m.RunsActive, err = meter.Int64UpDownCounter(
		"pipeline_runs_active",
		metric.WithDescription("Number of pipeline runs in progress"),
	)
	if err != nil {
		return nil, err
	}

	m.StageDuration, err = meter.Float64Histogram(
		"pipeline_stage_duration_seconds",
		metric.WithDescription("Time from job submission to terminal status in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(30, 60, 120, 300, 600, 900, 1800, 3600),
	)
	if err != nil {
		return nil, err
	}

	m.StageErrors, err = meter.Int64Counter(
		"pipeline_stage_errors_total",
		metric.WithDescription("Total number of failed stages"),
	)
	if err != nil {
		return nil, err
	}

	m.JobsSubmitted, err = meter.Int64Counter(
		"pipeline_jobs_submitted_total",
		metric.WithDescription("Total number of jobs accepted by the job service"),
	)
	if err != nil {
		return nil, err
	}

	m.JobPolls, err = meter.Int64Counter(
		"pipeline_job_polls_total",
		metric.WithDescription("Total number of job status fetches"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Observe records ev.
func (m *Metrics) Observe(ctx context.Context, ev models.Event) {
	switch ev.Kind {
	case models.EventRunStarted:
		m.RunsActive.Add(ctx, 1)
	case models.EventRunCompleted:
		m.RecordRunFinished(ctx, true, ev.Duration.Seconds())
	case models.EventRunFailed:
		m.RecordRunFinished(ctx, false, ev.Duration.Seconds())
	case models.EventJobSubmitted:
		m.JobsSubmitted.Add(ctx, 1, WithProfile(ev.Profile))
	case models.EventJobPolled:
		m.JobPolls.Add(ctx, 1, metric.WithAttributes(profileAttr(ev.Profile), statusAttr(ev.Status)))
	case models.EventStageCompleted:
		m.RecordStageFinished(ctx, ev.Profile, true, ev.Duration.Seconds())
	case models.EventStageFailed:
		m.RecordStageFinished(ctx, ev.Profile, false, ev.Duration.Seconds())
	}
}

// RecordRunFinished records a run completing (success or failure).
func (m *Metrics) RecordRunFinished(ctx context.Context, success bool, durationSeconds float64) {
	attrs := metric.WithAttributes(successAttr(success))
	m.RunDuration.Record(ctx, durationSeconds, attrs)
	m.RunsTotal.Add(ctx, 1, attrs)
	m.RunsActive.Add(ctx, -1)

	if !success {
		m.RunErrors.Add(ctx, 1)
	}
}

// RecordStageFinished records a stage completing (success or failure).
func (m *Metrics) RecordStageFinished(ctx context.Context, p models.Profile, success bool, durationSeconds float64) {
	attrs := metric.WithAttributes(profileAttr(p), successAttr(success))
	m.StageDuration.Record(ctx, durationSeconds, attrs)

	if !success {
		m.StageErrors.Add(ctx, 1, WithProfile(p))
	}
}
