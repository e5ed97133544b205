// Package pipeline runs the extract, cluster and search face jobs in order,
// threading each job's output into the next job's input.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"face-pipeline/internal/apperrors"
	"face-pipeline/internal/models"
	"face-pipeline/internal/poller"
	"face-pipeline/internal/submission"

	"github.com/google/uuid"
)

type Authenticator interface {
	Authenticate(ctx context.Context) error
}

type JobClient interface {
	SubmitJob(ctx context.Context, sub models.JobSubmission) (models.RemoteJob, error)
	GetJob(ctx context.Context, jobID string) (models.RemoteJob, error)
}

// errNoRecord is reported when a FaceQuery returns neither a record nor an error.
var errNoRecord = errors.New("no record returned")

// FaceQuery looks up the records produced by finished jobs.
type FaceQuery interface {
	GetFaceExtraction(ctx context.Context, serviceID, extractionID string) (*models.FaceExtraction, error)
	GetFace(ctx context.Context, serviceID, faceID string) (*models.Face, error)
	GetClusterCollection(ctx context.Context, serviceID, collectionID string) (*models.ClusterCollection, error)
}

type AssetStager interface {
	Stage(ctx context.Context, asset models.Asset) (models.Locator, error)
}

// Waiter blocks until a submitted job is terminal.
type Waiter interface {
	Wait(ctx context.Context, profile models.Profile, job models.RemoteJob, onStatus poller.StatusFunc) (models.RemoteJob, error)
}

// QueryPolicy decides what a failed face query does to the run.
type QueryPolicy string

const (
	QueryWarn  QueryPolicy = "warn"  // log and continue
	QueryFatal QueryPolicy = "fatal" // abort the run
)

func ParseQueryPolicy(s string) (QueryPolicy, error) {
	switch p := QueryPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return QueryWarn, nil
	case QueryWarn, QueryFatal:
		return p, nil
	default:
		return "", fmt.Errorf("unknown query policy %q", s)
	}
}

type Config struct {
	ProjectServiceID string
	MediaDuration    float64 // seconds
	QueryPolicy      QueryPolicy
}

// Deps are the collaborators of a pipeline. Faces and Observer are optional.
type Deps struct {
	Auth     Authenticator
	Jobs     JobClient
	Faces    FaceQuery
	Assets   AssetStager
	Waiter   Waiter
	Observer Observer
	Logger   *slog.Logger
}

type Pipeline struct {
	deps    Deps
	builder submission.Builder
	policy  QueryPolicy
	now     func() time.Time
}

func New(cfg Config, deps Deps) (*Pipeline, error) {
	if cfg.ProjectServiceID == "" {
		return nil, fmt.Errorf("project service id is required")
	}
	if cfg.MediaDuration <= 0 {
		return nil, fmt.Errorf("media duration must be positive, got %v", cfg.MediaDuration)
	}
	if deps.Auth == nil || deps.Jobs == nil || deps.Assets == nil || deps.Waiter == nil {
		return nil, fmt.Errorf("auth, jobs, assets and waiter are required")
	}
	if deps.Observer == nil {
		deps.Observer = Observers(nil)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.QueryPolicy == "" {
		cfg.QueryPolicy = QueryWarn
	}

	return &Pipeline{
		deps:    deps,
		builder: submission.NewBuilder(cfg.ProjectServiceID, cfg.MediaDuration),
		policy:  cfg.QueryPolicy,
		now:     time.Now,
	}, nil
}

// Request names the two local assets of a run.
type Request struct {
	Media  models.Asset
	Probe  models.Asset
	Effort *models.Effort
}

type Result struct {
	RunID               uuid.UUID                 `json:"run_id"`
	FaceExtractionID    string                    `json:"face_extraction_id"`
	ClusterCollectionID string                    `json:"cluster_collection_id"`
	Matches             []models.FaceMatch        `json:"matches"`
	Jobs                map[models.Profile]string `json:"jobs"`
}

// Run executes all three stages. The first error aborts the run; no partial
// result is returned.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	runID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate run id: %w", err)
	}

	r := &run{
		Pipeline: p,
		id:       runID,
		logger:   p.deps.Logger.With("run_id", runID.String()),
		result:   &Result{RunID: runID, Jobs: make(map[models.Profile]string, len(models.Profiles))},
	}
	start := p.now()

	r.logger.Info("starting face recognition run")
	r.emit(ctx, models.Event{Kind: models.EventRunStarted})

	if err := r.execute(ctx, req); err != nil {
		r.logger.Error("run failed", "error", err)
		r.emit(ctx, models.Event{Kind: models.EventRunFailed, Error: err.Error(), Duration: p.now().Sub(start)})
		return nil, err
	}

	r.logger.Info("run completed",
		"face_extraction_id", r.result.FaceExtractionID,
		"cluster_collection_id", r.result.ClusterCollectionID,
		"matches", len(r.result.Matches))
	r.emit(ctx, models.Event{Kind: models.EventRunCompleted, Duration: p.now().Sub(start)})
	return r.result, nil
}

type run struct {
	*Pipeline
	id     uuid.UUID
	logger *slog.Logger
	result *Result
}

func (r *run) execute(ctx context.Context, req Request) error {
	r.logger.Info("uploading media", "key", req.Media.Key)
	media, err := r.deps.Assets.Stage(ctx, req.Media)
	if err != nil {
		return err
	}

	if err := r.deps.Auth.Authenticate(ctx); err != nil {
		return apperrors.Auth(err)
	}

	extracted, err := runStage(ctx, r, r.builder.Extract(media, req.Effort), func(out models.ExtractFacesOutput) error {
		if out.FaceExtractionID == "" {
			return errors.New("faceExtractionId is empty")
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.result.FaceExtractionID = extracted.FaceExtractionID

	if err := r.describeExtraction(ctx, extracted.FaceExtractionID); err != nil {
		return err
	}

	clustered, err := runStage(ctx, r, r.builder.Cluster(extracted.FaceExtractionID), func(out models.ClusterFacesOutput) error {
		if out.ClusterCollectionID == "" {
			return errors.New("clusterCollectionId is empty")
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.result.ClusterCollectionID = clustered.ClusterCollectionID

	if err := r.describeClusters(ctx, clustered.ClusterCollectionID); err != nil {
		return err
	}

	r.logger.Info("uploading probe image", "key", req.Probe.Key)
	probe, err := r.deps.Assets.Stage(ctx, req.Probe)
	if err != nil {
		return err
	}

	searched, err := runStage[models.SearchFacesOutput](ctx, r, r.builder.Search(clustered.ClusterCollectionID, probe), nil)
	if err != nil {
		return err
	}
	r.result.Matches = searched.Matches

	return nil
}

// runStage submits sub, waits for it and returns its typed output. check
// validates the fields the next stage depends on.
func runStage[T models.JobOutput](ctx context.Context, r *run, sub models.JobSubmission, check func(T) error) (T, error) {
	var zero T
	profile := sub.Job.Profile
	start := r.now()
	logger := r.logger.With("profile", profile)

	fail := func(job models.RemoteJob, err error) (T, error) {
		logger.Error("stage failed", "job_id", job.ID, "status", job.Status, "error", err)
		r.emit(ctx, models.Event{
			Kind:     models.EventStageFailed,
			Profile:  profile,
			JobID:    job.ID,
			Status:   job.Status,
			Error:    err.Error(),
			Duration: r.now().Sub(start),
		})
		return zero, err
	}

	logger.Info("submitting job", "quantity", sub.Quantity)
	r.emit(ctx, models.Event{Kind: models.EventStageStarted, Profile: profile})

	submitted, err := r.deps.Jobs.SubmitJob(ctx, sub)
	if err != nil {
		return fail(models.RemoteJob{}, apperrors.Submission(profile.String(), err))
	}
	logger.Info("job submitted", "job_id", submitted.ID, "status", submitted.Status)
	r.emit(ctx, models.Event{Kind: models.EventJobSubmitted, Profile: profile, JobID: submitted.ID, Status: submitted.Status})

	final, err := r.deps.Waiter.Wait(ctx, profile, submitted, func(job models.RemoteJob) {
		r.emit(ctx, models.Event{Kind: models.EventJobPolled, Profile: profile, JobID: job.ID, Status: job.Status})
	})
	if err != nil {
		return fail(final, err)
	}

	if final.Status == models.StatusFailed {
		return fail(final, apperrors.JobFailed(profile.String(), final.ID, final.Status.String(), final.StatusMessage))
	}

	out, err := models.DecodeOutput(profile, final.Output)
	if err != nil {
		return fail(final, apperrors.OutputShape(profile.String(), final.ID, err))
	}
	typed, ok := out.(T)
	if !ok {
		return fail(final, apperrors.OutputShape(profile.String(), final.ID,
			fmt.Errorf("got %s, want %s", out.OutputType(), zero.OutputType())))
	}
	if check != nil {
		if err := check(typed); err != nil {
			return fail(final, apperrors.OutputShape(profile.String(), final.ID, err))
		}
	}

	r.result.Jobs[profile] = final.ID
	logger.Info("stage completed", "job_id", final.ID)
	r.emit(ctx, models.Event{
		Kind:     models.EventStageCompleted,
		Profile:  profile,
		JobID:    final.ID,
		Status:   final.Status,
		Duration: r.now().Sub(start),
	})
	return typed, nil
}

func (r *run) describeExtraction(ctx context.Context, extractionID string) error {
	if r.deps.Faces == nil {
		return nil
	}
	serviceID := r.builder.ProjectServiceID

	extraction, err := r.deps.Faces.GetFaceExtraction(ctx, serviceID, extractionID)
	if err != nil {
		return r.queryFailed(ctx, "get face extraction "+extractionID, err)
	}
	if extraction == nil {
		return r.queryFailed(ctx, "get face extraction "+extractionID, errNoRecord)
	}
	r.logger.Info("face extraction", "face_extraction_id", extraction.ID, "faces", len(extraction.FaceIDs))

	if len(extraction.FaceIDs) == 0 {
		return nil
	}

	face, err := r.deps.Faces.GetFace(ctx, serviceID, extraction.FaceIDs[0])
	if err != nil {
		return r.queryFailed(ctx, "get face "+extraction.FaceIDs[0], err)
	}
	if face == nil {
		return r.queryFailed(ctx, "get face "+extraction.FaceIDs[0], errNoRecord)
	}
	r.logger.Info("first face", "face_id", face.ID, "confidence", face.Confidence)
	return nil
}

func (r *run) describeClusters(ctx context.Context, collectionID string) error {
	if r.deps.Faces == nil {
		return nil
	}

	collection, err := r.deps.Faces.GetClusterCollection(ctx, r.builder.ProjectServiceID, collectionID)
	if err != nil {
		return r.queryFailed(ctx, "get cluster collection "+collectionID, err)
	}
	if collection == nil {
		return r.queryFailed(ctx, "get cluster collection "+collectionID, errNoRecord)
	}
	r.logger.Info("cluster collection", "cluster_collection_id", collection.ID, "clusters", len(collection.Clusters))
	return nil
}

func (r *run) queryFailed(ctx context.Context, op string, err error) error {
	qerr := apperrors.Query(op, err)
	if r.policy == QueryFatal || ctx.Err() != nil {
		return qerr
	}
	r.logger.Warn("face query failed, continuing", "error", qerr)
	return nil
}

func (r *run) emit(ctx context.Context, ev models.Event) {
	ev.RunID = r.id
	ev.At = r.now()
	r.deps.Observer.Observe(ctx, ev)
}
