package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"face-pipeline/internal/apperrors"
	"face-pipeline/internal/models"
	"face-pipeline/internal/poller"
	"face-pipeline/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type instantClock struct{}

func (instantClock) Now() time.Time { return time.Unix(0, 0) }

func (instantClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Unix(0, 0)
	return ch
}

var (
	mediaAsset = models.Asset{Path: "/data/clip.mp4", Key: "clip.mp4"}
	probeAsset = models.Asset{Path: "/data/probe.jpg", Key: "probe.jpg"}
	mediaLoc   = models.Locator{Bucket: "media-bucket", Key: "clip.mp4", URL: "https://s3.example.com/media-bucket/clip.mp4?sig=1"}
	probeLoc   = models.Locator{Bucket: "media-bucket", Key: "probe.jpg", URL: "https://s3.example.com/media-bucket/probe.jpg?sig=2"}
)

type fixture struct {
	auth     *mocks.MockAuthenticator
	jobs     *mocks.MockJobClient
	faces    *mocks.MockFaceQuery
	assets   *mocks.MockAssetStager
	observer *mocks.MockObserver
	pipeline *Pipeline
}

func newFixture(t *testing.T, policy QueryPolicy) *fixture {
	t.Helper()

	f := &fixture{
		auth:     new(mocks.MockAuthenticator),
		jobs:     new(mocks.MockJobClient),
		faces:    new(mocks.MockFaceQuery),
		assets:   new(mocks.MockAssetStager),
		observer: new(mocks.MockObserver),
	}
	f.observer.On("Observe", mock.Anything, mock.Anything)

	p, err := New(Config{ProjectServiceID: "svc-1", MediaDuration: 30, QueryPolicy: policy}, Deps{
		Auth:     f.auth,
		Jobs:     f.jobs,
		Faces:    f.faces,
		Assets:   f.assets,
		Waiter:   poller.New(f.jobs, poller.Config{}, poller.WithClock(instantClock{})),
		Observer: f.observer,
	})
	require.NoError(t, err)
	f.pipeline = p
	return f
}

func completed(t *testing.T, id string, out models.JobOutput) models.RemoteJob {
	t.Helper()
	raw, err := json.Marshal(out)
	require.NoError(t, err)
	return models.RemoteJob{ID: id, Status: models.StatusCompleted, Output: raw}
}

func profileIs(p models.Profile) any {
	return mock.MatchedBy(func(sub models.JobSubmission) bool { return sub.Job.Profile == p })
}

// expectStage makes the job service accept a submission of profile p as id
// and report it running once before returning final.
func (f *fixture) expectStage(p models.Profile, id string, final models.RemoteJob) {
	f.jobs.On("SubmitJob", mock.Anything, profileIs(p)).Return(models.RemoteJob{ID: id, Status: models.StatusNew}, nil).Once()
	f.jobs.On("GetJob", mock.Anything, id).Return(models.RemoteJob{ID: id, Status: models.StatusRunning}, nil).Once()
	f.jobs.On("GetJob", mock.Anything, id).Return(final, nil).Once()
}

func (f *fixture) expectDiagnostics() {
	f.faces.On("GetFaceExtraction", mock.Anything, "svc-1", "abc").
		Return(&models.FaceExtraction{ID: "abc", FaceIDs: []string{"f1", "f2"}}, nil)
	f.faces.On("GetFace", mock.Anything, "svc-1", "f1").Return(&models.Face{ID: "f1"}, nil)
	f.faces.On("GetClusterCollection", mock.Anything, "svc-1", "xyz").
		Return(&models.ClusterCollection{ID: "xyz", Clusters: []models.Cluster{{ID: "c1"}}}, nil)
}

func (f *fixture) expectHappyPath(t *testing.T) {
	f.assets.On("Stage", mock.Anything, mediaAsset).Return(mediaLoc, nil).Once()
	f.assets.On("Stage", mock.Anything, probeAsset).Return(probeLoc, nil).Once()
	f.auth.On("Authenticate", mock.Anything).Return(nil)
	f.expectStage(models.ProfileExtractFaces, "job-extract", completed(t, "job-extract", models.ExtractFacesOutput{FaceExtractionID: "abc"}))
	f.expectStage(models.ProfileClusterFaces, "job-cluster", completed(t, "job-cluster", models.ClusterFacesOutput{ClusterCollectionID: "xyz"}))
	f.expectStage(models.ProfileSearchFaces, "job-search", completed(t, "job-search", models.SearchFacesOutput{
		Matches: []models.FaceMatch{{FaceID: "p1", ClusterID: "c1", Similarity: 0.91}},
	}))
	f.expectDiagnostics()
}

func (f *fixture) submissions() []models.JobSubmission {
	var subs []models.JobSubmission
	for _, call := range f.jobs.Calls {
		if call.Method == "SubmitJob" {
			subs = append(subs, call.Arguments.Get(1).(models.JobSubmission))
		}
	}
	return subs
}

func TestRun_ThreadsOutputsBetweenStages(t *testing.T) {
	f := newFixture(t, QueryWarn)
	f.expectHappyPath(t)
	effort := models.EffortMedium

	res, err := f.pipeline.Run(context.Background(), Request{Media: mediaAsset, Probe: probeAsset, Effort: &effort})

	require.NoError(t, err)
	assert.Equal(t, "abc", res.FaceExtractionID)
	assert.Equal(t, "xyz", res.ClusterCollectionID)
	assert.Equal(t, []models.FaceMatch{{FaceID: "p1", ClusterID: "c1", Similarity: 0.91}}, res.Matches)
	assert.Equal(t, map[models.Profile]string{
		models.ProfileExtractFaces: "job-extract",
		models.ProfileClusterFaces: "job-cluster",
		models.ProfileSearchFaces:  "job-search",
	}, res.Jobs)

	subs := f.submissions()
	require.Len(t, subs, 3)

	extract := subs[0].Job.Input.(models.ExtractFacesInput)
	assert.Equal(t, mediaLoc, extract.Video)
	require.NotNil(t, extract.Effort)
	assert.Equal(t, models.EffortMedium, *extract.Effort)
	assert.Equal(t, 30.0, subs[0].Quantity)

	assert.Equal(t, models.ClusterFacesInput{FaceExtractionID: "abc"}, subs[1].Job.Input)
	assert.Equal(t, 30.0, subs[1].Quantity)

	search := subs[2].Job.Input.(models.SearchFacesInput)
	assert.Equal(t, "xyz", search.ClusterCollectionID)
	assert.Equal(t, probeLoc, search.InputImage)
	assert.Equal(t, 0.8, search.SimilarityThreshold)
	assert.Equal(t, 10.0, subs[2].Quantity)

	for _, sub := range subs {
		assert.Equal(t, "svc-1", sub.ProjectServiceID)
	}

	f.auth.AssertExpectations(t)
	f.assets.AssertExpectations(t)
	f.faces.AssertExpectations(t)
}

func TestRun_EmitsTransitions(t *testing.T) {
	f := newFixture(t, QueryWarn)
	f.expectHappyPath(t)

	res, err := f.pipeline.Run(context.Background(), Request{Media: mediaAsset, Probe: probeAsset})
	require.NoError(t, err)

	stage := []models.EventKind{
		models.EventStageStarted,
		models.EventJobSubmitted,
		models.EventJobPolled,
		models.EventJobPolled,
		models.EventStageCompleted,
	}
	want := []models.EventKind{models.EventRunStarted}
	for range 3 {
		want = append(want, stage...)
	}
	want = append(want, models.EventRunCompleted)
	assert.Equal(t, want, f.observer.Kinds())

	for _, call := range f.observer.Calls {
		assert.Equal(t, res.RunID, call.Arguments.Get(1).(models.Event).RunID)
	}
}

func TestRun_FailedExtractionStopsPipeline(t *testing.T) {
	f := newFixture(t, QueryWarn)
	f.assets.On("Stage", mock.Anything, mediaAsset).Return(mediaLoc, nil).Once()
	f.auth.On("Authenticate", mock.Anything).Return(nil)
	f.expectStage(models.ProfileExtractFaces, "job-extract",
		models.RemoteJob{ID: "job-extract", Status: models.StatusFailed, StatusMessage: "unsupported codec"})

	res, err := f.pipeline.Run(context.Background(), Request{Media: mediaAsset, Probe: probeAsset})

	assert.Nil(t, res)
	require.ErrorIs(t, err, apperrors.ErrJobFailed)
	assert.NotErrorIs(t, err, apperrors.ErrOutputShape)

	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "ExtractFaces", appErr.Stage)
	assert.Equal(t, "job-extract", appErr.JobID)
	assert.Equal(t, "FAILED", appErr.Status)
	assert.Contains(t, err.Error(), "unsupported codec")

	f.jobs.AssertNumberOfCalls(t, "SubmitJob", 1)
	f.faces.AssertNotCalled(t, "GetFaceExtraction", mock.Anything, mock.Anything, mock.Anything)
	f.assets.AssertNotCalled(t, "Stage", mock.Anything, probeAsset)

	kinds := f.observer.Kinds()
	assert.Equal(t, models.EventRunFailed, kinds[len(kinds)-1])
	assert.Contains(t, kinds, models.EventStageFailed)
}

func TestRun_MissingExtractionIDIsOutputShapeError(t *testing.T) {
	tests := []struct {
		name  string
		final models.RemoteJob
	}{
		{"no output", models.RemoteJob{ID: "job-extract", Status: models.StatusCompleted}},
		{"empty id", models.RemoteJob{ID: "job-extract", Status: models.StatusCompleted, Output: json.RawMessage(`{"jobOutputType":"ExtractFacesOutput"}`)}},
		{"wrong variant", models.RemoteJob{ID: "job-extract", Status: models.StatusCompleted, Output: json.RawMessage(`{"jobOutputType":"ClusterFacesOutput","clusterCollectionId":"xyz"}`)}},
		{"malformed", models.RemoteJob{ID: "job-extract", Status: models.StatusCompleted, Output: json.RawMessage(`{"faceExtractionId":42}`)}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, QueryWarn)
			f.assets.On("Stage", mock.Anything, mediaAsset).Return(mediaLoc, nil).Once()
			f.auth.On("Authenticate", mock.Anything).Return(nil)
			f.expectStage(models.ProfileExtractFaces, "job-extract", tc.final)

			_, err := f.pipeline.Run(context.Background(), Request{Media: mediaAsset, Probe: probeAsset})

			require.ErrorIs(t, err, apperrors.ErrOutputShape)
			assert.NotErrorIs(t, err, apperrors.ErrJobFailed)
			f.jobs.AssertNumberOfCalls(t, "SubmitJob", 1)
		})
	}
}

func TestRun_MissingClusterCollectionID(t *testing.T) {
	f := newFixture(t, QueryWarn)
	f.assets.On("Stage", mock.Anything, mediaAsset).Return(mediaLoc, nil).Once()
	f.auth.On("Authenticate", mock.Anything).Return(nil)
	f.expectStage(models.ProfileExtractFaces, "job-extract", completed(t, "job-extract", models.ExtractFacesOutput{FaceExtractionID: "abc"}))
	f.expectStage(models.ProfileClusterFaces, "job-cluster", completed(t, "job-cluster", models.ClusterFacesOutput{}))
	f.expectDiagnostics()

	_, err := f.pipeline.Run(context.Background(), Request{Media: mediaAsset, Probe: probeAsset})

	require.ErrorIs(t, err, apperrors.ErrOutputShape)
	assert.Contains(t, err.Error(), "stage=ClusterFaces")
	f.assets.AssertNotCalled(t, "Stage", mock.Anything, probeAsset)
}

func TestRun_AuthFailureSubmitsNothing(t *testing.T) {
	f := newFixture(t, QueryWarn)
	f.assets.On("Stage", mock.Anything, mediaAsset).Return(mediaLoc, nil).Once()
	f.auth.On("Authenticate", mock.Anything).Return(errors.New("HTTP 401"))

	_, err := f.pipeline.Run(context.Background(), Request{Media: mediaAsset, Probe: probeAsset})

	assert.ErrorIs(t, err, apperrors.ErrAuth)
	f.jobs.AssertNotCalled(t, "SubmitJob", mock.Anything, mock.Anything)
}

func TestRun_MediaUploadFailure(t *testing.T) {
	f := newFixture(t, QueryWarn)
	f.assets.On("Stage", mock.Anything, mediaAsset).
		Return(models.Locator{}, apperrors.Upload("clip.mp4", errors.New("access denied"))).Once()

	_, err := f.pipeline.Run(context.Background(), Request{Media: mediaAsset, Probe: probeAsset})

	assert.ErrorIs(t, err, apperrors.ErrUpload)
	f.auth.AssertNotCalled(t, "Authenticate", mock.Anything)
	f.jobs.AssertNotCalled(t, "SubmitJob", mock.Anything, mock.Anything)
}

func TestRun_ProbeUploadFailureSkipsSearch(t *testing.T) {
	f := newFixture(t, QueryWarn)
	f.assets.On("Stage", mock.Anything, mediaAsset).Return(mediaLoc, nil).Once()
	f.assets.On("Stage", mock.Anything, probeAsset).
		Return(models.Locator{}, apperrors.Upload("probe.jpg", errors.New("no such file"))).Once()
	f.auth.On("Authenticate", mock.Anything).Return(nil)
	f.expectStage(models.ProfileExtractFaces, "job-extract", completed(t, "job-extract", models.ExtractFacesOutput{FaceExtractionID: "abc"}))
	f.expectStage(models.ProfileClusterFaces, "job-cluster", completed(t, "job-cluster", models.ClusterFacesOutput{ClusterCollectionID: "xyz"}))
	f.expectDiagnostics()

	_, err := f.pipeline.Run(context.Background(), Request{Media: mediaAsset, Probe: probeAsset})

	assert.ErrorIs(t, err, apperrors.ErrUpload)
	f.jobs.AssertNumberOfCalls(t, "SubmitJob", 2)
}

func TestRun_SubmissionRejected(t *testing.T) {
	f := newFixture(t, QueryWarn)
	f.assets.On("Stage", mock.Anything, mediaAsset).Return(mediaLoc, nil).Once()
	f.auth.On("Authenticate", mock.Anything).Return(nil)
	f.jobs.On("SubmitJob", mock.Anything, profileIs(models.ProfileExtractFaces)).
		Return(models.RemoteJob{}, errors.New("HTTP 402: quota exceeded"))

	_, err := f.pipeline.Run(context.Background(), Request{Media: mediaAsset, Probe: probeAsset})

	assert.ErrorIs(t, err, apperrors.ErrSubmission)
	assert.Contains(t, err.Error(), "quota exceeded")
	f.jobs.AssertNotCalled(t, "GetJob", mock.Anything, mock.Anything)
}

func TestRun_PollTransportErrorAborts(t *testing.T) {
	f := newFixture(t, QueryWarn)
	f.assets.On("Stage", mock.Anything, mediaAsset).Return(mediaLoc, nil).Once()
	f.auth.On("Authenticate", mock.Anything).Return(nil)
	f.jobs.On("SubmitJob", mock.Anything, profileIs(models.ProfileExtractFaces)).
		Return(models.RemoteJob{ID: "job-extract", Status: models.StatusNew}, nil)
	f.jobs.On("GetJob", mock.Anything, "job-extract").
		Return(models.RemoteJob{}, errors.New("connection refused"))

	_, err := f.pipeline.Run(context.Background(), Request{Media: mediaAsset, Probe: probeAsset})

	assert.ErrorIs(t, err, apperrors.ErrPollTransport)
	// one fetch plus the default retries
	f.jobs.AssertNumberOfCalls(t, "GetJob", 1+poller.DefaultFetchRetries)
	f.jobs.AssertNumberOfCalls(t, "SubmitJob", 1)
}

func TestRun_QueryFailureWarnContinues(t *testing.T) {
	f := newFixture(t, QueryWarn)
	f.assets.On("Stage", mock.Anything, mediaAsset).Return(mediaLoc, nil).Once()
	f.assets.On("Stage", mock.Anything, probeAsset).Return(probeLoc, nil).Once()
	f.auth.On("Authenticate", mock.Anything).Return(nil)
	f.expectStage(models.ProfileExtractFaces, "job-extract", completed(t, "job-extract", models.ExtractFacesOutput{FaceExtractionID: "abc"}))
	f.expectStage(models.ProfileClusterFaces, "job-cluster", completed(t, "job-cluster", models.ClusterFacesOutput{ClusterCollectionID: "xyz"}))
	f.expectStage(models.ProfileSearchFaces, "job-search", completed(t, "job-search", models.SearchFacesOutput{}))
	f.faces.On("GetFaceExtraction", mock.Anything, "svc-1", "abc").Return(nil, errors.New("HTTP 500"))
	f.faces.On("GetClusterCollection", mock.Anything, "svc-1", "xyz").Return(nil, errors.New("HTTP 500"))

	res, err := f.pipeline.Run(context.Background(), Request{Media: mediaAsset, Probe: probeAsset})

	require.NoError(t, err)
	assert.Equal(t, "xyz", res.ClusterCollectionID)
	f.faces.AssertNotCalled(t, "GetFace", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_QueryFailureFatalAborts(t *testing.T) {
	f := newFixture(t, QueryFatal)
	f.assets.On("Stage", mock.Anything, mediaAsset).Return(mediaLoc, nil).Once()
	f.auth.On("Authenticate", mock.Anything).Return(nil)
	f.expectStage(models.ProfileExtractFaces, "job-extract", completed(t, "job-extract", models.ExtractFacesOutput{FaceExtractionID: "abc"}))
	f.faces.On("GetFaceExtraction", mock.Anything, "svc-1", "abc").Return(nil, errors.New("HTTP 500"))

	_, err := f.pipeline.Run(context.Background(), Request{Media: mediaAsset, Probe: probeAsset})

	assert.ErrorIs(t, err, apperrors.ErrQuery)
	f.jobs.AssertNumberOfCalls(t, "SubmitJob", 1)
}

func TestRun_EmptyExtractionSkipsFaceLookup(t *testing.T) {
	f := newFixture(t, QueryFatal)
	f.assets.On("Stage", mock.Anything, mediaAsset).Return(mediaLoc, nil).Once()
	f.assets.On("Stage", mock.Anything, probeAsset).Return(probeLoc, nil).Once()
	f.auth.On("Authenticate", mock.Anything).Return(nil)
	f.expectStage(models.ProfileExtractFaces, "job-extract", completed(t, "job-extract", models.ExtractFacesOutput{FaceExtractionID: "abc"}))
	f.expectStage(models.ProfileClusterFaces, "job-cluster", completed(t, "job-cluster", models.ClusterFacesOutput{ClusterCollectionID: "xyz"}))
	f.expectStage(models.ProfileSearchFaces, "job-search", completed(t, "job-search", models.SearchFacesOutput{}))
	f.faces.On("GetFaceExtraction", mock.Anything, "svc-1", "abc").Return(&models.FaceExtraction{ID: "abc"}, nil)
	f.faces.On("GetClusterCollection", mock.Anything, "svc-1", "xyz").Return(&models.ClusterCollection{ID: "xyz"}, nil)

	_, err := f.pipeline.Run(context.Background(), Request{Media: mediaAsset, Probe: probeAsset})

	require.NoError(t, err)
	f.faces.AssertNotCalled(t, "GetFace", mock.Anything, mock.Anything, mock.Anything)
}

func TestNew_Validates(t *testing.T) {
	deps := Deps{
		Auth:   new(mocks.MockAuthenticator),
		Jobs:   new(mocks.MockJobClient),
		Assets: new(mocks.MockAssetStager),
		Waiter: poller.New(new(mocks.MockJobClient), poller.Config{}),
	}

	_, err := New(Config{MediaDuration: 30}, deps)
	assert.Error(t, err)

	_, err = New(Config{ProjectServiceID: "svc-1"}, deps)
	assert.Error(t, err)

	_, err = New(Config{ProjectServiceID: "svc-1", MediaDuration: 30}, Deps{})
	assert.Error(t, err)

	p, err := New(Config{ProjectServiceID: "svc-1", MediaDuration: 30}, deps)
	require.NoError(t, err)
	assert.Equal(t, QueryWarn, p.policy)
}

func TestParseQueryPolicy(t *testing.T) {
	p, err := ParseQueryPolicy("")
	require.NoError(t, err)
	assert.Equal(t, QueryWarn, p)

	p, err = ParseQueryPolicy("FATAL")
	require.NoError(t, err)
	assert.Equal(t, QueryFatal, p)

	_, err = ParseQueryPolicy("ignore")
	assert.Error(t, err)
}

func TestRun_LaterStageFailures(t *testing.T) {
	tests := []struct {
		name       string
		stage      string
		setup      func(t *testing.T, f *fixture)
		wantSubmit int
	}{
		{
			name:  "cluster failed",
			stage: "ClusterFaces",
			setup: func(t *testing.T, f *fixture) {
				f.expectStage(models.ProfileExtractFaces, "job-extract", completed(t, "job-extract", models.ExtractFacesOutput{FaceExtractionID: "abc"}))
				f.expectStage(models.ProfileClusterFaces, "job-cluster",
					models.RemoteJob{ID: "job-cluster", Status: models.StatusFailed, StatusMessage: "too few faces"})
				f.expectDiagnostics()
			},
			wantSubmit: 2,
		},
		{
			name:  "search failed",
			stage: "SearchFaces",
			setup: func(t *testing.T, f *fixture) {
				f.assets.On("Stage", mock.Anything, probeAsset).Return(probeLoc, nil).Once()
				f.expectStage(models.ProfileExtractFaces, "job-extract", completed(t, "job-extract", models.ExtractFacesOutput{FaceExtractionID: "abc"}))
				f.expectStage(models.ProfileClusterFaces, "job-cluster", completed(t, "job-cluster", models.ClusterFacesOutput{ClusterCollectionID: "xyz"}))
				f.expectStage(models.ProfileSearchFaces, "job-search",
					models.RemoteJob{ID: "job-search", Status: models.StatusFailed, StatusMessage: "no face in probe"})
				f.expectDiagnostics()
			},
			wantSubmit: 3,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, QueryWarn)
			f.assets.On("Stage", mock.Anything, mediaAsset).Return(mediaLoc, nil).Once()
			f.auth.On("Authenticate", mock.Anything).Return(nil)
			tc.setup(t, f)

			res, err := f.pipeline.Run(context.Background(), Request{Media: mediaAsset, Probe: probeAsset})

			assert.Nil(t, res)
			require.ErrorIs(t, err, apperrors.ErrJobFailed)

			var appErr *apperrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tc.stage, appErr.Stage)
			assert.Equal(t, "FAILED", appErr.Status)
			f.jobs.AssertNumberOfCalls(t, "SubmitJob", tc.wantSubmit)

			kinds := f.observer.Kinds()
			assert.Equal(t, models.EventRunFailed, kinds[len(kinds)-1])
		})
	}
}

func TestRun_CancelledWhilePolling(t *testing.T) {
	f := newFixture(t, QueryWarn)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.assets.On("Stage", mock.Anything, mediaAsset).Return(mediaLoc, nil).Once()
	f.auth.On("Authenticate", mock.Anything).Return(nil)
	f.jobs.On("SubmitJob", mock.Anything, profileIs(models.ProfileExtractFaces)).
		Return(models.RemoteJob{ID: "job-extract", Status: models.StatusNew}, nil)
	f.jobs.On("GetJob", mock.Anything, "job-extract").
		Return(models.RemoteJob{ID: "job-extract", Status: models.StatusRunning}, nil).Once()
	f.jobs.On("GetJob", mock.Anything, "job-extract").
		Run(func(mock.Arguments) { cancel() }).
		Return(models.RemoteJob{}, context.Canceled).Once()

	res, err := f.pipeline.Run(ctx, Request{Media: mediaAsset, Probe: probeAsset})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, apperrors.ErrPollAborted)
	assert.Contains(t, err.Error(), "job=job-extract status=RUNNING")
	f.jobs.AssertNumberOfCalls(t, "SubmitJob", 1)
	f.jobs.AssertNumberOfCalls(t, "GetJob", 2)

	kinds := f.observer.Kinds()
	assert.Equal(t, models.EventRunFailed, kinds[len(kinds)-1])
}

func TestRun_EmptyQueryResult(t *testing.T) {
	t.Run("warn continues", func(t *testing.T) {
		f := newFixture(t, QueryWarn)
		f.assets.On("Stage", mock.Anything, mediaAsset).Return(mediaLoc, nil).Once()
		f.assets.On("Stage", mock.Anything, probeAsset).Return(probeLoc, nil).Once()
		f.auth.On("Authenticate", mock.Anything).Return(nil)
		f.expectStage(models.ProfileExtractFaces, "job-extract", completed(t, "job-extract", models.ExtractFacesOutput{FaceExtractionID: "abc"}))
		f.expectStage(models.ProfileClusterFaces, "job-cluster", completed(t, "job-cluster", models.ClusterFacesOutput{ClusterCollectionID: "xyz"}))
		f.expectStage(models.ProfileSearchFaces, "job-search", completed(t, "job-search", models.SearchFacesOutput{}))
		f.faces.On("GetFaceExtraction", mock.Anything, "svc-1", "abc").Return(nil, nil)
		f.faces.On("GetClusterCollection", mock.Anything, "svc-1", "xyz").Return(nil, nil)

		_, err := f.pipeline.Run(context.Background(), Request{Media: mediaAsset, Probe: probeAsset})

		require.NoError(t, err)
	})

	t.Run("fatal aborts", func(t *testing.T) {
		f := newFixture(t, QueryFatal)
		f.assets.On("Stage", mock.Anything, mediaAsset).Return(mediaLoc, nil).Once()
		f.auth.On("Authenticate", mock.Anything).Return(nil)
		f.expectStage(models.ProfileExtractFaces, "job-extract", completed(t, "job-extract", models.ExtractFacesOutput{FaceExtractionID: "abc"}))
		f.faces.On("GetFaceExtraction", mock.Anything, "svc-1", "abc").
			Return(&models.FaceExtraction{ID: "abc", FaceIDs: []string{"f1"}}, nil)
		f.faces.On("GetFace", mock.Anything, "svc-1", "f1").Return(nil, nil)

		_, err := f.pipeline.Run(context.Background(), Request{Media: mediaAsset, Probe: probeAsset})

		assert.ErrorIs(t, err, apperrors.ErrQuery)
		assert.Contains(t, err.Error(), "no record returned")
	})
}
