package mediator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"face-pipeline/internal/models"
)

// SubmitJob creates a job and returns its first snapshot.
func (c *Client) SubmitJob(ctx context.Context, sub models.JobSubmission) (models.RemoteJob, error) {
	var job models.RemoteJob
	if err := c.do(ctx, http.MethodPost, "/jobs", true, sub, &job); err != nil {
		return models.RemoteJob{}, err
	}
	if job.ID == "" {
		return models.RemoteJob{}, fmt.Errorf("submitted job has no id")
	}
	return job, nil
}

// GetJob fetches a fresh snapshot of a job.
func (c *Client) GetJob(ctx context.Context, jobID string) (models.RemoteJob, error) {
	var job models.RemoteJob
	if err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(jobID), true, nil, &job); err != nil {
		return models.RemoteJob{}, err
	}
	return job, nil
}
