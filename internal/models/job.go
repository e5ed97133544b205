package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// JobTypeFaceRecognition is the only job type this pipeline submits.
const JobTypeFaceRecognition = "FaceRecognitionJob"

// Profile selects what a face recognition job does.
type Profile string

const (
	ProfileExtractFaces Profile = "ExtractFaces"
	ProfileClusterFaces Profile = "ClusterFaces"
	ProfileSearchFaces  Profile = "SearchFaces"
)

// Profiles lists the pipeline stages in execution order.
var Profiles = []Profile{ProfileExtractFaces, ProfileClusterFaces, ProfileSearchFaces}

func (p Profile) String() string {
	return string(p)
}

// Effort tunes how thoroughly faces are extracted.
type Effort string

const (
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)

// ParseEffort accepts the effort names case-insensitively.
func ParseEffort(s string) (Effort, error) {
	switch e := Effort(strings.ToLower(strings.TrimSpace(s))); e {
	case EffortLow, EffortMedium, EffortHigh:
		return e, nil
	default:
		return "", fmt.Errorf("unknown effort level %q", s)
	}
}

// JobStatus is the status reported by the job service. Only COMPLETED and
// FAILED are terminal; every other value means the job is still in progress.
type JobStatus string

const (
	StatusNew       JobStatus = "NEW"
	StatusQueued    JobStatus = "QUEUED"
	StatusScheduled JobStatus = "SCHEDULED"
	StatusRunning   JobStatus = "RUNNING"
	StatusCompleted JobStatus = "COMPLETED"
	StatusFailed    JobStatus = "FAILED"
)

func (s JobStatus) String() string {
	return string(s)
}

// Terminal reports whether no further transitions can happen.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one unit of remote work. It is built fresh for every stage and never
// mutated after submission.
type Job struct {
	Type    string   `json:"jobType"`
	Profile Profile  `json:"jobProfile"`
	Input   JobInput `json:"jobInput"`
}

// NewJob wraps an input in a face recognition job with the matching profile.
func NewJob(in JobInput) Job {
	return Job{
		Type:    JobTypeFaceRecognition,
		Profile: in.Profile(),
		Input:   in,
	}
}

func (j *Job) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type    string          `json:"jobType"`
		Profile Profile         `json:"jobProfile"`
		Input   json.RawMessage `json:"jobInput"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	in, err := DecodeInput(raw.Input)
	if err != nil {
		return err
	}
	if in.Profile() != raw.Profile {
		return fmt.Errorf("job profile %q does not match input %s", raw.Profile, InputType(in))
	}

	j.Type = raw.Type
	j.Profile = raw.Profile
	j.Input = in
	return nil
}

// JobSubmission is the request body accepted by the job service.
// Quantity is the billable weight of the job.
type JobSubmission struct {
	ProjectServiceID string  `json:"projectServiceId"`
	Quantity         float64 `json:"quantity"`
	Job              Job     `json:"job"`
}

// RemoteJob is a snapshot of a job owned by the job service. Output is only
// populated once the job has COMPLETED.
type RemoteJob struct {
	ID            string
	Status        JobStatus
	StatusMessage string
	Output        json.RawMessage
}

type remoteJobStatus struct {
	Status        JobStatus `json:"status"`
	StatusMessage string    `json:"statusMessage,omitempty"`
}

type remoteJobJSON struct {
	ID     string          `json:"id"`
	Status remoteJobStatus `json:"status"`
	Output json.RawMessage `json:"jobOutput,omitempty"`
}

func (j RemoteJob) MarshalJSON() ([]byte, error) {
	return json.Marshal(remoteJobJSON{
		ID:     j.ID,
		Status: remoteJobStatus{Status: j.Status, StatusMessage: j.StatusMessage},
		Output: j.Output,
	})
}

func (j *RemoteJob) UnmarshalJSON(data []byte) error {
	var raw remoteJobJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	j.ID = raw.ID
	j.Status = raw.Status.Status
	j.StatusMessage = raw.Status.StatusMessage
	j.Output = raw.Output
	return nil
}
