// Package apperrors classifies the failures that abort a pipeline run.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// indicates an unrecoverable error
var ErrPermanentFailure = errors.New("permanent failure, do not retry")

// ErrUnauthenticated is returned by clients used before a token was attached.
var ErrUnauthenticated = errors.New("no access token, authenticate first")

// Error kinds, matched with errors.Is.
var (
	ErrAuth          = errors.New("authentication failed")
	ErrUpload        = errors.New("upload failed")
	ErrSubmission    = errors.New("job submission rejected")
	ErrPollTransport = errors.New("job status fetch failed")
	ErrPollTimeout   = errors.New("job did not finish in time")
	ErrPollAborted   = errors.New("stopped waiting for job")
	ErrJobFailed     = errors.New("job failed")
	ErrOutputShape   = errors.New("unexpected job output")
	ErrQuery         = errors.New("face query failed")
)

// Error carries enough context to diagnose a failed run without re-running it.
type Error struct {
	Kind   error  // one of the Err* kinds above
	Stage  string // job profile of the failing stage
	JobID  string
	Status string // last known job status
	Op     string
	Cause  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Stage != "" {
		fmt.Fprintf(&b, " stage=%s", e.Stage)
	}
	if e.JobID != "" {
		fmt.Fprintf(&b, " job=%s", e.JobID)
	}
	if e.Status != "" {
		fmt.Fprintf(&b, " status=%s", e.Status)
	}
	if e.Op != "" {
		fmt.Fprintf(&b, ": %s", e.Op)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func Auth(cause error) error {
	return &Error{Kind: ErrAuth, Cause: cause}
}

func Upload(key string, cause error) error {
	return &Error{Kind: ErrUpload, Op: "stage " + key, Cause: cause}
}

func Submission(stage string, cause error) error {
	return &Error{Kind: ErrSubmission, Stage: stage, Cause: cause}
}

func PollTransport(stage, jobID, lastStatus string, cause error) error {
	return &Error{Kind: ErrPollTransport, Stage: stage, JobID: jobID, Status: lastStatus, Cause: cause}
}

func PollTimeout(stage, jobID, lastStatus string, waited time.Duration) error {
	return &Error{
		Kind:   ErrPollTimeout,
		Stage:  stage,
		JobID:  jobID,
		Status: lastStatus,
		Op:     "waited " + waited.String(),
	}
}

// PollAborted reports a wait ended by its context. cause is the context error.
func PollAborted(stage, jobID, lastStatus string, cause error) error {
	return &Error{Kind: ErrPollAborted, Stage: stage, JobID: jobID, Status: lastStatus, Cause: cause}
}

// JobFailed reports a job the service itself marked FAILED.
func JobFailed(stage, jobID, status, message string) error {
	e := &Error{Kind: ErrJobFailed, Stage: stage, JobID: jobID, Status: status}
	if message != "" {
		e.Op = message
	}
	return e
}

// OutputShape reports a COMPLETED job whose output is not what its profile promises.
func OutputShape(stage, jobID string, cause error) error {
	return &Error{Kind: ErrOutputShape, Stage: stage, JobID: jobID, Status: "COMPLETED", Cause: cause}
}

func Query(op string, cause error) error {
	return &Error{Kind: ErrQuery, Op: op, Cause: cause}
}
