package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrOutputMissing is returned when a job carries no output at all.
	ErrOutputMissing = errors.New("job output is missing")
	// ErrOutputMismatch is returned when the output variant does not belong to
	// the job's profile.
	ErrOutputMismatch = errors.New("job output does not match profile")
)

// JobOutput is the result of a completed job. The set of implementations is
// closed: ExtractFacesOutput, ClusterFacesOutput and SearchFacesOutput.
type JobOutput interface {
	Profile() Profile
	OutputType() string
}

type ExtractFacesOutput struct {
	FaceExtractionID string `json:"faceExtractionId,omitempty"`
}

type ClusterFacesOutput struct {
	ClusterCollectionID string `json:"clusterCollectionId,omitempty"`
}

type SearchFacesOutput struct {
	Matches []FaceMatch `json:"matches,omitempty"`
}

// FaceMatch is one face of the probe image matched against a cluster.
type FaceMatch struct {
	FaceID     string  `json:"faceId"`
	ClusterID  string  `json:"clusterId"`
	Similarity float64 `json:"similarity"`
}

func (ExtractFacesOutput) Profile() Profile { return ProfileExtractFaces }
func (ClusterFacesOutput) Profile() Profile { return ProfileClusterFaces }
func (SearchFacesOutput) Profile() Profile  { return ProfileSearchFaces }

func (ExtractFacesOutput) OutputType() string { return "ExtractFacesOutput" }
func (ClusterFacesOutput) OutputType() string { return "ClusterFacesOutput" }
func (SearchFacesOutput) OutputType() string  { return "SearchFacesOutput" }

func (out ExtractFacesOutput) MarshalJSON() ([]byte, error) {
	type fields ExtractFacesOutput
	return json.Marshal(struct {
		Type string `json:"jobOutputType"`
		fields
	}{out.OutputType(), fields(out)})
}

func (out ClusterFacesOutput) MarshalJSON() ([]byte, error) {
	type fields ClusterFacesOutput
	return json.Marshal(struct {
		Type string `json:"jobOutputType"`
		fields
	}{out.OutputType(), fields(out)})
}

func (out SearchFacesOutput) MarshalJSON() ([]byte, error) {
	type fields SearchFacesOutput
	return json.Marshal(struct {
		Type string `json:"jobOutputType"`
		fields
	}{out.OutputType(), fields(out)})
}

// DecodeOutput decodes the output of a job with the given profile. An output
// that carries a jobOutputType of another profile is rejected.
func DecodeOutput(p Profile, raw json.RawMessage) (JobOutput, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ErrOutputMissing
	}

	var tag struct {
		Type string `json:"jobOutputType"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, fmt.Errorf("decode job output: %w", err)
	}

	switch p {
	case ProfileExtractFaces:
		return decodeOutput[ExtractFacesOutput](raw, tag.Type)
	case ProfileClusterFaces:
		return decodeOutput[ClusterFacesOutput](raw, tag.Type)
	case ProfileSearchFaces:
		return decodeOutput[SearchFacesOutput](raw, tag.Type)
	default:
		return nil, fmt.Errorf("unknown job profile %q", p)
	}
}

func decodeOutput[T JobOutput](raw json.RawMessage, tag string) (JobOutput, error) {
	var out T
	if tag != "" && tag != out.OutputType() {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrOutputMismatch, tag, out.OutputType())
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", out.OutputType(), err)
	}
	return out, nil
}
