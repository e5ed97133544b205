package models

import (
	"encoding/json"
	"fmt"
)

// JobInput is the input of one job. The set of implementations is closed:
// ExtractFacesInput, ClusterFacesInput and SearchFacesInput.
type JobInput interface {
	Profile() Profile
	isJobInput()
}

// ExtractFacesInput asks the service to find faces in a video.
// A nil Effort leaves the service default in place.
type ExtractFacesInput struct {
	Video  Locator `json:"video"`
	Effort *Effort `json:"effort,omitempty"`
}

// ClusterFacesInput groups the faces of a finished extraction.
type ClusterFacesInput struct {
	FaceExtractionID string `json:"faceExtractionId"`
}

// SearchFacesInput matches the faces in an image against a cluster collection.
type SearchFacesInput struct {
	InputImage          Locator `json:"inputImage"`
	SimilarityThreshold float64 `json:"similarityThreshold"`
	ClusterCollectionID string  `json:"clusterCollectionId"`
}

func NewExtractFacesInput(video Locator, effort *Effort) ExtractFacesInput {
	in := ExtractFacesInput{Video: video}
	if effort != nil {
		e := *effort
		in.Effort = &e
	}
	return in
}

func NewClusterFacesInput(faceExtractionID string) ClusterFacesInput {
	return ClusterFacesInput{FaceExtractionID: faceExtractionID}
}

func NewSearchFacesInput(image Locator, threshold float64, clusterCollectionID string) SearchFacesInput {
	return SearchFacesInput{
		InputImage:          image,
		SimilarityThreshold: threshold,
		ClusterCollectionID: clusterCollectionID,
	}
}

func (ExtractFacesInput) Profile() Profile { return ProfileExtractFaces }
func (ClusterFacesInput) Profile() Profile { return ProfileClusterFaces }
func (SearchFacesInput) Profile() Profile  { return ProfileSearchFaces }

func (ExtractFacesInput) isJobInput() {}
func (ClusterFacesInput) isJobInput() {}
func (SearchFacesInput) isJobInput()  {}

// InputType returns the discriminant the job service uses to decode in.
func InputType(in JobInput) string {
	switch in.(type) {
	case ExtractFacesInput:
		return "ExtractFacesInput"
	case ClusterFacesInput:
		return "ClusterFacesInput"
	case SearchFacesInput:
		return "SearchFacesInput"
	default:
		return ""
	}
}

func (in ExtractFacesInput) MarshalJSON() ([]byte, error) {
	type fields ExtractFacesInput
	return json.Marshal(struct {
		Type string `json:"jobInputType"`
		fields
	}{InputType(in), fields(in)})
}

func (in ClusterFacesInput) MarshalJSON() ([]byte, error) {
	type fields ClusterFacesInput
	return json.Marshal(struct {
		Type string `json:"jobInputType"`
		fields
	}{InputType(in), fields(in)})
}

func (in SearchFacesInput) MarshalJSON() ([]byte, error) {
	type fields SearchFacesInput
	return json.Marshal(struct {
		Type string `json:"jobInputType"`
		fields
	}{InputType(in), fields(in)})
}

// DecodeInput decodes a job input by its jobInputType discriminant.
func DecodeInput(raw json.RawMessage) (JobInput, error) {
	var tag struct {
		Type string `json:"jobInputType"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, fmt.Errorf("decode job input: %w", err)
	}

	switch tag.Type {
	case "ExtractFacesInput":
		return decodeInto[ExtractFacesInput](raw)
	case "ClusterFacesInput":
		return decodeInto[ClusterFacesInput](raw)
	case "SearchFacesInput":
		return decodeInto[SearchFacesInput](raw)
	default:
		return nil, fmt.Errorf("unknown job input type %q", tag.Type)
	}
}

func decodeInto[T JobInput](raw json.RawMessage) (JobInput, error) {
	var in T
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("decode %T: %w", in, err)
	}
	return in, nil
}
