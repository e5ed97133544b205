package models

// FaceExtraction describes the faces found by an ExtractFaces job.
type FaceExtraction struct {
	ID      string   `json:"id"`
	Status  string   `json:"status,omitempty"`
	FaceIDs []string `json:"faceIds"`
}

// Face is a single detected face.
type Face struct {
	ID               string       `json:"id"`
	FaceExtractionID string       `json:"faceExtractionId,omitempty"`
	Confidence       float64      `json:"confidence,omitempty"`
	Timestamp        float64      `json:"timestamp,omitempty"`
	BoundingBox      *BoundingBox `json:"boundingBox,omitempty"`
}

type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ClusterCollection is the result of a ClusterFaces job.
type ClusterCollection struct {
	ID               string    `json:"id"`
	FaceExtractionID string    `json:"faceExtractionId,omitempty"`
	Clusters         []Cluster `json:"clusters"`
}

type Cluster struct {
	ID      string   `json:"id"`
	FaceIDs []string `json:"faceIds"`
}
