// Package submission assembles job submissions for each pipeline stage.
package submission

import "face-pipeline/internal/models"

const (
	// SearchSimilarityThreshold is the minimum similarity for a search match.
	SearchSimilarityThreshold = 0.8
	// SearchQuantity is the flat billing weight of a search job.
	SearchQuantity = 10
)

// Builder holds the static values shared by every submission of a run.
// MediaDuration is the duration in seconds of the source media; it is the
// billing weight of both extraction and clustering.
type Builder struct {
	ProjectServiceID string
	MediaDuration    float64
}

func NewBuilder(projectServiceID string, mediaDuration float64) Builder {
	return Builder{ProjectServiceID: projectServiceID, MediaDuration: mediaDuration}
}

// Extract builds the ExtractFaces submission. effort is only attached when set.
func (b Builder) Extract(video models.Locator, effort *models.Effort) models.JobSubmission {
	return b.submission(b.MediaDuration, models.NewExtractFacesInput(video, effort))
}

// Cluster builds the ClusterFaces submission for a finished extraction.
func (b Builder) Cluster(faceExtractionID string) models.JobSubmission {
	return b.submission(b.MediaDuration, models.NewClusterFacesInput(faceExtractionID))
}

// Search builds the SearchFaces submission for a probe image.
func (b Builder) Search(clusterCollectionID string, image models.Locator) models.JobSubmission {
	in := models.NewSearchFacesInput(image, SearchSimilarityThreshold, clusterCollectionID)
	return b.submission(SearchQuantity, in)
}

func (b Builder) submission(quantity float64, in models.JobInput) models.JobSubmission {
	return models.JobSubmission{
		ProjectServiceID: b.ProjectServiceID,
		Quantity:         quantity,
		Job:              models.NewJob(in),
	}
}
