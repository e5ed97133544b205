package mediator

import (
	"context"
	"net/http"
	"net/url"

	"face-pipeline/internal/models"
)

func facePath(serviceID, resource, id string) string {
	return "/face-recognition/" + url.PathEscape(serviceID) + "/" + resource + "/" + url.PathEscape(id)
}

func (c *Client) GetFaceExtraction(ctx context.Context, serviceID, extractionID string) (*models.FaceExtraction, error) {
	var out models.FaceExtraction
	if err := c.do(ctx, http.MethodGet, facePath(serviceID, "face-extractions", extractionID), true, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetFace(ctx context.Context, serviceID, faceID string) (*models.Face, error) {
	var out models.Face
	if err := c.do(ctx, http.MethodGet, facePath(serviceID, "faces", faceID), true, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetClusterCollection(ctx context.Context, serviceID, collectionID string) (*models.ClusterCollection, error) {
	var out models.ClusterCollection
	if err := c.do(ctx, http.MethodGet, facePath(serviceID, "cluster-collections", collectionID), true, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
