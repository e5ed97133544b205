package mocks

import (
	"context"

	"face-pipeline/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockFaceQuery struct {
	mock.Mock
}

func (m *MockFaceQuery) GetFaceExtraction(ctx context.Context, serviceID, extractionID string) (*models.FaceExtraction, error) {
	args := m.Called(ctx, serviceID, extractionID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FaceExtraction), args.Error(1)
}

func (m *MockFaceQuery) GetFace(ctx context.Context, serviceID, faceID string) (*models.Face, error) {
	args := m.Called(ctx, serviceID, faceID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Face), args.Error(1)
}

func (m *MockFaceQuery) GetClusterCollection(ctx context.Context, serviceID, collectionID string) (*models.ClusterCollection, error) {
	args := m.Called(ctx, serviceID, collectionID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ClusterCollection), args.Error(1)
}
