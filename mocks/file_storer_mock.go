package mocks

import (
	"context"
	"io"
	"time"

	"face-pipeline/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockFileStorer struct {
	mock.Mock
}

func (m *MockFileStorer) Upload(ctx context.Context, file io.Reader, bucket, key, contentType string) (string, error) {
	args := m.Called(ctx, file, bucket, key, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockFileStorer) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, bucket, key, ttl)
	return args.String(0), args.Error(1)
}

type MockAssetStager struct {
	mock.Mock
}

func (m *MockAssetStager) Stage(ctx context.Context, asset models.Asset) (models.Locator, error) {
	args := m.Called(ctx, asset)
	return args.Get(0).(models.Locator), args.Error(1)
}
