package mocks

import (
	"context"

	"face-pipeline/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockRunReader struct {
	mock.Mock
}

func (m *MockRunReader) GetRun(ctx context.Context, runID uuid.UUID) (*models.Run, error) {
	args := m.Called(ctx, runID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Run), args.Error(1)
}

type MockEventReader struct {
	mock.Mock
}

func (m *MockEventReader) Events(ctx context.Context, runID uuid.UUID) ([]models.Event, error) {
	args := m.Called(ctx, runID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.Event), args.Error(1)
}
