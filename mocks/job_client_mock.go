package mocks

import (
	"context"

	"face-pipeline/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockJobClient struct {
	mock.Mock
}

func (m *MockJobClient) SubmitJob(ctx context.Context, sub models.JobSubmission) (models.RemoteJob, error) {
	args := m.Called(ctx, sub)
	return args.Get(0).(models.RemoteJob), args.Error(1)
}

func (m *MockJobClient) GetJob(ctx context.Context, jobID string) (models.RemoteJob, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).(models.RemoteJob), args.Error(1)
}

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
