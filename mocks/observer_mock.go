package mocks

import (
	"context"

	"face-pipeline/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockObserver struct {
	mock.Mock
}

func (m *MockObserver) Observe(ctx context.Context, ev models.Event) {
	m.Called(ctx, ev)
}

// Kinds returns the kinds of all observed events in order.
func (m *MockObserver) Kinds() []models.EventKind {
	var kinds []models.EventKind
	for _, call := range m.Calls {
		if call.Method == "Observe" {
			kinds = append(kinds, call.Arguments.Get(1).(models.Event).Kind)
		}
	}
	return kinds
}
