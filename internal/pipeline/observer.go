package pipeline

import (
	"context"

	"face-pipeline/internal/models"
)

// Observer is told about every transition of a run. Observers must not block
// the run for long and handle their own failures.
type Observer interface {
	Observe(ctx context.Context, ev models.Event)
}

// Observers fans an event out to each observer in order.
type Observers []Observer

func (o Observers) Observe(ctx context.Context, ev models.Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(ctx, ev)
		}
	}
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev models.Event)

func (f ObserverFunc) Observe(ctx context.Context, ev models.Event) {
	f(ctx, ev)
}
