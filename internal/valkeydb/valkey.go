// Package valkeydb publishes run events to Valkey so other processes can
// follow a run while it is in progress.
package valkeydb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"face-pipeline/internal/models"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
)

// DefaultEventTTL is how long a run's event list outlives its last event.
const DefaultEventTTL = 24 * time.Hour

type ValkeyClient struct {
	Client   valkey.Client
	EventTTL time.Duration
	logger   *slog.Logger
}

func New(ctx context.Context, address string, password string, logger *slog.Logger) (*ValkeyClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{address},
		Password:    password,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create Valkey client: %w", err)
	}

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("unable to ping Valkey: %w", err)
	}

	return &ValkeyClient{Client: client, EventTTL: DefaultEventTTL, logger: logger}, nil
}

func (v *ValkeyClient) Close() {
	v.Client.Close()
}

// EventsKey is the list holding the events of a run, newest first.
func EventsKey(runID uuid.UUID) string {
	return "pipeline:run:" + runID.String() + ":events"
}

// Observe publishes ev. Failures are logged and do not affect the run.
func (v *ValkeyClient) Observe(ctx context.Context, ev models.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := v.Publish(ctx, ev); err != nil {
		v.logger.Error("failed to publish run event", "run_id", ev.RunID, "kind", ev.Kind, "error", err)
	}
}

func (v *ValkeyClient) Publish(ctx context.Context, ev models.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("unable to encode event: %w", err)
	}

	key := EventsKey(ev.RunID)
	cmds := valkey.Commands{
		v.Client.B().Lpush().Key(key).Element(string(payload)).Build(),
		v.Client.B().Expire().Key(key).Seconds(int64(v.EventTTL / time.Second)).Build(),
	}

	for _, res := range v.Client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return fmt.Errorf("unable to publish event for run %s: %w", ev.RunID, err)
		}
	}
	return nil
}

// Events returns the events of a run in the order they happened.
func (v *ValkeyClient) Events(ctx context.Context, runID uuid.UUID) ([]models.Event, error) {
	cmd := v.Client.B().Lrange().Key(EventsKey(runID)).Start(0).Stop(-1).Build()

	raw, err := v.Client.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to read events of run %s: %w", runID, err)
	}

	events := make([]models.Event, len(raw))
	for i, s := range raw {
		if err := json.Unmarshal([]byte(s), &events[len(raw)-1-i]); err != nil {
			return nil, fmt.Errorf("failed to decode event of run %s: %w", runID, err)
		}
	}
	return events, nil
}
