package daemon

import (
	"context"
	"time"

	"git.home.luguber.info/inful/synthdata/internal/eventstore"
)

// EventEmitter persists run lifecycle events and keeps the projection
// current.
type EventEmitter struct {
	store      eventstore.Store
	projection *eventstore.RunProjection
}

// NewEventEmitter creates a new EventEmitter with the given store and projection.
func NewEventEmitter(store eventstore.Store, projection *eventstore.RunProjection) *EventEmitter {
	return &EventEmitter{store: store, projection: projection}
}

// EmitEvent persists an event to the event store and updates the projection.
func (e *EventEmitter) EmitEvent(ctx context.Context, event eventstore.Event) error {
	if e.store == nil {
		return nil
	}
	if err := eventstore.Record(ctx, e.store, event); err != nil {
		return err
	}
	if e.projection != nil {
		e.projection.Apply(event)
	}
	return nil
}

// EmitRunStarted implements jobs.EventEmitter.
func (e *EventEmitter) EmitRunStarted(ctx context.Context, runID string, meta eventstore.RunStartedMeta) error {
	event, err := eventstore.NewRunStarted(runID, meta)
	if err != nil {
		return err
	}
	return e.EmitEvent(ctx, event)
}

// EmitRunCompleted implements jobs.EventEmitter.
func (e *EventEmitter) EmitRunCompleted(ctx context.Context, runID string, duration time.Duration, points, anomalies int, artifacts map[string]string) error {
	event, err := eventstore.NewRunCompleted(runID, duration, points, anomalies, artifacts)
	if err != nil {
		return err
	}
	return e.EmitEvent(ctx, event)
}

// EmitRunFailed implements jobs.EventEmitter.
func (e *EventEmitter) EmitRunFailed(ctx context.Context, runID, stage, errorMsg string) error {
	event, err := eventstore.NewRunFailed(runID, stage, errorMsg)
	if err != nil {
		return err
	}
	return e.EmitEvent(ctx, event)
}

// EmitStageCompleted records one finished generation stage.
func (e *EventEmitter) EmitStageCompleted(ctx context.Context, runID, stage string, points int, d time.Duration) error {
	event, err := eventstore.NewStageCompleted(runID, stage, points, d)
	if err != nil {
		return err
	}
	return e.EmitEvent(ctx, event)
}

// EmitArtifactStored records a stored object.
func (e *EventEmitter) EmitArtifactStored(ctx context.Context, runID, hash, objectType, contentType string, size int64) error {
	event, err := eventstore.NewArtifactStored(runID, hash, objectType, contentType, size)
	if err != nil {
		return err
	}
	return e.EmitEvent(ctx, event)
}

// EmitArtifactPublished records a delivered notice.
func (e *EventEmitter) EmitArtifactPublished(ctx context.Context, runID, hash, subject string) error {
	event, err := eventstore.NewArtifactPublished(runID, hash, subject)
	if err != nil {
		return err
	}
	return e.EmitEvent(ctx, event)
}
