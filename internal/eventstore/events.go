package eventstore

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
)

// Event type names.
const (
	TypeRunStarted        = "RunStarted"
	TypeStageCompleted    = "StageCompleted"
	TypeArtifactStored    = "ArtifactStored"
	TypeArtifactPublished = "ArtifactPublished"
	TypeRunCompleted      = "RunCompleted"
	TypeRunFailed         = "RunFailed"
)

// RunStartedMeta describes what a run is about to generate.
type RunStartedMeta struct {
	Recipe  string `json:"recipe"`
	Kind    string `json:"kind"`
	Seed    uint64 `json:"seed"`
	Trigger string `json:"trigger,omitempty"` // manual, scheduled, api
	JobID   string `json:"job_id,omitempty"`
}

// RunStarted is emitted when a run begins.
type RunStarted struct {
	BaseEvent
	Meta RunStartedMeta `json:"meta"`
}

// NewRunStarted creates a RunStarted event.
func NewRunStarted(runID string, meta RunStartedMeta) (*RunStarted, error) {
	base, err := newBase(runID, TypeRunStarted, meta)
	if err != nil {
		return nil, err
	}
	return &RunStarted{BaseEvent: base, Meta: meta}, nil
}

// StageCompleted is emitted after each generation stage.
type StageCompleted struct {
	BaseEvent
	Stage    string        `json:"stage"`
	Points   int           `json:"points"`
	Duration time.Duration `json:"duration_ms"`
}

// NewStageCompleted creates a StageCompleted event.
func NewStageCompleted(runID, stage string, points int, duration time.Duration) (*StageCompleted, error) {
	base, err := newBase(runID, TypeStageCompleted, map[string]any{
		"stage":       stage,
		"points":      points,
		"duration_ms": duration.Milliseconds(),
	})
	if err != nil {
		return nil, err
	}
	return &StageCompleted{BaseEvent: base, Stage: stage, Points: points, Duration: duration}, nil
}

// ArtifactStored is emitted when an output lands in the object store.
type ArtifactStored struct {
	BaseEvent
	Hash        string `json:"hash"`
	ObjectType  string `json:"object_type"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// NewArtifactStored creates an ArtifactStored event.
func NewArtifactStored(runID, hash, objectType, contentType string, size int64) (*ArtifactStored, error) {
	base, err := newBase(runID, TypeArtifactStored, map[string]any{
		"hash":         hash,
		"object_type":  objectType,
		"content_type": contentType,
		"size":         size,
	})
	if err != nil {
		return nil, err
	}
	return &ArtifactStored{
		BaseEvent:   base,
		Hash:        hash,
		ObjectType:  objectType,
		ContentType: contentType,
		Size:        size,
	}, nil
}

// ArtifactPublished is emitted after a notice went out on the message bus.
type ArtifactPublished struct {
	BaseEvent
	Hash    string `json:"hash"`
	Subject string `json:"subject"`
}

// NewArtifactPublished creates an ArtifactPublished event.
func NewArtifactPublished(runID, hash, subject string) (*ArtifactPublished, error) {
	base, err := newBase(runID, TypeArtifactPublished, map[string]any{
		"hash":    hash,
		"subject": subject,
	})
	if err != nil {
		return nil, err
	}
	return &ArtifactPublished{BaseEvent: base, Hash: hash, Subject: subject}, nil
}

// RunCompletedMeta is the payload of RunCompleted.
type RunCompletedMeta struct {
	Points    int               `json:"points"`
	Anomalies int               `json:"anomalies"`
	Duration  int64             `json:"duration_ms"`
	Artifacts map[string]string `json:"artifacts,omitempty"` // object type -> hash
}

// RunCompleted is emitted when a run finishes successfully.
type RunCompleted struct {
	BaseEvent
	Meta RunCompletedMeta `json:"meta"`
}

// NewRunCompleted creates a RunCompleted event.
func NewRunCompleted(runID string, duration time.Duration, points, anomalies int, artifacts map[string]string) (*RunCompleted, error) {
	meta := RunCompletedMeta{
		Points:    points,
		Anomalies: anomalies,
		Duration:  duration.Milliseconds(),
		Artifacts: artifacts,
	}
	base, err := newBase(runID, TypeRunCompleted, meta)
	if err != nil {
		return nil, err
	}
	return &RunCompleted{BaseEvent: base, Meta: meta}, nil
}

// RunFailed is emitted when a run fails.
type RunFailed struct {
	BaseEvent
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// NewRunFailed creates a RunFailed event.
func NewRunFailed(runID, stage, errMsg string) (*RunFailed, error) {
	base, err := newBase(runID, TypeRunFailed, map[string]any{
		"stage": stage,
		"error": errMsg,
	})
	if err != nil {
		return nil, err
	}
	return &RunFailed{BaseEvent: base, Stage: stage, Error: errMsg}, nil
}

func newBase(runID, eventType string, payload any) (BaseEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return BaseEvent{}, errors.EventStoreError("failed to marshal "+eventType+" payload").
			WithCause(err).
			WithContext("run_id", runID).
			Build()
	}
	return BaseEvent{
		EventRunID:     runID,
		EventType:      eventType,
		EventTimestamp: time.Now(),
		EventPayload:   data,
	}, nil
}
