// Package eventstore provides event sourcing primitives for generation runs.
package eventstore

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"
)

// Run statuses derived from events.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// StageSummary is one completed stage inside a RunSummary.
type StageSummary struct {
	Stage      string `json:"stage"`
	Points     int    `json:"points"`
	DurationMS int64  `json:"duration_ms"`
}

// RunSummary is a read model of a finished or in-progress run.
type RunSummary struct {
	RunID        string            `json:"run_id"`
	Recipe       string            `json:"recipe"`
	Kind         string            `json:"kind"`
	Seed         uint64            `json:"seed"`
	Trigger      string            `json:"trigger,omitempty"`
	JobID        string            `json:"job_id,omitempty"`
	Status       string            `json:"status"`
	StartedAt    time.Time         `json:"started_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	Duration     time.Duration     `json:"duration,omitempty"`
	Stages       []StageSummary    `json:"stages,omitempty"`
	Points       int               `json:"points"`
	Anomalies    int               `json:"anomalies"`
	Artifacts    map[string]string `json:"artifacts,omitempty"`
	Published    []string          `json:"published,omitempty"`
	ErrorStage   string            `json:"error_stage,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

func (s *RunSummary) clone() *RunSummary {
	cp := *s
	cp.Stages = slices.Clone(s.Stages)
	cp.Published = slices.Clone(s.Published)
	if s.Artifacts != nil {
		cp.Artifacts = make(map[string]string, len(s.Artifacts))
		for k, v := range s.Artifacts {
			cp.Artifacts[k] = v
		}
	}
	return &cp
}

// RunProjection maintains an in-memory view of run history,
// reconstructed from events stored in the event store.
type RunProjection struct {
	mu       sync.RWMutex
	store    Store
	runs     map[string]*RunSummary
	history  []*RunSummary // finished runs, newest first
	maxSize  int
	lastSync time.Time
}

// NewRunProjection creates a new projection backed by the given store.
func NewRunProjection(store Store, maxHistorySize int) *RunProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 100
	}
	return &RunProjection{
		store:   store,
		runs:    make(map[string]*RunSummary),
		history: make([]*RunSummary, 0, maxHistorySize),
		maxSize: maxHistorySize,
	}
}

// Rebuild reconstructs the projection from all events in the store.
func (p *RunProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.runs = make(map[string]*RunSummary)
	p.history = make([]*RunSummary, 0, p.maxSize)
	for _, event := range events {
		p.applyEventLocked(event)
	}

	slices.SortStableFunc(p.history, func(a, b *RunSummary) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	p.pruneRunsLocked()

	p.lastSync = time.Now()
	return nil
}

// Apply processes a single event as it is emitted.
func (p *RunProjection) Apply(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyEventLocked(event)
}

func (p *RunProjection) applyEventLocked(event Event) {
	runID := event.RunID()
	if runID == "" {
		return
	}
	summary, ok := p.runs[runID]
	if !ok {
		summary = &RunSummary{RunID: runID, Status: RunStatusRunning, StartedAt: event.Timestamp()}
		p.runs[runID] = summary
	}
	if applyEvent(summary, event) {
		p.addToHistoryLocked(summary)
	}
}

// applyEvent folds one event into summary. It reports whether the run
// reached a terminal state.
func applyEvent(summary *RunSummary, event Event) bool {
	switch event.Type() {
	case TypeRunStarted:
		summary.StartedAt = event.Timestamp()
		summary.Status = RunStatusRunning
		var meta RunStartedMeta
		if err := json.Unmarshal(event.Payload(), &meta); err == nil {
			summary.Recipe = meta.Recipe
			summary.Kind = meta.Kind
			summary.Seed = meta.Seed
			summary.Trigger = meta.Trigger
			summary.JobID = meta.JobID
		}

	case TypeStageCompleted:
		var stage StageSummary
		if err := json.Unmarshal(event.Payload(), &stage); err == nil {
			summary.Stages = append(summary.Stages, stage)
		}

	case TypeArtifactStored:
		var payload struct {
			Hash       string `json:"hash"`
			ObjectType string `json:"object_type"`
		}
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			if summary.Artifacts == nil {
				summary.Artifacts = make(map[string]string)
			}
			summary.Artifacts[payload.ObjectType] = payload.Hash
		}

	case TypeArtifactPublished:
		var payload struct {
			Hash string `json:"hash"`
		}
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.Published = append(summary.Published, payload.Hash)
		}

	case TypeRunCompleted:
		finish(summary, event.Timestamp(), RunStatusCompleted)
		var meta RunCompletedMeta
		if err := json.Unmarshal(event.Payload(), &meta); err == nil {
			summary.Points = meta.Points
			summary.Anomalies = meta.Anomalies
			for k, v := range meta.Artifacts {
				if summary.Artifacts == nil {
					summary.Artifacts = make(map[string]string)
				}
				summary.Artifacts[k] = v
			}
		}
		return true

	case TypeRunFailed:
		finish(summary, event.Timestamp(), RunStatusFailed)
		var payload struct {
			Stage string `json:"stage"`
			Error string `json:"error"`
		}
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.ErrorStage = payload.Stage
			summary.ErrorMessage = payload.Error
		}
		return true
	}
	return false
}

func finish(summary *RunSummary, at time.Time, status string) {
	summary.CompletedAt = &at
	summary.Duration = at.Sub(summary.StartedAt)
	summary.Status = status
}

func (p *RunProjection) addToHistoryLocked(summary *RunSummary) {
	for _, h := range p.history {
		if h.RunID == summary.RunID {
			return
		}
	}
	p.history = append([]*RunSummary{summary}, p.history...)
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	p.pruneRunsLocked()
}

// pruneRunsLocked drops finished runs that fell out of the bounded history.
func (p *RunProjection) pruneRunsLocked() {
	keep := make(map[string]struct{}, len(p.history))
	for _, h := range p.history {
		keep[h.RunID] = struct{}{}
	}
	for id, summary := range p.runs {
		if summary.Status == RunStatusRunning {
			continue
		}
		if _, ok := keep[id]; !ok {
			delete(p.runs, id)
		}
	}
}

// History returns finished runs, newest first.
func (p *RunProjection) History() []*RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*RunSummary, len(p.history))
	for i, h := range p.history {
		out[i] = h.clone()
	}
	return out
}

// Get returns the summary for a run.
func (p *RunProjection) Get(runID string) (*RunSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	summary, ok := p.runs[runID]
	if !ok {
		return nil, false
	}
	return summary.clone(), true
}

// Active returns runs that have not finished yet.
func (p *RunProjection) Active() []*RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []*RunSummary
	for _, s := range p.runs {
		if s.Status == RunStatusRunning {
			out = append(out, s.clone())
		}
	}
	return out
}

// LastSyncTime returns when the projection was last rebuilt.
func (p *RunProjection) LastSyncTime() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSync
}

// ProjectRun reads a single run straight from the store.
func ProjectRun(ctx context.Context, store Store, runID string) (*RunSummary, error) {
	events, err := store.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrRunNotFound.WithContext("run_id", runID)
	}
	summary := &RunSummary{RunID: runID, Status: RunStatusRunning, StartedAt: events[0].Timestamp()}
	for _, e := range events {
		applyEvent(summary, e)
	}
	return summary, nil
}
