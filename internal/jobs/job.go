// Package jobs runs generation recipes on a bounded worker pool.
package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/synthdata/internal/recipe"
)

// Trigger records what caused a job.
type Trigger string

const (
	TriggerManual    Trigger = "manual"    // CLI or operator
	TriggerScheduled Trigger = "scheduled" // gocron schedule
	TriggerAPI       Trigger = "api"       // HTTP request
)

// Priority of a job. Informational only; the queue is FIFO.
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityNormal Priority = 2
	PriorityHigh   Priority = 3
)

// Status represents the current status of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Summary is what a Runner reports about a finished job.
type Summary struct {
	Points    int               `json:"points"`
	Anomalies int               `json:"anomalies"`
	Seed      uint64            `json:"seed"`
	Artifacts map[string]string `json:"artifacts,omitempty"` // object type -> hash
	Stages    int               `json:"stages"`
}

// Job is a single recipe execution request. Its ID doubles as the run ID
// in the event store.
type Job struct {
	ID          string        `json:"id"`
	Recipe      recipe.Recipe `json:"recipe"`
	Trigger     Trigger       `json:"trigger"`
	Priority    Priority      `json:"priority"`
	Status      Status        `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Attempts    int           `json:"attempts"`
	Error       string        `json:"error,omitempty"`
	Result      *Summary      `json:"result,omitempty"`

	cancel context.CancelFunc
}

// NewJob creates a queued job with a fresh ID.
func NewJob(r recipe.Recipe, trigger Trigger) *Job {
	return &Job{
		ID:        uuid.NewString(),
		Recipe:    r,
		Trigger:   trigger,
		Priority:  PriorityNormal,
		Status:    StatusQueued,
		CreatedAt: time.Now(),
	}
}

func (j *Job) snapshot() *Job {
	cp := *j
	cp.cancel = nil
	if j.Result != nil {
		r := *j.Result
		cp.Result = &r
	}
	return &cp
}
