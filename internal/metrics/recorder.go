package metrics

import "time"

// OutcomeLabel enumerates run outcomes for counters.
type OutcomeLabel string

const (
	OutcomeSuccess  OutcomeLabel = "success"
	OutcomeFailed   OutcomeLabel = "failed"
	OutcomeCanceled OutcomeLabel = "canceled"
)

// Recorder defines observability hooks for generation runs. Implementations
// must be safe for concurrent use.
type Recorder interface {
	ObserveStageDuration(kind, stage string, d time.Duration)
	ObserveRunDuration(kind string, d time.Duration)
	IncRunOutcome(kind string, outcome OutcomeLabel)
	AddPoints(kind string, n int)
	AddAnomalies(kind string, n int)
	IncArtifactStored(objectType string)
	IncPublish(success bool)
	SetQueueDepth(n int)
	IncRetry(kind string)
	IncRetryExhausted(kind string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(string, time.Duration)           {}
func (NoopRecorder) IncRunOutcome(string, OutcomeLabel)                 {}
func (NoopRecorder) AddPoints(string, int)                              {}
func (NoopRecorder) AddAnomalies(string, int)                           {}
func (NoopRecorder) IncArtifactStored(string)                           {}
func (NoopRecorder) IncPublish(bool)                                    {}
func (NoopRecorder) SetQueueDepth(int)                                  {}
func (NoopRecorder) IncRetry(string)                                    {}
func (NoopRecorder) IncRetryExhausted(string)                           {}
