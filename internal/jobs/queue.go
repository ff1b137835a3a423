package jobs

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/synthdata/internal/eventstore"
	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
	"git.home.luguber.info/inful/synthdata/internal/logfields"
	"git.home.luguber.info/inful/synthdata/internal/metrics"
	"git.home.luguber.info/inful/synthdata/internal/observability"
	"git.home.luguber.info/inful/synthdata/internal/recipe"
	"git.home.luguber.info/inful/synthdata/internal/retry"
)

// DefaultHistorySize bounds the number of finished jobs kept in memory.
const DefaultHistorySize = 50

var (
	// ErrNilJob is returned by Enqueue for a nil job.
	ErrNilJob = errors.ValidationError("job cannot be nil").Build()
	// ErrMissingID is returned by Enqueue for a job without ID.
	ErrMissingID = errors.ValidationError("job ID is required").Build()
	// ErrQueueFull is returned when the buffer is at capacity.
	ErrQueueFull = errors.DaemonError("job queue is full").Retryable().Build()
	// ErrQueueStopped is returned after Stop.
	ErrQueueStopped = errors.DaemonError("job queue is stopped").Build()
)

// Runner executes a job.
type Runner interface {
	Run(ctx context.Context, job *Job) (*Summary, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, job *Job) (*Summary, error)

func (f RunnerFunc) Run(ctx context.Context, job *Job) (*Summary, error) { return f(ctx, job) }

// EventEmitter abstracts event emission for run lifecycle events.
type EventEmitter interface {
	EmitRunStarted(ctx context.Context, runID string, meta eventstore.RunStartedMeta) error
	EmitRunCompleted(ctx context.Context, runID string, duration time.Duration, points, anomalies int, artifacts map[string]string) error
	EmitRunFailed(ctx context.Context, runID, stage, errorMsg string) error
}

// Queue manages the queue of generation jobs.
type Queue struct {
	jobs        chan *Job
	workers     int
	maxSize     int
	mu          sync.RWMutex
	active      map[string]*Job
	history     []*Job
	historySize int
	stopOnce    sync.Once
	stopChan    chan struct{}
	wg          sync.WaitGroup
	runner      Runner

	retryPolicy retry.Policy
	recorder    metrics.Recorder

	eventEmitter EventEmitter
}

// New creates a queue holding up to maxSize pending jobs served by workers.
func New(maxSize, workers int, runner Runner) *Queue {
	if maxSize <= 0 {
		maxSize = 100
	}
	if workers <= 0 {
		workers = 2
	}
	if runner == nil {
		panic("jobs.New: runner is required")
	}

	return &Queue{
		jobs:        make(chan *Job, maxSize),
		workers:     workers,
		maxSize:     maxSize,
		active:      make(map[string]*Job),
		history:     make([]*Job, 0),
		historySize: DefaultHistorySize,
		stopChan:    make(chan struct{}),
		runner:      runner,
		retryPolicy: retry.DefaultPolicy(),
		recorder:    metrics.NoopRecorder{},
	}
}

// SetRetryPolicy replaces the retry policy for jobs that start afterwards.
func (q *Queue) SetRetryPolicy(p retry.Policy) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.retryPolicy = p
}

// RetryPolicy returns the policy the next job will use.
func (q *Queue) RetryPolicy() retry.Policy {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.retryPolicy
}

// SetRecorder injects a metrics recorder.
func (q *Queue) SetRecorder(r metrics.Recorder) {
	if r == nil {
		r = metrics.NoopRecorder{}
	}
	q.recorder = r
}

// SetEventEmitter injects a run event emitter.
func (q *Queue) SetEventEmitter(emitter EventEmitter) {
	q.eventEmitter = emitter
}

// Start begins processing jobs with the configured number of workers.
func (q *Queue) Start(ctx context.Context) {
	slog.Info("Starting job queue", "workers", q.workers, "max_size", q.maxSize)
	for i := range q.workers {
		q.wg.Add(1)
		go q.worker(ctx, fmt.Sprintf("worker-%d", i))
	}
}

// Stop cancels running jobs and waits for the workers. Pending jobs are
// dropped.
func (q *Queue) Stop(_ context.Context) {
	q.stopOnce.Do(func() {
		close(q.stopChan)

		q.mu.Lock()
		for _, job := range q.active {
			if job.cancel != nil {
				job.cancel()
			}
		}
		q.mu.Unlock()

		q.wg.Wait()
	})
}

// Length returns the number of queued, not yet running jobs.
func (q *Queue) Length() int {
	return len(q.jobs)
}

// ActiveJobs returns snapshots of the running jobs.
func (q *Queue) ActiveJobs() []*Job {
	q.mu.RLock()
	defer q.mu.RUnlock()

	active := make([]*Job, 0, len(q.active))
	for _, job := range q.active {
		active = append(active, job.snapshot())
	}
	return active
}

// History returns snapshots of finished jobs, oldest first.
func (q *Queue) History() []*Job {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]*Job, len(q.history))
	for i, job := range q.history {
		out[i] = job.snapshot()
	}
	return out
}

// Enqueue adds a job to the queue.
func (q *Queue) Enqueue(job *Job) error {
	if job == nil {
		return ErrNilJob
	}
	if job.ID == "" {
		return ErrMissingID
	}
	select {
	case <-q.stopChan:
		return ErrQueueStopped
	default:
	}

	q.mu.Lock()
	job.Status = StatusQueued
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	q.mu.Unlock()

	select {
	case q.jobs <- job:
		q.recorder.SetQueueDepth(len(q.jobs))
		slog.Debug("Job enqueued", logfields.JobID(job.ID), logfields.Recipe(job.Recipe.Name))
		return nil
	default:
		return ErrQueueFull.WithContext("max_size", q.maxSize)
	}
}

// JobSnapshot returns a copy of a job (active first, then history).
func (q *Queue) JobSnapshot(id string) (*Job, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if j, ok := q.active[id]; ok {
		return j.snapshot(), true
	}
	for _, j := range q.history {
		if j.ID == id {
			return j.snapshot(), true
		}
	}
	return nil, false
}

func (q *Queue) worker(ctx context.Context, workerID string) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stopChan:
			return
		case job := <-q.jobs:
			if job != nil {
				q.recorder.SetQueueDepth(len(q.jobs))
				q.processJob(ctx, job, workerID)
			}
		}
	}
}

func (q *Queue) processJob(ctx context.Context, job *Job, workerID string) {
	ctx = observability.WithRunID(ctx, job.ID)
	ctx = observability.WithRecipe(ctx, job.Recipe.Name)
	ctx = observability.WithTrigger(ctx, string(job.Trigger))
	ctx = observability.WithWorker(ctx, workerID)
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	startTime := time.Now()
	q.mu.Lock()
	job.cancel = cancel
	job.StartedAt = &startTime
	job.Status = StatusRunning
	q.active[job.ID] = job
	q.mu.Unlock()

	logger := observability.Logger(jobCtx)
	logger.Info("Job started")
	q.emitRunStarted(jobCtx, job)

	summary, err := q.execute(jobCtx, job, logger)

	q.markJobCompleted(job, summary, err)
	q.record(job)
	q.emitCompletion(ctx, job, err)

	if err != nil {
		logger.Error("Job failed", logfields.JobStatus(string(job.Status)), logfields.Error(err))
		return
	}
	logger.Info("Job completed",
		logfields.Points(summary.Points),
		logfields.Anomalies(summary.Anomalies),
		logfields.DurationMS(float64(job.Duration.Microseconds())/1000))
}

// execute runs the job and retries transient failures per the retry policy.
func (q *Queue) execute(ctx context.Context, job *Job, logger *slog.Logger) (*Summary, error) {
	policy := q.RetryPolicy()
	if policy.Initial <= 0 {
		policy = retry.DefaultPolicy()
	}
	kind := string(job.Recipe.Kind)

	var summary *Summary
	out, err := policy.Do(ctx, func(ctx context.Context) error {
		q.mu.Lock()
		job.Attempts++
		q.mu.Unlock()

		var err error
		summary, err = q.runner.Run(ctx, job)
		return err
	}, func(n int, delay time.Duration, err error) {
		q.recorder.IncRetry(kind)
		logger.Warn("Transient job error, retrying",
			"retry", n,
			"max_retries", policy.MaxRetries,
			"delay", delay,
			logfields.Error(err),
		)
	})
	if out.Exhausted {
		q.recorder.IncRetryExhausted(kind)
	}
	if err != nil {
		return nil, err
	}
	if summary == nil {
		summary = &Summary{}
	}
	return summary, nil
}

func (q *Queue) markJobCompleted(job *Job, summary *Summary, err error) {
	endTime := time.Now()
	q.mu.Lock()
	defer q.mu.Unlock()

	job.CompletedAt = &endTime
	if job.StartedAt != nil {
		job.Duration = endTime.Sub(*job.StartedAt)
	}
	job.cancel = nil
	switch {
	case err == nil:
		job.Status = StatusCompleted
		job.Result = summary
	case stdContextErr(err):
		job.Status = StatusCanceled
		job.Error = err.Error()
	default:
		job.Status = StatusFailed
		job.Error = err.Error()
	}
	delete(q.active, job.ID)
	q.addToHistory(job)
}

func (q *Queue) record(job *Job) {
	kind := string(job.Recipe.Kind)
	q.recorder.ObserveRunDuration(kind, job.Duration)
	switch job.Status {
	case StatusCompleted:
		q.recorder.IncRunOutcome(kind, metrics.OutcomeSuccess)
	case StatusCanceled:
		q.recorder.IncRunOutcome(kind, metrics.OutcomeCanceled)
	default:
		q.recorder.IncRunOutcome(kind, metrics.OutcomeFailed)
	}
}

func (q *Queue) emitRunStarted(ctx context.Context, job *Job) {
	if q.eventEmitter == nil {
		return
	}
	meta := eventstore.RunStartedMeta{
		Recipe:  job.Recipe.Name,
		Kind:    string(job.Recipe.Kind),
		Seed:    job.Recipe.Seed,
		Trigger: string(job.Trigger),
		JobID:   job.ID,
	}
	if err := q.eventEmitter.EmitRunStarted(ctx, job.ID, meta); err != nil {
		slog.Warn("Failed to emit RunStarted event", logfields.JobID(job.ID), logfields.Error(err))
	}
}

func (q *Queue) emitCompletion(ctx context.Context, job *Job, err error) {
	if q.eventEmitter == nil {
		return
	}
	// The job context may be canceled; completion events still belong in the log.
	ctx = context.WithoutCancel(ctx)

	if err != nil {
		stage := recipe.StageOf(err)
		if stage == "" {
			stage = "run"
		}
		if emitErr := q.eventEmitter.EmitRunFailed(ctx, job.ID, stage, errors.MessageOf(err)); emitErr != nil {
			slog.Warn("Failed to emit RunFailed event", logfields.JobID(job.ID), logfields.Error(emitErr))
		}
		return
	}

	s := job.Result
	if emitErr := q.eventEmitter.EmitRunCompleted(ctx, job.ID, job.Duration, s.Points, s.Anomalies, s.Artifacts); emitErr != nil {
		slog.Warn("Failed to emit RunCompleted event", logfields.JobID(job.ID), logfields.Error(emitErr))
	}
}

func (q *Queue) addToHistory(job *Job) {
	q.history = append(q.history, job)
	if len(q.history) > q.historySize {
		copy(q.history, q.history[len(q.history)-q.historySize:])
		q.history = q.history[:q.historySize]
	}
}

func stdContextErr(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}
