package daemon

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/synthdata/internal/chart"
	"git.home.luguber.info/inful/synthdata/internal/config"
	"git.home.luguber.info/inful/synthdata/internal/export"
	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
	"git.home.luguber.info/inful/synthdata/internal/jobs"
	"git.home.luguber.info/inful/synthdata/internal/logfields"
	"git.home.luguber.info/inful/synthdata/internal/metrics"
	"git.home.luguber.info/inful/synthdata/internal/observability"
	"git.home.luguber.info/inful/synthdata/internal/publish"
	"git.home.luguber.info/inful/synthdata/internal/recipe"
	"git.home.luguber.info/inful/synthdata/internal/retry"
	"git.home.luguber.info/inful/synthdata/internal/stats"
	"git.home.luguber.info/inful/synthdata/internal/storage"
)

// RunnerConfig wires a Runner.
type RunnerConfig struct {
	Artifacts storage.ObjectStore
	Emitter   *EventEmitter
	Recorder  metrics.Recorder
	Publisher publish.Publisher

	// Retry and Output return the current settings; both change on reload.
	Retry  func() retry.Policy
	Output func() config.OutputConfig
}

// Runner executes a job's recipe, stores the encoded table, the plot and a
// manifest, and announces the table on the publisher.
type Runner struct {
	cfg RunnerConfig
}

// NewRunner fills unset collaborators with no-op versions.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.NoopRecorder{}
	}
	if cfg.Publisher == nil {
		cfg.Publisher = publish.NoopPublisher{}
	}
	if cfg.Emitter == nil {
		cfg.Emitter = NewEventEmitter(nil, nil)
	}
	if cfg.Retry == nil {
		cfg.Retry = retry.DefaultPolicy
	}
	if cfg.Output == nil {
		cfg.Output = func() config.OutputConfig { return config.OutputConfig{} }
	}
	if cfg.Artifacts == nil {
		cfg.Artifacts = storage.NewMemoryStore()
	}
	return &Runner{cfg: cfg}
}

// Manifest describes one run's outputs. It is stored next to them.
type Manifest struct {
	RunID     string               `json:"run_id"`
	Recipe    recipe.Recipe        `json:"recipe"`
	Seed      uint64               `json:"seed"`
	Format    export.Format        `json:"format"`
	Points    int                  `json:"points"`
	Anomalies int                  `json:"anomalies"`
	Summary   stats.Summary        `json:"summary"`
	Stages    []recipe.StageTiming `json:"stages"`
	Artifacts map[string]string    `json:"artifacts"`
	CreatedAt time.Time            `json:"created_at"`
}

// Run implements jobs.Runner.
func (r *Runner) Run(ctx context.Context, job *jobs.Job) (*jobs.Summary, error) {
	rec := job.Recipe
	logger := observability.Logger(ctx)

	res, err := recipe.Execute(ctx, rec, nil)
	if err != nil {
		return nil, err
	}
	kind := string(res.Recipe.Kind)

	for _, st := range res.Stages {
		r.cfg.Recorder.ObserveStageDuration(kind, st.Stage, st.Duration)
		if err := r.cfg.Emitter.EmitStageCompleted(ctx, job.ID, st.Stage, st.Points, st.Duration); err != nil {
			logger.Warn("Failed to emit StageCompleted event", logfields.Stage(st.Stage), logfields.Error(err))
		}
	}
	r.cfg.Recorder.AddPoints(kind, res.Points())
	r.cfg.Recorder.AddAnomalies(kind, res.Anomalies)

	out := r.cfg.Output()
	format := export.NormalizeFormat(firstNonEmpty(res.Recipe.Format, out.Format))
	table, err := res.Encode(format)
	if err != nil {
		return nil, err
	}

	artifacts := make(map[string]string)
	var hashes []string
	custom := map[string]string{"recipe": rec.Name, "run_id": job.ID}

	tableType := objectTypeFor(res.Recipe.Kind)
	tableHash, err := r.store(ctx, job.ID, tableType, export.ContentType(format), table, custom)
	if err != nil {
		return nil, err
	}
	artifacts[string(tableType)] = tableHash
	hashes = append(hashes, tableHash)

	if plotFormat := firstNonEmpty(res.Recipe.Plot, out.Plot); plotFormat != "" && res.Collection == nil {
		img, err := res.Plot(plotFormat)
		if err != nil {
			return nil, err
		}
		h, err := r.store(ctx, job.ID, storage.ObjectTypePlot, chart.ContentType(plotFormat), img, custom)
		if err != nil {
			return nil, err
		}
		artifacts[string(storage.ObjectTypePlot)] = h
		hashes = append(hashes, h)
	}

	manifest, err := json.Marshal(Manifest{
		RunID:     job.ID,
		Recipe:    res.Recipe,
		Seed:      res.Seed,
		Format:    format,
		Points:    res.Points(),
		Anomalies: res.Anomalies,
		Summary:   res.Summary,
		Stages:    res.Stages,
		Artifacts: artifacts,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "failed to encode manifest").Build()
	}
	mh, err := r.store(ctx, job.ID, storage.ObjectTypeManifest, "application/json", manifest, custom)
	if err != nil {
		return nil, err
	}
	artifacts[string(storage.ObjectTypeManifest)] = mh
	hashes = append(hashes, mh)

	if err := r.cfg.Artifacts.AddRunRef(ctx, job.ID, hashes); err != nil {
		return nil, err
	}

	r.publish(ctx, logger, publish.ArtifactNotice{
		RunID:       job.ID,
		Recipe:      rec.Name,
		Kind:        kind,
		Hash:        tableHash,
		ObjectType:  string(tableType),
		ContentType: export.ContentType(format),
		Size:        int64(len(table)),
		Points:      res.Points(),
		Anomalies:   res.Anomalies,
		Seed:        res.Seed,
	})

	return &jobs.Summary{
		Points:    res.Points(),
		Anomalies: res.Anomalies,
		Seed:      res.Seed,
		Artifacts: artifacts,
		Stages:    len(res.Stages),
	}, nil
}

func (r *Runner) store(ctx context.Context, runID string, t storage.ObjectType, contentType string, data []byte, custom map[string]string) (string, error) {
	hash, err := r.cfg.Artifacts.Put(ctx, &storage.Object{
		Type:        t,
		ContentType: contentType,
		Data:        data,
		Metadata:    storage.Metadata{Custom: custom},
	})
	if err != nil {
		return "", err
	}
	r.cfg.Recorder.IncArtifactStored(string(t))
	if err := r.cfg.Emitter.EmitArtifactStored(ctx, runID, hash, string(t), contentType, int64(len(data))); err != nil {
		observability.WarnContext(ctx, "Failed to emit ArtifactStored event", logfields.Error(err))
	}
	return hash, nil
}

// publish delivers n, retrying transient failures per the retry policy. A
// notice that cannot be delivered does not fail the run: the artifact is
// already stored.
func (r *Runner) publish(ctx context.Context, logger *slog.Logger, n publish.ArtifactNotice) {
	subject := r.cfg.Publisher.Subject()
	if subject == "" {
		return
	}
	_, err := r.cfg.Retry().Do(ctx, func(ctx context.Context) error {
		return r.cfg.Publisher.Publish(ctx, n)
	}, func(int, time.Duration, error) {
		r.cfg.Recorder.IncRetry("publish")
	})
	if err != nil {
		r.cfg.Recorder.IncPublish(false)
		logger.Warn("Failed to publish artifact notice", logfields.Artifact(n.Hash), logfields.Subject(subject), logfields.Error(err))
		return
	}
	r.cfg.Recorder.IncPublish(true)
	if err := r.cfg.Emitter.EmitArtifactPublished(ctx, n.RunID, n.Hash, subject); err != nil {
		logger.Warn("Failed to emit ArtifactPublished event", logfields.Error(err))
	}
}

func objectTypeFor(k recipe.Kind) storage.ObjectType {
	switch k {
	case recipe.KindPattern:
		return storage.ObjectTypePattern
	case recipe.KindDataset:
		return storage.ObjectTypeDataset
	default:
		return storage.ObjectTypeSeries
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
