package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "synthdata"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration    *prom.HistogramVec
	runDuration      *prom.HistogramVec
	runOutcome       *prom.CounterVec
	points           *prom.CounterVec
	anomalies        *prom.CounterVec
	artifacts        *prom.CounterVec
	publishes        *prom.CounterVec
	queueDepth       prom.Gauge
	retries          *prom.CounterVec
	retriesExhausted *prom.CounterVec
}

// NewPrometheusRecorder constructs the collectors and registers them on reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual generation stages",
			Buckets:   prom.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"kind", "stage"}),
		runDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total duration of a recipe run including storage and publishing",
			Buckets:   prom.DefBuckets,
		}, []string{"kind"}),
		runOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Recipe runs by kind and final status",
		}, []string{"kind", "outcome"}),
		points: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "points_generated_total",
			Help:      "Generated values by recipe kind",
		}, []string{"kind"}),
		anomalies: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "anomalies_injected_total",
			Help:      "Injected anomalies (points for series, anomalous samples for datasets)",
		}, []string{"kind"}),
		artifacts: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_stored_total",
			Help:      "Objects written to the artifact store by type",
		}, []string{"type"}),
		publishes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "publish_results_total",
			Help:      "Artifact notices published by result",
		}, []string{"result"}),
		queueDepth: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Jobs waiting in the generation queue",
		}),
		retries: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_retries_total",
			Help:      "Run retries after transient failures",
		}, []string{"kind"}),
		retriesExhausted: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_retry_exhausted_total",
			Help:      "Runs that failed after exhausting retries",
		}, []string{"kind"}),
	}
	reg.MustRegister(pr.stageDuration, pr.runDuration, pr.runOutcome, pr.points, pr.anomalies,
		pr.artifacts, pr.publishes, pr.queueDepth, pr.retries, pr.retriesExhausted)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(kind, stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(kind, stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRunDuration(kind string, d time.Duration) {
	if p == nil {
		return
	}
	p.runDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(kind string, outcome OutcomeLabel) {
	if p == nil {
		return
	}
	p.runOutcome.WithLabelValues(kind, string(outcome)).Inc()
}

func (p *PrometheusRecorder) AddPoints(kind string, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.points.WithLabelValues(kind).Add(float64(n))
}

func (p *PrometheusRecorder) AddAnomalies(kind string, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.anomalies.WithLabelValues(kind).Add(float64(n))
}

func (p *PrometheusRecorder) IncArtifactStored(objectType string) {
	if p == nil {
		return
	}
	p.artifacts.WithLabelValues(objectType).Inc()
}

func (p *PrometheusRecorder) IncPublish(success bool) {
	if p == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.publishes.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) SetQueueDepth(n int) {
	if p == nil {
		return
	}
	p.queueDepth.Set(float64(n))
}

func (p *PrometheusRecorder) IncRetry(kind string) {
	if p == nil {
		return
	}
	p.retries.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) IncRetryExhausted(kind string) {
	if p == nil {
		return
	}
	p.retriesExhausted.WithLabelValues(kind).Inc()
}
