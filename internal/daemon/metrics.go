package daemon

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/synthdata/internal/metrics"
)

// metricsRegistry keeps the Prometheus registry, the recorder writing to it
// and the scrape handler together.
type metricsRegistry struct {
	registry *prom.Registry
	recorder *metrics.PrometheusRecorder
	handler  http.Handler
}

func newMetricsRegistry() *metricsRegistry {
	reg := metrics.NewRegistry()
	return &metricsRegistry{
		registry: reg,
		recorder: metrics.NewPrometheusRecorder(reg),
		handler:  metrics.HTTPHandler(reg),
	}
}
