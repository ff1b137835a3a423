// Package metrics records generation, queue and publish metrics.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check:
//
//	type Runner struct {
//	    recorder metrics.Recorder
//	}
//
//	r := &Runner{recorder: metrics.NoopRecorder{}}
//
// The daemon swaps in a PrometheusRecorder when metrics are enabled and
// serves the registry with HTTPHandler.
package metrics
