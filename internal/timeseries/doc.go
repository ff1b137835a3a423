// Package timeseries generates synthetic univariate series on a regular
// timeline for anomaly-detection and drift experiments.
//
// A Generator walks through up to three stages, each kept separately so the
// clean signal stays available after later stages run:
//
//   - normal:  i.i.d. Gaussian values, one per timeline step
//   - anomaly: the normal values with point or chunked anomalies injected
//   - drifted: the anomaly stage (or the normal stage when no anomalies were
//     injected) shifted after a change point
//
// Example:
//
//	tl, _ := timeseries.ParseTimeline("2021-01-01 00:00:00", "2021-01-02 00:00:00", 10)
//	g, _ := timeseries.NewGenerator(tl, sampling.NewSource(42))
//	g.NormalProcess(0, 1)
//	g.Anomalize(timeseries.AnomalyOptions{Fraction: 0.02, Scale: 2})
//	drifted, _ := g.Drift(timeseries.DriftOptions{PctMean: 20})
//
// Every stage returns a Frame: a two-column table of timestamps and values.
package timeseries
