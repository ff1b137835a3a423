package timeseries

import "git.home.luguber.info/inful/synthdata/internal/foundation/errors"

var (
	// ErrNotInitialized is returned when a stage needs a stage that has not run.
	ErrNotInitialized = errors.GenerationError("process not initialized").Build()

	// ErrInvalidTimeline is returned for empty or inverted timelines.
	ErrInvalidTimeline = errors.ValidationError("invalid timeline").Build()

	// ErrInvalidSigma is returned for a negative standard deviation.
	ErrInvalidSigma = errors.ValidationError("scale must be a non-negative number").Build()

	// ErrInvalidFraction is returned when an anomaly fraction is outside (0, 1).
	ErrInvalidFraction = errors.ValidationError("anomaly fraction must be between 0.0 and 1.0").Build()

	// ErrInvalidScale is returned when an anomaly scale is not positive.
	ErrInvalidScale = errors.ValidationError("anomaly scale must be a number greater than 0.0").Build()

	// ErrInvalidChunks is returned for a chunk count that cannot split the series.
	ErrInvalidChunks = errors.ValidationError("number of chunks must be a positive integer no larger than the series").Build()

	// ErrInvalidChangePoint is returned when a drift time lies outside the timeline.
	ErrInvalidChangePoint = errors.ValidationError("drift time outside the timeline").Build()
)
