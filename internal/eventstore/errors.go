package eventstore

import (
	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
)

// Sentinel failures of the run event log. Callers attach the cause and the
// run ID with WithCause/WithContext.
var (
	ErrOpen    = errors.EventStoreError("could not open run event log").Build()
	ErrSchema  = errors.EventStoreError("could not prepare run event schema").Build()
	ErrAppend  = errors.EventStoreError("could not append run event").Build()
	ErrQuery   = errors.EventStoreError("could not query run events").Build()
	ErrDecode  = errors.EventStoreError("could not decode stored run event").Build()
	ErrEncode  = errors.EventStoreError("could not encode run event metadata").Build()
	ErrPrune   = errors.EventStoreError("could not prune run events").Build()
	ErrNoEvent = errors.ValidationError("event type is required").Build()

	// ErrRunNotFound is returned when no events exist for a run.
	ErrRunNotFound = errors.NotFoundError("run not found").Build()
)
