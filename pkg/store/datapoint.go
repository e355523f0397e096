package store

import (
	"time"

	"github.com/cuemby/tessera/pkg/topic"
	"github.com/cuemby/tessera/pkg/value"
)

// Timepoint is the wall-clock timestamp datapoints are ordered by.
// Two datapoints with equal Timepoints overwrite (last writer wins).
type Timepoint = time.Time

// Datapoint is the (topic, time, value) triple that moves through
// every part of the broker: inputs into a task, outputs out of it,
// and everything a Bucket stores.
type Datapoint struct {
	Topic topic.Key
	Time  Timepoint
	Value value.Primitive
}
