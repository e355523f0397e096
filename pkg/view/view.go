package view

import (
	"time"

	"github.com/cuemby/tessera/pkg/flatten"
	"github.com/cuemby/tessera/pkg/store"
	"github.com/cuemby/tessera/pkg/topic"
)

// DataView is a flat snapshot of topic -> value, assembled from one or
// more datastore queries and handed to a broker task as its input, or
// filled in by a task and applied back into the datastore as its
// output.
type DataView struct {
	maps flatten.Map
}

// New returns an empty DataView.
func New() *DataView {
	return &DataView{maps: make(flatten.Map)}
}

// FromDatapoints builds a DataView out of a batch of datapoints, as
// received over a BrokerAdapter. Later entries for the same topic win.
func FromDatapoints(dps []store.Datapoint) *DataView {
	v := New()
	v.Ingest(dps)
	return v
}

// Ingest merges a batch of datapoints into the view, overwriting any
// existing entry at the same topic. Used to accumulate a view across
// several chunked receive calls.
func (v *DataView) Ingest(dps []store.Datapoint) {
	for _, dp := range dps {
		v.maps.Set(dp.Topic, dp.Value)
	}
}

// Datapoints flattens the view back into a batch of datapoints, all
// stamped at when. Used to hand a view to a BrokerAdapter for
// transmission.
func (v *DataView) Datapoints(when time.Time) []store.Datapoint {
	out := make([]store.Datapoint, 0, len(v.maps))
	for keyStr, prim := range v.maps {
		out = append(out, store.Datapoint{Topic: topic.Parse(keyStr), Time: when, Value: prim})
	}
	return out
}

// AddQuery extends the view with the latest value of every bucket
// nested under t (a Latest-kind subscription).
func (v *DataView) AddQuery(ds *store.Datastore, t topic.Key) {
	for _, b := range ds.GetBucketsMatching(t) {
		if dp, ok := b.Latest(); ok {
			v.maps.Set(dp.Topic, dp.Value)
		}
	}
}

// AddQueryAfterPer extends the view with the latest value of every
// bucket nested under t, but only for buckets whose latest datapoint
// is strictly newer than max(since, watermark). It implements a
// NewValues-kind subscription: a bucket that has not changed since the
// watermark is omitted entirely rather than redelivered stale.
func (v *DataView) AddQueryAfterPer(ds *store.Datastore, t topic.Key, since, watermark time.Time) {
	cutoff := since
	if watermark.After(cutoff) {
		cutoff = watermark
	}
	for _, b := range ds.GetBucketsMatching(t) {
		dp, ok := b.Latest()
		if !ok || !dp.Time.After(cutoff) {
			continue
		}
		v.maps.Set(dp.Topic, dp.Value)
	}
}

// GetLatest collects the sub-map of the view rooted at t, strips the
// t prefix, and unflattens the result into target (a non-nil pointer).
func (v *DataView) GetLatest(t topic.Key, target any) error {
	sub := v.maps.SubMap(t)
	if len(sub) == 0 {
		return &store.ErrBucketNotFound{Topic: t}
	}
	return flatten.Unflatten(sub, target)
}

// AddLatest flattens val and merges the result into the view under
// prefix t, overwriting any existing entries at the same keys.
func (v *DataView) AddLatest(t topic.Key, val any) error {
	flat, err := flatten.FlattenAt(t, val)
	if err != nil {
		return err
	}
	v.maps.Merge(flat)
	return nil
}

// ApplyInto writes every entry of the view into ds at the current
// wall-clock time.
func (v *DataView) ApplyInto(ds *store.Datastore) error {
	return ds.ApplyView(v.maps)
}

// Len reports the number of flat entries currently held by the view.
func (v *DataView) Len() int {
	return len(v.maps)
}
