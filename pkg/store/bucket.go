package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cuemby/tessera/pkg/log"
	"github.com/cuemby/tessera/pkg/metrics"
	"github.com/cuemby/tessera/pkg/topic"
)

// Retention bounds how much history a Bucket keeps. A nil field
// disables that bound.
type Retention struct {
	MaxAge  *time.Duration
	MaxRows *int
}

// Bucket is an ordered time series of datapoints for exactly one
// topic, with retention and listener fan-out.
type Bucket struct {
	topic topic.Key

	mu        sync.RWMutex
	values    []Datapoint // sorted ascending by Time; equal Time overwrites.
	retention Retention
	listeners []Listener
}

// NewBucket creates an empty bucket for topic t.
func NewBucket(t topic.Key) *Bucket {
	return &Bucket{topic: t}
}

// Topic returns the bucket's owning topic.
func (b *Bucket) Topic() topic.Key {
	return b.topic
}

// SetRetention replaces the bucket's retention policy.
func (b *Bucket) SetRetention(r Retention) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.retention = r
}

// AddListener attaches l so it is notified of every future successful
// insert. It is not retroactively invoked for existing data.
func (b *Bucket) AddListener(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Insert writes dp, enforcing retention first and then value-change
// suppression: if the resulting latest value is unchanged from the
// previous latest, the insert is a no-op and Insert returns false.
// Listeners are notified synchronously, under the bucket's write lock,
// only when the insert actually applies.
//
// Insert rejects a datapoint whose topic differs from the bucket's
// own topic.
func (b *Bucket) Insert(dp Datapoint) (bool, error) {
	if !dp.Topic.Equal(b.topic) {
		return false, fmt.Errorf("store: datapoint topic %q does not match bucket topic %q", dp.Topic.String(), b.topic.String())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.enforceRetentionLocked()

	if latest, ok := b.latestLocked(); ok && latest.Value.Equal(dp.Value) {
		metrics.DatapointsSuppressedTotal.Inc()
		return false, nil
	}

	b.upsertLocked(dp)
	b.notifyLocked(dp)
	metrics.DatapointsInsertedTotal.Inc()
	return true, nil
}

// Update writes dp bypassing both retention enforcement and
// value-change suppression. It exists for the sync path (pkg/sync),
// which mirrors remote writes into the local store without triggering
// a redundant republish back out. Update does not notify listeners.
func (b *Bucket) Update(dp Datapoint) error {
	if !dp.Topic.Equal(b.topic) {
		return fmt.Errorf("store: datapoint topic %q does not match bucket topic %q", dp.Topic.String(), b.topic.String())
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.upsertLocked(dp)
	return nil
}

// Latest returns the most recent datapoint, if any.
func (b *Bucket) Latest() (Datapoint, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.latestLocked()
}

// Len reports the number of retained datapoints.
func (b *Bucket) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.values)
}

// RangeAfter returns every datapoint with Time strictly after t, in
// ascending order.
func (b *Bucket) RangeAfter(t Timepoint) []Datapoint {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i := sort.Search(len(b.values), func(i int) bool { return b.values[i].Time.After(t) })
	return append([]Datapoint(nil), b.values[i:]...)
}

// RangeBefore returns every datapoint with Time strictly before t, in
// ascending order.
func (b *Bucket) RangeBefore(t Timepoint) []Datapoint {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i := sort.Search(len(b.values), func(i int) bool { return !b.values[i].Time.Before(t) })
	return append([]Datapoint(nil), b.values[:i]...)
}

// RangeBetween returns every datapoint with a >= Time <= b (inclusive)
// in ascending order.
func (bk *Bucket) RangeBetween(a, b Timepoint) []Datapoint {
	bk.mu.RLock()
	defer bk.mu.RUnlock()
	lo := sort.Search(len(bk.values), func(i int) bool { return !bk.values[i].Time.Before(a) })
	hi := sort.Search(len(bk.values), func(i int) bool { return bk.values[i].Time.After(b) })
	if hi < lo {
		hi = lo
	}
	return append([]Datapoint(nil), bk.values[lo:hi]...)
}

func (b *Bucket) latestLocked() (Datapoint, bool) {
	if len(b.values) == 0 {
		return Datapoint{}, false
	}
	return b.values[len(b.values)-1], true
}

// upsertLocked inserts dp keeping b.values sorted by Time, overwriting
// any existing entry at the same Time (last writer wins).
func (b *Bucket) upsertLocked(dp Datapoint) {
	i := sort.Search(len(b.values), func(i int) bool { return !b.values[i].Time.Before(dp.Time) })
	if i < len(b.values) && b.values[i].Time.Equal(dp.Time) {
		b.values[i] = dp
		return
	}
	b.values = append(b.values, Datapoint{})
	copy(b.values[i+1:], b.values[i:])
	b.values[i] = dp
}

func (b *Bucket) enforceRetentionLocked() {
	if mr := b.retention.MaxRows; mr != nil && len(b.values) >= *mr {
		drop := *mr / 2
		if drop > len(b.values) {
			drop = len(b.values)
		}
		b.values = append([]Datapoint(nil), b.values[drop:]...)
	}
	if ma := b.retention.MaxAge; ma != nil && len(b.values) > 0 {
		cutoff := time.Now().Add(-*ma)
		i := sort.Search(len(b.values), func(i int) bool { return !b.values[i].Time.Before(cutoff) })
		if i > 0 {
			b.values = append([]Datapoint(nil), b.values[i:]...)
		}
	}
}

// notifyLocked fires every listener for dp. Listener errors or panics
// are not expected to surface — a misbehaving listener is logged and
// skipped so one bad subscriber cannot corrupt the insert path for
// everyone else.
func (b *Bucket) notifyLocked(dp Datapoint) {
	logger := log.WithComponent("store.bucket")
	for _, l := range b.listeners {
		func(l Listener) {
			defer func() {
				if r := recover(); r != nil {
					logger.Warn().Interface("panic", r).Str("topic", b.topic.String()).Msg("bucket listener panicked")
				}
			}()
			l.OnDatapoint(dp)
		}(l)
	}
}
