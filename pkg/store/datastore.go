package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/tessera/pkg/flatten"
	"github.com/cuemby/tessera/pkg/topic"
	"github.com/cuemby/tessera/pkg/value"
)

// ErrBucketNotFound is returned by operations that require an
// existing bucket and find none.
type ErrBucketNotFound struct {
	Topic topic.Key
}

func (e *ErrBucketNotFound) Error() string {
	return fmt.Sprintf("store: no bucket for topic %q", e.Topic.String())
}

type registeredListener struct {
	query    topic.Key
	listener Listener
}

// Datastore is the topic -> Bucket registry: it lazily creates
// buckets on first write, routes listener registrations to every
// bucket whose topic matches the registration query (including
// buckets created after registration), and implements the struct-level
// get/put operations built on top of the flatten codec.
type Datastore struct {
	mu        sync.RWMutex
	buckets   map[string]*Bucket
	listeners []registeredListener
}

// NewDatastore creates an empty datastore.
func NewDatastore() *Datastore {
	return &Datastore{buckets: make(map[string]*Bucket)}
}

// CreateBucket returns the bucket for t, creating it (and attaching
// every listener whose query matches t) if it does not already exist.
// It is idempotent.
func (d *Datastore) CreateBucket(t topic.Key) *Bucket {
	key := t.String()

	d.mu.RLock()
	if b, ok := d.buckets[key]; ok {
		d.mu.RUnlock()
		return b
	}
	d.mu.RUnlock()

	d.mu.Lock()
	if b, ok := d.buckets[key]; ok {
		d.mu.Unlock()
		return b
	}
	b := NewBucket(t)
	d.buckets[key] = b
	matching := make([]Listener, 0)
	for _, rl := range d.listeners {
		if t.Matches(rl.query) {
			matching = append(matching, rl.listener)
		}
	}
	d.mu.Unlock()

	// Attach outside the datastore lock: AddListener takes the
	// bucket's own lock, and the locking discipline
	// never holds a bucket lock while holding the datastore lock.
	for _, l := range matching {
		b.AddListener(l)
	}
	return b
}

// AddPrimitive creates the bucket for topic t if needed and inserts
// (t, when, v), applying the bucket's usual retention and
// value-change-suppression rules.
func (d *Datastore) AddPrimitive(t topic.Key, when Timepoint, v value.Primitive) error {
	b := d.CreateBucket(t)
	_, err := b.Insert(Datapoint{Topic: t, Time: when, Value: v})
	return err
}

// AddStruct flattens v and inserts one datapoint per resulting entry,
// each at topic t extended by the entry's relative key.
func (d *Datastore) AddStruct(t topic.Key, when Timepoint, v any) error {
	flat, err := flatten.FlattenAt(t, v)
	if err != nil {
		return err
	}
	for keyStr, prim := range flat {
		key := topic.Parse(keyStr)
		b := d.CreateBucket(key)
		if _, err := b.Insert(Datapoint{Topic: key, Time: when, Value: prim}); err != nil {
			return err
		}
	}
	return nil
}

// GetLatestDatapoint returns the most recent datapoint stored at
// exactly topic t.
func (d *Datastore) GetLatestDatapoint(t topic.Key) (Datapoint, bool) {
	d.mu.RLock()
	b, ok := d.buckets[t.String()]
	d.mu.RUnlock()
	if !ok {
		return Datapoint{}, false
	}
	return b.Latest()
}

// GetStruct collects the latest value of every bucket nested under t,
// strips the t prefix from each key, and unflattens the result into
// target (which must be a non-nil pointer).
func (d *Datastore) GetStruct(t topic.Key, target any) error {
	flat := make(flatten.Map)
	for _, b := range d.GetBucketsMatching(t) {
		rest, ok := b.Topic().RemovePrefix(t)
		if !ok {
			continue
		}
		if dp, ok := b.Latest(); ok {
			flat.Set(rest, dp.Value)
		}
	}
	if len(flat) == 0 {
		return &ErrBucketNotFound{Topic: t}
	}
	return flatten.Unflatten(flat, target)
}

// GetBucketsMatching returns every bucket whose topic equals query or
// is nested under it.
func (d *Datastore) GetBucketsMatching(query topic.Key) []*Bucket {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Bucket, 0)
	for _, b := range d.buckets {
		if b.Topic().IsChildOf(query) {
			out = append(out, b)
		}
	}
	return out
}

// AddListener registers l under query: it is attached immediately to
// every existing bucket that matches, and to every bucket created
// afterward that matches, so no datapoint inserted after registration
// is ever missed.
func (d *Datastore) AddListener(query topic.Key, l Listener) {
	d.mu.Lock()
	matching := make([]*Bucket, 0)
	for _, b := range d.buckets {
		if b.Topic().Matches(query) {
			matching = append(matching, b)
		}
	}
	d.listeners = append(d.listeners, registeredListener{query: query, listener: l})
	d.mu.Unlock()

	for _, b := range matching {
		b.AddListener(l)
	}
}

// Len reports the number of buckets currently held by the datastore.
func (d *Datastore) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.buckets)
}

// ApplyView writes every entry of view into the store at the current
// wall-clock time.
func (d *Datastore) ApplyView(view flatten.Map) error {
	now := time.Now()
	for keyStr, prim := range view {
		key := topic.Parse(keyStr)
		if err := d.AddPrimitive(key, now, prim); err != nil {
			return err
		}
	}
	return nil
}
