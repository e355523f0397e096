/*
Package store implements the hierarchical topic store: Datapoint,
Bucket (a per-topic, ordered, retention-bounded time series with
listener fan-out), and Datastore (the topic -> Bucket registry with
listener routing, struct get/put, and subtree queries).

Locking follows a strict hierarchy: the Datastore holds its own
mutex only long enough to look up or create a bucket, then releases it
before calling into the bucket — a bucket lock is never acquired while
holding the datastore lock, and the datastore lock is never held across
a bucket call. Each Bucket guards its own series with an RWMutex;
listeners registered on a bucket are invoked synchronously under that
bucket's write lock, so listener implementations must not block or
re-enter the owning Datastore.
*/
package store
