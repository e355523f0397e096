/*
Package topic implements the hierarchical key used throughout tessera to
name every datum in the system: a "/"-separated path such as
"sensors/room1/temperature".

A Key is a sequence of sections. Each section carries both its display
name and a precomputed section ID (a stable, non-randomized hash of the
name), so that once two keys are parsed, equality, ordering, and subtree
containment reduce to integer comparison instead of repeated string
comparison.

# Wire safety

Section IDs are derived from github.com/cespare/xxhash/v2, a
fixed, non-randomized hash, so they are stable across runs and
processes. They are still not sent as-is across the wire: adapters
transmit the display-name form of a Key and the receiver re-parses it,
recomputing IDs locally rather than trusting a sender's integer (see
pkg/adapter).
*/
package topic
