/*
Package value implements Primitive, the tagged scalar/container value
that every structured type in tessera is flattened into (see
pkg/flatten) and that every Bucket stores.

Primitive is intentionally small and closed: Unset, Instant, Duration,
Integer, Float, Text, Blob, Boolean, List, Reference, and StructType
(a marker recording a flattened struct's type name). It carries its own
value-equality used by Bucket's change-suppression rule and by the
flatten/unflatten round-trip tests.
*/
package value
