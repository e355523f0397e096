/*
Package flatten implements the flatten/unflatten codec: the protocol
that projects an arbitrary Go value (struct, map, slice, enum-like
type, or scalar) into a flat mapping from pkg/topic.Key to
pkg/value.Primitive, and recovers a value of the same shape from that
mapping.

This is the hardest subsystem in the broker: a
struct contributes a "_type" marker plus one entry per field under the
field name; a map contributes one entry per key (string keys only); a
slice contributes one entry per element under its decimal index; a nil
pointer (Option's None) contributes no entry at all; scalars contribute
the matching Primitive directly.

Go has no algebraic sum types, so enum-shaped data (a value that is
exactly one of several named variants, some carrying a payload) needs a
runtime descriptor: a type opts in by implementing Enum for encoding
and EnumDecoder for decoding (see enum.go). Go has reflection over
product types (structs) for free, but enums still need the type itself
to describe its variants.

Every recursive descent here pairs a path "enter" (Key.Child /
Key.ChildIndex) with an "exit" that simply lets the extended Key value
fall out of scope — Key is an immutable value type, not a mutable
cursor, so there is nothing to unwind on an error path.
*/
package flatten
