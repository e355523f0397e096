/*
Package view implements DataView: the flat "TopicKey -> Primitive"
snapshot that is both the query result handed to a broker task as
input and the wire/handoff format for task outputs.

A DataView wraps a pkg/flatten.Map keyed by absolute topic path. Its
subtree operations (GetLatest, AddLatest) strip or add a prefix around
that flat map using pkg/flatten, so a task never has to know the
absolute path its subscriptions were mounted at.
*/
package view
