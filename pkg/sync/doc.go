/*
Package sync implements a bidirectional mirror: a Sync instance
listens on a local Datastore, forwards matching datapoints to every
remote subscriber over a SyncAdapter, and applies incoming remote
datapoints back into the local store.
*/
package sync
