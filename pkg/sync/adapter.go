package sync

import "github.com/cuemby/tessera/pkg/store"

// MessageKind tags a sync wire message as either a subscription
// announcement or a datapoint batch.
type MessageKind int

const (
	Register MessageKind = iota
	Update
)

// Message is the tagged union transmitted over a SyncAdapter
// connection.
type Message struct {
	Kind          MessageKind
	Subscriptions []string
	Datapoints    []store.Datapoint
}

// ConnMessage pairs an inbound Message with the connection it arrived
// on.
type ConnMessage struct {
	ConnectionID string
	Message
}

// SyncAdapter is the transport Sync runs over: possibly many
// concurrent connections, each identified by a connection ID.
type SyncAdapter interface {
	// NewConnections returns connection IDs observed since the last
	// call that have not yet been greeted with a Register message.
	NewConnections() []string

	// Send transmits msg to the connection identified by connID.
	Send(connID string, msg Message) error

	// Recv drains every message received on any connection since the
	// last call.
	Recv() ([]ConnMessage, error)
}
