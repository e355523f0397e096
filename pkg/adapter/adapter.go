package adapter

import (
	"errors"

	"github.com/cuemby/tessera/pkg/store"
)

// ErrWaitingForTaskResponse distinguishes "no response has arrived
// yet" (soft, pollable) from a fatal transport error.
var ErrWaitingForTaskResponse = errors.New("adapter: waiting for task response")

// BrokerAdapter is the broker-side half of a duplex channel to a node.
// Every receive method is non-blocking: a receive with nothing
// available returns a zero value and ok=false (or an empty slice)
// rather than blocking the caller. Send methods may block until the
// underlying queue or connection accepts the message.
type BrokerAdapter interface {
	// GetNewTasks drains any BrokerTaskConfig the node has registered
	// since the last call.
	GetNewTasks() ([]BrokerTaskConfig, error)

	// SendInputs forwards a batch of datapoints to the node as the
	// input view for taskID.
	SendInputs(taskID uint32, batch []store.Datapoint) error

	// SendExecute tells the node to run the task described by cfg at
	// the given broker time.
	SendExecute(cfg BrokerTaskConfig, bt BrokerTime) error

	// RecvOutputs drains any output datapoints the node has sent back
	// for taskID since the last call. An empty, nil-error result means
	// nothing is available yet.
	RecvOutputs(taskID uint32) ([]store.Datapoint, error)

	// RecvResponse reports whether the node has acknowledged
	// completion of taskID. It returns ErrWaitingForTaskResponse if no
	// ack has arrived yet; any other error is fatal.
	RecvResponse(taskID uint32) error
}

// NodeAdapter is the node-side half of the same duplex channel.
type NodeAdapter interface {
	// SendNewTask registers cfg with the broker.
	SendNewTask(cfg BrokerTaskConfig) error

	// RecvInputs drains the next available input batch, if any.
	RecvInputs() (taskID uint32, batch []store.Datapoint, ok bool, err error)

	// RecvExecute drains the next available execute instruction, if
	// any.
	RecvExecute() (cfg BrokerTaskConfig, bt BrokerTime, ok bool, err error)

	// SendOutputs forwards a batch of output datapoints for taskID.
	SendOutputs(taskID uint32, batch []store.Datapoint) error

	// SendResponse acknowledges that taskID's execution has completed.
	SendResponse(taskID uint32) error
}
