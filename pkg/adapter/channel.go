package adapter

import "github.com/cuemby/tessera/pkg/store"

type inputBatch struct {
	taskID uint32
	dps    []store.Datapoint
}

type executeMsg struct {
	cfg BrokerTaskConfig
	bt  BrokerTime
}

type outputBatch struct {
	taskID uint32
	dps    []store.Datapoint
}

// channelQueues are the five paired, buffered FIFOs backing a Channel.
// One goroutine's send on a queue is another goroutine's receive; a
// receive on an empty queue never blocks, matching the non-blocking
// BrokerAdapter/NodeAdapter contract.
type channelQueues struct {
	newTasks  chan BrokerTaskConfig
	inputs    chan inputBatch
	execute   chan executeMsg
	outputs   chan outputBatch
	responses chan uint32
}

func newChannelQueues(capacity int) *channelQueues {
	return &channelQueues{
		newTasks:  make(chan BrokerTaskConfig, capacity),
		inputs:    make(chan inputBatch, capacity),
		execute:   make(chan executeMsg, capacity),
		outputs:   make(chan outputBatch, capacity),
		responses: make(chan uint32, capacity),
	}
}

// Channel is a pair of in-process queues connecting a broker endpoint
// to a node endpoint, useful for tests and for co-located nodes that
// do not need a real socket.
type Channel struct {
	q *channelQueues
}

// NewChannel creates a Channel with the given per-queue buffer
// capacity.
func NewChannel(capacity int) *Channel {
	return &Channel{q: newChannelQueues(capacity)}
}

// BrokerSide returns the BrokerAdapter endpoint of the channel.
func (c *Channel) BrokerSide() BrokerAdapter {
	return channelBrokerSide{c.q}
}

// NodeSide returns the NodeAdapter endpoint of the channel.
func (c *Channel) NodeSide() NodeAdapter {
	return channelNodeSide{c.q}
}

type channelBrokerSide struct{ q *channelQueues }

func (s channelBrokerSide) GetNewTasks() ([]BrokerTaskConfig, error) {
	var out []BrokerTaskConfig
	for {
		select {
		case cfg := <-s.q.newTasks:
			out = append(out, cfg)
		default:
			return out, nil
		}
	}
}

func (s channelBrokerSide) SendInputs(taskID uint32, batch []store.Datapoint) error {
	s.q.inputs <- inputBatch{taskID: taskID, dps: batch}
	return nil
}

func (s channelBrokerSide) SendExecute(cfg BrokerTaskConfig, bt BrokerTime) error {
	s.q.execute <- executeMsg{cfg: cfg, bt: bt}
	return nil
}

func (s channelBrokerSide) RecvOutputs(taskID uint32) ([]store.Datapoint, error) {
	var out []store.Datapoint
	var pending []outputBatch
	for {
		select {
		case ob := <-s.q.outputs:
			if ob.taskID == taskID {
				out = append(out, ob.dps...)
			} else {
				pending = append(pending, ob)
			}
		default:
			for _, ob := range pending {
				s.q.outputs <- ob
			}
			return out, nil
		}
	}
}

func (s channelBrokerSide) RecvResponse(taskID uint32) error {
	var pending []uint32
	defer func() {
		for _, id := range pending {
			s.q.responses <- id
		}
	}()
	for {
		select {
		case id := <-s.q.responses:
			if id == taskID {
				return nil
			}
			pending = append(pending, id)
		default:
			return ErrWaitingForTaskResponse
		}
	}
}

type channelNodeSide struct{ q *channelQueues }

func (s channelNodeSide) SendNewTask(cfg BrokerTaskConfig) error {
	s.q.newTasks <- cfg
	return nil
}

func (s channelNodeSide) RecvInputs() (uint32, []store.Datapoint, bool, error) {
	select {
	case ib := <-s.q.inputs:
		return ib.taskID, ib.dps, true, nil
	default:
		return 0, nil, false, nil
	}
}

func (s channelNodeSide) RecvExecute() (BrokerTaskConfig, BrokerTime, bool, error) {
	select {
	case em := <-s.q.execute:
		return em.cfg, em.bt, true, nil
	default:
		return BrokerTaskConfig{}, BrokerTime{}, false, nil
	}
}

func (s channelNodeSide) SendOutputs(taskID uint32, batch []store.Datapoint) error {
	s.q.outputs <- outputBatch{taskID: taskID, dps: batch}
	return nil
}

func (s channelNodeSide) SendResponse(taskID uint32) error {
	s.q.responses <- taskID
	return nil
}
