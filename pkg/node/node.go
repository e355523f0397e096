package node

import (
	"fmt"
	"time"

	"github.com/cuemby/tessera/pkg/adapter"
	"github.com/cuemby/tessera/pkg/log"
	"github.com/cuemby/tessera/pkg/view"
	"github.com/rs/zerolog"
)

// outputChunkSize mirrors the broker's input chunking, keeping frame
// sizes uniform in both directions.
const outputChunkSize = 32

// BrokerTask is the contract a node-hosted task implements.
type BrokerTask interface {
	Init() error
	GetConfig() adapter.BrokerTaskConfig
	OnExecute(in *view.DataView, bt *adapter.BrokerTime) (*view.DataView, error)
}

// BrokerNode hosts a set of BrokerTask implementations and drives them
// from the messages it receives over a single NodeAdapter.
type BrokerNode struct {
	a      adapter.NodeAdapter
	tasks  map[uint32]BrokerTask
	logger zerolog.Logger
}

// NewBrokerNode creates a node speaking over a.
func NewBrokerNode(a adapter.NodeAdapter) *BrokerNode {
	return &BrokerNode{
		a:      a,
		tasks:  make(map[uint32]BrokerTask),
		logger: log.WithComponent("node"),
	}
}

// AddTask initializes task and registers it with the broker via
// send_new_task.
func (n *BrokerNode) AddTask(task BrokerTask) error {
	if err := task.Init(); err != nil {
		return fmt.Errorf("node: init task: %w", err)
	}
	cfg := task.GetConfig()
	n.tasks[cfg.TaskID] = task
	return n.a.SendNewTask(cfg)
}

// Tick drains every pending inputs batch and execute instruction,
// running each affected task's OnExecute and writing its outputs and
// response back.
func (n *BrokerNode) Tick() error {
	inputs := make(map[uint32]*view.DataView)
	for {
		taskID, batch, ok, err := n.a.RecvInputs()
		if err != nil {
			return fmt.Errorf("node: recv_inputs: %w", err)
		}
		if !ok {
			break
		}
		v, exists := inputs[taskID]
		if !exists {
			v = view.New()
			inputs[taskID] = v
		}
		v.Ingest(batch)
	}

	for {
		cfg, bt, ok, err := n.a.RecvExecute()
		if err != nil {
			return fmt.Errorf("node: recv_execute: %w", err)
		}
		if !ok {
			break
		}
		n.execute(cfg, bt, inputs[cfg.TaskID])
	}
	return nil
}

func (n *BrokerNode) execute(cfg adapter.BrokerTaskConfig, bt adapter.BrokerTime, in *view.DataView) {
	task, ok := n.tasks[cfg.TaskID]
	if !ok {
		n.logger.Warn().Uint32("task_id", cfg.TaskID).Msg("execute for unknown task")
		return
	}
	if in == nil {
		in = view.New()
	}

	out, err := task.OnExecute(in, &bt)
	if err != nil {
		n.logger.Error().Err(err).Uint32("task_id", cfg.TaskID).Msg("task execution failed")
		return
	}

	if out != nil {
		dps := out.Datapoints(time.Now())
		for i := 0; i < len(dps); i += outputChunkSize {
			end := i + outputChunkSize
			if end > len(dps) {
				end = len(dps)
			}
			if err := n.a.SendOutputs(cfg.TaskID, dps[i:end]); err != nil {
				n.logger.Warn().Err(err).Uint32("task_id", cfg.TaskID).Msg("send_outputs failed")
				return
			}
		}
	}

	if err := n.a.SendResponse(cfg.TaskID); err != nil {
		n.logger.Warn().Err(err).Uint32("task_id", cfg.TaskID).Msg("send_response failed")
	}
}
