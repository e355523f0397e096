package node

import (
	"github.com/cuemby/tessera/pkg/adapter"
	"github.com/cuemby/tessera/pkg/topic"
	"github.com/cuemby/tessera/pkg/view"
)

// TickerTask is a trivial BrokerTask that writes an incrementing
// counter to OutputTopic every time it runs. The tests use it to
// exercise the BrokerTask contract, and cmd/node hosts it as its
// default heartbeat task and for each --tasks-file entry.
type TickerTask struct {
	cfg         adapter.BrokerTaskConfig
	OutputTopic topic.Key
	count       int64
}

// NewTickerTask builds a TickerTask with the given task ID, trigger,
// and output topic.
func NewTickerTask(taskID uint32, trigger adapter.Trigger, outputTopic topic.Key) *TickerTask {
	return &TickerTask{
		cfg: adapter.BrokerTaskConfig{
			TaskID:  taskID,
			Name:    "ticker",
			Trigger: trigger,
		},
		OutputTopic: outputTopic,
	}
}

func (t *TickerTask) Init() error { return nil }

func (t *TickerTask) GetConfig() adapter.BrokerTaskConfig { return t.cfg }

func (t *TickerTask) OnExecute(_ *view.DataView, _ *adapter.BrokerTime) (*view.DataView, error) {
	t.count++
	out := view.New()
	if err := out.AddLatest(t.OutputTopic, t.count); err != nil {
		return nil, err
	}
	return out, nil
}
