package node

import (
	"testing"
	"time"

	"github.com/cuemby/tessera/pkg/adapter"
	"github.com/cuemby/tessera/pkg/topic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerNodeAddTaskSendsNewTask(t *testing.T) {
	ch := adapter.NewChannel(8)
	broker := ch.BrokerSide()
	n := NewBrokerNode(ch.NodeSide())

	task := NewTickerTask(3, adapter.Trigger{Kind: adapter.Always}, topic.Parse("out"))
	require.NoError(t, n.AddTask(task))

	cfgs, err := broker.GetNewTasks()
	require.NoError(t, err)
	require.Len(t, cfgs, 1)
	assert.Equal(t, uint32(3), cfgs[0].TaskID)
}

func TestBrokerNodeTickExecutesAndResponds(t *testing.T) {
	ch := adapter.NewChannel(8)
	broker := ch.BrokerSide()
	n := NewBrokerNode(ch.NodeSide())

	task := NewTickerTask(3, adapter.Trigger{Kind: adapter.Always}, topic.Parse("out"))
	require.NoError(t, n.AddTask(task))
	_, err := broker.GetNewTasks()
	require.NoError(t, err)

	cfg := task.GetConfig()
	require.NoError(t, broker.SendExecute(cfg, adapter.BrokerTime{TimeDelta: time.Second}))

	require.NoError(t, n.Tick())

	outs, err := broker.RecvOutputs(3)
	require.NoError(t, err)
	require.Len(t, outs, 1)
	i, ok := outs[0].Value.AsInteger()
	require.True(t, ok)
	assert.Equal(t, int64(1), i)

	err = broker.RecvResponse(3)
	assert.NoError(t, err)
}

func TestBrokerNodeTickWithNoExecuteIsNoop(t *testing.T) {
	ch := adapter.NewChannel(8)
	n := NewBrokerNode(ch.NodeSide())
	require.NoError(t, n.Tick())
}
