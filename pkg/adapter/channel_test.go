package adapter

import (
	"testing"
	"time"

	"github.com/cuemby/tessera/pkg/store"
	"github.com/cuemby/tessera/pkg/topic"
	"github.com/cuemby/tessera/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelNewTaskRoundTrip(t *testing.T) {
	ch := NewChannel(4)
	broker := ch.BrokerSide()
	node := ch.NodeSide()

	cfg := BrokerTaskConfig{TaskID: 1, Name: "t1"}
	require.NoError(t, node.SendNewTask(cfg))

	got, err := broker.GetNewTasks()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, cfg, got[0])

	again, err := broker.GetNewTasks()
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestChannelInputsExecuteOutputsResponse(t *testing.T) {
	ch := NewChannel(4)
	broker := ch.BrokerSide()
	node := ch.NodeSide()

	top := topic.Parse("a")
	batch := []store.Datapoint{{Topic: top, Time: time.Unix(1, 0), Value: value.Integer(5)}}
	require.NoError(t, broker.SendInputs(7, batch))
	require.NoError(t, broker.SendExecute(BrokerTaskConfig{TaskID: 7}, BrokerTime{TimeDelta: time.Second}))

	taskID, gotBatch, ok, err := node.RecvInputs()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(7), taskID)
	assert.Len(t, gotBatch, 1)

	cfg, bt, ok, err := node.RecvExecute()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(7), cfg.TaskID)
	assert.Equal(t, time.Second, bt.TimeDelta)

	require.NoError(t, node.SendOutputs(7, batch))
	require.NoError(t, node.SendResponse(7))

	outs, err := broker.RecvOutputs(7)
	require.NoError(t, err)
	assert.Len(t, outs, 1)

	err = broker.RecvResponse(7)
	assert.NoError(t, err)
}

func TestChannelRecvResponseWaitingWhenEmpty(t *testing.T) {
	ch := NewChannel(4)
	broker := ch.BrokerSide()
	err := broker.RecvResponse(99)
	assert.ErrorIs(t, err, ErrWaitingForTaskResponse)
}

func TestChannelRecvOutputsFiltersByTaskID(t *testing.T) {
	ch := NewChannel(4)
	broker := ch.BrokerSide()
	node := ch.NodeSide()

	top := topic.Parse("a")
	require.NoError(t, node.SendOutputs(1, []store.Datapoint{{Topic: top, Time: time.Unix(1, 0), Value: value.Integer(1)}}))
	require.NoError(t, node.SendOutputs(2, []store.Datapoint{{Topic: top, Time: time.Unix(2, 0), Value: value.Integer(2)}}))

	out1, err := broker.RecvOutputs(1)
	require.NoError(t, err)
	require.Len(t, out1, 1)

	out2, err := broker.RecvOutputs(2)
	require.NoError(t, err)
	require.Len(t, out2, 1)
}
