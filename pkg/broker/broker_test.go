package broker

import (
	"fmt"
	"testing"
	"time"

	"github.com/cuemby/tessera/pkg/adapter"
	"github.com/cuemby/tessera/pkg/store"
	"github.com/cuemby/tessera/pkg/topic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerTask(t *testing.T, b *Broker, taskID uint32, sub string) {
	t.Helper()
	ch := adapter.NewChannel(8)
	adapterID := fmt.Sprintf("node-%d", taskID)
	b.RegisterAdapter(adapterID, ch.BrokerSide())

	node := ch.NodeSide()
	require.NoError(t, node.SendNewTask(adapter.BrokerTaskConfig{
		TaskID: taskID,
		Name:   fmt.Sprintf("task-%d", taskID),
		Subscriptions: []adapter.Subscription{
			{TopicQuery: topic.Parse(sub), Mode: adapter.Latest},
		},
		Trigger: adapter.Trigger{Kind: adapter.Always},
		Flags:   adapter.TaskFlags{NonBlocking: true},
	}))
}

// A commander that only offers one task per tick should still get
// both tasks completed across two ticks.
func TestBrokerCompletesTwoTasksAcrossTicks(t *testing.T) {
	ds := store.NewDatastore()
	cmd := NewMockCommander()
	b := New(ds, cmd)

	registerTask(t, b, 0, "test/a")
	registerTask(t, b, 1, "test/b")

	require.NoError(t, b.Tick(100*time.Millisecond))

	stA, ok := b.State(0)
	require.True(t, ok)
	stB, ok := b.State(1)
	require.True(t, ok)
	assert.Equal(t, Completed, stA.Status)
	assert.Equal(t, Idle, stB.Status)

	require.NoError(t, b.Tick(100*time.Millisecond))

	stA, _ = b.State(0)
	stB, _ = b.State(1)
	assert.Equal(t, Completed, stA.Status)
	assert.Equal(t, Completed, stB.Status)
}

func TestRateTriggerFiresOncePerWindow(t *testing.T) {
	st := newTaskState(0)
	trig := adapter.Trigger{Kind: adapter.Rate, Rate: time.Second}

	t0 := time.Unix(0, 0)
	assert.True(t, triggerFires(trig, st, t0))

	st.LastExecutionTime = &t0
	half := t0.Add(500 * time.Millisecond)
	assert.False(t, triggerFires(trig, st, half))

	later := t0.Add(1500 * time.Millisecond)
	assert.True(t, triggerFires(trig, st, later))
}

func TestBrokerRemovesTaskOnExecutionError(t *testing.T) {
	ds := store.NewDatastore()
	cmd := NewMockCommander()
	b := New(ds, cmd)

	ch := adapter.NewChannel(8)
	b.RegisterAdapter("bad", ch.BrokerSide())
	node := ch.NodeSide()
	require.NoError(t, node.SendNewTask(adapter.BrokerTaskConfig{
		TaskID:  5,
		Trigger: adapter.Trigger{Kind: adapter.Always},
	}))

	// Blocking dispatch with nobody ever responding must time out and
	// the task must be removed entirely.
	start := time.Now()
	err := b.Tick(10 * time.Millisecond)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Less(t, elapsed, 2*time.Second)

	_, ok := b.State(5)
	assert.False(t, ok)
}
