package sync

import (
	"testing"
	"time"

	"github.com/cuemby/tessera/pkg/store"
	"github.com/cuemby/tessera/pkg/topic"
	"github.com/cuemby/tessera/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncGreetsNewConnectionWithRegister(t *testing.T) {
	ds := store.NewDatastore()
	a := NewMockAdapter("conn1")
	s := New(Config{ClientName: "test_client", Subscriptions: []string{"test_topic"}}, ds, a)

	require.NoError(t, s.Sync())

	require.Len(t, a.Outbox, 1)
	msg := a.Outbox[0]
	assert.Equal(t, "conn1", msg.ConnectionID)
	assert.Equal(t, Register, msg.Kind)
	assert.Equal(t, []string{"test_topic"}, msg.Subscriptions)
}

func TestSyncDoesNotRegreetSameConnection(t *testing.T) {
	ds := store.NewDatastore()
	a := NewMockAdapter("conn1")
	s := New(Config{ClientName: "c", Subscriptions: []string{"x"}}, ds, a)

	require.NoError(t, s.Sync())
	require.NoError(t, s.Sync())

	assert.Len(t, a.Outbox, 1)
}

func TestSyncForwardsMatchingLocalWritesAsUpdate(t *testing.T) {
	ds := store.NewDatastore()
	a := NewMockAdapter()
	s := New(Config{ClientName: "c"}, ds, a)

	a.Deliver("peer1", Message{Kind: Register, Subscriptions: []string{"sensors"}})
	require.NoError(t, s.Sync())

	require.NoError(t, ds.AddPrimitive(topic.Parse("sensors/temp"), time.Now(), value.Float(1.0)))

	require.NoError(t, s.Sync())

	var updates []ConnMessage
	for _, m := range a.Outbox {
		if m.Kind == Update {
			updates = append(updates, m)
		}
	}
	require.Len(t, updates, 1)
	assert.Equal(t, "peer1", updates[0].ConnectionID)
	require.Len(t, updates[0].Datapoints, 1)
}

func TestSyncAppliesIncomingUpdateToLocalStore(t *testing.T) {
	ds := store.NewDatastore()
	a := NewMockAdapter()
	s := New(Config{ClientName: "c"}, ds, a)

	top := topic.Parse("remote/value")
	a.Deliver("peer1", Message{Kind: Update, Datapoints: []store.Datapoint{
		{Topic: top, Time: time.Unix(1, 0), Value: value.Integer(42)},
	}})

	require.NoError(t, s.Sync())

	dp, ok := ds.GetLatestDatapoint(top)
	require.True(t, ok)
	i, _ := dp.Value.AsInteger()
	assert.Equal(t, int64(42), i)
}

func TestSyncBatchesUpdatesAtEight(t *testing.T) {
	ds := store.NewDatastore()
	a := NewMockAdapter()
	s := New(Config{ClientName: "c"}, ds, a)

	a.Deliver("peer1", Message{Kind: Register, Subscriptions: []string{"a"}})
	require.NoError(t, s.Sync())

	for i := 0; i < 10; i++ {
		require.NoError(t, ds.AddPrimitive(topic.Parse("a/x"), time.Unix(int64(i), 0), value.Integer(int64(i))))
	}

	require.NoError(t, s.Sync())

	var total int
	var batches int
	for _, m := range a.Outbox {
		if m.Kind == Update {
			batches++
			total += len(m.Datapoints)
			assert.LessOrEqual(t, len(m.Datapoints), updateBatchSize)
		}
	}
	assert.Equal(t, 10, total)
	assert.GreaterOrEqual(t, batches, 2)
}
