package metrics_test

import (
	"testing"
	"time"

	"github.com/cuemby/tessera/pkg/broker"
	"github.com/cuemby/tessera/pkg/metrics"
	"github.com/cuemby/tessera/pkg/store"
	"github.com/cuemby/tessera/pkg/topic"
	"github.com/cuemby/tessera/pkg/value"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTasks(b *broker.Broker) func() map[string]int {
	return func() map[string]int {
		counts := make(map[string]int)
		for _, st := range b.Snapshot() {
			counts[st.Status.String()]++
		}
		return counts
	}
}

func TestCollectorCollectDoesNotPanicOnEmptyBroker(t *testing.T) {
	ds := store.NewDatastore()
	b := broker.New(ds, broker.NewMockCommander())
	c := metrics.NewCollector(sampleTasks(b), ds.Len)

	assert.NotPanics(t, func() { c.Start(); c.Stop() })
}

func TestCollectorCollectCountsBuckets(t *testing.T) {
	ds := store.NewDatastore()
	require.NoError(t, ds.AddPrimitive(topic.Parse("a"), time.Now(), value.Integer(1)))
	require.NoError(t, ds.AddPrimitive(topic.Parse("b"), time.Now(), value.Integer(2)))

	b := broker.New(ds, broker.NewMockCommander())
	c := metrics.NewCollector(sampleTasks(b), ds.Len)
	c.Start()
	defer c.Stop()

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.BucketsTotal) == float64(2)
	}, time.Second, 10*time.Millisecond)
}
