package view

import (
	"testing"
	"time"

	"github.com/cuemby/tessera/pkg/store"
	"github.com/cuemby/tessera/pkg/topic"
	"github.com/cuemby/tessera/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Count int32
	Label string
}

func TestAddQueryAndGetLatest(t *testing.T) {
	ds := store.NewDatastore()
	require.NoError(t, ds.AddStruct(topic.Parse("sensors/room1"), time.Now(), sample{Count: 3, Label: "ok"}))

	v := New()
	v.AddQuery(ds, topic.Parse("sensors/room1"))

	var out sample
	require.NoError(t, v.GetLatest(topic.Parse("sensors/room1"), &out))
	assert.Equal(t, sample{Count: 3, Label: "ok"}, out)
}

func TestAddQueryAfterPerOmitsStaleBuckets(t *testing.T) {
	ds := store.NewDatastore()
	top := topic.Parse("sensors/temp")
	t0 := time.Unix(100, 0)
	t1 := time.Unix(200, 0)

	require.NoError(t, ds.AddPrimitive(top, t0, value.Float(21.0)))

	v := New()
	v.AddQueryAfterPer(ds, topic.Parse("sensors"), time.Time{}, t1)
	assert.Equal(t, 0, v.Len(), "datapoint older than the watermark must be omitted")

	require.NoError(t, ds.AddPrimitive(top, t1.Add(time.Second), value.Float(22.0)))

	v2 := New()
	v2.AddQueryAfterPer(ds, topic.Parse("sensors"), time.Time{}, t1)
	assert.Equal(t, 1, v2.Len())
}

func TestAddLatestAndApplyInto(t *testing.T) {
	ds := store.NewDatastore()
	v := New()
	require.NoError(t, v.AddLatest(topic.Parse("out"), sample{Count: 9, Label: "done"}))

	require.NoError(t, v.ApplyInto(ds))

	var out sample
	require.NoError(t, ds.GetStruct(topic.Parse("out"), &out))
	assert.Equal(t, sample{Count: 9, Label: "done"}, out)
}

func TestFromDatapointsAndBack(t *testing.T) {
	top := topic.Parse("a/b")
	now := time.Unix(42, 0)
	v := FromDatapoints([]store.Datapoint{{Topic: top, Time: now, Value: value.Integer(5)}})

	dps := v.Datapoints(now)
	require.Len(t, dps, 1)
	assert.True(t, dps[0].Topic.Equal(top))
	i, _ := dps[0].Value.AsInteger()
	assert.Equal(t, int64(5), i)
}

func TestGetLatestMissingReturnsError(t *testing.T) {
	v := New()
	var out sample
	err := v.GetLatest(topic.Parse("missing"), &out)
	assert.Error(t, err)
}
