package metrics

import "time"

// Collector periodically samples broker and datastore state through
// caller-supplied callbacks and publishes the results as Prometheus
// gauges. It takes callbacks rather than concrete *broker.Broker /
// *store.Datastore references so this package never needs to import
// either of them.
type Collector struct {
	sampleTasks   func() map[string]int
	sampleBuckets func() int
	stopCh        chan struct{}
}

// NewCollector creates a metrics collector. sampleTasks should return
// the current task count by status string; sampleBuckets should return
// the current bucket count.
func NewCollector(sampleTasks func() map[string]int, sampleBuckets func() int) *Collector {
	return &Collector{
		sampleTasks:   sampleTasks,
		sampleBuckets: sampleBuckets,
		stopCh:        make(chan struct{}),
	}
}

// Start begins collecting metrics on a 15s interval.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectTaskMetrics()
	c.collectDatastoreMetrics()
}

func (c *Collector) collectTaskMetrics() {
	counts := c.sampleTasks()
	for _, status := range []string{"Idle", "Queued", "Executing", "Waiting", "Completed", "Failed"} {
		TasksTotal.WithLabelValues(status).Set(float64(counts[status]))
	}
}

func (c *Collector) collectDatastoreMetrics() {
	BucketsTotal.Set(float64(c.sampleBuckets()))
}
