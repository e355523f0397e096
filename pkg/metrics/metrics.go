package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Broker task metrics
	TasksTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tessera_tasks_total",
			Help: "Total number of tasks known to the broker by status",
		},
		[]string{"status"},
	)

	TaskDispatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tessera_task_dispatch_duration_seconds",
			Help:    "Time taken for one task dispatch, from send_inputs to response",
			Buckets: prometheus.DefBuckets,
		},
	)

	TasksTimedOut = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tessera_tasks_timed_out_total",
			Help: "Total number of task dispatches that exceeded the blocking budget",
		},
	)

	TasksFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tessera_tasks_failed_total",
			Help: "Total number of task dispatches that ended in a fatal adapter error",
		},
	)

	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tessera_tick_duration_seconds",
			Help:    "Time taken for one broker tick, excluding awaited dispatches",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Datastore metrics
	BucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tessera_buckets_total",
			Help: "Total number of buckets currently held by the datastore",
		},
	)

	DatapointsInsertedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tessera_datapoints_inserted_total",
			Help: "Total number of datapoints that passed value-change suppression and were inserted",
		},
	)

	DatapointsSuppressedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tessera_datapoints_suppressed_total",
			Help: "Total number of inserts suppressed because the value was unchanged",
		},
	)

	// Adapter metrics
	AdapterQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tessera_adapter_queue_depth",
			Help: "Number of pending messages queued on an adapter, by adapter ID and queue",
		},
		[]string{"adapter_id", "queue"},
	)

	AdapterFramesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tessera_adapter_frames_dropped_total",
			Help: "Total number of TCP adapter read-buffer overflows, by adapter ID",
		},
		[]string{"adapter_id"},
	)

	// Sync metrics
	SyncDatapointsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tessera_sync_datapoints_sent_total",
			Help: "Total number of datapoints forwarded to remote subscribers via sync",
		},
	)

	SyncDatapointsReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tessera_sync_datapoints_received_total",
			Help: "Total number of datapoints applied from remote Update messages",
		},
	)
)

func init() {
	prometheus.MustRegister(TasksTotal)
	prometheus.MustRegister(TaskDispatchDuration)
	prometheus.MustRegister(TasksTimedOut)
	prometheus.MustRegister(TasksFailed)
	prometheus.MustRegister(TickDuration)

	prometheus.MustRegister(BucketsTotal)
	prometheus.MustRegister(DatapointsInsertedTotal)
	prometheus.MustRegister(DatapointsSuppressedTotal)

	prometheus.MustRegister(AdapterQueueDepth)
	prometheus.MustRegister(AdapterFramesDropped)

	prometheus.MustRegister(SyncDatapointsSent)
	prometheus.MustRegister(SyncDatapointsReceived)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
