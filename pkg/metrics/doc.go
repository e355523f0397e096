/*
Package metrics provides Prometheus metrics collection and exposition for the
data-flow broker.

The metrics package defines and registers all broker metrics using the
Prometheus client library, providing observability into task scheduling,
datastore growth, adapter backpressure, and sync throughput. Metrics are
exposed via an HTTP endpoint for scraping by Prometheus servers. The same
package also tracks lightweight component health state used by the admin
/health and /ready endpoints.

# Architecture

The broker's metrics system follows Prometheus best practices with
instrumentation across the scheduling, storage, transport, and sync layers:

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                 │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  │  - Automatic Go runtime metrics             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Metric Types                   │          │
	│  │                                              │          │
	│  │  Gauge: Instant values (bucket count)       │          │
	│  │  Counter: Monotonic increases (timeouts)    │          │
	│  │  Histogram: Distributions (tick duration)   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  Broker: Task counts by status, dispatch    │          │
	│  │          duration, timeouts, tick duration  │          │
	│  │  Datastore: Bucket count, insert/suppress   │          │
	│  │  Adapter: Queue depth, dropped frames        │          │
	│  │  Sync: Datapoints sent/received              │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint              │          │
	│  │  - Path: /metrics                           │          │
	│  │  - Format: Prometheus text exposition       │          │
	│  │  - Handler: promhttp.Handler()              │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Prometheus Server                   │          │
	│  │  - Scrapes /metrics every 15s               │          │
	│  │  - Stores time series data                  │          │
	│  │  - Provides PromQL query interface          │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Metric Registry:
  - Global Prometheus DefaultRegistry
  - All metrics registered at package init
  - Automatic collection of Go runtime metrics
  - Thread-safe for concurrent updates

Gauge Metrics:
  - Instant value that can go up or down
  - Examples: tasks total by status, buckets total, adapter queue depth
  - Operations: Set, Inc, Dec, Add, Sub

Counter Metrics:
  - Monotonically increasing value
  - Examples: datapoints inserted, tasks failed, sync datapoints sent
  - Operations: Inc, Add (cannot decrease)

Histogram Metrics:
  - Distribution of observed values
  - Buckets for latency percentiles (p50, p95, p99)
  - Examples: task dispatch duration, tick duration
  - Includes: sum, count, buckets

Timer Helper:
  - Convenience wrapper for timing operations
  - Start timer, observe duration to histogram
  - Supports label values for histogram vectors

Collector:
  - Periodically samples the Broker and Datastore
  - Publishes task-status counts and bucket totals as gauges
  - See collector.go for the 15s polling loop

# Metrics Catalog

Broker Metrics:

tessera_tasks_total{status}:
  - Type: Gauge
  - Description: Total tasks known to the broker by status (Idle, Queued,
    Executing, Waiting, Completed, Failed)
  - Labels: status
  - Example: tessera_tasks_total{status="Executing"} 4

tessera_task_dispatch_duration_seconds:
  - Type: Histogram
  - Description: Time taken for one task dispatch, from send_inputs to response
  - Buckets: Default Prometheus buckets

tessera_tasks_timed_out_total:
  - Type: Counter
  - Description: Total task dispatches that exceeded the blocking budget
  - Example: tessera_tasks_timed_out_total 3

tessera_tasks_failed_total:
  - Type: Counter
  - Description: Total task dispatches that ended in a fatal adapter error
  - Example: tessera_tasks_failed_total 1

tessera_tick_duration_seconds:
  - Type: Histogram
  - Description: Time taken for one broker tick, excluding awaited dispatches
  - Buckets: Default Prometheus buckets

Datastore Metrics:

tessera_buckets_total:
  - Type: Gauge
  - Description: Total number of buckets currently held by the datastore
  - Example: tessera_buckets_total 128

tessera_datapoints_inserted_total:
  - Type: Counter
  - Description: Total datapoints that passed value-change suppression and
    were inserted
  - Example: tessera_datapoints_inserted_total 48213

tessera_datapoints_suppressed_total:
  - Type: Counter
  - Description: Total inserts suppressed because the value was unchanged
  - Example: tessera_datapoints_suppressed_total 9021

Adapter Metrics:

tessera_adapter_queue_depth{adapter_id, queue}:
  - Type: Gauge
  - Description: Number of pending messages queued on an adapter
  - Labels: adapter_id, queue
  - Example: tessera_adapter_queue_depth{adapter_id="node-1",queue="recv"} 2

tessera_adapter_frames_dropped_total{adapter_id}:
  - Type: Counter
  - Description: Total TCP adapter read-buffer overflows, by adapter ID
  - Labels: adapter_id

Sync Metrics:

tessera_sync_datapoints_sent_total:
  - Type: Counter
  - Description: Total datapoints forwarded to remote subscribers via sync

tessera_sync_datapoints_received_total:
  - Type: Counter
  - Description: Total datapoints applied from remote Update messages

# Usage

Updating Gauge Metrics:

	import "github.com/cuemby/tessera/pkg/metrics"

	// Set absolute value
	metrics.TasksTotal.WithLabelValues("Executing").Set(4)

	// Increment/decrement
	metrics.BucketsTotal.Inc()
	metrics.BucketsTotal.Dec()

Updating Counter Metrics:

	// Increment by 1
	metrics.TasksFailed.Inc()

	// Add arbitrary value
	metrics.AdapterFramesDropped.WithLabelValues("node-1").Add(1)

Recording Histogram Observations:

	// Direct observation
	metrics.TickDuration.Observe(0.004) // 4ms

	// Using Timer helper
	timer := metrics.NewTimer()
	// ... perform dispatch ...
	timer.ObserveDuration(metrics.TaskDispatchDuration)

Using Timer with Labels:

	// ObserveDurationVec takes any prometheus.ObserverVec, such as a
	// HistogramVec registered by the caller.
	opDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "my_operation_duration_seconds"},
		[]string{"operation"},
	)
	timer := metrics.NewTimer()
	// ... perform operation ...
	timer.ObserveDurationVec(opDuration, "dispatch")

Complete Example:

	package main

	import (
		"net/http"
		"time"
		"github.com/cuemby/tessera/pkg/metrics"
	)

	func main() {
		// Update broker metrics
		metrics.TasksTotal.WithLabelValues("Executing").Set(4)
		metrics.BucketsTotal.Set(128)

		// Time an operation
		timer := metrics.NewTimer()
		dispatchTask()
		timer.ObserveDuration(metrics.TaskDispatchDuration)

		// Expose metrics endpoint
		http.Handle("/metrics", metrics.Handler())
		http.ListenAndServe(":9090", nil)
	}

	func dispatchTask() {
		// task dispatch logic
		time.Sleep(4 * time.Millisecond)
	}

# Integration Points

This package integrates with:

  - pkg/broker: Reports task status counts and tick duration
  - pkg/store: Reports bucket totals and insert/suppress counts
  - pkg/adapter: Reports queue depth and dropped frames per connection
  - pkg/sync: Reports datapoints sent and received
  - pkg/adminapi: Serves /metrics, /health, and /ready over HTTP
  - Prometheus: Scrapes /metrics endpoint

# Design Patterns

Package Init Registration:
  - All metrics registered in init() function
  - MustRegister panics on duplicate registration
  - Ensures metrics available before main()
  - No runtime registration needed

Label Discipline:
  - Use WithLabelValues for cardinality-bounded labels
  - Avoid high-cardinality labels (task IDs, timestamps)
  - Document label values in metric description
  - Keep label count low (< 5 per metric)

Timer Pattern:
  - Create timer at operation start
  - Defer or explicitly call ObserveDuration
  - Automatically calculates elapsed time
  - Supports both simple and vector histograms

Global Metrics:
  - Package-level variables for all metrics
  - Accessible from any broker package
  - Thread-safe concurrent updates
  - No initialization required by callers

# Performance Characteristics

Metric Update Overhead:
  - Gauge set/inc: ~50ns per operation
  - Counter inc: ~50ns per operation
  - Histogram observe: ~200ns per operation
  - Labels: +100ns per label value
  - Negligible impact on the tick loop

Memory Usage:
  - Per metric: ~1KB baseline
  - Per label combination: ~100 bytes
  - Histogram buckets: ~50 bytes each
  - Total: under 1MB for a typical broker process

Scrape Performance:
  - Metrics gathering: ~1-5ms for full scrape
  - HTTP response: ~10ms for typical metric set
  - Recommendation: Scrape interval >= 15s
  - Concurrent scrapes: Safe (read-only)

Cardinality Management:
  - Low cardinality: status (< 10 values)
  - Medium cardinality: adapter_id (one per connected node)
  - Avoid: task IDs, topic strings, timestamps (unbounded)
  - Best practice: Aggregate high-cardinality detail in logs instead

# Troubleshooting

Common Issues:

Missing Metrics:
  - Symptom: Metric not appearing in /metrics output
  - Check: Metric registered in init() function
  - Check: MustRegister called (panics if duplicate)
  - Solution: Verify metric variable is exported

High Cardinality:
  - Symptom: Prometheus memory usage grows
  - Cause: Using IDs or unbounded values as labels
  - Check: Label cardinality (count unique combinations)
  - Solution: Remove high-cardinality labels, aggregate differently

Histogram Bucket Mismatch:
  - Symptom: No data in desired percentiles
  - Cause: Buckets don't cover observed value range
  - Check: Histogram sum / count for average
  - Solution: Customize buckets for value range

Stale Metrics:
  - Symptom: Metrics not updating
  - Cause: Code not calling metric update methods, or Collector not started
  - Check: Add logging around metric updates
  - Solution: Instrument code paths correctly

# Monitoring

Prometheus Queries (PromQL):

Task Health:
  - Executing tasks: tessera_tasks_total{status="Executing"}
  - Failed tasks: tessera_tasks_total{status="Failed"}
  - Timeout rate: rate(tessera_tasks_timed_out_total[5m])
  - p95 dispatch latency: histogram_quantile(0.95, tessera_task_dispatch_duration_seconds_bucket)

Datastore Health:
  - Bucket growth: delta(tessera_buckets_total[1h])
  - Suppression ratio: rate(tessera_datapoints_suppressed_total[5m]) / rate(tessera_datapoints_inserted_total[5m])

Adapter Health:
  - Queue backlog: tessera_adapter_queue_depth
  - Dropped frame rate: rate(tessera_adapter_frames_dropped_total[5m])

Sync Health:
  - Send rate: rate(tessera_sync_datapoints_sent_total[1m])
  - Receive rate: rate(tessera_sync_datapoints_received_total[1m])

# Alerting Rules

Recommended Prometheus alerts:

High Task Failure Rate:
  - Alert: rate(tessera_tasks_failed_total[5m]) > 0.1
  - Description: More than 0.1 tasks failing per second
  - Action: Check node adapter connectivity and task logs

High Task Timeout Rate:
  - Alert: rate(tessera_tasks_timed_out_total[5m]) > 0.1
  - Description: Tasks are exceeding the blocking dispatch budget
  - Action: Check node responsiveness and network latency

Adapter Frames Dropped:
  - Alert: rate(tessera_adapter_frames_dropped_total[5m]) > 0
  - Description: A node adapter is overflowing its read buffer
  - Action: Check node send rate and TCP backpressure

High Tick Duration:
  - Alert: histogram_quantile(0.95, tessera_tick_duration_seconds_bucket) > 0.1
  - Description: p95 scheduling tick takes more than 100ms
  - Action: Check registered task count and dispatch latency

# Grafana Dashboards

Recommended dashboard panels:

Broker Overview:
  - Time series: Tasks by status (Idle, Queued, Executing, Failed)
  - Time series: Task failure and timeout rate
  - Heatmap: Task dispatch latency distribution

Datastore Overview:
  - Gauge: Total buckets
  - Time series: Insert rate vs suppression rate

Adapter Overview:
  - Time series: Queue depth per adapter
  - Time series: Dropped frames per adapter

Sync Overview:
  - Time series: Datapoints sent and received per second

# See Also

  - Prometheus documentation: https://prometheus.io/docs/
  - Prometheus client library: https://github.com/prometheus/client_golang
  - PromQL tutorial: https://prometheus.io/docs/prometheus/latest/querying/basics/
  - Histogram best practices: https://prometheus.io/docs/practices/histograms/
*/
package metrics
