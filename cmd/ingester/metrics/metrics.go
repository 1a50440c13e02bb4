// Package metrics provides Prometheus instrumentation for the ingester.
//
// Metrics exposed:
//   - buspulse_ingester_feed_fetch_duration_seconds: Histogram of feed fetch latency
//   - buspulse_ingester_feed_fetch_errors_total: Counter of failed feed fetches
//   - buspulse_ingester_samples_accepted_total: Counter of samples that produced a record
//   - buspulse_ingester_samples_discarded_total: Counter of stale/first-sighting samples
//   - buspulse_ingester_chunk_flush_duration_seconds: Histogram of window flush+write time
//   - buspulse_ingester_chunk_write_errors_total: Counter of failed chunk writes (data loss)
//   - buspulse_ingester_chunk_records_flushed: Gauge of record count in the last chunk
//   - buspulse_ingester_vehicles_tracked: Gauge of vehicles with a last-seen timestamp
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	FeedFetchDuration   prometheus.Histogram
	FeedFetchErrors     prometheus.Counter
	SamplesAccepted     prometheus.Counter
	SamplesDiscarded    prometheus.Counter
	ChunkFlushDuration  prometheus.Histogram
	ChunkWriteErrors    prometheus.Counter
	ChunkRecordsFlushed prometheus.Gauge
	VehiclesTracked     prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		FeedFetchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "buspulse_ingester_feed_fetch_duration_seconds",
			Help:    "Duration of GTFS-rt feed fetches",
			Buckets: prometheus.DefBuckets,
		}),

		FeedFetchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buspulse_ingester_feed_fetch_errors_total",
			Help: "Total number of failed feed fetches",
		}),

		SamplesAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buspulse_ingester_samples_accepted_total",
			Help: "Total number of feed samples that produced a record",
		}),

		SamplesDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buspulse_ingester_samples_discarded_total",
			Help: "Total number of stale or first-sighting samples discarded",
		}),

		ChunkFlushDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "buspulse_ingester_chunk_flush_duration_seconds",
			Help:    "Duration of window flush and chunk write",
			Buckets: prometheus.DefBuckets,
		}),

		ChunkWriteErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buspulse_ingester_chunk_write_errors_total",
			Help: "Total number of failed chunk writes; each one is lost window data",
		}),

		ChunkRecordsFlushed: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "buspulse_ingester_chunk_records_flushed",
			Help: "Number of records in the most recently flushed chunk",
		}),

		VehiclesTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "buspulse_ingester_vehicles_tracked",
			Help: "Number of vehicles with a known last-seen timestamp",
		}),
	}
}

func (m *Metrics) ObserveFeedFetch(seconds float64) {
	m.FeedFetchDuration.Observe(seconds)
}

func (m *Metrics) RecordFeedFetchError() {
	m.FeedFetchErrors.Inc()
}

func (m *Metrics) RecordSample(accepted bool) {
	if accepted {
		m.SamplesAccepted.Inc()
	} else {
		m.SamplesDiscarded.Inc()
	}
}

func (m *Metrics) ObserveChunkFlush(seconds float64, records int) {
	m.ChunkFlushDuration.Observe(seconds)
	m.ChunkRecordsFlushed.Set(float64(records))
}

func (m *Metrics) RecordChunkWriteError() {
	m.ChunkWriteErrors.Inc()
}

func (m *Metrics) SetVehiclesTracked(n int) {
	m.VehiclesTracked.Set(float64(n))
}
