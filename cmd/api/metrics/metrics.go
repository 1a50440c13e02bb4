// Package metrics provides Prometheus instrumentation for the api service.
//
// Metrics exposed:
//   - buspulse_api_chunks_merged_total: Counter of chunks merged into the live index
//   - buspulse_api_chunk_decode_failures_total: Counter of undecodable chunks skipped
//   - buspulse_api_merge_duration_seconds: Histogram of sync pass duration
//   - buspulse_api_watermark_timestamp_seconds: Gauge of the merge watermark
//   - buspulse_api_records_pruned_total: Counter of history records aged out
//   - buspulse_api_http_request_duration_seconds: Histogram of request durations by route
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ChunksMerged        prometheus.Counter
	ChunkDecodeFailures prometheus.Counter
	MergeDuration       prometheus.Histogram
	WatermarkTimestamp  prometheus.Gauge
	RecordsPruned       prometheus.Counter
	HTTPRequestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	return &Metrics{
		ChunksMerged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buspulse_api_chunks_merged_total",
			Help: "Total number of chunks merged into the live index",
		}),

		ChunkDecodeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buspulse_api_chunk_decode_failures_total",
			Help: "Total number of undecodable chunks added to the skip-set",
		}),

		MergeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "buspulse_api_merge_duration_seconds",
			Help:    "Duration of one discover-merge-prune pass",
			Buckets: prometheus.DefBuckets,
		}),

		WatermarkTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "buspulse_api_watermark_timestamp_seconds",
			Help: "Timestamp of the most recently merged chunk",
		}),

		RecordsPruned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buspulse_api_records_pruned_total",
			Help: "Total number of history records removed by retention pruning",
		}),

		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "buspulse_api_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

func (m *Metrics) RecordChunkMerged(watermark uint64) {
	m.ChunksMerged.Inc()
	m.WatermarkTimestamp.Set(float64(watermark))
}

func (m *Metrics) RecordDecodeFailure() {
	m.ChunkDecodeFailures.Inc()
}

func (m *Metrics) ObserveMerge(seconds float64) {
	m.MergeDuration.Observe(seconds)
}

func (m *Metrics) RecordPruned(records int) {
	m.RecordsPruned.Add(float64(records))
}

func (m *Metrics) ObserveHTTPRequest(route string, seconds float64) {
	m.HTTPRequestDuration.WithLabelValues(route).Observe(seconds)
}
