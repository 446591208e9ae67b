// Package metrics exposes Prometheus instrumentation for the store:
// chunk/dedup counters, byte totals, and upload/read latency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles all collectors registered by the store. Callers
// instantiate one Metrics per process and pass it down to whichever
// components emit observations.
type Metrics struct {
	ChunksWritten   prometheus.Counter
	ChunksDeduped   prometheus.Counter
	BytesStored     prometheus.Counter
	SegmentsSealed  prometheus.Counter
	UploadDuration  *prometheus.HistogramVec
	ReadDuration    *prometheus.HistogramVec
}

// New constructs and registers every collector against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChunksWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "castore",
			Name:      "chunks_written_total",
			Help:      "Number of chunks newly written to a segment (dedup misses).",
		}),
		ChunksDeduped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "castore",
			Name:      "chunks_deduped_total",
			Help:      "Number of chunk upserts that matched an existing chunk (dedup hits).",
		}),
		BytesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "castore",
			Name:      "bytes_stored_total",
			Help:      "Total bytes appended to segments.",
		}),
		SegmentsSealed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "castore",
			Name:      "segments_sealed_total",
			Help:      "Number of segments sealed after reaching their size threshold.",
		}),
		UploadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "castore",
			Name:      "upload_duration_seconds",
			Help:      "Latency of file upload operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		ReadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "castore",
			Name:      "read_duration_seconds",
			Help:      "Latency of file read operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.ChunksWritten,
		m.ChunksDeduped,
		m.BytesStored,
		m.SegmentsSealed,
		m.UploadDuration,
		m.ReadDuration,
	)

	return m
}
