package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// GCMetrics is the subset of gc.Metrics implemented here with
// Prometheus collectors. Declared here so this package does not import
// pkg/extent/gc; gc.Metrics and this type structurally match.
type GCMetrics interface {
	ObserveSweep(scanned, deleted int, bytesReclaimed int64, errs int, duration time.Duration)
}

type gcMetrics struct {
	extentsScanned  prometheus.Counter
	extentsDeleted  prometheus.Counter
	bytesReclaimed  prometheus.Counter
	errors          prometheus.Counter
	sweepDuration   prometheus.Histogram
}

// NewGCMetrics returns a Prometheus-backed GCMetrics, or nil if
// InitRegistry has not been called.
func NewGCMetrics() GCMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &gcMetrics{
		extentsScanned: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "gc_extents_scanned_total",
			Help: "Total number of extents examined by garbage collection sweeps.",
		}),
		extentsDeleted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "gc_extents_deleted_total",
			Help: "Total number of unreferenced extents deleted by garbage collection.",
		}),
		bytesReclaimed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "gc_bytes_reclaimed_total",
			Help: "Total number of bytes reclaimed by garbage collection.",
		}),
		errors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "gc_errors_total",
			Help: "Total number of errors encountered during garbage collection sweeps.",
		}),
		sweepDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "gc_sweep_duration_seconds",
			Help:    "Duration of a complete garbage collection sweep.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *gcMetrics) ObserveSweep(scanned, deleted int, bytesReclaimed int64, errs int, duration time.Duration) {
	m.extentsScanned.Add(float64(scanned))
	m.extentsDeleted.Add(float64(deleted))
	m.bytesReclaimed.Add(float64(bytesReclaimed))
	m.errors.Add(float64(errs))
	m.sweepDuration.Observe(duration.Seconds())
}
