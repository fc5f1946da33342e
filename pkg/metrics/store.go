package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// StoreMetrics reports the extent store's steady-state gauges:
// how many extent files the writer pool currently holds open, and the
// catalog's on-disk footprint. Unlike GCMetrics' counters, both are
// observed on a timer rather than per-operation, since neither changes
// on every Append.
type StoreMetrics interface {
	SetOpenExtents(n int)
	SetCatalogSize(bytes int64)
}

type storeMetrics struct {
	openExtents prometheus.Gauge
	catalogSize prometheus.Gauge
}

// NewStoreMetrics returns a Prometheus-backed StoreMetrics, or nil if
// InitRegistry has not been called.
func NewStoreMetrics() StoreMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &storeMetrics{
		openExtents: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "writer_open_extents",
			Help: "Number of extent files currently open for append across all destinations.",
		}),
		catalogSize: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "catalog_size",
			Help: "On-disk footprint of the extent metadata catalog, in bytes.",
		}),
	}
}

func (m *storeMetrics) SetOpenExtents(n int) {
	m.openExtents.Set(float64(n))
}

func (m *storeMetrics) SetCatalogSize(bytes int64) {
	m.catalogSize.Set(float64(bytes))
}
