// Package metrics holds the process-wide Prometheus registry and the
// per-subsystem metric sets built on top of it. Metrics are opt-in:
// until InitRegistry is called, every constructor returns nil and every
// recording function becomes a no-op, so instrumented code never pays
// for metrics it didn't ask for.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry enables metrics collection for the process. Safe to call
// more than once; later calls replace the registry.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	registry = prometheus.NewRegistry()
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// GetRegistry returns the active registry, or nil if metrics are
// disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}
