package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type registryMetrics struct {
	registrations prometheus.Counter
	transfers     prometheus.Counter
	settlements   *prometheus.CounterVec
}

var (
	registryMetricsOnce sync.Once
	registryCollector   *registryMetrics
)

// Registry returns the metrics registry tracking property and escrow events.
func Registry() *registryMetrics {
	registryMetricsOnce.Do(func() {
		registryCollector = &registryMetrics{
			registrations: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "propchain",
				Subsystem: "registry",
				Name:      "registrations_total",
				Help:      "Count of successful property registrations.",
			}),
			transfers: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "propchain",
				Subsystem: "registry",
				Name:      "transfers_total",
				Help:      "Count of successful property transfers.",
			}),
			settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "propchain",
				Subsystem: "escrow",
				Name:      "settlements_total",
				Help:      "Count of terminal escrow transitions segmented by outcome.",
			}, []string{"outcome"}),
		}
		prometheus.MustRegister(
			registryCollector.registrations,
			registryCollector.transfers,
			registryCollector.settlements,
		)
	})
	return registryCollector
}

// RecordRegistration increments the registration counter.
func (m *registryMetrics) RecordRegistration() {
	if m == nil {
		return
	}
	m.registrations.Inc()
}

// RecordTransfer increments the transfer counter.
func (m *registryMetrics) RecordTransfer() {
	if m == nil {
		return
	}
	m.transfers.Inc()
}

// RecordSettlement increments the settlement counter for the supplied outcome
// ("released" or "refunded").
func (m *registryMetrics) RecordSettlement(outcome string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(strings.ToLower(outcome))
	if normalized == "" {
		normalized = "unknown"
	}
	m.settlements.WithLabelValues(normalized).Inc()
}
