// Package metrics defines the storefront's Prometheus collectors.
//
// All methods are safe to call on a nil *Metrics, so components can take an
// optional collector set without guarding every call site.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pokemart"

// Metrics groups every collector the storefront exports.
type Metrics struct {
	// cartOps counts cart mutations.
	// Labels: op (add, remove, update, clear), result (ok, rejected, invalid)
	cartOps *prometheus.CounterVec

	// persistFailures counts cart writes that failed after the in-memory
	// mutation was applied.
	persistFailures prometheus.Counter

	// loadOutcomes counts cart restores.
	// Labels: outcome (empty, loaded, corrupt, unreadable)
	loadOutcomes *prometheus.CounterVec

	// skippedEntries counts persisted entries that could not be rebuilt.
	skippedEntries prometheus.Counter

	// stockChanges counts stock mutations committed by the oscillator.
	stockChanges prometheus.Counter

	// droppedNotifications counts stock notifications lost to full
	// subscriber buffers.
	droppedNotifications prometheus.Counter

	// checkouts counts checkout attempts.
	// Labels: result (approved, declined, invalid, empty, canceled)
	checkouts *prometheus.CounterVec

	// catalogLoad measures catalog fetch latency.
	// Labels: status (ok, error)
	catalogLoad *prometheus.HistogramVec
}

// New registers the collectors with reg. Passing prometheus.DefaultRegisterer
// exposes them on the default /metrics handler.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		cartOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "operations_total",
			Help:      "Cart mutations by operation and result",
		}, []string{"op", "result"}),
		persistFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "persist_failures_total",
			Help:      "Cart writes that failed after a successful mutation",
		}),
		loadOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "loads_total",
			Help:      "Cart restores by outcome",
		}, []string{"outcome"}),
		skippedEntries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "skipped_entries_total",
			Help:      "Persisted cart entries dropped during reconstruction",
		}),
		stockChanges: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "changes_total",
			Help:      "Stock mutations committed by the oscillator",
		}),
		droppedNotifications: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "dropped_notifications_total",
			Help:      "Stock notifications dropped because a subscriber was full",
		}),
		checkouts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "attempts_total",
			Help:      "Checkout attempts by result",
		}, []string{"result"}),
		catalogLoad: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "load_duration_seconds",
			Help:      "Catalog load latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"status"}),
	}
}

func (m *Metrics) CartOp(op, result string) {
	if m == nil {
		return
	}
	m.cartOps.WithLabelValues(op, result).Inc()
}

func (m *Metrics) PersistFailed() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

func (m *Metrics) CartLoaded(outcome string, skipped int) {
	if m == nil {
		return
	}
	m.loadOutcomes.WithLabelValues(outcome).Inc()
	if skipped > 0 {
		m.skippedEntries.Add(float64(skipped))
	}
}

func (m *Metrics) StockChanged() {
	if m == nil {
		return
	}
	m.stockChanges.Inc()
}

func (m *Metrics) NotificationDropped() {
	if m == nil {
		return
	}
	m.droppedNotifications.Inc()
}

func (m *Metrics) Checkout(result string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(result).Inc()
}

func (m *Metrics) CatalogLoaded(seconds float64, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.catalogLoad.WithLabelValues(status).Observe(seconds)
}
