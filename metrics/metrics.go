// Package metrics holds the Prometheus collectors of the tracker.
//
// Metrics (all namespaced with "tracker_"):
//
//   - store_operations_total (counter): store calls by backend, op and status.
//   - store_latency_seconds (histogram): store call duration by backend and op.
//   - store_fallbacks_total (counter): remote failures served by the local store.
//   - store_pending (gauge): operations waiting to be replayed to the remote.
//   - persist_failures_total (counter): writes the service could not persist.
//   - chat_messages_total (counter): messages sent, by sender role.
//   - chat_connections (gauge): open websocket connections.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tracker"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	storeOps        *prometheus.CounterVec
	storeLatency    *prometheus.HistogramVec
	storeFallbacks  *prometheus.CounterVec
	storePending    prometheus.Gauge
	persistFailures *prometheus.CounterVec
	chatMessages    *prometheus.CounterVec
	chatConnections prometheus.Gauge

	registry *prometheus.Registry
}

// New creates the collectors and registers them in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		storeOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Store operations by backend, operation and status.",
		}, []string{"backend", "op", "status"}),
		storeLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_latency_seconds",
			Help:      "Store operation latency.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"backend", "op"}),
		storeFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_fallbacks_total",
			Help:      "Remote store failures served by the local store.",
		}, []string{"op"}),
		storePending: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_pending",
			Help:      "Operations waiting to be replayed to the remote store.",
		}),
		persistFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Changes kept in memory that could not be persisted.",
		}, []string{"collection"}),
		chatMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_messages_total",
			Help:      "Chat messages sent, by sender role.",
		}, []string{"sender"}),
		chatConnections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chat_connections",
			Help:      "Open realtime chat connections.",
		}),
	}
}

// Registry returns the registry holding the collectors, for /metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// ObserveStore records one store call.
func (m *Metrics) ObserveStore(backend, op string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.storeOps.WithLabelValues(backend, op, status).Inc()
	m.storeLatency.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
}

// Fallback counts a remote failure served locally.
func (m *Metrics) Fallback(op string) {
	if m == nil {
		return
	}
	m.storeFallbacks.WithLabelValues(op).Inc()
}

// SetPending sets the number of operations waiting for the remote.
func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.storePending.Set(float64(n))
}

func (m *Metrics) PersistFailure(collection string) {
	if m == nil {
		return
	}
	m.persistFailures.WithLabelValues(collection).Inc()
}

func (m *Metrics) MessageSent(sender string) {
	if m == nil {
		return
	}
	m.chatMessages.WithLabelValues(sender).Inc()
}

// Connected adds delta to the number of open chat connections.
func (m *Metrics) Connected(delta int) {
	if m == nil {
		return
	}
	m.chatConnections.Add(float64(delta))
}
