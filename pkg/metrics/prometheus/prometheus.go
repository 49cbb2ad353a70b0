// Package prometheus is the Prometheus-backed implementation of
// metrics.Registry.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is a Prometheus-backed metrics.Registry. A nil *Metrics is valid
// and every method becomes a no-op, so disabling metrics never requires
// the caller to branch.
type Metrics struct {
	connectionsAccepted prometheus.Counter
	connectionsClosed   prometheus.Counter
	activeConnections   prometheus.Gauge
	operations          *prometheus.CounterVec
	operationDuration   *prometheus.HistogramVec
	lockContention      prometheus.Counter
	blockedClients      prometheus.Counter
}

// New registers and returns a Metrics instance against reg. Pass
// prometheus.DefaultRegisterer for the global registry, or a fresh
// prometheus.NewRegistry() in tests to avoid collisions between runs.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		connectionsAccepted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "filevault_connections_accepted_total",
			Help: "Total number of TCP connections accepted.",
		}),
		connectionsClosed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "filevault_connections_closed_total",
			Help: "Total number of TCP connections closed.",
		}),
		activeConnections: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "filevault_active_connections",
			Help: "Current number of open TCP connections.",
		}),
		operations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "filevault_operations_total",
			Help: "Total number of dispatched commands, by verb and outcome.",
		}, []string{"operation", "status"}),
		operationDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "filevault_operation_duration_seconds",
			Help:    "Command dispatch latency in seconds, by verb.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		lockContention: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "filevault_lock_contention_total",
			Help: "Total number of try_acquire calls that found the file already locked.",
		}),
		blockedClients: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "filevault_blocked_clients_total",
			Help: "Total number of commands rejected due to an active brute-force block.",
		}),
	}
}

func (m *Metrics) RecordConnectionAccepted() {
	if m == nil {
		return
	}
	m.connectionsAccepted.Inc()
}

func (m *Metrics) RecordConnectionClosed() {
	if m == nil {
		return
	}
	m.connectionsClosed.Inc()
}

func (m *Metrics) SetActiveConnections(count int32) {
	if m == nil {
		return
	}
	m.activeConnections.Set(float64(count))
}

func (m *Metrics) RecordOperation(op string, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, status).Inc()
	m.operationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func (m *Metrics) RecordLockContention() {
	if m == nil {
		return
	}
	m.lockContention.Inc()
}

func (m *Metrics) RecordBlockedClient() {
	if m == nil {
		return
	}
	m.blockedClients.Inc()
}
