package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetrics_AllMethodsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordConnectionAccepted()
		m.RecordConnectionClosed()
		m.SetActiveConnections(5)
		m.RecordOperation("UPLOAD", "SUCCESS", time.Millisecond)
		m.RecordLockContention()
		m.RecordBlockedClient()
	})
}

func TestMetrics_RecordsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordConnectionAccepted()
	m.RecordConnectionAccepted()
	m.RecordConnectionClosed()
	m.RecordOperation("DOWNLOAD", "SUCCESS", 2*time.Millisecond)
	m.RecordLockContention()
	m.RecordBlockedClient()

	families, err := reg.Gather()
	require.NoError(t, err)

	counters := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				counters[metricKey(family.GetName(), metric)] += c.GetValue()
			}
		}
	}

	assert.Equal(t, float64(2), counters["filevault_connections_accepted_total"])
	assert.Equal(t, float64(1), counters["filevault_connections_closed_total"])
	assert.Equal(t, float64(1), counters["filevault_lock_contention_total"])
	assert.Equal(t, float64(1), counters["filevault_blocked_clients_total"])
}

func metricKey(name string, m *dto.Metric) string {
	return name
}
