package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordExplorerRequest("account", "balance", "ok", 120*time.Millisecond)
	m.RecordExplorerRequest("account", "balance", "ok", 80*time.Millisecond)
	m.RecordCacheHit()
	m.RecordHolding("ethereum", "failed")
	m.RecordAnomalies(3)
	m.RecordAnomalies(0)
	m.RecordChart("volume")
	m.RecordRPCCall("polygon", "ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.explorerRequestsTotal.WithLabelValues("account", "balance", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.explorerCacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.portfolioHoldingsTotal.WithLabelValues("ethereum", "failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.anomaliesDetectedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chartsRenderedTotal.WithLabelValues("volume")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rpcCallsTotal.WithLabelValues("polygon", "ok")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordExplorerRequest("account", "txlist", "error", time.Second)
		m.RecordCacheHit()
		m.RecordRateLimitWait(time.Millisecond)
		m.RecordRPCCall("ethereum", "ok")
		m.RecordHolding("ethereum", "ok")
		m.RecordAnomalies(1)
		m.RecordChart("gas")
	})
}
