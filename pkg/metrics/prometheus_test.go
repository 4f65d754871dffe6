package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordArchived("clickhouse", "AAPL", 3)
	r.RecordArchived("clickhouse", "AAPL", 2)
	r.RecordError("provider")
	r.RecordLastClose("AAPL", 190.5)
	r.RecordCache("layered", "hit")
	r.RecordProviderRequest("candles", "200")
	r.RecordLatency("drip_compute", 0.01)

	assert.Equal(t, 5.0, testutil.ToFloat64(r.archived.WithLabelValues("clickhouse", "AAPL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("provider")))
	assert.Equal(t, 190.5, testutil.ToFloat64(r.lastClose.WithLabelValues("AAPL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("layered", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.providerRequests.WithLabelValues("candles", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.latency))
}

func TestRecordersOnSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
