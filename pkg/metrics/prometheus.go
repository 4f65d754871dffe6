package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	archived         *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	lastClose        *prometheus.GaugeVec
	latency          *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
	providerRequests *prometheus.CounterVec
}

// New creates a Prometheus metrics recorder on reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		archived: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dripview_bars_archived_total",
				Help: "Total number of daily bars handed to an archive backend",
			},
			[]string{"backend", "symbol"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dripview_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastClose: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dripview_last_close",
				Help: "Most recent daily close seen for a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dripview_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dripview_cache_lookups_total",
				Help: "Market data cache lookups by layer and result",
			},
			[]string{"layer", "result"},
		),
		providerRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dripview_provider_requests_total",
				Help: "Upstream chart API requests by area and status",
			},
			[]string{"area", "status"},
		),
	}
}

// RecordArchived records n bars handed to an archive backend.
func (r *Recorder) RecordArchived(backend, symbol string, n int) {
	r.archived.WithLabelValues(backend, symbol).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastClose records the last close for a symbol.
func (r *Recorder) RecordLastClose(symbol string, close float64) {
	r.lastClose.WithLabelValues(symbol).Set(close)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordCache(layer, result string) {
	r.cacheLookups.WithLabelValues(layer, result).Inc()
}

func (r *Recorder) RecordProviderRequest(area, status string) {
	r.providerRequests.WithLabelValues(area, status).Inc()
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordArchived(string, string, int)   {}
func (Nop) RecordError(string)                   {}
func (Nop) RecordLastClose(string, float64)      {}
func (Nop) RecordLatency(string, float64)        {}
func (Nop) RecordCache(string, string)           {}
func (Nop) RecordProviderRequest(string, string) {}
