package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Endpoint tracks per-endpoint latency, errors and engine compute time
// for the API handlers.
type Endpoint struct {
	Latency *prometheus.HistogramVec
	Errors  *prometheus.CounterVec
	Compute *prometheus.HistogramVec
	Symbols *prometheus.HistogramVec
}

func NewEndpoint(reg prometheus.Registerer) *Endpoint {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Endpoint{
		Latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dripview",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of API endpoints",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dripview",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by API endpoint and code",
		}, []string{"endpoint", "code"}),
		Compute: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dripview",
			Subsystem: "engine",
			Name:      "compute_seconds",
			Help:      "Time spent in the DRIP and stats engines",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"engine"}),
		Symbols: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dripview",
			Subsystem: "api",
			Name:      "symbols_per_request",
			Help:      "Number of symbols requested",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}, []string{"endpoint"}),
	}
}

// Observe records one call to endpoint that started at start. code is
// empty on success.
func (e *Endpoint) Observe(endpoint string, start time.Time, code string) {
	if e == nil {
		return
	}
	e.Latency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if code != "" {
		e.Errors.WithLabelValues(endpoint, code).Inc()
	}
}

// ObserveCompute records engine compute time.
func (e *Endpoint) ObserveCompute(engine string, d time.Duration) {
	if e == nil {
		return
	}
	e.Compute.WithLabelValues(engine).Observe(d.Seconds())
}

func (e *Endpoint) ObserveSymbols(endpoint string, n int) {
	if e == nil {
		return
	}
	e.Symbols.WithLabelValues(endpoint).Observe(float64(n))
}
