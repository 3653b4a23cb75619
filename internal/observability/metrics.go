package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/faceton/faceton/internal/facet"
)

// Metrics exposes coordinator merge metrics on a dedicated Prometheus
// registry so tests never collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	mergesTotal   *prometheus.CounterVec
	mergeDuration prometheus.Histogram
	mergeEntries  prometheus.Histogram
	decodeErrors  prometheus.Counter
}

// NewMetrics creates and registers the coordinator metrics. The recycler's
// hit/miss counters are exported as gauge functions when a recycler is
// given; pass nil when merges run with a fresh pool.
func NewMetrics(recycler *facet.Recycler) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		mergesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "faceton_merges_total",
			Help: "Completed facet merges by variant kind.",
		}, []string{"kind"}),
		mergeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "faceton_merge_duration_seconds",
			Help:    "Wall time of one merge, accumulation plus final sort.",
			Buckets: prometheus.ExponentialBuckets(10e-6, 4, 10),
		}),
		mergeEntries: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "faceton_merge_entries",
			Help:    "Distinct bucket count of merged results.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "faceton_decode_errors_total",
			Help: "Partial payloads rejected by the wire codec.",
		}),
	}

	registry.MustRegister(m.mergesTotal, m.mergeDuration, m.mergeEntries, m.decodeErrors)

	if recycler != nil {
		registry.MustRegister(
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "faceton_scratch_pool_hits_total",
				Help: "Scratch accumulators served from the free list.",
			}, func() float64 { return float64(recycler.Stats().Hits) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "faceton_scratch_pool_misses_total",
				Help: "Scratch accumulators freshly allocated.",
			}, func() float64 { return float64(recycler.Stats().Misses) }),
		)
	}

	return m
}

// ObserveMerge records one completed merge.
func (m *Metrics) ObserveMerge(kind facet.Kind, entries int, elapsed time.Duration) {
	m.mergesTotal.WithLabelValues(kind.String()).Inc()
	m.mergeDuration.Observe(elapsed.Seconds())
	m.mergeEntries.Observe(float64(entries))
}

// ObserveDecodeError records a rejected partial payload.
func (m *Metrics) ObserveDecodeError() {
	m.decodeErrors.Inc()
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
