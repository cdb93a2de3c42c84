// Package prom adapts counter.Metrics to Prometheus client_golang, the
// same Namespace/Subsystem/ConstLabels/MustRegister shape used throughout
// this codebase's metrics adapters.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kauxp/visit-counter/counter"
)

// Adapter implements counter.Metrics and exports Prometheus counters,
// gauges, and a histogram. Safe for concurrent use; all Prometheus metric
// types are goroutine-safe.
type Adapter struct {
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	servedFromBackend  *prometheus.CounterVec
	backendUnavailable *prometheus.CounterVec
	flushAttempted     prometheus.Counter
	flushFailed        prometheus.Counter
	flushDuration      prometheus.Histogram
	bufferSize         prometheus.Gauge
}

// New constructs a Prometheus metrics adapter.
//   - reg:         registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:     Prometheus namespace and subsystem
//   - constLabels: static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "cache_hits_total",
			Help:        "Reads served from the local cache without a backend round trip",
			ConstLabels: constLabels,
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "cache_misses_total",
			Help:        "Reads that required a read-through to a shard",
			ConstLabels: constLabels,
		}),
		servedFromBackend: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "served_from_backend_total",
				Help:        "Read-throughs served by each backend shard",
				ConstLabels: constLabels,
			},
			[]string{"shard"},
		),
		backendUnavailable: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "backend_unavailable_total",
				Help:        "Failed backend calls by shard",
				ConstLabels: constLabels,
			},
			[]string{"shard"},
		),
		flushAttempted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "flush_attempted_total",
			Help:        "Pages attempted across all flush runs",
			ConstLabels: constLabels,
		}),
		flushFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "flush_failed_total",
			Help:        "Pages that failed to flush and were re-buffered",
			ConstLabels: constLabels,
		}),
		flushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "flush_duration_seconds",
			Help:        "Wall-clock duration of a full FlushAll run",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}),
		bufferSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "buffer_size",
			Help:        "Pages currently pending in the write buffer",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(
		a.cacheHits, a.cacheMisses, a.servedFromBackend, a.backendUnavailable,
		a.flushAttempted, a.flushFailed, a.flushDuration, a.bufferSize,
	)
	return a
}

func (a *Adapter) CacheHit()  { a.cacheHits.Inc() }
func (a *Adapter) CacheMiss() { a.cacheMisses.Inc() }

func (a *Adapter) ServedFromBackend(shard string) {
	a.servedFromBackend.WithLabelValues(shard).Inc()
}

func (a *Adapter) BackendUnavailable(shard string) {
	a.backendUnavailable.WithLabelValues(shard).Inc()
}

func (a *Adapter) FlushObserved(attempted, failed int, d time.Duration) {
	a.flushAttempted.Add(float64(attempted))
	a.flushFailed.Add(float64(failed))
	a.flushDuration.Observe(d.Seconds())
}

func (a *Adapter) BufferSize(n int) { a.bufferSize.Set(float64(n)) }

// Compile-time check: ensure Adapter implements counter.Metrics.
var _ counter.Metrics = (*Adapter)(nil)
