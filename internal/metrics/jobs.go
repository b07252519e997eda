package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	buildTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptvproxy_build_total",
		Help: "Playlist and guide builds by artifact and result (success, fallback, failure)",
	}, []string{"artifact", "result"})

	buildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "iptvproxy_build_duration_seconds",
		Help:    "Duration of playlist and guide builds",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
	}, []string{"artifact"})

	lastExport = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptvproxy_last_export_timestamp_seconds",
		Help: "Unix time of the last successful scheduled export",
	})

	cacheOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptvproxy_cache_operations_total",
		Help: "Cache lookups by backend and result (hit, miss)",
	}, []string{"backend", "result"})
)

// RecordBuild counts one playlist or guide build.
func RecordBuild(artifact, result string, d time.Duration) {
	buildTotal.WithLabelValues(artifact, result).Inc()
	buildDuration.WithLabelValues(artifact).Observe(d.Seconds())
}

// MarkExport records a successful export at t.
func MarkExport(t time.Time) {
	lastExport.Set(float64(t.Unix()))
}

// RecordCacheLookup counts a cache hit or miss.
func RecordCacheLookup(backend string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheOps.WithLabelValues(backend, result).Inc()
}
