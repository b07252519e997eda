package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PortalRequestDuration tracks latency of upstream portal calls by step.
	PortalRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "iptvproxy_portal_request_duration_seconds",
		Help:    "Latency of upstream portal requests by operation",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"operation", "result"})

	// PortalHandshakeTotal counts completed and failed session handshakes.
	PortalHandshakeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptvproxy_portal_handshakes_total",
		Help: "Total number of portal session handshakes by result",
	}, []string{"result"})

	// CatalogChannels is the number of channels in the last scraped catalog.
	CatalogChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptvproxy_catalog_channels",
		Help: "Number of channels returned by the last catalog fetch",
	})

	// CatalogDroppedRecords counts catalog records that could not be turned into channels.
	CatalogDroppedRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptvproxy_catalog_dropped_records_total",
		Help: "Catalog records dropped during parsing by reason",
	}, []string{"reason"})

	// GuideChannelResults counts per-channel guide fetch outcomes.
	GuideChannelResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptvproxy_guide_channel_results_total",
		Help: "Per-channel program guide fetch results",
	}, []string{"result"})

	// GuideFetchDuration tracks the wall time of a full guide fan-out.
	GuideFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "iptvproxy_guide_fetch_duration_seconds",
		Help:    "Duration of a complete program guide fan-out",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
	})
)

// ObservePortalRequest records one upstream portal call.
func ObservePortalRequest(operation string, success bool, d time.Duration) {
	PortalRequestDuration.WithLabelValues(operation, resultLabel(success)).Observe(d.Seconds())
}

// IncHandshake counts a finished handshake attempt.
func IncHandshake(success bool) {
	PortalHandshakeTotal.WithLabelValues(resultLabel(success)).Inc()
}

// SetCatalogChannels stores the size of the latest catalog.
func SetCatalogChannels(n int) {
	CatalogChannels.Set(float64(n))
}

// IncCatalogDropped counts one dropped catalog record.
func IncCatalogDropped(reason string) {
	CatalogDroppedRecords.WithLabelValues(reason).Inc()
}

// RecordGuideChannel counts one channel of a guide fan-out.
func RecordGuideChannel(success bool) {
	result := "ok"
	if !success {
		result = "failed"
	}
	GuideChannelResults.WithLabelValues(result).Inc()
}

// ObserveGuideFetch records the duration of a guide fan-out.
func ObserveGuideFetch(d time.Duration) {
	GuideFetchDuration.Observe(d.Seconds())
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
