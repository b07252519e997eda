package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	relaysActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "iptvproxy_relays_active",
		Help: "Number of stream relays currently serving a client",
	}, []string{"transport"})

	relayBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptvproxy_relay_bytes_total",
		Help: "Bytes forwarded to HTTP clients by transport",
	}, []string{"transport"})

	relayDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptvproxy_relay_dropped_packets_total",
		Help: "Packets discarded because the client fell behind the live window",
	}, []string{"transport"})

	relayEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptvproxy_relay_sessions_total",
		Help: "Finished relay sessions by transport and outcome",
	}, []string{"transport", "outcome"})
)

// RelayStarted marks a relay as active.
func RelayStarted(transport string) {
	relaysActive.WithLabelValues(transport).Inc()
}

// RelayFinished marks a relay as finished with the given outcome
// ("client_gone", "upstream_error", "eof").
func RelayFinished(transport, outcome string) {
	relaysActive.WithLabelValues(transport).Dec()
	relayEnded.WithLabelValues(transport, outcome).Inc()
}

// AddRelayBytes counts bytes forwarded to a client.
func AddRelayBytes(transport string, n int) {
	relayBytes.WithLabelValues(transport).Add(float64(n))
}

// AddRelayDropped counts packets dropped from the live window.
func AddRelayDropped(transport string, n uint64) {
	if n == 0 {
		return
	}
	relayDropped.WithLabelValues(transport).Add(float64(n))
}
