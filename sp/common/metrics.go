package common

import (
	"fmt"
	"github.com/VictoriaMetrics/metrics"
	"io"
	"time"
)

// --------------------------------------------------------------------------
// Socket metrics (exposed in the prometheus text format)
// --------------------------------------------------------------------------

// SocketMetrics groups the counters of one transport
type SocketMetrics struct {
	MessagesSent     *metrics.Counter
	MessagesReceived *metrics.Counter
	BytesSent        *metrics.Counter
	BytesReceived    *metrics.Counter
	HandshakeErrors  *metrics.Counter
	PeersRefused     *metrics.Counter
}

// MetricsFor returns the counters for the given transport name (e.g. "tcp").
// Counters are created on first use and shared afterwards
func MetricsFor(transport string) *SocketMetrics {
	name := func(metric string) string {
		return fmt.Sprintf(`dpair_%s{transport=%q}`, metric, transport)
	}
	return &SocketMetrics{
		MessagesSent:     metrics.GetOrCreateCounter(name("messages_sent_total")),
		MessagesReceived: metrics.GetOrCreateCounter(name("messages_received_total")),
		BytesSent:        metrics.GetOrCreateCounter(name("bytes_sent_total")),
		BytesReceived:    metrics.GetOrCreateCounter(name("bytes_received_total")),
		HandshakeErrors:  metrics.GetOrCreateCounter(name("handshake_errors_total")),
		PeersRefused:     metrics.GetOrCreateCounter(name("peers_refused_total")),
	}
}

// --------------------------------------------------------------------------
// Exchange metrics
// --------------------------------------------------------------------------

// ObserveExchange records the duration and the outcome of one request/reply exchange
// for the given role ("responder" or "initiator")
func ObserveExchange(role string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.GetOrCreateHistogram(fmt.Sprintf(`dpair_exchange_duration_seconds{role=%q}`, role)).UpdateDuration(start)
	metrics.GetOrCreateCounter(fmt.Sprintf(`dpair_exchanges_total{role=%q,outcome=%q}`, role, outcome)).Inc()
}

// WriteMetrics writes all registered metrics in the prometheus text format
func WriteMetrics(w io.Writer) {
	metrics.WritePrometheus(w, false)
}
