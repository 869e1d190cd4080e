package kihost

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics.go - session-level counters, in the spirit of the sockstats
// exporter pack member: commands sent/retried, checksum failures,
// notifications dispatched and firmware blocks sent/retried. A caller that
// wants them exposed registers Metrics.Collectors() with its own
// prometheus.Registerer (see cmd/echo's --metrics-addr flag).

// Metrics bundles the counters a Session updates as it runs. NewMetrics
// wires real collectors; the zero value has nil counters, which a Session
// cannot update.
type Metrics struct {
	CommandsSent        prometheus.Counter
	CommandRetries      prometheus.Counter
	ChecksumFailures    prometheus.Counter
	NotificationsRecv   prometheus.Counter
	FirmwareBlocksSent  prometheus.Counter
	FirmwareBlockRetries prometheus.Counter
}

// NewMetrics constructs a Metrics with all counters registered under the
// "kihost" namespace.
func NewMetrics() *Metrics {
	return &Metrics{
		CommandsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kihost",
			Name:      "commands_sent_total",
			Help:      "Total command frames sent to the module.",
		}),
		CommandRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kihost",
			Name:      "command_retries_total",
			Help:      "Total command retries consumed after a timeout.",
		}),
		ChecksumFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kihost",
			Name:      "checksum_failures_total",
			Help:      "Total frames dropped for a checksum mismatch or a decode error.",
		}),
		NotificationsRecv: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kihost",
			Name:      "notifications_received_total",
			Help:      "Total notification-class frames dispatched.",
		}),
		FirmwareBlocksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kihost",
			Name:      "firmware_blocks_sent_total",
			Help:      "Total firmware update blocks transmitted.",
		}),
		FirmwareBlockRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kihost",
			Name:      "firmware_block_retries_total",
			Help:      "Total firmware update block retries consumed.",
		}),
	}
}

// Collectors returns every counter as a prometheus.Collector slice, for
// bulk registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.CommandsSent,
		m.CommandRetries,
		m.ChecksumFailures,
		m.NotificationsRecv,
		m.FirmwareBlocksSent,
		m.FirmwareBlockRetries,
	}
}
