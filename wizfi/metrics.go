package wizfi

import (
	"github.com/prometheus/client_golang/prometheus"
)

// sessionMetrics holds the Prometheus collectors of one session.
type sessionMetrics struct {
	bytesReceived prometheus.Counter
	bytesSent     prometheus.Counter
	rxDropped     prometheus.Counter
	deferred      prometheus.Counter
	fragments     prometheus.Counter
	liveBuffered  prometheus.Gauge

	commands *prometheus.CounterVec
	timeouts *prometheus.CounterVec
}

// newSessionMetrics creates the collectors and registers them with reg when
// reg is not nil.
func newSessionMetrics(reg prometheus.Registerer, sessionID string) (*sessionMetrics, error) {
	labels := prometheus.Labels{"session": sessionID}
	m := &sessionMetrics{
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "wizfi",
			Name:        "bytes_received_total",
			Help:        "Payload bytes received through +IPD",
			ConstLabels: labels,
		}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "wizfi",
			Name:        "bytes_sent_total",
			Help:        "Payload bytes written after the send prompt",
			ConstLabels: labels,
		}),
		rxDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "wizfi",
			Name:        "rx_dropped_bytes_total",
			Help:        "Bytes lost because the live buffer was full",
			ConstLabels: labels,
		}),
		deferred: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "wizfi",
			Name:        "deferred_lines_total",
			Help:        "Lines set aside while another command was in flight",
			ConstLabels: labels,
		}),
		fragments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "wizfi",
			Name:        "ipd_fragments_total",
			Help:        "Data fragments delivered to connection callbacks",
			ConstLabels: labels,
		}),
		liveBuffered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "wizfi",
			Name:        "live_buffer_bytes",
			Help:        "Bytes waiting in the live buffer after the last update",
			ConstLabels: labels,
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "wizfi",
			Name:        "commands_total",
			Help:        "AT commands issued, by command",
			ConstLabels: labels,
		}, []string{"command"}),
		timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "wizfi",
			Name:        "command_timeouts_total",
			Help:        "AT commands that hit their deadline, by command",
			ConstLabels: labels,
		}, []string{"command"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.bytesReceived, m.bytesSent, m.rxDropped, m.deferred, m.fragments,
		m.liveBuffered, m.commands, m.timeouts,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
