package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements the Collector interface using
// Prometheus metrics.
type PrometheusCollector struct {
	sessionsTotal  prometheus.Counter
	sessionsActive prometheus.Gauge
	commandsTotal  *prometheus.CounterVec

	userPipeEdgesCreated  prometheus.Counter
	userPipeEdgesConsumed prometheus.Counter

	socksRepliesTotal *prometheus.CounterVec
	socksBytesRelayed *prometheus.CounterVec
}

// NewPrometheusCollector creates a new PrometheusCollector with all
// metrics registered.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		sessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "npcore_sessions_total",
			Help: "Total number of shell sessions opened.",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "npcore_sessions_active",
			Help: "Number of currently active shell sessions.",
		}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "npcore_commands_total",
			Help: "Total number of shell commands dispatched.",
		}, []string{"verb"}),

		userPipeEdgesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "npcore_user_pipe_edges_created_total",
			Help: "Total number of inter-user pipe edges created.",
		}),
		userPipeEdgesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "npcore_user_pipe_edges_consumed_total",
			Help: "Total number of inter-user pipe edges consumed.",
		}),

		socksRepliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "npcore_socks_replies_total",
			Help: "Total number of SOCKS replies sent, by command and code.",
		}, []string{"command", "code"}),
		socksBytesRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "npcore_socks_bytes_relayed_total",
			Help: "Total bytes relayed through SOCKS connections, by direction.",
		}, []string{"direction"}),
	}

	reg.MustRegister(
		c.sessionsTotal,
		c.sessionsActive,
		c.commandsTotal,
		c.userPipeEdgesCreated,
		c.userPipeEdgesConsumed,
		c.socksRepliesTotal,
		c.socksBytesRelayed,
	)

	return c
}

// SessionOpened increments the session counter and active gauge.
func (c *PrometheusCollector) SessionOpened() {
	c.sessionsTotal.Inc()
	c.sessionsActive.Inc()
}

// SessionClosed decrements the active sessions gauge.
func (c *PrometheusCollector) SessionClosed() {
	c.sessionsActive.Dec()
}

// CommandDispatched increments the per-verb command counter.
func (c *PrometheusCollector) CommandDispatched(verb string) {
	c.commandsTotal.WithLabelValues(verb).Inc()
}

// UserPipeEdgeCreated increments the user-pipe-edge-created counter.
func (c *PrometheusCollector) UserPipeEdgeCreated() {
	c.userPipeEdgesCreated.Inc()
}

// UserPipeEdgeConsumed increments the user-pipe-edge-consumed counter.
func (c *PrometheusCollector) UserPipeEdgeConsumed() {
	c.userPipeEdgesConsumed.Inc()
}

// SocksReply increments the per-command, per-code SOCKS reply counter.
func (c *PrometheusCollector) SocksReply(command string, code int) {
	c.socksRepliesTotal.WithLabelValues(command, strconv.Itoa(code)).Inc()
}

// SocksBytesRelayed adds n to the per-direction relayed-bytes counter.
func (c *PrometheusCollector) SocksBytesRelayed(direction string, n int64) {
	c.socksBytesRelayed.WithLabelValues(direction).Add(float64(n))
}
