package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPrometheusCollectorSessionLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.SessionOpened()
	c.SessionOpened()
	c.SessionClosed()

	if got := counterValue(t, c.sessionsTotal); got != 2 {
		t.Errorf("sessionsTotal = %v, want 2", got)
	}
	if got := gaugeValue(t, c.sessionsActive); got != 1 {
		t.Errorf("sessionsActive = %v, want 1", got)
	}
}

func TestPrometheusCollectorCommandDispatched(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.CommandDispatched("who")
	c.CommandDispatched("who")
	c.CommandDispatched("tell")

	if got := counterVecValue(t, c.commandsTotal, "who"); got != 2 {
		t.Errorf("commandsTotal[who] = %v, want 2", got)
	}
	if got := counterVecValue(t, c.commandsTotal, "tell"); got != 1 {
		t.Errorf("commandsTotal[tell] = %v, want 1", got)
	}
}

func TestPrometheusCollectorUserPipeEdges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.UserPipeEdgeCreated()
	c.UserPipeEdgeCreated()
	c.UserPipeEdgeConsumed()

	if got := counterValue(t, c.userPipeEdgesCreated); got != 2 {
		t.Errorf("userPipeEdgesCreated = %v, want 2", got)
	}
	if got := counterValue(t, c.userPipeEdgesConsumed); got != 1 {
		t.Errorf("userPipeEdgesConsumed = %v, want 1", got)
	}
}

func TestPrometheusCollectorSocksMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.SocksReply("CONNECT", 90)
	c.SocksReply("CONNECT", 91)
	c.SocksBytesRelayed("upstream", 1024)
	c.SocksBytesRelayed("upstream", 512)

	if got := counterVecValue(t, c.socksRepliesTotal, "CONNECT", "90"); got != 1 {
		t.Errorf("socksRepliesTotal[CONNECT,90] = %v, want 1", got)
	}
	if got := counterVecValue(t, c.socksBytesRelayed, "upstream"); got != 1536 {
		t.Errorf("socksBytesRelayed[upstream] = %v, want 1536", got)
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatal(err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatal(err)
	}
	return m.GetGauge().GetValue()
}

func counterVecValue(t *testing.T, v *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	var m dto.Metric
	if err := v.WithLabelValues(labels...).Write(&m); err != nil {
		t.Fatal(err)
	}
	return m.GetCounter().GetValue()
}
