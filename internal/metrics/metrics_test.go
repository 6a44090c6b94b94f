package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestClientMetricsCountsByStatusClass(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewClientMetrics(reg)

	m.Observe("GET", 200, time.Millisecond)
	m.Observe("GET", 204, time.Millisecond)
	m.Observe("POST", 0, time.Millisecond)

	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "2xx")); got != 2 {
		t.Fatalf("expected 2 GET 2xx, got %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("POST", "error")); got != 1 {
		t.Fatalf("expected 1 failed POST, got %v", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var c *ClientMetrics
	c.Observe("GET", 200, time.Second)
	var s *ServerMetrics
	s.Observe("/x", "GET", 200, time.Second)
}
