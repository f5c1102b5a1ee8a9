package metrics

import "time"

var latencyBuckets = []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 15, 30, 60}

// DispatchMetrics records one sample per tool call.
type DispatchMetrics struct {
	c *Collector
}

func NewDispatchMetrics(c *Collector) *DispatchMetrics {
	return &DispatchMetrics{c: c}
}

// Observe counts the call by tool and status, counts errors by kind and
// records the latency.
func (m *DispatchMetrics) Observe(tool, status, errKind string, took time.Duration) {
	if m == nil || m.c == nil {
		return
	}
	ns := m.c.namespace
	m.c.Counter(ns+"_dispatch_total", "Tool calls dispatched", Labels("tool", tool, "status", status)).Inc()
	if errKind != "" {
		m.c.Counter(ns+"_dispatch_errors_total", "Failed tool calls by error kind", Labels("tool", tool, "kind", errKind)).Inc()
	}
	m.c.Histogram(ns+"_dispatch_latency_seconds", "Tool call latency in seconds", Labels("tool", tool), latencyBuckets).
		Observe(took.Seconds())
}

// InFlight tracks calls currently executing.
func (m *DispatchMetrics) InFlight() *Gauge {
	if m == nil || m.c == nil {
		return &Gauge{}
	}
	return m.c.Gauge(m.c.namespace+"_dispatch_in_flight", "Tool calls currently executing", "")
}
