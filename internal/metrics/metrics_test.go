package metrics

import (
	"testing"
	"time"
)

func TestCollector(t *testing.T) {
	c := NewCollector(3)
	c.Record(10*time.Millisecond, 200, "")
	c.Record(20*time.Millisecond, 412, "precondition_failed")
	c.Record(30*time.Millisecond, 412, "precondition_failed")
	c.Record(40*time.Millisecond, 500, "compact_error")

	s := c.GetStats()
	if s.TotalRequests != 4 || s.TotalErrors != 3 {
		t.Errorf("unexpected totals %+v", s)
	}
	if s.ReasonCounts["precondition_failed"] != 2 || s.StatusCounts[412] != 2 {
		t.Errorf("unexpected counts %+v", s)
	}
	// Oldest sample dropped; window is 20ms, 30ms, 40ms.
	if s.P50Latency != "30ms" || s.P99Latency != "40ms" {
		t.Errorf("unexpected latencies p50=%s p99=%s", s.P50Latency, s.P99Latency)
	}
}
