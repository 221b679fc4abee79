package runner

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// maxLatencyUs bounds recorded latencies at 60s; slower samples are clamped.
const maxLatencyUs = 60_000_000

// LatencyStats summarises the round-trip time of steps that got a response.
type LatencyStats struct {
	Count int64
	Min   time.Duration
	Max   time.Duration
	Mean  time.Duration
	P50   time.Duration
	P95   time.Duration
	P99   time.Duration
}

func computeLatency(results []*StepResult) LatencyStats {
	h := hdrhistogram.New(1, maxLatencyUs, 3)
	for _, r := range results {
		if r.Response == nil {
			continue
		}
		us := r.Response.Duration.Microseconds()
		if us < 1 {
			us = 1
		}
		if us > maxLatencyUs {
			us = maxLatencyUs
		}
		_ = h.RecordValue(us)
	}

	if h.TotalCount() == 0 {
		return LatencyStats{}
	}

	return LatencyStats{
		Count: h.TotalCount(),
		Min:   time.Duration(h.Min()) * time.Microsecond,
		Max:   time.Duration(h.Max()) * time.Microsecond,
		Mean:  time.Duration(h.Mean()) * time.Microsecond,
		P50:   time.Duration(h.ValueAtQuantile(50)) * time.Microsecond,
		P95:   time.Duration(h.ValueAtQuantile(95)) * time.Microsecond,
		P99:   time.Duration(h.ValueAtQuantile(99)) * time.Microsecond,
	}
}
