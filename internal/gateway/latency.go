package gateway

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// LatencyTracker records overlay compute latency samples in a circular buffer
// and reports percentiles (p50, p95, p99). Thread-safe.
type LatencyTracker struct {
	mu      sync.Mutex
	samples []float64 // circular buffer of latency values (ms)
	pos     int
	count   int
}

// NewLatencyTracker creates a tracker that holds the last `capacity` samples.
func NewLatencyTracker(capacity int) *LatencyTracker {
	if capacity <= 0 {
		capacity = 10000
	}
	return &LatencyTracker{samples: make([]float64, capacity)}
}

// Record adds a latency sample in milliseconds.
func (lt *LatencyTracker) Record(latencyMs float64) {
	lt.mu.Lock()
	lt.samples[lt.pos] = latencyMs
	lt.pos = (lt.pos + 1) % len(lt.samples)
	if lt.count < len(lt.samples) {
		lt.count++
	}
	lt.mu.Unlock()
}

// Percentiles returns the empirical p50, p95, p99 latency in milliseconds.
// Returns (0, 0, 0) if no samples have been recorded.
func (lt *LatencyTracker) Percentiles() (p50, p95, p99 float64) {
	lt.mu.Lock()
	if lt.count == 0 {
		lt.mu.Unlock()
		return 0, 0, 0
	}
	sorted := make([]float64, lt.count)
	copy(sorted, lt.samples[:lt.count])
	lt.mu.Unlock()

	sort.Float64s(sorted)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p95 = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	p99 = stat.Quantile(0.99, stat.Empirical, sorted, nil)
	return
}

// Count returns the number of samples recorded (up to capacity).
func (lt *LatencyTracker) Count() int {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	return lt.count
}
