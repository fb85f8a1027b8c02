package executor

import (
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

const (
	defaultCPUThreshold = 80.0
	defaultMemThreshold = 70.0
	defaultSampleEvery  = time.Second
)

// Throttler samples CPU and memory pressure on a cached interval and reports
// whether the caller should halve its concurrency degree (spec.md §4.6,
// opt-in adaptive throttling).
type Throttler struct {
	cpuThreshold float64
	memThreshold float64
	interval     time.Duration

	mu         sync.Mutex
	lastSample time.Time
	throttled  bool
}

// NewThrottler builds a Throttler. A threshold <= 0 falls back to the
// spec default (CPU 80%, memory 70%); interval <= 0 falls back to 1s.
func NewThrottler(cpuThreshold, memThreshold float64, interval time.Duration) *Throttler {
	if cpuThreshold <= 0 {
		cpuThreshold = defaultCPUThreshold
	}
	if memThreshold <= 0 {
		memThreshold = defaultMemThreshold
	}
	if interval <= 0 {
		interval = defaultSampleEvery
	}
	return &Throttler{cpuThreshold: cpuThreshold, memThreshold: memThreshold, interval: interval}
}

// ShouldThrottle reports whether the most recent pressure sample (refreshed
// at most once per interval) exceeds either threshold.
func (t *Throttler) ShouldThrottle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if time.Since(t.lastSample) < t.interval {
		return t.throttled
	}
	t.lastSample = time.Now()

	over := false
	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 && pcts[0] >= t.cpuThreshold {
		over = true
	}
	if vm, err := mem.VirtualMemory(); err == nil && vm.UsedPercent >= t.memThreshold {
		over = true
	}
	t.throttled = over
	return over
}
