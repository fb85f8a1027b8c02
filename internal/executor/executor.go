// Package executor provides a single bounded-concurrency primitive shared by
// every phase that needs to fan work across goroutines: the orchestrator's
// hash cascade and its media-processing phases. It
// generalizes the semaphore-per-phase pattern scattered through the scan
// engine into one reusable type with three degree-selection modes.
package executor

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/user/dupesweep/internal/types"
)

// Mode selects how Executor picks a concurrency degree for a work item.
type Mode int

const (
	// CPUBound caps concurrency at processor_count-1, bounded by parallel_threads.
	CPUBound Mode = iota
	// IOBound picks a degree from the destination's storage-medium class.
	IOBound
	// FileSizeAware additionally buckets by item size, clamping large files
	// to a low degree to bound peak memory.
	FileSizeAware
)

const (
	smallFileThreshold = 10 * 1024 * 1024  // 10 MiB
	largeFileThreshold = 100 * 1024 * 1024 // 100 MiB

	defaultLargeFilesDegree = 2
	defaultThrottleSleep    = 50 * time.Millisecond
)

// Item is a unit of work submitted to Run. Root identifies the storage
// location (used for medium classification in IOBound/FileSizeAware modes);
// Size is consulted only in FileSizeAware mode.
type Item struct {
	Root string
	Size int64
}

// Executor runs work items with a concurrency degree chosen per mode,
// optionally throttled by sampled CPU/memory pressure.
type Executor struct {
	mode             Mode
	cpuDegree        int
	largeFilesDegree int
	medium           *MediumClassifier
	throttle         *Throttler

	mu    sync.Mutex
	pools map[string]types.Semaphore
}

// New builds an Executor. parallelThreads caps the CPU-bound degree (<= 0
// means uncapped beyond processor_count-1). largeFilesDegree <= 0 defaults
// to 2. medium may be nil only for CPUBound executors. throttle may be nil
// to disable adaptive throttling.
func New(mode Mode, parallelThreads int, largeFilesDegree int, medium *MediumClassifier, throttle *Throttler) *Executor {
	cpuDegree := runtime.NumCPU() - 1
	if cpuDegree < 1 {
		cpuDegree = 1
	}
	if parallelThreads > 0 && parallelThreads < cpuDegree {
		cpuDegree = parallelThreads
	}
	if largeFilesDegree <= 0 {
		largeFilesDegree = defaultLargeFilesDegree
	}
	return &Executor{
		mode:             mode,
		cpuDegree:        cpuDegree,
		largeFilesDegree: largeFilesDegree,
		medium:           medium,
		throttle:         throttle,
		pools:            make(map[string]types.Semaphore),
	}
}

// Run executes fn for every item with bounded concurrency, returning one
// error per item in input order (nil on success). ctx cancellation is
// observed before each item starts; items already running are not
// interrupted mid-flight.
func (e *Executor) Run(ctx context.Context, items []Item, fn func(context.Context, Item) error) []error {
	results := make([]error, len(items))
	var wg sync.WaitGroup

	for i, item := range items {
		degree, key := e.degreeFor(item)
		pool := e.poolFor(key, degree)

		wg.Add(1)
		go func(i int, item Item, pool types.Semaphore, degree int) {
			defer wg.Done()

			tokens := 1
			if e.throttle != nil && e.throttle.ShouldThrottle() {
				tokens = 2
				if tokens > degree {
					tokens = degree
				}
			}
			for k := 0; k < tokens; k++ {
				pool.Acquire()
			}
			defer func() {
				for k := 0; k < tokens; k++ {
					pool.Release()
				}
			}()

			if tokens > 1 {
				time.Sleep(defaultThrottleSleep)
			}
			if err := ctx.Err(); err != nil {
				results[i] = err
				return
			}
			results[i] = fn(ctx, item)
		}(i, item, pool, degree)
	}

	wg.Wait()
	return results
}

// degreeFor returns the concurrency degree and pool key for item under the
// executor's mode.
func (e *Executor) degreeFor(item Item) (degree int, key string) {
	switch e.mode {
	case IOBound:
		m := e.medium.Classify(item.Root)
		return ioDegreeFor(m), "io:" + m.String()
	case FileSizeAware:
		m := e.medium.Classify(item.Root)
		io := ioDegreeFor(m)
		switch {
		case item.Size > largeFileThreshold:
			d := e.largeFilesDegree
			if io < d {
				d = io
			}
			return d, "fsa:large:" + m.String()
		case item.Size > smallFileThreshold:
			return io, "fsa:medium:" + m.String()
		default:
			return io, "fsa:small:" + m.String()
		}
	default: // CPUBound
		return e.cpuDegree, "cpu"
	}
}

func (e *Executor) poolFor(key string, degree int) types.Semaphore {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.pools[key]; ok {
		return p
	}
	p := types.NewSemaphore(degree)
	e.pools[key] = p
	return p
}
