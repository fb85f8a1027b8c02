// Package orchestrator drives a duplicate scan end to end: the
// Idle/Running/Paused/Completed/Cancelled/Error state machine of spec.md
// §4.9, wiring together the scanner, hash service, media processors,
// detector, and caches behind a single Start/Pause/Resume/Cancel surface
// and a progress channel the caller drains.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/user/dupesweep/internal/cache"
	"github.com/user/dupesweep/internal/executor"
	"github.com/user/dupesweep/internal/hashservice"
	"github.com/user/dupesweep/internal/mediaproc"
	"github.com/user/dupesweep/internal/types"
)

// State is one node of the orchestrator's state machine (spec.md §4.9).
type State int

const (
	Idle State = iota
	Running
	Paused
	Completed
	Cancelled
	Error
)

// String renders a State for logging.
func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Error:
		return "error"
	default:
		return "idle"
	}
}

// ErrNotIdle is returned by Start when the orchestrator is already running
// or paused.
var ErrNotIdle = errors.New("orchestrator: start rejected, not idle")

// Orchestrator runs one scan at a time, driving the phases described in
// spec.md §4.9 and emitting types.ScanProgress on a channel the caller
// drains. Safe for one scan's worth of concurrent Pause/Resume/Cancel
// calls from a goroutine other than the one reading progress.
type Orchestrator struct {
	hashSvc    *hashservice.Service
	hashCache  *cache.HashCache
	thumbCache *cache.ThumbnailCache
	imageProc  *mediaproc.ImageProcessor
	videoProc  *mediaproc.VideoProcessor
	audioProc  *mediaproc.AudioProcessor
	cpuExec    *executor.Executor
	ioExec     *executor.Executor

	mu     sync.Mutex
	state  State
	latch  *types.PauseLatch
	cancel context.CancelFunc
	result types.ScanResult
	errCh  chan error
}

// New builds an Orchestrator from its fully-constructed dependencies. Any
// media processor may be nil if the corresponding similarity phase is never
// enabled in the configs passed to Start.
func New(
	hashSvc *hashservice.Service,
	hashCache *cache.HashCache,
	thumbCache *cache.ThumbnailCache,
	imageProc *mediaproc.ImageProcessor,
	videoProc *mediaproc.VideoProcessor,
	audioProc *mediaproc.AudioProcessor,
	cpuExec *executor.Executor,
	ioExec *executor.Executor,
) *Orchestrator {
	return &Orchestrator{
		hashSvc:    hashSvc,
		hashCache:  hashCache,
		thumbCache: thumbCache,
		imageProc:  imageProc,
		videoProc:  videoProc,
		audioProc:  audioProc,
		cpuExec:    cpuExec,
		ioExec:     ioExec,
		state:      Idle,
	}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Result returns the most recently completed scan's terminal result. Zero
// value if no scan has finished yet.
func (o *Orchestrator) Result() types.ScanResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}

// Start transitions Idle -> Running and begins a scan in a new goroutine,
// returning a progress channel the caller must drain until it is closed
// (emitted on phase start, every N processed items, and on phase
// completion, per spec.md §4.9). errCh, if non-nil, receives non-fatal
// per-file errors surfaced by the scanner and workers.
//
// A terminal state (Completed, Cancelled, Error) is treated the same as
// Idle here: spec.md §4.9's state diagram has terminal states reset to
// Idle, so an Orchestrator that already ran one scan to completion can
// Start another without an intervening Reset call. Only Running or Paused
// reject with ErrNotIdle.
func (o *Orchestrator) Start(cfg types.ScanConfig, errCh chan error) (<-chan types.ScanProgress, error) {
	o.mu.Lock()
	if o.state == Running || o.state == Paused {
		o.mu.Unlock()
		return nil, ErrNotIdle
	}
	ctx, cancel := context.WithCancel(context.Background())
	o.state = Running
	o.latch = types.NewPauseLatch()
	o.cancel = cancel
	o.errCh = errCh
	o.mu.Unlock()

	progressCh := make(chan types.ScanProgress, 64)
	go o.run(ctx, cfg, progressCh)
	return progressCh, nil
}

// Reset returns a terminal Orchestrator (Completed, Cancelled, or Error) to
// Idle without starting a new scan, discarding the previous Result(). No-op
// if currently Running or Paused. Start already accepts a terminal state on
// its own, so calling Reset is only useful when a caller wants State() to
// read Idle before the next Start.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == Running || o.state == Paused {
		return
	}
	o.state = Idle
	o.result = types.ScanResult{}
}

// Pause transitions Running -> Paused; no-op otherwise.
func (o *Orchestrator) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != Running {
		return
	}
	o.state = Paused
	o.latch.Pause()
}

// Resume transitions Paused -> Running; no-op otherwise.
func (o *Orchestrator) Resume() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != Paused {
		return
	}
	o.state = Running
	o.latch.Resume()
}

// Cancel signals the in-flight scan to stop at its next check-in; no-op if
// not currently Running or Paused. Safe to call multiple times.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != Running && o.state != Paused {
		return
	}
	if o.cancel != nil {
		o.cancel()
	}
	if o.latch != nil {
		o.latch.Resume() // unblock any paused worker so it can observe cancellation
	}
}

func (o *Orchestrator) finish(state State, result types.ScanResult) {
	o.mu.Lock()
	o.state = state
	o.result = result
	o.mu.Unlock()
}

func (o *Orchestrator) sendError(err error) {
	if o.errCh == nil || err == nil {
		return
	}
	select {
	case o.errCh <- err:
	default:
	}
}

// progressStride implements spec.md §4.9's emission cadence: every N
// processed items, N = max(10, ceil(total/100)).
func progressStride(total int) int {
	if total <= 0 {
		return 10
	}
	n := (total + 99) / 100 // ceil(total/100)
	if n < 10 {
		n = 10
	}
	return n
}

func elapsedSince(start time.Time) time.Duration { return time.Since(start) }

func wrapPhaseErr(phase types.ScanPhase, err error) error {
	return fmt.Errorf("%s phase: %w", phase, err)
}
