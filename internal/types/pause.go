package types

import (
	"context"
	"sync"
)

// PauseLatch is a cooperative pause/resume gate shared by every phase of a
// scan (spec.md §4.9, §5 "Pause semantics"). Workers call Wait before
// starting each item; Wait returns immediately while the latch is open and
// blocks until Resume (or cancellation) while paused.
type PauseLatch struct {
	mu sync.Mutex
	ch chan struct{} // closed == open/not-paused
}

// NewPauseLatch returns a latch that starts in the open (not paused) state.
func NewPauseLatch() *PauseLatch {
	l := &PauseLatch{ch: make(chan struct{})}
	close(l.ch)
	return l
}

// Pause closes the gate. A no-op if already paused.
func (l *PauseLatch) Pause() {
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-l.ch:
		l.ch = make(chan struct{})
	default:
	}
}

// Resume opens the gate, releasing every waiter. A no-op if already open.
func (l *PauseLatch) Resume() {
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-l.ch:
	default:
		close(l.ch)
	}
}

// Wait blocks until the gate is open or ctx is done, whichever comes first.
func (l *PauseLatch) Wait(ctx context.Context) error {
	l.mu.Lock()
	ch := l.ch
	l.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
