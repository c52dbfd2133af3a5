// Package scheduler implements the cooperative scheduler facet (C10) and
// the global scheduler (C11) that fans a time budget out across a
// hierarchy's top-level subsystems. Grounded on the teacher's
// kernel/threads/supervisor.go restart/backoff loop style (explicit,
// externally driven ticks rather than an internal goroutine loop).
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nmxmxh/kernelcore/kernel/foundation"
)

// Strategy selects how a scheduler drains its queue, or how the global
// scheduler partitions a tick across subsystems.
type Strategy string

const (
	StrategyFIFO     Strategy = "fifo"
	StrategyPriority Strategy = "priority"
	StrategyWeighted Strategy = "weighted"
)

// Ticker drains at most one unit of work and reports whether it did.
type Ticker interface {
	ProcessTick(ctx context.Context) (result *foundation.Result, processed bool, err error)
}

// Outcome is the result of one Process call.
type Outcome struct {
	Processed      int
	Paused         bool
	RemainingQueue int
}

// Facet is the scheduler facet (C10): cooperative, time-sliced draining
// of a subsystem's processor/queue via Ticker.
type Facet struct {
	kind        string
	ticker      Ticker
	tickerKind  string
	lenFn       func() int
	paused      atomic.Bool
	priority    int
	strategy    Strategy
	maxMessages int
}

// New creates a scheduler facet named kind, driving ticker, reporting
// queue depth via lenFn (may be nil if unknown). maxMessages caps how many
// messages a single Process call drains regardless of remaining time
// budget (scheduler.maxMessagesPerSlice); 0 means no cap.
func New(kind string, ticker Ticker, lenFn func() int, priority int, strategy Strategy, maxMessages int) *Facet {
	return &Facet{kind: kind, ticker: ticker, lenFn: lenFn, priority: priority, strategy: strategy, maxMessages: maxMessages}
}

// NewDeferred creates a scheduler facet that resolves its Ticker during
// Init by looking up tickerKind on the installing host, instead of taking
// one directly. This is how the default build hooks wire the scheduler
// facet to the processor facet installed earlier in the same build: the
// two are produced independently by Verify's hook pass but can only be
// wired together once the processor facet is actually installed, which
// Init (not the hook factory) is guaranteed to see, by dependency order.
func NewDeferred(kind, tickerKind string, lenFn func() int, priority int, strategy Strategy, maxMessages int) *Facet {
	return &Facet{kind: kind, tickerKind: tickerKind, lenFn: lenFn, priority: priority, strategy: strategy, maxMessages: maxMessages}
}

// Kind satisfies foundation.Facet.
func (f *Facet) Kind() string { return f.kind }

// Init resolves a deferred ticker dependency; a no-op if New (not
// NewDeferred) already supplied a concrete Ticker.
func (f *Facet) Init(ctx foundation.Context, api *foundation.API, host foundation.Host) error {
	if f.ticker != nil {
		return nil
	}
	if f.tickerKind == "" {
		return fmt.Errorf("scheduler: no ticker configured for facet %q", f.kind)
	}
	fa, ok := host.Find(f.tickerKind)
	if !ok {
		return fmt.Errorf("%w: scheduler facet %q requires facet %q", foundation.ErrMissingFacet, f.kind, f.tickerKind)
	}
	t, ok := fa.(Ticker)
	if !ok {
		return fmt.Errorf("scheduler: facet %q does not implement Ticker", f.tickerKind)
	}
	f.ticker = t
	return nil
}

// Pause stops Process from draining until Resume is called.
func (f *Facet) Pause() { f.paused.Store(true) }

// Resume re-enables draining.
func (f *Facet) Resume() { f.paused.Store(false) }

// Paused reports the current pause state.
func (f *Facet) Paused() bool { return f.paused.Load() }

// Priority returns the share weight the global scheduler should use for
// this facet's owning subsystem under the priority strategy.
func (f *Facet) Priority() int { return f.priority }

// Process drains the subsystem's work for up to timeSliceMs, one tick at a
// time, until the queue is empty, the deadline passes, or maxMessages (if
// configured) is reached for this call.
func (f *Facet) Process(ctx context.Context, timeSliceMs int) Outcome {
	if f.paused.Load() {
		return Outcome{Paused: true}
	}

	deadline := time.Now().Add(time.Duration(timeSliceMs) * time.Millisecond)
	processed := 0
	for {
		if f.maxMessages > 0 && processed >= f.maxMessages {
			break
		}
		if time.Now().After(deadline) {
			break
		}
		if f.lenFn != nil && f.lenFn() == 0 {
			break
		}
		_, didWork, err := f.ticker.ProcessTick(ctx)
		if err != nil || !didWork {
			break
		}
		processed++
	}

	remaining := 0
	if f.lenFn != nil {
		remaining = f.lenFn()
	}
	return Outcome{Processed: processed, RemainingQueue: remaining}
}
