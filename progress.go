// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package crtpower

import (
	"fmt"
	"io"
	"sync"

	"github.com/gammazero/deque"
)

// A ProgressEvent describes one completed iteration. Events arrive in
// iteration order regardless of execution mode.
type ProgressEvent struct {
	// Iteration is the zero-based index of the completed iteration.
	Iteration int
	// Total is the configured iteration count.
	Total int
	// Converged reports whether the iteration's fit converged.
	Converged bool
	// Significant reports whether the iteration counted as a significant
	// result.
	Significant bool
}

// A ProgressReporter is a decoupled sink for per-iteration progress events.
// The engine calls Report from the orchestrating goroutine only, so
// implementations need not be thread-safe with respect to the engine; they
// must be safe against their own readers.
type ProgressReporter interface {
	Report(e ProgressEvent)
}

// NopReporter discards all events.
type NopReporter struct{}

func (NopReporter) Report(ProgressEvent) {}

// A WriterReporter prints a one-line summary of every Every-th event (and the
// final one) to W. An Every of zero means every event.
type WriterReporter struct {
	W     io.Writer
	Every int
}

func (r *WriterReporter) Report(e ProgressEvent) {
	every := r.Every
	if every <= 0 {
		every = 1
	}
	n := e.Iteration + 1
	if n%every != 0 && n != e.Total {
		return
	}
	fmt.Fprintf(r.W, "simulation %d/%d: converged=%t significant=%t\n", n, e.Total, e.Converged, e.Significant)
}

// A MemoryReporter retains the most recent Cap events in memory, oldest
// evicted first. A Cap of zero retains everything. It is safe for concurrent
// use, so UIs can poll Events while a run is in flight.
type MemoryReporter struct {
	Cap int

	mu     sync.Mutex
	events deque.Deque[ProgressEvent]
}

func (r *MemoryReporter) Report(e ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events.PushBack(e)
	for r.Cap > 0 && r.events.Len() > r.Cap {
		r.events.PopFront()
	}
}

// Events returns a snapshot of the retained events, oldest first.
func (r *MemoryReporter) Events() []ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ProgressEvent, r.events.Len())
	for i := range out {
		out[i] = r.events.At(i)
	}
	return out
}
