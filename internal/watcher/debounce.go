// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package watcher

import (
	"sort"
	"sync"
	"time"
)

// EventKind mirrors the raw filesystem notification kinds.
type EventKind int

const (
	EventCreate EventKind = iota
	EventModify
	EventDelete
	EventRename
)

// RawEvent is one ingress-filtered filesystem notification.
type RawEvent struct {
	Kind      EventKind
	Path      string
	Timestamp time.Time
}

// DebouncedBatch is the merged, deduplicated output of one debounce window.
type DebouncedBatch struct {
	WorkspaceID    string
	Paths          []string // sorted, deduplicated
	RawEventCount  int
	FlushedAt      time.Time
}

const (
	// DefaultDebounceWindow is the reset-on-event timer duration.
	DefaultDebounceWindow = 500 * time.Millisecond
	// MinDebounceWindow and MaxDebounceWindow bound the configurable range.
	MinDebounceWindow = 100 * time.Millisecond
	MaxDebounceWindow = 5000 * time.Millisecond

	// MaxPendingEvents and MaxPendingBytes are the hard caps that force an
	// early flush regardless of quiescence.
	MaxPendingEvents = 1000
	MaxPendingBytes  = 10 * 1024 * 1024
)

// Debouncer buffers raw events for one workspace with a reset-on-event
// timer and emits a DebouncedBatch on quiescence or cap overflow. One
// Debouncer instance belongs to exactly one workspace; stopping it cancels
// any in-flight buffer without emitting a partial batch.
type Debouncer struct {
	workspaceID string
	window      time.Duration
	out         chan<- DebouncedBatch

	mu       sync.Mutex
	pending  map[string]EventKind // net final state per path
	rawCount int
	bytes    int
	timer    *time.Timer
	stopped  bool
}

// NewDebouncer creates a debouncer that emits merged batches for
// workspaceID onto out. window <= 0 uses DefaultDebounceWindow; it is
// clamped to [MinDebounceWindow, MaxDebounceWindow].
func NewDebouncer(workspaceID string, window time.Duration, out chan<- DebouncedBatch) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	if window < MinDebounceWindow {
		window = MinDebounceWindow
	}
	if window > MaxDebounceWindow {
		window = MaxDebounceWindow
	}
	return &Debouncer{
		workspaceID: workspaceID,
		window:      window,
		out:         out,
		pending:     make(map[string]EventKind),
	}
}

// Push feeds one raw event into the debouncer, merging it with any pending
// state for the same path per these merge rules:
//   - repeated events on one path collapse to the latest kind
//   - Create then Delete in the same window cancels the path entirely
//   - anything else collapses to the net final kind
func (d *Debouncer) Push(ev RawEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	prev, existed := d.pending[ev.Path]
	switch {
	case existed && prev == EventCreate && ev.Kind == EventDelete:
		delete(d.pending, ev.Path)
	default:
		d.pending[ev.Path] = ev.Kind
	}
	d.rawCount++
	d.bytes += len(ev.Path)

	if d.rawCount >= MaxPendingEvents || d.bytes >= MaxPendingBytes {
		d.flushLocked()
		return
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.onQuiescence)
}

func (d *Debouncer) onQuiescence() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.flushLocked()
}

// flushLocked must be called with d.mu held.
func (d *Debouncer) flushLocked() {
	if len(d.pending) == 0 {
		d.rawCount = 0
		d.bytes = 0
		return
	}

	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	batch := DebouncedBatch{
		WorkspaceID:   d.workspaceID,
		Paths:         paths,
		RawEventCount: d.rawCount,
		FlushedAt:     time.Now().UTC(),
	}

	d.pending = make(map[string]EventKind)
	d.rawCount = 0
	d.bytes = 0
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	// The debounced-batch channel is unbounded in practice: a blocking
	// send here only back-pressures this workspace's own debouncer, and
	// keeping it synchronous preserves flush ordering.
	d.out <- batch
}

// Stop cancels any in-flight buffer without emitting a partial batch.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = make(map[string]EventKind)
	d.rawCount = 0
	d.bytes = 0
}
