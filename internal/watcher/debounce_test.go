// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package watcher

import (
	"testing"
	"time"
)

func TestDebouncer_MergesMultipleEventsPerPath(t *testing.T) {
	out := make(chan DebouncedBatch, 1)
	d := NewDebouncer("ws1", 20*time.Millisecond, out)

	d.Push(RawEvent{Kind: EventModify, Path: "a.go", Timestamp: time.Now()})
	d.Push(RawEvent{Kind: EventModify, Path: "a.go", Timestamp: time.Now()})
	d.Push(RawEvent{Kind: EventModify, Path: "b.go", Timestamp: time.Now()})

	select {
	case batch := <-out:
		if len(batch.Paths) != 2 {
			t.Errorf("expected 2 deduplicated paths, got %v", batch.Paths)
		}
		if batch.RawEventCount != 3 {
			t.Errorf("expected raw_event_count 3 (preserved despite dedup), got %d", batch.RawEventCount)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for debounced batch")
	}
}

func TestDebouncer_CreateThenDeleteCancels(t *testing.T) {
	out := make(chan DebouncedBatch, 1)
	d := NewDebouncer("ws1", 20*time.Millisecond, out)

	d.Push(RawEvent{Kind: EventCreate, Path: "tmp.go", Timestamp: time.Now()})
	d.Push(RawEvent{Kind: EventDelete, Path: "tmp.go", Timestamp: time.Now()})
	d.Push(RawEvent{Kind: EventModify, Path: "keep.go", Timestamp: time.Now()})

	select {
	case batch := <-out:
		for _, p := range batch.Paths {
			if p == "tmp.go" {
				t.Error("create-then-delete in the same window must cancel the path")
			}
		}
		if len(batch.Paths) != 1 || batch.Paths[0] != "keep.go" {
			t.Errorf("expected only keep.go, got %v", batch.Paths)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for debounced batch")
	}
}

func TestDebouncer_CapOverflowFlushesEarly(t *testing.T) {
	out := make(chan DebouncedBatch, 1)
	// A long window that would never fire on its own within the test
	// timeout; only the event-count cap should force the flush.
	d := NewDebouncer("ws1", MaxDebounceWindow, out)

	for i := 0; i < MaxPendingEvents; i++ {
		d.Push(RawEvent{Kind: EventModify, Path: "f.go", Timestamp: time.Now()})
	}

	select {
	case batch := <-out:
		if batch.RawEventCount != MaxPendingEvents {
			t.Errorf("expected %d raw events, got %d", MaxPendingEvents, batch.RawEventCount)
		}
	case <-time.After(time.Second):
		t.Fatal("expected cap overflow to flush without waiting for quiescence")
	}
}

func TestDebouncer_StopCancelsWithoutEmitting(t *testing.T) {
	out := make(chan DebouncedBatch, 1)
	d := NewDebouncer("ws1", 20*time.Millisecond, out)
	d.Push(RawEvent{Kind: EventModify, Path: "a.go", Timestamp: time.Now()})
	d.Stop()

	select {
	case batch := <-out:
		t.Errorf("expected no batch after Stop, got %+v", batch)
	case <-time.After(100 * time.Millisecond):
		// expected: no emission
	}
}

func TestIgnoreMatcher_DefaultsAndCustomGlobs(t *testing.T) {
	m := NewIgnoreMatcher([]string{"*.generated.go"})

	cases := map[string]bool{
		"src/main.go":                    false,
		"node_modules/pkg/index.js":      true,
		"project/.git/HEAD":              true,
		"Cargo.lock":                     true,
		"yarn-lock.json":                 true,
		".DS_Store":                      true,
		"src/widget.generated.go":        true,
		"src/widget.go":                  false,
	}
	for path, want := range cases {
		if got := m.Match(path); got != want {
			t.Errorf("Match(%q) = %v, want %v", path, got, want)
		}
	}
}
