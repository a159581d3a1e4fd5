// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package broadcast

import (
	"testing"
	"time"

	"github.com/kraklabs/parseltongue/internal/codegraph"
	parserrors "github.com/kraklabs/parseltongue/internal/errors"
)

func watchingLookup(displayName string) func(string) (string, bool, bool) {
	return func(workspaceID string) (string, bool, bool) {
		return displayName, true, true
	}
}

func TestSubscribe_EmptyWorkspaceIDRejected(t *testing.T) {
	h := NewHub()
	if _, err := h.Subscribe(""); err == nil {
		t.Fatal("expected an error for an empty workspace id")
	} else if code, _ := parserrors.CodeOf(err); code != parserrors.CodeInvalidWorkspaceIDEmpty {
		t.Errorf("expected INVALID_WORKSPACE_ID_EMPTY, got %v", code)
	}
}

func TestSubscribe_UnknownWorkspaceRejected(t *testing.T) {
	h := NewHub()
	h.WorkspaceLookup = func(string) (string, bool, bool) { return "", false, false }
	if _, err := h.Subscribe("ws1"); err == nil {
		t.Fatal("expected an error for an unknown workspace")
	} else if code, _ := parserrors.CodeOf(err); code != parserrors.CodeWorkspaceNotFound {
		t.Errorf("expected WORKSPACE_NOT_FOUND, got %v", code)
	}
}

func TestSubscribe_NotWatchingRejected(t *testing.T) {
	h := NewHub()
	h.WorkspaceLookup = func(string) (string, bool, bool) { return "demo", false, true }
	if _, err := h.Subscribe("ws1"); err == nil {
		t.Fatal("expected an error for a non-watching workspace")
	} else if code, _ := parserrors.CodeOf(err); code != parserrors.CodeWorkspaceNotWatching {
		t.Errorf("expected WORKSPACE_NOT_WATCHING, got %v", code)
	}
}

func TestSubscribe_EmitsSubscribedEventFirst(t *testing.T) {
	h := NewHub()
	h.WorkspaceLookup = watchingLookup("demo")

	sub, err := h.Subscribe("ws1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	select {
	case ev := <-sub.Events():
		if ev.Type != EventSubscribed || ev.DisplayName != "demo" {
			t.Errorf("expected Subscribed event with display_name=demo, got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Subscribed event")
	}
}

func TestSubscribe_EnforcesPerWorkspaceCap(t *testing.T) {
	h := NewHub()
	h.WorkspaceLookup = watchingLookup("demo")

	for i := 0; i < MaxSubscribersPerWorkspace; i++ {
		if _, err := h.Subscribe("ws1"); err != nil {
			t.Fatalf("unexpected error admitting subscriber %d: %v", i, err)
		}
	}
	if _, err := h.Subscribe("ws1"); err == nil {
		t.Fatal("expected SubscriptionLimitExceeded once the cap is reached")
	} else if code, _ := parserrors.CodeOf(err); code != parserrors.CodeSubscriptionLimitExceeded {
		t.Errorf("expected SUBSCRIPTION_LIMIT_EXCEEDED, got %v", code)
	}
}

func drainOne(t *testing.T, sub *Subscriber) Event {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestDiffAnalysisCompleted_EmitsGroupsInOrder(t *testing.T) {
	h := NewHub()
	h.WorkspaceLookup = watchingLookup("demo")
	sub, err := h.Subscribe("ws1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	drainOne(t, sub) // Subscribed

	result := codegraph.DiffResult{
		Summary: codegraph.DiffSummary{EntitiesRemoved: 1, EntitiesAdded: 1, EntitiesModified: 1, EdgesRemoved: 1, EdgesAdded: 1},
		EntityChanges: []codegraph.EntityChange{
			{StableID: "go:fn:Old:a", ChangeKind: codegraph.ChangeRemoved, Before: &codegraph.CodeEntity{EntityType: codegraph.EntityFunction, FilePath: "a.go"}},
			{StableID: "go:fn:New:a", ChangeKind: codegraph.ChangeAdded, After: &codegraph.CodeEntity{EntityType: codegraph.EntityFunction, FilePath: "a.go"}},
			{StableID: "go:fn:Changed:a", ChangeKind: codegraph.ChangeModified, Before: &codegraph.CodeEntity{FilePath: "a.go"}, After: &codegraph.CodeEntity{EntityType: codegraph.EntityFunction, FilePath: "a.go"}},
		},
		EdgeChanges: []codegraph.EdgeChange{
			{Triple: codegraph.EdgeIdentity{From: "go:fn:A:a", To: "go:fn:B:a", Type: codegraph.EdgeCalls}, ChangeKind: codegraph.ChangeRemoved},
			{Triple: codegraph.EdgeIdentity{From: "go:fn:A:a", To: "go:fn:C:a", Type: codegraph.EdgeCalls}, ChangeKind: codegraph.ChangeAdded},
		},
	}

	h.DiffAnalysisStarted("ws1", []string{"a.go"}, "watch")
	h.DiffAnalysisCompleted("ws1", result, []string{"a.go"}, "watch")

	wantOrder := []EventType{
		EventDiffAnalysisStarted,
		EventEntityRemoved,
		EventEntityAdded,
		EventEntityModified,
		EventEdgeRemoved,
		EventEdgeAdded,
		EventDiffAnalysisCompleted,
	}
	for i, want := range wantOrder {
		ev := drainOne(t, sub)
		if ev.Type != want {
			t.Fatalf("event %d: expected %s, got %s", i, want, ev.Type)
		}
	}
}

func TestDiffAnalysisCompleted_EmptyDiffStillEmitsStartedAndCompleted(t *testing.T) {
	h := NewHub()
	h.WorkspaceLookup = watchingLookup("demo")
	sub, err := h.Subscribe("ws1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	drainOne(t, sub) // Subscribed

	h.DiffAnalysisStarted("ws1", nil, "watch")
	h.DiffAnalysisCompleted("ws1", codegraph.DiffResult{}, nil, "watch")

	started := drainOne(t, sub)
	completed := drainOne(t, sub)
	if started.Type != EventDiffAnalysisStarted || completed.Type != EventDiffAnalysisCompleted {
		t.Errorf("expected Started then Completed with no entity/edge events, got %s then %s", started.Type, completed.Type)
	}
}

func TestUnsubscribe_EmitsUnsubscribedThenCloses(t *testing.T) {
	h := NewHub()
	h.WorkspaceLookup = watchingLookup("demo")
	sub, err := h.Subscribe("ws1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	drainOne(t, sub) // Subscribed

	if err := h.Unsubscribe(sub); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}

	ev := drainOne(t, sub)
	if ev.Type != EventUnsubscribed {
		t.Errorf("expected Unsubscribed, got %s", ev.Type)
	}
	if _, ok := <-sub.Events(); ok {
		t.Error("expected the outbox to be closed after Unsubscribed")
	}
}

func TestDropWorkspace_ClosesAllSubscribers(t *testing.T) {
	h := NewHub()
	h.WorkspaceLookup = watchingLookup("demo")
	subA, _ := h.Subscribe("ws1")
	subB, _ := h.Subscribe("ws1")
	drainOne(t, subA)
	drainOne(t, subB)

	h.DropWorkspace("ws1")

	for _, s := range []*Subscriber{subA, subB} {
		ev := drainOne(t, s)
		if ev.Type != EventUnsubscribed {
			t.Errorf("expected Unsubscribed, got %s", ev.Type)
		}
		if _, ok := <-s.Events(); ok {
			t.Error("expected outbox closed after DropWorkspace")
		}
	}
	if h.SubscriberCount("ws1") != 0 {
		t.Error("expected zero subscribers after DropWorkspace")
	}
}

func TestBroadcast_SlowSubscriberIsDroppedNotBlocking(t *testing.T) {
	h := NewHub()
	h.WorkspaceLookup = watchingLookup("demo")
	slow, _ := h.Subscribe("ws1")
	drainOne(t, slow) // Subscribed; never drained again, so its outbox will fill up

	for i := 0; i < OutboxCapacity+10; i++ {
		h.ErrorOccurred("ws1", parserrors.CodeInternalError, "x")
	}

	if h.SubscriberCount("ws1") != 0 {
		t.Error("expected the overflowing subscriber to have been dropped")
	}
}
