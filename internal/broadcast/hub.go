// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package broadcast

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kraklabs/parseltongue/internal/codegraph"
	parserrors "github.com/kraklabs/parseltongue/internal/errors"
)

// MaxSubscribersPerWorkspace is the per-workspace subscriber cap.
const MaxSubscribersPerWorkspace = 100

// OutboxCapacity is the bounded per-subscriber outbound queue size.
// A subscriber whose queue is full when the hub tries to deliver an event
// is dropped rather than allowed to backpressure the whole broadcast.
const OutboxCapacity = 256

// IdleTimeout is how long a subscription may go without client activity
// before the transport adapter terminates it with CONNECTION_TIMEOUT.
// The hub itself only tracks a subscriber's last activity (LastActivity);
// enforcing the timeout is the adapter's responsibility since only it owns
// the connection.
const IdleTimeout = 60 * time.Second

// maxEntityEventsBeforeBatching and batching parameters implement the
// "large diffs" rule: beyond this many entity events, the hub
// groups delivery into pages with a short pause between them.
const (
	maxEntityEventsBeforeBatching = 1000
	batchSize                     = 100
	batchPause                    = 10 * time.Millisecond
	hardEventCap                  = 10000
)

// Subscriber is one registered listener bound to exactly one workspace.
type Subscriber struct {
	ID          string
	WorkspaceID string
	DisplayName string

	outbox chan Event

	mu           sync.Mutex
	lastActivity time.Time
	closed       bool
}

// Events returns the subscriber's receive-only outbound channel. The
// transport adapter (e.g. the WebSocket handler) drains this and writes
// each Event to the wire, applying its own per-write timeout.
func (s *Subscriber) Events() <-chan Event {
	return s.outbox
}

// Touch records client activity (e.g. a received Ping), resetting the idle
// timer an adapter enforces externally.
func (s *Subscriber) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now().UTC()
	s.mu.Unlock()
}

// LastActivity returns the last time Touch was called.
func (s *Subscriber) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

func (s *Subscriber) send(ev Event) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	select {
	case s.outbox <- ev:
		return true
	default:
		return false
	}
}

func (s *Subscriber) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	close(s.outbox)
}

// workspaceHub holds the subscriber set for one workspace.
type workspaceHub struct {
	mu          sync.Mutex
	subscribers map[string]*Subscriber
}

// Hub fans a workspace's diff results out to its subscribers. One Hub
// instance is shared across all workspaces; subscriber sets are
// partitioned internally by workspace_id.
type Hub struct {
	mu         sync.RWMutex
	workspaces map[string]*workspaceHub

	// WorkspaceLookup resolves a workspace_id to (display_name,
	// watch_enabled, exists) for Subscribe validation. Supplied by
	// internal/workspace to avoid a back-import of the registry here.
	WorkspaceLookup func(workspaceID string) (displayName string, watchEnabled bool, exists bool)
}

// NewHub creates an empty broadcast hub.
func NewHub() *Hub {
	return &Hub{workspaces: make(map[string]*workspaceHub)}
}

// Subscribe validates and registers a new subscriber for workspaceID
// emitting a Subscribed event as the first thing on its outbox.
func (h *Hub) Subscribe(workspaceID string) (*Subscriber, error) {
	if workspaceID == "" {
		return nil, parserrors.New(parserrors.CodeInvalidWorkspaceIDEmpty, "workspace_id must not be empty", nil)
	}

	var displayName string
	if h.WorkspaceLookup != nil {
		var watchEnabled, exists bool
		displayName, watchEnabled, exists = h.WorkspaceLookup(workspaceID)
		if !exists {
			return nil, parserrors.New(parserrors.CodeWorkspaceNotFound, "no such workspace: "+workspaceID, nil)
		}
		if !watchEnabled {
			return nil, parserrors.New(parserrors.CodeWorkspaceNotWatching, "workspace is not watching; enable watch before subscribing", nil)
		}
	}

	wh := h.getOrCreate(workspaceID)
	wh.mu.Lock()
	if len(wh.subscribers) >= MaxSubscribersPerWorkspace {
		wh.mu.Unlock()
		return nil, parserrors.New(parserrors.CodeSubscriptionLimitExceeded, "workspace has reached its subscriber limit", nil)
	}

	sub := &Subscriber{
		ID:           uuid.NewString(),
		WorkspaceID:  workspaceID,
		DisplayName:  displayName,
		outbox:       make(chan Event, OutboxCapacity),
		lastActivity: time.Now().UTC(),
	}
	wh.subscribers[sub.ID] = sub
	wh.mu.Unlock()

	sub.send(Event{Type: EventSubscribed, Timestamp: time.Now().UTC(), WorkspaceID: workspaceID, DisplayName: displayName})
	return sub, nil
}

// Unsubscribe deregisters sub, sending a terminal Unsubscribed event before
// closing its outbox.
func (h *Hub) Unsubscribe(sub *Subscriber) error {
	h.mu.RLock()
	wh, ok := h.workspaces[sub.WorkspaceID]
	h.mu.RUnlock()
	if !ok {
		return parserrors.New(parserrors.CodeNotSubscribed, "subscriber is not bound to a known workspace", nil)
	}

	wh.mu.Lock()
	_, exists := wh.subscribers[sub.ID]
	if exists {
		delete(wh.subscribers, sub.ID)
	}
	wh.mu.Unlock()

	if !exists {
		return parserrors.New(parserrors.CodeNotSubscribed, "subscriber was not registered", nil)
	}

	sub.send(Event{Type: EventUnsubscribed, Timestamp: time.Now().UTC()})
	sub.close()
	return nil
}

// Pong replies to a client Ping within the 50ms ordering guarantee;
// the hub itself performs no waiting, so the guarantee depends on the
// adapter invoking Pong promptly upon receipt.
func (h *Hub) Pong(sub *Subscriber) {
	sub.Touch()
	sub.send(Event{Type: EventPong, Timestamp: time.Now().UTC()})
}

// DropWorkspace tears down every subscriber for workspaceID (workspace
// delete): each receives Unsubscribed, then its outbox is closed.
func (h *Hub) DropWorkspace(workspaceID string) {
	h.mu.Lock()
	wh, ok := h.workspaces[workspaceID]
	if ok {
		delete(h.workspaces, workspaceID)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	wh.mu.Lock()
	subs := make([]*Subscriber, 0, len(wh.subscribers))
	for _, s := range wh.subscribers {
		subs = append(subs, s)
	}
	wh.subscribers = make(map[string]*Subscriber)
	wh.mu.Unlock()

	for _, s := range subs {
		s.send(Event{Type: EventUnsubscribed, Timestamp: time.Now().UTC()})
		s.close()
	}
}

// SubscriberCount reports the current number of subscribers for workspaceID.
func (h *Hub) SubscriberCount(workspaceID string) int {
	h.mu.RLock()
	wh, ok := h.workspaces[workspaceID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	wh.mu.Lock()
	defer wh.mu.Unlock()
	return len(wh.subscribers)
}

func (h *Hub) getOrCreate(workspaceID string) *workspaceHub {
	h.mu.RLock()
	wh, ok := h.workspaces[workspaceID]
	h.mu.RUnlock()
	if ok {
		return wh
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if wh, ok := h.workspaces[workspaceID]; ok {
		return wh
	}
	wh = &workspaceHub{subscribers: make(map[string]*Subscriber)}
	h.workspaces[workspaceID] = wh
	return wh
}

// DiffAnalysisStarted implements watcher.Notifier: emits the opening event
// of a diff broadcast to every current subscriber of workspaceID.
func (h *Hub) DiffAnalysisStarted(workspaceID string, filesChanged []string, triggeredBy string) {
	h.broadcast(workspaceID, Event{
		Type:         EventDiffAnalysisStarted,
		Timestamp:    time.Now().UTC(),
		WorkspaceID:  workspaceID,
		FilesChanged: filesChanged,
		TriggeredBy:  triggeredBy,
	})
}

// ErrorOccurred implements watcher.Notifier: emits a non-terminal error
// event that may appear at any point in a subscriber's stream.
func (h *Hub) ErrorOccurred(workspaceID string, code parserrors.Code, message string) {
	h.broadcast(workspaceID, Event{
		Type:        EventErrorOccurred,
		Timestamp:   time.Now().UTC(),
		WorkspaceID: workspaceID,
		Code:        string(code),
		Message:     message,
	})
}

// DiffAnalysisCompleted implements watcher.Notifier: streams the full
// ordered event sequence for one diff result: removed, added,
// modified entities; removed, added edges; then the terminal completed
// event — honoring the large-diff batching rule.
func (h *Hub) DiffAnalysisCompleted(workspaceID string, result codegraph.DiffResult, filesChanged []string, triggeredBy string) {
	started := time.Now()

	events := buildOrderedEvents(workspaceID, result)
	if len(events) > hardEventCap {
		events = events[:hardEventCap]
	}
	h.broadcastBatched(workspaceID, events)

	h.broadcast(workspaceID, Event{
		Type:             EventDiffAnalysisCompleted,
		Timestamp:        time.Now().UTC(),
		WorkspaceID:      workspaceID,
		Summary:          &result.Summary,
		BlastRadiusTotal: result.BlastRadius.TotalAffected,
		DurationMS:       time.Since(started).Milliseconds(),
	})
}

// buildOrderedEvents produces the removed/added/modified entity events and
// removed/added edge events in a fixed group order, each group sorted
// by the involved stable identity ascending.
func buildOrderedEvents(workspaceID string, result codegraph.DiffResult) []Event {
	var removed, added, modified []codegraph.EntityChange
	for _, c := range result.EntityChanges {
		switch c.ChangeKind {
		case codegraph.ChangeRemoved:
			removed = append(removed, c)
		case codegraph.ChangeAdded:
			added = append(added, c)
		case codegraph.ChangeModified:
			modified = append(modified, c)
		}
	}
	sortEntityChanges(removed)
	sortEntityChanges(added)
	sortEntityChanges(modified)

	var edgesRemoved, edgesAdded []codegraph.EdgeChange
	for _, c := range result.EdgeChanges {
		switch c.ChangeKind {
		case codegraph.ChangeRemoved:
			edgesRemoved = append(edgesRemoved, c)
		case codegraph.ChangeAdded:
			edgesAdded = append(edgesAdded, c)
		}
	}
	sortEdgeChanges(edgesRemoved)
	sortEdgeChanges(edgesAdded)

	events := make([]Event, 0, len(removed)+len(added)+len(modified)+len(edgesRemoved)+len(edgesAdded))
	now := time.Now().UTC()

	for _, c := range removed {
		events = append(events, Event{
			Type: EventEntityRemoved, Timestamp: now, WorkspaceID: workspaceID,
			EntityKey: c.StableID, EntityType: c.Before.EntityType, FilePath: c.Before.FilePath,
		})
	}
	for _, c := range added {
		events = append(events, Event{
			Type: EventEntityAdded, Timestamp: now, WorkspaceID: workspaceID,
			EntityKey: c.StableID, EntityType: c.After.EntityType, FilePath: c.After.FilePath,
			LineRange: &c.After.LineRange,
		})
	}
	for _, c := range modified {
		events = append(events, Event{
			Type: EventEntityModified, Timestamp: now, WorkspaceID: workspaceID,
			EntityKey: c.StableID, EntityType: c.After.EntityType, FilePath: c.After.FilePath,
			BeforeRange: &c.Before.LineRange, AfterRange: &c.After.LineRange,
		})
	}
	for _, c := range edgesRemoved {
		events = append(events, Event{
			Type: EventEdgeRemoved, Timestamp: now, WorkspaceID: workspaceID,
			FromStableID: c.Triple.From, ToStableID: c.Triple.To, EdgeType: c.Triple.Type,
		})
	}
	for _, c := range edgesAdded {
		events = append(events, Event{
			Type: EventEdgeAdded, Timestamp: now, WorkspaceID: workspaceID,
			FromStableID: c.Triple.From, ToStableID: c.Triple.To, EdgeType: c.Triple.Type,
		})
	}
	return events
}

func sortEntityChanges(changes []codegraph.EntityChange) {
	sort.Slice(changes, func(i, j int) bool { return changes[i].StableID < changes[j].StableID })
}

func sortEdgeChanges(changes []codegraph.EdgeChange) {
	sort.Slice(changes, func(i, j int) bool {
		a, b := changes[i].Triple, changes[j].Triple
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return a.Type < b.Type
	})
}

// broadcastBatched delivers events to every subscriber, pausing between
// pages once the diff is large enough to cross maxEntityEventsBeforeBatching.
func (h *Hub) broadcastBatched(workspaceID string, events []Event) {
	entityEvents := 0
	for i := range events {
		switch events[i].Type {
		case EventEntityRemoved, EventEntityAdded, EventEntityModified:
			entityEvents++
		}
	}
	if entityEvents <= maxEntityEventsBeforeBatching {
		for i := range events {
			h.broadcast(workspaceID, events[i])
		}
		return
	}

	totalBatches := (len(events) + batchSize - 1) / batchSize
	for i := 0; i < totalBatches; i++ {
		start := i * batchSize
		end := start + batchSize
		if end > len(events) {
			end = len(events)
		}
		for j := start; j < end; j++ {
			ev := events[j]
			ev.BatchNumber = i + 1
			ev.TotalBatches = totalBatches
			h.broadcast(workspaceID, ev)
		}
		if i < totalBatches-1 {
			time.Sleep(batchPause)
		}
	}
}

// broadcast delivers ev to every currently registered subscriber of
// workspaceID, dropping (and removing) any subscriber whose outbox is full.
func (h *Hub) broadcast(workspaceID string, ev Event) {
	h.mu.RLock()
	wh, ok := h.workspaces[workspaceID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	wh.mu.Lock()
	subs := make([]*Subscriber, 0, len(wh.subscribers))
	for _, s := range wh.subscribers {
		subs = append(subs, s)
	}
	wh.mu.Unlock()

	var dead []string
	for _, s := range subs {
		if !s.send(ev) {
			dead = append(dead, s.ID)
		}
	}
	if len(dead) == 0 {
		return
	}

	wh.mu.Lock()
	for _, id := range dead {
		if s, ok := wh.subscribers[id]; ok {
			delete(wh.subscribers, id)
			s.close()
		}
	}
	wh.mu.Unlock()
}
