// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package diffengine computes deterministic, order-independent diffs
// between two code-graph snapshots (base and live) and the blast radius of
// the changes it finds.
package diffengine

import (
	"log/slog"
	"sort"
	"time"

	"github.com/kraklabs/parseltongue/internal/codegraph"
	"github.com/kraklabs/parseltongue/internal/identity"
)

// Snapshot is one side of a diff: the full set of entities and edges as of
// a point in time.
type Snapshot struct {
	Entities []codegraph.CodeEntity
	Edges    []codegraph.DependencyEdge
}

// Options controls diff computation.
type Options struct {
	// MaxHops bounds blast-radius traversal. 0 yields an
	// empty affected set.
	MaxHops int

	// Logger receives a diagnostic for every stable-id collision found
	// within a snapshot. Defaults to slog.Default() if nil.
	Logger *slog.Logger
}

// Compute produces a DiffResult comparing base against live. It is pure
// with respect to its inputs: empty inputs yield all-zero summaries, and
// identical inputs yield only Unchanged entities.
func Compute(base, live Snapshot, opts Options) codegraph.DiffResult {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	entityChanges := classifyEntities(base.Entities, live.Entities, logger)
	edgeChanges := classifyEdges(base.Edges, live.Edges)

	origins := changedOrigins(entityChanges)
	radius := ComputeBlastRadius(live.Edges, origins, opts.MaxHops)

	return codegraph.DiffResult{
		Summary:       summarize(entityChanges, edgeChanges),
		EntityChanges: entityChanges,
		EdgeChanges:   edgeChanges,
		BlastRadius:   radius,
		ComputedAt:    time.Now().UTC(),
		BaseSnapshot:  codegraph.SnapshotDescriptor{EntityCount: len(base.Entities), EdgeCount: len(base.Edges)},
		LiveSnapshot:  codegraph.SnapshotDescriptor{EntityCount: len(live.Entities), EdgeCount: len(live.Edges)},
	}
}

// classifyEntities builds stable_id -> entity maps for
// base and live, then classify every id in the union. One pass to build
// each map, one pass over the union: O(|B|+|L|) time and memory.
func classifyEntities(base, live []codegraph.CodeEntity, logger *slog.Logger) []codegraph.EntityChange {
	baseByID := indexByStableID(base, logger, "base")
	liveByID := indexByStableID(live, logger, "live")

	ids := make(map[string]struct{}, len(baseByID)+len(liveByID))
	for id := range baseByID {
		ids[id] = struct{}{}
	}
	for id := range liveByID {
		ids[id] = struct{}{}
	}

	sortedIDs := make([]string, 0, len(ids))
	for id := range ids {
		sortedIDs = append(sortedIDs, id)
	}
	sort.Strings(sortedIDs)

	changes := make([]codegraph.EntityChange, 0, len(sortedIDs))
	for _, id := range sortedIDs {
		b, inBase := baseByID[id]
		l, inLive := liveByID[id]
		changes = append(changes, classifyOne(id, b, inBase, l, inLive))
	}
	return changes
}

func classifyOne(id string, b codegraph.CodeEntity, inBase bool, l codegraph.CodeEntity, inLive bool) codegraph.EntityChange {
	switch {
	case inBase && inLive:
		bb, ll := b, l
		switch {
		case bb.Key == ll.Key && bb.ContentHash == ll.ContentHash:
			return codegraph.EntityChange{StableID: id, ChangeKind: codegraph.ChangeUnchanged, Before: &bb, After: &ll}
		case bb.FilePath == ll.FilePath && bb.ContentHash == ll.ContentHash:
			return codegraph.EntityChange{StableID: id, ChangeKind: codegraph.ChangeRelocated, Before: &bb, After: &ll}
		default:
			return codegraph.EntityChange{StableID: id, ChangeKind: codegraph.ChangeModified, Before: &bb, After: &ll}
		}
	case inBase:
		bb := b
		return codegraph.EntityChange{StableID: id, ChangeKind: codegraph.ChangeRemoved, Before: &bb}
	default:
		ll := l
		return codegraph.EntityChange{StableID: id, ChangeKind: codegraph.ChangeAdded, After: &ll}
	}
}

// indexByStableID builds a stable_id -> entity map. Collisions (two
// entities sharing a stable id within one snapshot — overloads in the same
// file) are permitted but never silently resolved: every entity in a
// colliding group is logged and re-indexed under its full key instead of
// its stable id, so each still participates in classifyEntities under its
// own identity rather than one vanishing. snapshotLabel ("base"/"live") is
// only for the diagnostic.
func indexByStableID(entities []codegraph.CodeEntity, logger *slog.Logger, snapshotLabel string) map[string]codegraph.CodeEntity {
	grouped := make(map[string][]codegraph.CodeEntity, len(entities))
	for _, e := range entities {
		id := e.StableID
		if id == "" {
			id = identity.StableID(e.Key)
		}
		grouped[id] = append(grouped[id], e)
	}

	out := make(map[string]codegraph.CodeEntity, len(entities))
	for id, group := range grouped {
		if len(group) == 1 {
			out[id] = group[0]
			continue
		}
		logger.Warn("diffengine.stable_id_collision",
			"stable_id", id, "snapshot", snapshotLabel, "count", len(group))
		for _, e := range group {
			out[e.Key] = e
		}
	}
	return out
}

// classifyEdges classifies edges; edge identity is
// (stable_id(from), stable_id(to), edge_type); the symmetric difference of
// base and live identity sets yields Added/Removed.
func classifyEdges(base, live []codegraph.DependencyEdge) []codegraph.EdgeChange {
	baseSet := indexEdges(base)
	liveSet := indexEdges(live)

	ids := make(map[codegraph.EdgeIdentity]struct{}, len(baseSet)+len(liveSet))
	for id := range baseSet {
		ids[id] = struct{}{}
	}
	for id := range liveSet {
		ids[id] = struct{}{}
	}

	sorted := make([]codegraph.EdgeIdentity, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Slice(sorted, func(i, j int) bool { return edgeIdentityLess(sorted[i], sorted[j]) })

	changes := make([]codegraph.EdgeChange, 0, len(sorted))
	for _, id := range sorted {
		b, inBase := baseSet[id]
		l, inLive := liveSet[id]
		switch {
		case inBase && inLive:
			continue // identical identity: not reported as a change
		case inBase:
			bb := b
			changes = append(changes, codegraph.EdgeChange{Triple: id, ChangeKind: codegraph.ChangeRemoved, Before: &bb})
		default:
			ll := l
			changes = append(changes, codegraph.EdgeChange{Triple: id, ChangeKind: codegraph.ChangeAdded, After: &ll})
		}
	}
	return changes
}

func indexEdges(edges []codegraph.DependencyEdge) map[codegraph.EdgeIdentity]codegraph.DependencyEdge {
	out := make(map[codegraph.EdgeIdentity]codegraph.DependencyEdge, len(edges))
	for _, e := range edges {
		out[e.Identity(identity.StableID)] = e
	}
	return out
}

func edgeIdentityLess(a, b codegraph.EdgeIdentity) bool {
	if a.From != b.From {
		return a.From < b.From
	}
	if a.To != b.To {
		return a.To < b.To
	}
	return a.Type < b.Type
}

func summarize(entityChanges []codegraph.EntityChange, edgeChanges []codegraph.EdgeChange) codegraph.DiffSummary {
	var s codegraph.DiffSummary
	for _, c := range entityChanges {
		switch c.ChangeKind {
		case codegraph.ChangeAdded:
			s.EntitiesAdded++
		case codegraph.ChangeRemoved:
			s.EntitiesRemoved++
		case codegraph.ChangeModified:
			s.EntitiesModified++
		case codegraph.ChangeRelocated:
			s.EntitiesRelocated++
		case codegraph.ChangeUnchanged:
			s.EntitiesUnchanged++
		}
	}
	for _, c := range edgeChanges {
		switch c.ChangeKind {
		case codegraph.ChangeAdded:
			s.EdgesAdded++
		case codegraph.ChangeRemoved:
			s.EdgesRemoved++
		}
	}
	return s
}

// changedOrigins extracts the blast-radius origin set: every stable id
// classified as Added, Removed, or Modified. Relocated and Unchanged
// entities are never origins.
func changedOrigins(changes []codegraph.EntityChange) []string {
	origins := make([]string, 0, len(changes))
	for _, c := range changes {
		switch c.ChangeKind {
		case codegraph.ChangeAdded, codegraph.ChangeRemoved, codegraph.ChangeModified:
			origins = append(origins, c.StableID)
		}
	}
	return origins
}
