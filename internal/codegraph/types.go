// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package codegraph defines the shared data model for Parseltongue's live
// dependency graph: source-level entities, the edges between them, and the
// result of comparing two graph snapshots.
package codegraph

import "time"

// EntityType enumerates the kinds of source-level declarations tracked in
// the graph.
type EntityType string

const (
	EntityFunction  EntityType = "fn"
	EntityStruct    EntityType = "struct"
	EntityEnum      EntityType = "enum"
	EntityImpl      EntityType = "impl"
	EntityMethod    EntityType = "method"
	EntityTrait     EntityType = "trait"
	EntityInterface EntityType = "interface"
	EntityModule    EntityType = "module"
)

// EdgeType enumerates the kinds of dependency relationships between two
// entities.
type EdgeType string

const (
	EdgeCalls      EdgeType = "Calls"
	EdgeUses       EdgeType = "Uses"
	EdgeImplements EdgeType = "Implements"
	EdgeExtends    EdgeType = "Extends"
	EdgeImports    EdgeType = "Imports"
)

// unknownFilePath and unknownSuffix mark external references — symbols
// outside the indexed tree (standard library, third-party packages).
const (
	unknownFilePath = "unknown"
	unknownSuffix   = ":unknown:0-0"
)

// LineRange is an inclusive, 1-indexed [Start, End] line span.
type LineRange struct {
	Start int
	End   int
}

// CodeEntity represents one source-level declaration: a function, type,
// trait-like construct, method, or module.
type CodeEntity struct {
	Key          string // full identifier: "{lang}:{type}:{name}:{path_hash}:{start}-{end}"
	StableID     string // stable_id(Key): identity across snapshots
	EntityType   EntityType
	Name         string
	FilePath     string
	LineRange    LineRange
	SourceText   string // optional; empty for external references
	ContentHash  string // hash of SourceText, used to distinguish Modified from Relocated
	Language     string
}

// IsExternal reports whether e refers to a symbol outside the indexed tree.
func (e CodeEntity) IsExternal() bool {
	return isExternalKey(e.Key) || e.FilePath == unknownFilePath
}

// DependencyEdge represents a typed dependency between two entities. Either
// endpoint may be external (see CodeEntity.IsExternal).
type DependencyEdge struct {
	FromKey        string
	ToKey          string
	EdgeType       EdgeType
	SourceLocation *LineRange // optional: where in FromKey's body the reference occurs
}

// Identity returns the diff-stable triple used to classify edges:
// (stable_id(from), stable_id(to), edge_type). Line-number movement of
// endpoints must not manifest as edge churn, so the identity is built from
// stable ids, never full keys.
func (e DependencyEdge) Identity(stableID func(string) string) EdgeIdentity {
	return EdgeIdentity{
		From: stableID(e.FromKey),
		To:   stableID(e.ToKey),
		Type: e.EdgeType,
	}
}

// EdgeIdentity is the comparison key for an edge across two snapshots.
type EdgeIdentity struct {
	From string
	To   string
	Type EdgeType
}

// ChangeKind classifies how an entity or edge differs between base and live.
type ChangeKind string

const (
	ChangeUnchanged ChangeKind = "Unchanged"
	ChangeAdded     ChangeKind = "Added"
	ChangeRemoved   ChangeKind = "Removed"
	ChangeModified  ChangeKind = "Modified"
	ChangeRelocated ChangeKind = "Relocated"
)

// EntityChange records one entity's classification between base and live.
type EntityChange struct {
	StableID   string
	ChangeKind ChangeKind
	Before     *CodeEntity
	After      *CodeEntity
}

// EdgeChange records one edge's classification between base and live.
// Edges are only ever Added or Removed — there is no Modified/Relocated
// concept for an edge, since its identity already discards endpoint line
// numbers.
type EdgeChange struct {
	Triple     EdgeIdentity
	ChangeKind ChangeKind
	Before     *DependencyEdge
	After      *DependencyEdge
}

// DiffSummary gives aggregate counts for one DiffResult.
type DiffSummary struct {
	EntitiesAdded     int
	EntitiesRemoved   int
	EntitiesModified  int
	EntitiesRelocated int
	EntitiesUnchanged int
	EdgesAdded        int
	EdgesRemoved      int
}

// BlastRadius is the set of entities reachable within H hops of a set of
// changed stable ids, over the live dependency graph, excluding external
// nodes.
type BlastRadius struct {
	OriginStableIDs   []string
	AffectedByDistance map[int][]string // hop -> sorted stable ids
	TotalAffected      int
	MaxDepthReached     int
}

// SnapshotDescriptor identifies one side of a diff for provenance purposes.
type SnapshotDescriptor struct {
	EntityCount int
	EdgeCount   int
}

// DiffResult is produced by the diff engine for one (base, live) comparison.
type DiffResult struct {
	Summary        DiffSummary
	EntityChanges  []EntityChange
	EdgeChanges    []EdgeChange
	BlastRadius    BlastRadius
	ComputedAt     time.Time
	BaseSnapshot   SnapshotDescriptor
	LiveSnapshot   SnapshotDescriptor
}

// Workspace is the unit owning (source_dir, base, live, watcher?, subscribers?)
// and its persisted metadata.
type Workspace struct {
	WorkspaceID    string `json:"workspace_id"`
	DisplayName    string `json:"display_name"`
	SourceDir      string `json:"source_dir"`
	WatchEnabled   bool   `json:"watch_enabled"`
	CreatedUTC     time.Time  `json:"created_utc"`
	LastIndexedUTC *time.Time `json:"last_indexed_utc,omitempty"`
	// LastReconciledGitSHA is the git commit this workspace's graph was last
	// caught up to via a Reconcile call. Empty if the source directory isn't
	// a git repository or has never been reconciled that way.
	LastReconciledGitSHA string `json:"last_reconciled_git_sha,omitempty"`
}

// isExternalKey reports whether key carries the external-reference suffix.
func isExternalKey(key string) bool {
	if len(key) < len(unknownSuffix) {
		return false
	}
	return key[len(key)-len(unknownSuffix):] == unknownSuffix
}
