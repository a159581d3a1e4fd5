// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package graphstore defines the GraphStore capability contract — the
// persistent, content-addressed graph backend the core assumes but does not
// implement as a real storage engine — and ships one in-process reference
// implementation for tests and standalone use.
package graphstore

import (
	"context"

	"github.com/kraklabs/parseltongue/internal/codegraph"
)

// Store is the GraphStore capability contract: snapshot-read,
// bulk-write, delete-by-path, and an atomic swap used to implement
// pin_live_as_base. Implementations must tolerate concurrent readers and
// exactly one writer at a time.
type Store interface {
	// SnapshotEntities returns every entity currently held, in no
	// particular order.
	SnapshotEntities(ctx context.Context) ([]codegraph.CodeEntity, error)

	// SnapshotEdges returns every edge currently held, in no particular
	// order.
	SnapshotEdges(ctx context.Context) ([]codegraph.DependencyEdge, error)

	// BulkInsert appends entities and edges to the store. Existing
	// entities sharing a Key are replaced; this is how reindexing
	// overwrites stale rows after DeleteByFilePath.
	BulkInsert(ctx context.Context, entities []codegraph.CodeEntity, edges []codegraph.DependencyEdge) error

	// DeleteByFilePath removes every entity attributed to filePath and
	// every edge incident to one of those entities.
	DeleteByFilePath(ctx context.Context, filePath string) error

	// ReplaceWith atomically discards the receiver's contents and
	// replaces them with a snapshot of src. Used by pin_live_as_base to
	// swap base for a copy of live.
	ReplaceWith(ctx context.Context, src Store) error

	// Close releases any resources held by the store. Safe to call more
	// than once.
	Close() error
}
