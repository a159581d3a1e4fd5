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

package graphstore

import (
	"context"
	"sync"

	"github.com/kraklabs/parseltongue/internal/codegraph"
)

// MemStore is the reference Store implementation: an in-process,
// mutex-guarded pair of maps standing in for an embedded Datalog engine.
// Method surface and lock discipline mirror an embedded content-addressed
// backend — RWMutex-guarded, closed-check on every call, delete-by-path
// cascading from entities to their incident edges — without a real storage
// engine underneath.
type MemStore struct {
	mu       sync.RWMutex
	closed   bool
	entities map[string]codegraph.CodeEntity   // keyed by Key (not stable_id: overloads coexist)
	edges    map[edgeRowKey]codegraph.DependencyEdge
}

type edgeRowKey struct {
	from, to string
	edgeType codegraph.EdgeType
}

// NewMemStore returns an empty, ready-to-use store.
func NewMemStore() *MemStore {
	return &MemStore{
		entities: make(map[string]codegraph.CodeEntity),
		edges:    make(map[edgeRowKey]codegraph.DependencyEdge),
	}
}

func (s *MemStore) SnapshotEntities(ctx context.Context) ([]codegraph.CodeEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]codegraph.CodeEntity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e)
	}
	return out, nil
}

func (s *MemStore) SnapshotEdges(ctx context.Context) ([]codegraph.DependencyEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]codegraph.DependencyEdge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, e)
	}
	return out, nil
}

func (s *MemStore) BulkInsert(ctx context.Context, entities []codegraph.CodeEntity, edges []codegraph.DependencyEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, e := range entities {
		s.entities[e.Key] = e
	}
	for _, e := range edges {
		s.edges[edgeRow(e)] = e
	}
	return nil
}

func (s *MemStore) DeleteByFilePath(ctx context.Context, filePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	doomed := make(map[string]struct{})
	for key, e := range s.entities {
		if e.FilePath == filePath {
			doomed[key] = struct{}{}
			delete(s.entities, key)
		}
	}
	if len(doomed) == 0 {
		return nil
	}

	for row, e := range s.edges {
		if _, gone := doomed[e.FromKey]; gone {
			delete(s.edges, row)
			continue
		}
		if _, gone := doomed[e.ToKey]; gone {
			delete(s.edges, row)
		}
	}
	return nil
}

// ReplaceWith implements the atomic swap backing pin_live_as_base. src must
// also be a *MemStore. src's entities and its edges are copied under two
// separate acquisitions of src's read lock, so a write to src between them
// can reach one copy and not the other; the receiver's maps are then swapped
// under its own write lock, so a concurrent reader of the receiver sees
// either all of the old contents or all of the new.
func (s *MemStore) ReplaceWith(ctx context.Context, src Store) error {
	other, ok := src.(*MemStore)
	if !ok {
		return ErrIncompatibleStore
	}

	entities, err := other.SnapshotEntities(ctx)
	if err != nil {
		return err
	}
	edges, err := other.SnapshotEdges(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	newEntities := make(map[string]codegraph.CodeEntity, len(entities))
	for _, e := range entities {
		newEntities[e.Key] = e
	}
	newEdges := make(map[edgeRowKey]codegraph.DependencyEdge, len(edges))
	for _, e := range edges {
		newEdges[edgeRow(e)] = e
	}

	s.entities = newEntities
	s.edges = newEdges
	return nil
}

func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func edgeRow(e codegraph.DependencyEdge) edgeRowKey {
	return edgeRowKey{from: e.FromKey, to: e.ToKey, edgeType: e.EdgeType}
}
