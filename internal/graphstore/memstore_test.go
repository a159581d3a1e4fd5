// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package graphstore

import (
	"context"
	"testing"

	"github.com/kraklabs/parseltongue/internal/codegraph"
)

func TestMemStore_BulkInsertAndSnapshot(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	entities := []codegraph.CodeEntity{
		{Key: "go:fn:a:__x:1-2", FilePath: "x"},
		{Key: "go:fn:b:__x:3-4", FilePath: "x"},
	}
	edges := []codegraph.DependencyEdge{
		{FromKey: "go:fn:a:__x:1-2", ToKey: "go:fn:b:__x:3-4", EdgeType: codegraph.EdgeCalls},
	}

	if err := s.BulkInsert(ctx, entities, edges); err != nil {
		t.Fatalf("BulkInsert: %v", err)
	}

	gotEntities, err := s.SnapshotEntities(ctx)
	if err != nil {
		t.Fatalf("SnapshotEntities: %v", err)
	}
	if len(gotEntities) != 2 {
		t.Errorf("expected 2 entities, got %d", len(gotEntities))
	}

	gotEdges, err := s.SnapshotEdges(ctx)
	if err != nil {
		t.Fatalf("SnapshotEdges: %v", err)
	}
	if len(gotEdges) != 1 {
		t.Errorf("expected 1 edge, got %d", len(gotEdges))
	}
}

func TestMemStore_DeleteByFilePathCascadesToEdges(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	_ = s.BulkInsert(ctx, []codegraph.CodeEntity{
		{Key: "go:fn:a:__x:1-2", FilePath: "x"},
		{Key: "go:fn:b:__y:1-2", FilePath: "y"},
	}, []codegraph.DependencyEdge{
		{FromKey: "go:fn:a:__x:1-2", ToKey: "go:fn:b:__y:1-2", EdgeType: codegraph.EdgeCalls},
	})

	if err := s.DeleteByFilePath(ctx, "x"); err != nil {
		t.Fatalf("DeleteByFilePath: %v", err)
	}

	entities, _ := s.SnapshotEntities(ctx)
	if len(entities) != 1 || entities[0].FilePath != "y" {
		t.Errorf("expected only y's entity to survive, got %+v", entities)
	}

	edges, _ := s.SnapshotEdges(ctx)
	if len(edges) != 0 {
		t.Errorf("expected incident edge to be cascaded away, got %+v", edges)
	}
}

func TestMemStore_ReplaceWithSwapsContents(t *testing.T) {
	ctx := context.Background()
	base := NewMemStore()
	live := NewMemStore()

	_ = live.BulkInsert(ctx, []codegraph.CodeEntity{
		{Key: "go:fn:a:__x:1-2", FilePath: "x"},
	}, nil)

	if err := base.ReplaceWith(ctx, live); err != nil {
		t.Fatalf("ReplaceWith: %v", err)
	}

	baseEntities, _ := base.SnapshotEntities(ctx)
	if len(baseEntities) != 1 {
		t.Fatalf("expected base to now mirror live, got %+v", baseEntities)
	}

	// Subsequent mutation of live must not retroactively affect base: the
	// swap is a point-in-time copy, not a shared reference.
	_ = live.BulkInsert(ctx, []codegraph.CodeEntity{
		{Key: "go:fn:b:__x:3-4", FilePath: "x"},
	}, nil)
	baseEntities, _ = base.SnapshotEntities(ctx)
	if len(baseEntities) != 1 {
		t.Errorf("base snapshot must be independent of live after swap, got %d entities", len(baseEntities))
	}
}

func TestMemStore_ClosedStoreRejectsOperations(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close must be a no-op, got %v", err)
	}

	if _, err := s.SnapshotEntities(ctx); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := s.BulkInsert(ctx, nil, nil); err != ErrClosed {
		t.Errorf("expected ErrClosed on BulkInsert, got %v", err)
	}
}

func TestMemStore_ReplaceWithRejectsIncompatibleStore(t *testing.T) {
	s := NewMemStore()
	if err := s.ReplaceWith(context.Background(), fakeStore{}); err != ErrIncompatibleStore {
		t.Errorf("expected ErrIncompatibleStore, got %v", err)
	}
}

type fakeStore struct{}

func (fakeStore) SnapshotEntities(context.Context) ([]codegraph.CodeEntity, error) { return nil, nil }
func (fakeStore) SnapshotEdges(context.Context) ([]codegraph.DependencyEdge, error) { return nil, nil }
func (fakeStore) BulkInsert(context.Context, []codegraph.CodeEntity, []codegraph.DependencyEdge) error {
	return nil
}
func (fakeStore) DeleteByFilePath(context.Context, string) error       { return nil }
func (fakeStore) ReplaceWith(context.Context, Store) error             { return nil }
func (fakeStore) Close() error                                         { return nil }
