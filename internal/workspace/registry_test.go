// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kraklabs/parseltongue/internal/broadcast"
	"github.com/kraklabs/parseltongue/internal/codegraph"
	parserrors "github.com/kraklabs/parseltongue/internal/errors"
	"github.com/kraklabs/parseltongue/internal/graphstore"
)

type fakeIndexer struct {
	fn func(ctx context.Context, root string, paths []string) ([]codegraph.CodeEntity, []codegraph.DependencyEdge, error)
}

func (f *fakeIndexer) IndexPaths(ctx context.Context, root string, paths []string) ([]codegraph.CodeEntity, []codegraph.DependencyEdge, error) {
	if f.fn != nil {
		return f.fn(ctx, root, paths)
	}
	return nil, nil, nil
}

func mkEntity(name, path string) codegraph.CodeEntity {
	return codegraph.CodeEntity{
		Key:         "go:fn:" + name + ":" + path + ":1-2",
		StableID:    "go:fn:" + name + ":" + path,
		EntityType:  codegraph.EntityFunction,
		Name:        name,
		FilePath:    path,
		ContentHash: "h1",
	}
}

func newTestRegistry(t *testing.T, indexer *fakeIndexer) *Registry {
	t.Helper()
	return NewRegistry(Config{
		DataDir:        t.TempDir(),
		Hub:            broadcast.NewHub(),
		Indexer:        indexer,
		NewStore:       func() graphstore.Store { return graphstore.NewMemStore() },
		DebounceWindow: 10 * time.Millisecond,
		MaxHops:        2,
	})
}

func TestCreate_ValidatesSourceDir(t *testing.T) {
	r := newTestRegistry(t, &fakeIndexer{})

	if _, err := r.Create(context.Background(), "/no/such/path", ""); err == nil {
		t.Fatal("expected an error for a nonexistent source_dir")
	} else if code, _ := parserrors.CodeOf(err); code != parserrors.CodePathNotFound {
		t.Errorf("expected PATH_NOT_FOUND, got %v", code)
	}

	file := filepath.Join(t.TempDir(), "notadir")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := r.Create(context.Background(), file, ""); err == nil {
		t.Fatal("expected an error for a source_dir that is a regular file")
	} else if code, _ := parserrors.CodeOf(err); code != parserrors.CodePathNotDirectory {
		t.Errorf("expected PATH_NOT_DIRECTORY, got %v", code)
	}
}

func TestCreate_IndexesAndPersists(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "a.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	indexer := &fakeIndexer{fn: func(ctx context.Context, root string, paths []string) ([]codegraph.CodeEntity, []codegraph.DependencyEdge, error) {
		return []codegraph.CodeEntity{mkEntity("Foo", "a.go")}, nil, nil
	}}
	r := newTestRegistry(t, indexer)

	ws, err := r.Create(context.Background(), src, "demo")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ws.DisplayName != "demo" || ws.WatchEnabled {
		t.Errorf("unexpected workspace: %+v", ws)
	}

	reloaded, err := loadMetadata(r.cfg.DataDir, ws.WorkspaceID)
	if err != nil {
		t.Fatalf("loadMetadata: %v", err)
	}
	if reloaded.WorkspaceID != ws.WorkspaceID {
		t.Errorf("persisted metadata does not match: %+v", reloaded)
	}

	diff, err := r.ComputeDiff(context.Background(), ws.WorkspaceID, 2)
	if err != nil {
		t.Fatalf("ComputeDiff: %v", err)
	}
	if diff.Summary.EntitiesAdded != 0 {
		t.Errorf("base was just seeded from live; diff against itself should be empty, got %+v", diff.Summary)
	}
}

func TestCreate_RejectsDuplicateSourceDir(t *testing.T) {
	src := t.TempDir()
	r := newTestRegistry(t, &fakeIndexer{})

	if _, err := r.Create(context.Background(), src, ""); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := r.Create(context.Background(), src, ""); err == nil {
		t.Fatal("expected an error registering the same source_dir twice")
	} else if code, _ := parserrors.CodeOf(err); code != parserrors.CodeWorkspaceAlreadyExists {
		t.Errorf("expected WORKSPACE_ALREADY_EXISTS, got %v", code)
	}
}

func TestList_SortsByCreatedDescending(t *testing.T) {
	r := newTestRegistry(t, &fakeIndexer{})

	a, err := r.Create(context.Background(), t.TempDir(), "a")
	if err != nil {
		t.Fatalf("Create a: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	b, err := r.Create(context.Background(), t.TempDir(), "b")
	if err != nil {
		t.Fatalf("Create b: %v", err)
	}

	list := r.List()
	if len(list) != 2 || list[0].WorkspaceID != b.WorkspaceID || list[1].WorkspaceID != a.WorkspaceID {
		t.Errorf("expected [b, a] newest-first, got %+v", list)
	}
}

func TestToggleWatch_UnknownWorkspaceReturnsNotFound(t *testing.T) {
	r := newTestRegistry(t, &fakeIndexer{})
	if _, err := r.ToggleWatch(context.Background(), "ws_missing", true); err == nil {
		t.Fatal("expected an error")
	} else if code, _ := parserrors.CodeOf(err); code != parserrors.CodeWorkspaceNotFound {
		t.Errorf("expected WORKSPACE_NOT_FOUND, got %v", code)
	}
}

func TestToggleWatch_StartsAndStopsWatcherAndPersists(t *testing.T) {
	src := t.TempDir()
	r := newTestRegistry(t, &fakeIndexer{})
	ws, err := r.Create(context.Background(), src, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := r.ToggleWatch(context.Background(), ws.WorkspaceID, true)
	if err != nil {
		t.Fatalf("ToggleWatch(true): %v", err)
	}
	if !updated.WatchEnabled {
		t.Error("expected watch_enabled=true")
	}
	persisted, err := loadMetadata(r.cfg.DataDir, ws.WorkspaceID)
	if err != nil {
		t.Fatalf("loadMetadata: %v", err)
	}
	if !persisted.WatchEnabled {
		t.Error("expected persisted watch_enabled=true")
	}

	// Idempotent re-request.
	if again, err := r.ToggleWatch(context.Background(), ws.WorkspaceID, true); err != nil || !again.WatchEnabled {
		t.Errorf("expected idempotent success, got %+v, %v", again, err)
	}

	stopped, err := r.ToggleWatch(context.Background(), ws.WorkspaceID, false)
	if err != nil {
		t.Fatalf("ToggleWatch(false): %v", err)
	}
	if stopped.WatchEnabled {
		t.Error("expected watch_enabled=false after stopping")
	}
}

func TestDelete_IsIdempotentAndRemovesOnDiskState(t *testing.T) {
	src := t.TempDir()
	r := newTestRegistry(t, &fakeIndexer{})
	ws, err := r.Create(context.Background(), src, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := r.Delete(context.Background(), ws.WorkspaceID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := r.Get(ws.WorkspaceID); ok {
		t.Error("expected the workspace to be gone from the registry")
	}
	if _, err := os.Stat(workspaceDir(r.cfg.DataDir, ws.WorkspaceID)); !os.IsNotExist(err) {
		t.Errorf("expected the workspace directory to be removed, stat err=%v", err)
	}

	// Deleting again must not error.
	if err := r.Delete(context.Background(), ws.WorkspaceID); err != nil {
		t.Errorf("expected idempotent Delete, got %v", err)
	}
}

func TestReconcile_HashBasedDetectsFileAddedAfterCreate(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "a.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	indexer := &fakeIndexer{fn: func(ctx context.Context, root string, paths []string) ([]codegraph.CodeEntity, []codegraph.DependencyEdge, error) {
		var out []codegraph.CodeEntity
		for _, p := range paths {
			out = append(out, mkEntity("Foo_"+filepath.Base(p), p))
		}
		return out, nil, nil
	}}
	r := newTestRegistry(t, indexer)
	ws, err := r.Create(context.Background(), src, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// src is not a git repository, so Reconcile must fall back to
	// content-hash comparison.
	if err := os.WriteFile(filepath.Join(src, "b.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("WriteFile b.go: %v", err)
	}

	result, err := r.Reconcile(context.Background(), ws.WorkspaceID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.Summary.EntitiesAdded != 1 {
		t.Errorf("expected reconciling the new file to add exactly 1 entity, got %+v", result.Summary)
	}
}

func TestReconcile_NoChangesIsANoOp(t *testing.T) {
	src := t.TempDir()
	indexer := &fakeIndexer{}
	r := newTestRegistry(t, indexer)
	ws, err := r.Create(context.Background(), src, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	result, err := r.Reconcile(context.Background(), ws.WorkspaceID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.Summary.EntitiesAdded != 0 || result.Summary.EntitiesRemoved != 0 {
		t.Errorf("expected a no-op reconciliation to leave the diff empty, got %+v", result.Summary)
	}
}

func TestPinLiveAsBase_CollapsesDiffToEmpty(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "a.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	indexer := &fakeIndexer{fn: func(ctx context.Context, root string, paths []string) ([]codegraph.CodeEntity, []codegraph.DependencyEdge, error) {
		return []codegraph.CodeEntity{mkEntity("Foo", "a.go")}, nil, nil
	}}
	r := newTestRegistry(t, indexer)
	ws, err := r.Create(context.Background(), src, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	r.mu.RLock()
	e := r.workspaces[ws.WorkspaceID]
	r.mu.RUnlock()
	if err := e.live.BulkInsert(context.Background(), []codegraph.CodeEntity{mkEntity("Bar", "b.go")}, nil); err != nil {
		t.Fatalf("seed extra live entity: %v", err)
	}

	diffBefore, err := r.ComputeDiff(context.Background(), ws.WorkspaceID, 2)
	if err != nil {
		t.Fatalf("ComputeDiff: %v", err)
	}
	if diffBefore.Summary.EntitiesAdded != 1 {
		t.Fatalf("expected 1 added entity before pinning, got %+v", diffBefore.Summary)
	}

	if err := r.PinLiveAsBase(context.Background(), ws.WorkspaceID); err != nil {
		t.Fatalf("PinLiveAsBase: %v", err)
	}

	diffAfter, err := r.ComputeDiff(context.Background(), ws.WorkspaceID, 2)
	if err != nil {
		t.Fatalf("ComputeDiff after pin: %v", err)
	}
	if diffAfter.Summary.EntitiesAdded != 0 || diffAfter.Summary.EntitiesRemoved != 0 {
		t.Errorf("expected an empty diff after pinning live as base, got %+v", diffAfter.Summary)
	}
}
