// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kraklabs/parseltongue/internal/codegraph"
	parserrors "github.com/kraklabs/parseltongue/internal/errors"
	"github.com/kraklabs/parseltongue/internal/graphstore"
)

type fakeIndexer struct {
	fn func(ctx context.Context, root string, paths []string) ([]codegraph.CodeEntity, []codegraph.DependencyEdge, error)
}

func (f *fakeIndexer) IndexPaths(ctx context.Context, root string, paths []string) ([]codegraph.CodeEntity, []codegraph.DependencyEdge, error) {
	return f.fn(ctx, root, paths)
}

type recordingNotifier struct {
	mu        sync.Mutex
	started   []string
	completed []codegraph.DiffResult
	errored   []parserrors.Code
}

func (n *recordingNotifier) DiffAnalysisStarted(workspaceID string, filesChanged []string, triggeredBy string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started = append(n.started, workspaceID)
}

func (n *recordingNotifier) DiffAnalysisCompleted(workspaceID string, result codegraph.DiffResult, filesChanged []string, triggeredBy string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, result)
}

func (n *recordingNotifier) ErrorOccurred(workspaceID string, code parserrors.Code, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errored = append(n.errored, code)
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

func TestReindexer_Run_SuccessProducesDiff(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.go")
	if err := os.WriteFile(file, []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	base := graphstore.NewMemStore()
	live := graphstore.NewMemStore()
	notifier := &recordingNotifier{}

	indexer := &fakeIndexer{fn: func(ctx context.Context, root string, paths []string) ([]codegraph.CodeEntity, []codegraph.DependencyEdge, error) {
		return []codegraph.CodeEntity{mkEntity("Foo", "a.go")}, nil, nil
	}}

	r := &Reindexer{
		WorkspaceID: "ws1",
		SourceDir:   dir,
		Indexer:     indexer,
		Base:        base,
		Live:        live,
		Notifier:    notifier,
	}

	result, err := r.Run(context.Background(), []string{file}, "watch")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Summary.EntitiesAdded != 1 {
		t.Errorf("expected 1 entity added relative to empty base, got %+v", result.Summary)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.started) != 1 || len(notifier.completed) != 1 || len(notifier.errored) != 0 {
		t.Errorf("expected one started + one completed + zero errors, got %+v", notifier)
	}
}

func TestReindexer_Run_DeletedFileIsNotReinserted(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "gone.go")

	live := graphstore.NewMemStore()
	if err := live.BulkInsert(context.Background(), []codegraph.CodeEntity{mkEntity("Old", "gone.go")}, nil); err != nil {
		t.Fatalf("seed BulkInsert: %v", err)
	}

	calledIndexer := false
	indexer := &fakeIndexer{fn: func(ctx context.Context, root string, paths []string) ([]codegraph.CodeEntity, []codegraph.DependencyEdge, error) {
		calledIndexer = true
		return nil, nil, nil
	}}

	r := &Reindexer{
		WorkspaceID: "ws1",
		SourceDir:   dir,
		Indexer:     indexer,
		Base:        graphstore.NewMemStore(),
		Live:        live,
		Notifier:    &recordingNotifier{},
	}

	if _, err := r.Run(context.Background(), []string{missing}, "watch"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if calledIndexer {
		t.Error("indexer must not be invoked for a path that no longer exists on disk")
	}

	entities, err := live.SnapshotEntities(context.Background())
	if err != nil {
		t.Fatalf("SnapshotEntities: %v", err)
	}
	if len(entities) != 0 {
		t.Errorf("expected the deleted file's entity to be gone, got %v", entities)
	}
}

func TestReindexer_Run_ParseErrorIsNotRetried(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.go")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var calls int
	indexer := &fakeIndexer{fn: func(ctx context.Context, root string, paths []string) ([]codegraph.CodeEntity, []codegraph.DependencyEdge, error) {
		calls++
		return nil, nil, errors.New("syntax error")
	}}

	notifier := &recordingNotifier{}
	r := &Reindexer{
		WorkspaceID: "ws1",
		SourceDir:   dir,
		Indexer:     indexer,
		Base:        graphstore.NewMemStore(),
		Live:        graphstore.NewMemStore(),
		Notifier:    notifier,
	}

	_, err := r.Run(context.Background(), []string{file}, "watch")
	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 attempt for a non-retryable parse error, got %d", calls)
	}
	code, ok := parserrors.CodeOf(err)
	if !ok || code != parserrors.CodeReindexParseError {
		t.Errorf("expected REINDEX_PARSE_ERROR, got %v (ok=%v)", code, ok)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.errored) != 1 || notifier.errored[0] != parserrors.CodeReindexParseError {
		t.Errorf("expected one REINDEX_PARSE_ERROR notification, got %v", notifier.errored)
	}
}

type flakyStore struct {
	*graphstore.MemStore
	failDeletesUntil int
	deletes          int
}

func (f *flakyStore) DeleteByFilePath(ctx context.Context, filePath string) error {
	f.deletes++
	if f.deletes <= f.failDeletesUntil {
		return errors.New("transient write failure")
	}
	return f.MemStore.DeleteByFilePath(ctx, filePath)
}

func TestReindexer_Run_RetriesTransientDatabaseErrors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.go")
	if err := os.WriteFile(file, []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	live := &flakyStore{MemStore: graphstore.NewMemStore(), failDeletesUntil: 2}
	indexer := &fakeIndexer{fn: func(ctx context.Context, root string, paths []string) ([]codegraph.CodeEntity, []codegraph.DependencyEdge, error) {
		return []codegraph.CodeEntity{mkEntity("Foo", "a.go")}, nil, nil
	}}

	r := &Reindexer{
		WorkspaceID: "ws1",
		SourceDir:   dir,
		Indexer:     indexer,
		Base:        graphstore.NewMemStore(),
		Live:        live,
		Notifier:    &recordingNotifier{},
	}

	if _, err := r.Run(context.Background(), []string{file}, "watch"); err != nil {
		t.Fatalf("expected the retry ladder to eventually succeed, got %v", err)
	}
	if live.deletes != 3 {
		t.Errorf("expected 2 failures + 1 success = 3 delete attempts, got %d", live.deletes)
	}
}
