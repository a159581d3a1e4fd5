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
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kraklabs/parseltongue/internal/broadcast"
	"github.com/kraklabs/parseltongue/internal/codegraph"
	"github.com/kraklabs/parseltongue/internal/codeindexer"
	"github.com/kraklabs/parseltongue/internal/diffengine"
	parserrors "github.com/kraklabs/parseltongue/internal/errors"
	"github.com/kraklabs/parseltongue/internal/graphstore"
	"github.com/kraklabs/parseltongue/internal/metrics"
	"github.com/kraklabs/parseltongue/internal/watcher"
)

// StoreFactory creates a fresh, empty GraphStore instance. The reference
// Registry uses one per base/live pair, per workspace.
type StoreFactory func() graphstore.Store

// Config wires a Registry to its collaborators.
type Config struct {
	DataDir        string // ~/.parseltongue
	Hub            *broadcast.Hub
	Indexer        codeindexer.Indexer
	NewStore       StoreFactory
	Logger         *slog.Logger
	MaxHops        int
	DebounceWindow time.Duration
	IgnoreGlobs    []string
}

type watcherHandle struct {
	w         *watcher.Watcher
	debouncer *watcher.Debouncer
	gate      *watcher.ReindexGate
	batches   chan watcher.DebouncedBatch
}

type entry struct {
	mu            sync.Mutex // guards meta and watcherHandle
	meta          codegraph.Workspace
	base          graphstore.Store
	live          graphstore.Store
	watcherHandle *watcherHandle
}

// Registry is the Workspace Registry & State Manager: the
// authoritative in-process directory of workspaces and guardian of their
// on-disk metadata, store handles, and watcher handles.
type Registry struct {
	mu         sync.RWMutex
	workspaces map[string]*entry

	cfg Config
}

// NewRegistry creates an empty registry. Call LoadAll to rehydrate
// previously persisted workspaces.
func NewRegistry(cfg Config) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxHops <= 0 {
		cfg.MaxHops = 2
	}
	r := &Registry{workspaces: make(map[string]*entry), cfg: cfg}
	cfg.Hub.WorkspaceLookup = r.lookupForHub
	return r
}

func (r *Registry) lookupForHub(workspaceID string) (string, bool, bool) {
	r.mu.RLock()
	e, ok := r.workspaces[workspaceID]
	r.mu.RUnlock()
	if !ok {
		return "", false, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.meta.DisplayName, e.meta.WatchEnabled, true
}

// loadAllConcurrency bounds how many workspaces LoadAll rehydrates at once,
// so a data directory with many workspaces doesn't open every watcher in
// the same instant.
const loadAllConcurrency = 8

// LoadAll rehydrates every persisted workspace's metadata from disk so the
// registry is re-derivable after a process restart. It does not
// restore prior live/base store contents for the in-memory reference
// GraphStore — a durable backend would reopen its on-disk files here
// instead. Watchers are restarted for any workspace with watch_enabled set;
// a restart failure flips watch_enabled back to false and persists it
// rather than failing the whole load. Workspaces are rehydrated
// concurrently since each one's metadata load and watcher restart is
// independent of every other's.
func (r *Registry) LoadAll(ctx context.Context) error {
	ids, err := listPersistedWorkspaceIDs(r.cfg.DataDir)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadAllConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			r.loadOne(gctx, id)
			return nil
		})
	}
	return g.Wait()
}

// loadOne rehydrates a single workspace. Failures are logged, not
// returned, so one corrupt workspace never aborts the rest of LoadAll.
func (r *Registry) loadOne(ctx context.Context, id string) {
	meta, err := loadMetadata(r.cfg.DataDir, id)
	if err != nil {
		r.cfg.Logger.Warn("workspace.load_failed", "workspace_id", id, "error", err)
		return
	}

	e := &entry{meta: meta, base: r.cfg.NewStore(), live: r.cfg.NewStore()}
	r.mu.Lock()
	r.workspaces[id] = e
	r.mu.Unlock()

	if meta.WatchEnabled {
		if err := r.startWatcher(e); err != nil {
			r.cfg.Logger.Warn("workspace.watch_restart_failed", "workspace_id", id, "error", err)
			e.mu.Lock()
			e.meta.WatchEnabled = false
			snapshot := e.meta
			e.mu.Unlock()
			_ = saveMetadata(r.cfg.DataDir, snapshot)
		}
	}
}

// Create validates source_dir, performs the initial full index into a
// fresh live store, copies it into base, persists metadata, and registers
// the workspace.
func (r *Registry) Create(ctx context.Context, sourceDir, displayName string) (codegraph.Workspace, error) {
	info, err := os.Stat(sourceDir)
	if err != nil {
		return codegraph.Workspace{}, parserrors.New(parserrors.CodePathNotFound, "source directory does not exist: "+sourceDir, err)
	}
	if !info.IsDir() {
		return codegraph.Workspace{}, parserrors.New(parserrors.CodePathNotDirectory, sourceDir+" is not a directory", nil)
	}
	absSource, err := filepath.Abs(sourceDir)
	if err != nil {
		absSource = sourceDir
	}

	r.mu.RLock()
	for id, e := range r.workspaces {
		e.mu.Lock()
		existingSource := e.meta.SourceDir
		e.mu.Unlock()
		if existingSource == absSource {
			r.mu.RUnlock()
			return codegraph.Workspace{}, parserrors.New(parserrors.CodeWorkspaceAlreadyExists, "source directory already registered as workspace "+id, nil)
		}
	}
	r.mu.RUnlock()

	now := time.Now().UTC()
	id, err := newWorkspaceID(now)
	if err != nil {
		return codegraph.Workspace{}, err
	}

	ignore := watcher.NewIgnoreMatcher(r.cfg.IgnoreGlobs)
	paths, err := enumerateFiles(absSource, ignore)
	if err != nil {
		return codegraph.Workspace{}, parserrors.New(parserrors.CodePathNotFound, "failed to walk source directory", err)
	}

	appendIndexLog(workspaceDir(r.cfg.DataDir, id), fmt.Sprintf("started initial %d files", len(paths)))

	live := r.cfg.NewStore()
	entities, edges, err := r.cfg.Indexer.IndexPaths(ctx, absSource, paths)
	if err != nil {
		appendIndexLog(workspaceDir(r.cfg.DataDir, id), "failed:"+string(parserrors.CodeReindexParseError))
		return codegraph.Workspace{}, parserrors.New(parserrors.CodeReindexParseError, "initial index failed", err)
	}
	if err := live.BulkInsert(ctx, entities, edges); err != nil {
		appendIndexLog(workspaceDir(r.cfg.DataDir, id), "failed:"+string(parserrors.CodeStorageWriteFailed))
		return codegraph.Workspace{}, parserrors.New(parserrors.CodeStorageWriteFailed, "failed to write initial index", err)
	}
	appendIndexLog(workspaceDir(r.cfg.DataDir, id), fmt.Sprintf("completed initial %d entities %d edges", len(entities), len(edges)))

	hashDetector := watcher.NewHashDeltaDetector(absSource, r.cfg.Logger)
	if err := saveFileHashes(workspaceDir(r.cfg.DataDir, id), hashDetector.HashFiles(paths)); err != nil {
		r.cfg.Logger.Warn("workspace.save_file_hashes_failed", "workspace_id", id, "error", err)
	}

	base := r.cfg.NewStore()
	if err := base.ReplaceWith(ctx, live); err != nil {
		return codegraph.Workspace{}, parserrors.New(parserrors.CodeStorageWriteFailed, "failed to seed base snapshot", err)
	}

	if displayName == "" {
		displayName = filepath.Base(absSource)
	}
	meta := codegraph.Workspace{
		WorkspaceID:  id,
		DisplayName:  displayName,
		SourceDir:    absSource,
		WatchEnabled: false,
		CreatedUTC:   now,
	}
	if err := saveMetadata(r.cfg.DataDir, meta); err != nil {
		return codegraph.Workspace{}, err
	}

	r.mu.Lock()
	r.workspaces[id] = &entry{meta: meta, base: base, live: live}
	r.mu.Unlock()

	return meta, nil
}

// List returns owned value copies of every workspace, sorted by
// created_utc descending.
func (r *Registry) List() []codegraph.Workspace {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]codegraph.Workspace, 0, len(r.workspaces))
	for _, e := range r.workspaces {
		e.mu.Lock()
		out = append(out, e.meta)
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedUTC.After(out[j].CreatedUTC) })
	return out
}

// Get returns a value copy of one workspace's metadata.
func (r *Registry) Get(id string) (codegraph.Workspace, bool) {
	r.mu.RLock()
	e, ok := r.workspaces[id]
	r.mu.RUnlock()
	if !ok {
		return codegraph.Workspace{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.meta, true
}

// ToggleWatch starts or stops the workspace's watcher and persists the
// updated flag atomically. A no-op request (desired == current) is
// an idempotent success.
func (r *Registry) ToggleWatch(ctx context.Context, id string, desired bool) (codegraph.Workspace, error) {
	r.mu.RLock()
	e, ok := r.workspaces[id]
	r.mu.RUnlock()
	if !ok {
		return codegraph.Workspace{}, parserrors.New(parserrors.CodeWorkspaceNotFound, "no such workspace: "+id, nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.meta.WatchEnabled == desired {
		return e.meta, nil
	}

	if desired {
		if err := r.startWatcherLocked(e); err != nil {
			return codegraph.Workspace{}, err
		}
	} else {
		r.stopWatcherLocked(e)
	}

	e.meta.WatchEnabled = desired
	if err := saveMetadata(r.cfg.DataDir, e.meta); err != nil {
		// Roll back the watcher change since persistence failed.
		if desired {
			r.stopWatcherLocked(e)
		} else if startErr := r.startWatcherLocked(e); startErr != nil {
			r.cfg.Logger.Warn("workspace.watch_rollback_failed", "workspace_id", id, "error", startErr)
		}
		e.meta.WatchEnabled = !desired
		return codegraph.Workspace{}, err
	}

	return e.meta, nil
}

// Delete stops the watcher (best-effort), drops all subscribers, removes
// on-disk data, and deregisters the workspace. Idempotent.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	e, ok := r.workspaces[id]
	if ok {
		delete(r.workspaces, id)
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}

	e.mu.Lock()
	r.stopWatcherLocked(e)
	e.mu.Unlock()

	r.cfg.Hub.DropWorkspace(id)
	_ = e.base.Close()
	_ = e.live.Close()

	return removeWorkspaceDir(r.cfg.DataDir, id)
}

// ComputeDiff opens snapshots of base and live and invokes the diff
// engine. It never mutates state.
func (r *Registry) ComputeDiff(ctx context.Context, id string, maxHops int) (codegraph.DiffResult, error) {
	r.mu.RLock()
	e, ok := r.workspaces[id]
	r.mu.RUnlock()
	if !ok {
		return codegraph.DiffResult{}, parserrors.New(parserrors.CodeWorkspaceNotFound, "no such workspace: "+id, nil)
	}

	baseEntities, err := e.base.SnapshotEntities(ctx)
	if err != nil {
		return codegraph.DiffResult{}, parserrors.New(parserrors.CodeStorageReadFailed, "failed to snapshot base entities", err)
	}
	baseEdges, err := e.base.SnapshotEdges(ctx)
	if err != nil {
		return codegraph.DiffResult{}, parserrors.New(parserrors.CodeStorageReadFailed, "failed to snapshot base edges", err)
	}
	liveEntities, err := e.live.SnapshotEntities(ctx)
	if err != nil {
		return codegraph.DiffResult{}, parserrors.New(parserrors.CodeStorageReadFailed, "failed to snapshot live entities", err)
	}
	liveEdges, err := e.live.SnapshotEdges(ctx)
	if err != nil {
		return codegraph.DiffResult{}, parserrors.New(parserrors.CodeStorageReadFailed, "failed to snapshot live edges", err)
	}

	return diffengine.Compute(
		diffengine.Snapshot{Entities: baseEntities, Edges: baseEdges},
		diffengine.Snapshot{Entities: liveEntities, Edges: liveEdges},
		diffengine.Options{MaxHops: maxHops, Logger: r.cfg.Logger},
	), nil
}

// PinLiveAsBase atomically replaces base with a snapshot of live.
func (r *Registry) PinLiveAsBase(ctx context.Context, id string) error {
	r.mu.RLock()
	e, ok := r.workspaces[id]
	r.mu.RUnlock()
	if !ok {
		return parserrors.New(parserrors.CodeWorkspaceNotFound, "no such workspace: "+id, nil)
	}
	if err := e.base.ReplaceWith(ctx, e.live); err != nil {
		return parserrors.New(parserrors.CodeStorageWriteFailed, "failed to pin live as base", err)
	}
	return nil
}

// startWatcherLocked must be called with e.mu held.
func (r *Registry) startWatcherLocked(e *entry) error {
	return r.startWatcher(e)
}

func (r *Registry) startWatcher(e *entry) error {
	ignore := watcher.NewIgnoreMatcher(r.cfg.IgnoreGlobs)
	w, err := watcher.New(e.meta.WorkspaceID, e.meta.SourceDir, ignore, r.cfg.Logger)
	if err != nil {
		return err
	}

	batches := make(chan watcher.DebouncedBatch, 16)
	deb := watcher.NewDebouncer(e.meta.WorkspaceID, r.cfg.DebounceWindow, batches)

	reindexer := &watcher.Reindexer{
		WorkspaceID: e.meta.WorkspaceID,
		SourceDir:   e.meta.SourceDir,
		Indexer:     r.cfg.Indexer,
		Base:        e.base,
		Live:        e.live,
		Notifier:    r.cfg.Hub,
		Logger:      r.cfg.Logger,
		MaxHops:     r.cfg.MaxHops,
	}

	dir := workspaceDir(r.cfg.DataDir, e.meta.WorkspaceID)
	gate := watcher.NewReindexGate(func(paths []string) {
		appendIndexLog(dir, fmt.Sprintf("started watch %d files", len(paths)))
		start := time.Now()
		_, runErr := reindexer.Run(context.Background(), paths, "watch")
		metrics.RecordReindex(e.meta.WorkspaceID, runErr == nil, time.Since(start))

		if runErr != nil {
			code, _ := parserrors.CodeOf(runErr)
			appendIndexLog(dir, "failed:"+string(code))
			if errors.Is(runErr, graphstore.ErrClosed) {
				r.disableWatchOnCorruption(e.meta.WorkspaceID)
			}
			return
		}
		appendIndexLog(dir, "completed watch")
		r.markIndexed(e.meta.WorkspaceID, time.Now().UTC())
		r.refreshFileHashes(e.meta.WorkspaceID, e.meta.SourceDir, paths)
	})

	go func() {
		for ev := range w.Events() {
			metrics.RecordWatcherEvent(e.meta.WorkspaceID)
			deb.Push(ev)
		}
	}()
	go func() {
		for batch := range batches {
			gate.Submit(batch.Paths)
		}
	}()

	e.watcherHandle = &watcherHandle{w: w, debouncer: deb, gate: gate, batches: batches}
	return nil
}

// stopWatcherLocked must be called with e.mu held.
func (r *Registry) stopWatcherLocked(e *entry) {
	if e.watcherHandle == nil {
		return
	}
	e.watcherHandle.debouncer.Stop()
	if err := e.watcherHandle.w.Close(); err != nil {
		r.cfg.Logger.Warn("workspace.watcher_stop_failed", "workspace_id", e.meta.WorkspaceID, "error", err)
	}
	e.watcherHandle = nil
}

func (r *Registry) markIndexed(id string, ts time.Time) {
	r.mu.RLock()
	e, ok := r.workspaces[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	e.mu.Lock()
	e.meta.LastIndexedUTC = &ts
	snapshot := e.meta
	e.mu.Unlock()
	if err := saveMetadata(r.cfg.DataDir, snapshot); err != nil {
		r.cfg.Logger.Warn("workspace.persist_last_indexed_failed", "workspace_id", id, "error", err)
	}
}

// disableWatchOnCorruption tears down the watcher and flips watch_enabled
// to false when the store reports it is unusable.
func (r *Registry) disableWatchOnCorruption(id string) {
	r.mu.RLock()
	e, ok := r.workspaces[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	e.mu.Lock()
	r.stopWatcherLocked(e)
	e.meta.WatchEnabled = false
	snapshot := e.meta
	e.mu.Unlock()

	if err := saveMetadata(r.cfg.DataDir, snapshot); err != nil {
		r.cfg.Logger.Warn("workspace.persist_corruption_teardown_failed", "workspace_id", id, "error", err)
	}
	r.cfg.Logger.Error("workspace.store_corruption_detected_watch_disabled", "workspace_id", id)
	appendIndexLog(workspaceDir(r.cfg.DataDir, id), "failed:store_corruption watch_disabled")
}

// refreshFileHashes updates the persisted path -> content-hash state for
// exactly the paths a reindex run just touched: recomputed for files still
// on disk, dropped for files that no longer exist. Best-effort; a failure
// here only degrades the next hash-based Reconcile, it does not affect the
// graph itself.
func (r *Registry) refreshFileHashes(workspaceID, sourceDir string, paths []string) {
	dir := workspaceDir(r.cfg.DataDir, workspaceID)
	hashes := loadFileHashes(dir)
	detector := watcher.NewHashDeltaDetector(sourceDir, r.cfg.Logger)

	var stillPresent []string
	for _, p := range paths {
		if filepath.IsAbs(p) {
			if rel, err := filepath.Rel(sourceDir, p); err == nil {
				p = rel
			}
		}
		if _, err := os.Stat(filepath.Join(sourceDir, p)); err == nil {
			stillPresent = append(stillPresent, p)
		} else {
			delete(hashes, p)
		}
	}
	for p, h := range detector.HashFiles(stillPresent) {
		hashes[p] = h
	}
	if err := saveFileHashes(dir, hashes); err != nil {
		r.cfg.Logger.Warn("workspace.save_file_hashes_failed", "workspace_id", workspaceID, "error", err)
	}
}

// Reconcile performs a one-shot catch-up scan against the workspace's
// source directory without requiring a live filesystem watch: it detects
// every path that changed since the last reconciliation (via git history
// when the source directory is a git repository, otherwise via content
// hashing) and drives a single reindex over exactly those paths. Useful
// right before a `diff` when the watcher has been off, or to bring a
// freshly `create`d workspace's graph up to date with changes made between
// `create` and the first `watch --on`.
func (r *Registry) Reconcile(ctx context.Context, id string) (codegraph.DiffResult, error) {
	r.mu.RLock()
	e, ok := r.workspaces[id]
	r.mu.RUnlock()
	if !ok {
		return codegraph.DiffResult{}, parserrors.New(parserrors.CodeWorkspaceNotFound, "no such workspace: "+id, nil)
	}

	e.mu.Lock()
	sourceDir := e.meta.SourceDir
	lastSHA := e.meta.LastReconciledGitSHA
	e.mu.Unlock()

	ignore := watcher.NewIgnoreMatcher(r.cfg.IgnoreGlobs)
	dir := workspaceDir(r.cfg.DataDir, id)

	gitDetector := watcher.NewGitDeltaDetector(sourceDir, r.cfg.Logger)
	var delta *watcher.FileDelta
	var headSHA string
	if gitDetector.IsGitRepository() {
		sha, err := gitDetector.HeadSHA()
		if err != nil {
			return codegraph.DiffResult{}, parserrors.New(parserrors.CodeReindexDatabaseError, "failed to resolve HEAD for reconciliation", err)
		}
		headSHA = sha
		d, err := gitDetector.DetectGitDelta(lastSHA, headSHA)
		if err != nil {
			return codegraph.DiffResult{}, parserrors.New(parserrors.CodeReindexDatabaseError, "git-based reconciliation failed", err)
		}
		delta = d
	} else {
		paths, err := enumerateFiles(sourceDir, ignore)
		if err != nil {
			return codegraph.DiffResult{}, parserrors.New(parserrors.CodePathNotFound, "failed to walk source directory for reconciliation", err)
		}
		hashDetector := watcher.NewHashDeltaDetector(sourceDir, r.cfg.Logger)
		d, err := hashDetector.DetectHashDelta(paths, loadFileHashes(dir))
		if err != nil {
			return codegraph.DiffResult{}, parserrors.New(parserrors.CodeReindexDatabaseError, "hash-based reconciliation failed", err)
		}
		delta = d
	}

	if !delta.HasChanges() {
		appendIndexLog(dir, "completed reconcile 0 files")
		return r.ComputeDiff(ctx, id, r.cfg.MaxHops)
	}

	appendIndexLog(dir, fmt.Sprintf("started reconcile %d files", len(delta.All)))
	reindexer := &watcher.Reindexer{
		WorkspaceID: id,
		SourceDir:   sourceDir,
		Indexer:     r.cfg.Indexer,
		Base:        e.base,
		Live:        e.live,
		Notifier:    r.cfg.Hub,
		Logger:      r.cfg.Logger,
		MaxHops:     r.cfg.MaxHops,
	}
	absPaths := make([]string, len(delta.All))
	for i, rel := range delta.All {
		absPaths[i] = filepath.Join(sourceDir, rel)
	}
	result, err := reindexer.Run(ctx, absPaths, "reconcile")
	if err != nil {
		code, _ := parserrors.CodeOf(err)
		appendIndexLog(dir, "failed:"+string(code))
		return codegraph.DiffResult{}, err
	}
	appendIndexLog(dir, fmt.Sprintf("completed reconcile %d files", len(delta.All)))
	r.refreshFileHashes(id, sourceDir, delta.All)
	r.markIndexed(id, time.Now().UTC())

	if headSHA != "" {
		e.mu.Lock()
		e.meta.LastReconciledGitSHA = headSHA
		snapshot := e.meta
		e.mu.Unlock()
		if err := saveMetadata(r.cfg.DataDir, snapshot); err != nil {
			r.cfg.Logger.Warn("workspace.persist_reconcile_sha_failed", "workspace_id", id, "error", err)
		}
	}

	return result, nil
}

// RecentActivity returns up to n of the most recent reindex lifecycle
// lines recorded in the workspace's index.log (oldest first), for
// operator-facing "recent activity" views. An unknown workspace or an
// unreadable log yields an empty slice.
func (r *Registry) RecentActivity(id string, n int) []string {
	r.mu.RLock()
	_, ok := r.workspaces[id]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return readIndexLogTail(workspaceDir(r.cfg.DataDir, id), n)
}

// enumerateFiles walks root and returns every non-ignored file path,
// relative to root.
func enumerateFiles(root string, ignore *watcher.IgnoreMatcher) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if ignore.Match(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}
		if ignore.Match(rel) {
			return nil
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
