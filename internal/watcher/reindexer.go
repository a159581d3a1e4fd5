// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/kraklabs/parseltongue/internal/codegraph"
	"github.com/kraklabs/parseltongue/internal/codeindexer"
	"github.com/kraklabs/parseltongue/internal/diffengine"
	parserrors "github.com/kraklabs/parseltongue/internal/errors"
	"github.com/kraklabs/parseltongue/internal/graphstore"
)

// DefaultReindexTimeout is the hard ceiling for one incremental reindex run
// a run still executing past this deadline is aborted and
// reported as REINDEX_TIMEOUT.
const DefaultReindexTimeout = 30 * time.Second

// Notifier receives the reindex lifecycle events a broadcast hub streams to
// subscribers. Implementations must not block the reindexer for long.
type Notifier interface {
	DiffAnalysisStarted(workspaceID string, filesChanged []string, triggeredBy string)
	DiffAnalysisCompleted(workspaceID string, result codegraph.DiffResult, filesChanged []string, triggeredBy string)
	ErrorOccurred(workspaceID string, code parserrors.Code, message string)
}

// Reindexer drives one workspace's incremental delete-then-insert pipeline
// over its live GraphStore, then recomputes the base/live diff and hands
// the result to a Notifier. It owns no state across runs beyond the stores
// and indexer it was built with: every Run call is independent.
// Watch-triggered runs for one workspace reach Run through a ReindexGate in
// internal/workspace and never overlap each other; Registry.Reconcile calls
// Run directly, outside that gate.
type Reindexer struct {
	WorkspaceID string
	SourceDir   string
	Indexer     codeindexer.Indexer
	Base        graphstore.Store
	Live        graphstore.Store
	Notifier    Notifier
	Logger      *slog.Logger
	MaxHops     int
	Timeout     time.Duration
}

// Run performs one incremental reindex pass over paths (absolute or
// workspace-relative; converted to SourceDir-relative internally) and
// returns the resulting diff. On repeated transient failure it retries up
// to 3 times with 100/200/400ms backoff before giving up; a store-closed or
// malformed-input failure is surfaced immediately without retry. The
// caller is responsible for workspace-level teardown (disabling the
// watcher, setting watch_enabled=false) when Run reports a database error,
// since that decision depends on state this package does not own.
func (r *Reindexer) Run(ctx context.Context, paths []string, triggeredBy string) (codegraph.DiffResult, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultReindexTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if r.Notifier != nil {
		r.Notifier.DiffAnalysisStarted(r.WorkspaceID, paths, triggeredBy)
	}

	retryPolicy := backoff.WithContext(retryableBackoff(), ctx)
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		runErr := r.reindexOnce(ctx, paths)
		if runErr != nil && !isRetryable(runErr) {
			return backoff.Permanent(runErr)
		}
		return runErr
	}, retryPolicy)

	if err != nil {
		code, msg := classifyFailure(ctx, err)
		logger.Warn("reindex.failed", "workspace_id", r.WorkspaceID, "attempts", attempt, "code", code, "error", err)
		if r.Notifier != nil {
			r.Notifier.ErrorOccurred(r.WorkspaceID, code, msg)
		}
		return codegraph.DiffResult{}, parserrors.New(code, msg, err)
	}

	result, err := r.computeDiff(ctx)
	if err != nil {
		if r.Notifier != nil {
			r.Notifier.ErrorOccurred(r.WorkspaceID, parserrors.CodeReindexDatabaseError, err.Error())
		}
		return codegraph.DiffResult{}, err
	}

	if r.Notifier != nil {
		r.Notifier.DiffAnalysisCompleted(r.WorkspaceID, result, paths, triggeredBy)
	}
	return result, nil
}

// reindexOnce deletes every changed path's stale entities from the live
// store, then reindexes whichever of those paths still exist on disk. A
// path absent from disk is treated as a deletion: it is dropped from the
// graph and never reinserted.
func (r *Reindexer) reindexOnce(ctx context.Context, paths []string) error {
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(r.SourceDir, p)
		if err != nil {
			rel = p
		}
		if err := r.Live.DeleteByFilePath(ctx, rel); err != nil {
			return parserrors.New(parserrors.CodeReindexDatabaseError, "failed to delete stale entities for "+rel, err)
		}
		if _, statErr := os.Stat(p); statErr == nil {
			existing = append(existing, rel)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	entities, edges, err := r.Indexer.IndexPaths(ctx, r.SourceDir, existing)
	if err != nil {
		return parserrors.New(parserrors.CodeReindexParseError, "failed to parse changed files", err)
	}
	if err := r.Live.BulkInsert(ctx, entities, edges); err != nil {
		return parserrors.New(parserrors.CodeReindexDatabaseError, "failed to write reindexed entities", err)
	}
	return nil
}

func (r *Reindexer) computeDiff(ctx context.Context) (codegraph.DiffResult, error) {
	baseEntities, err := r.Base.SnapshotEntities(ctx)
	if err != nil {
		return codegraph.DiffResult{}, parserrors.New(parserrors.CodeReindexDatabaseError, "failed to snapshot base entities", err)
	}
	baseEdges, err := r.Base.SnapshotEdges(ctx)
	if err != nil {
		return codegraph.DiffResult{}, parserrors.New(parserrors.CodeReindexDatabaseError, "failed to snapshot base edges", err)
	}
	liveEntities, err := r.Live.SnapshotEntities(ctx)
	if err != nil {
		return codegraph.DiffResult{}, parserrors.New(parserrors.CodeReindexDatabaseError, "failed to snapshot live entities", err)
	}
	liveEdges, err := r.Live.SnapshotEdges(ctx)
	if err != nil {
		return codegraph.DiffResult{}, parserrors.New(parserrors.CodeReindexDatabaseError, "failed to snapshot live edges", err)
	}

	return diffengine.Compute(
		diffengine.Snapshot{Entities: baseEntities, Edges: baseEdges},
		diffengine.Snapshot{Entities: liveEntities, Edges: liveEdges},
		diffengine.Options{MaxHops: r.MaxHops},
	), nil
}

// retryableBackoff ladders 100ms -> 200ms -> 400ms with no further growth,
// allowing at most 3 retries after the initial attempt (4 attempts in all):
// cenkalti's WithMaxRetries bounds retries, not the first try.
func retryableBackoff() backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     100 * time.Millisecond,
		RandomizationFactor: 0,
		Multiplier:           2,
		MaxInterval:          400 * time.Millisecond,
		MaxElapsedTime:       0,
		Clock:                backoff.SystemClock,
	}
	b.Reset()
	return backoff.WithMaxRetries(b, 3)
}

// isRetryable reports whether err represents a transient failure worth
// retrying: a database error on an open store, as opposed to a parse error
// (deterministic, retrying would reproduce the same failure) or a closed
// store (it stays closed).
func isRetryable(err error) bool {
	if errors.Is(err, graphstore.ErrClosed) {
		return false
	}
	code, ok := parserrors.CodeOf(err)
	if !ok {
		return false
	}
	return code == parserrors.CodeReindexDatabaseError
}

func classifyFailure(ctx context.Context, err error) (parserrors.Code, string) {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return parserrors.CodeReindexTimeout, "reindex exceeded its time budget"
	}
	if code, ok := parserrors.CodeOf(err); ok {
		return code, err.Error()
	}
	return parserrors.CodeReindexDatabaseError, err.Error()
}
