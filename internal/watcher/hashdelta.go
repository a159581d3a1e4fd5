// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package watcher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// HashDeltaDetector reconciles a workspace without git, by comparing each
// tracked file's current content hash against the hash recorded the last
// time it was indexed. It is the fallback reconciliation strategy for
// source trees that are not (or are no longer) a git repository.
type HashDeltaDetector struct {
	repoPath string
	logger   *slog.Logger
}

// NewHashDeltaDetector creates a hash-based detector rooted at repoPath.
func NewHashDeltaDetector(repoPath string, logger *slog.Logger) *HashDeltaDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &HashDeltaDetector{repoPath: repoPath, logger: logger}
}

// DetectHashDelta compares the paths currently present on disk (already
// filtered through an IgnoreMatcher by the caller) against known, a
// path -> content-hash map captured at the end of the last successful
// index. A path in known but absent from current is a deletion; a path in
// current but absent from known is an addition; a path in both whose
// current content hash differs from the recorded one is a modification.
func (d *HashDeltaDetector) DetectHashDelta(current []string, known map[string]string) (*FileDelta, error) {
	delta := &FileDelta{Renamed: make(map[string]string)}

	currentSet := make(map[string]struct{}, len(current))
	for _, rel := range current {
		currentSet[rel] = struct{}{}

		hash, err := d.hashFile(rel)
		if err != nil {
			d.logger.Warn("watcher.hash_delta_hash_failed", "path", rel, "error", err)
			continue
		}

		priorHash, tracked := known[rel]
		switch {
		case !tracked:
			delta.Added = append(delta.Added, rel)
		case priorHash != hash:
			delta.Modified = append(delta.Modified, rel)
		}
	}

	for rel := range known {
		if _, stillPresent := currentSet[rel]; !stillPresent {
			delta.Deleted = append(delta.Deleted, rel)
		}
	}

	delta.finalize()
	d.logger.Info("watcher.hash_delta_detected",
		"known", len(known), "current", len(current),
		"added", len(delta.Added), "modified", len(delta.Modified), "deleted", len(delta.Deleted))
	return delta, nil
}

// HashFiles computes the content hash of every path in paths (relative to
// repoPath), for seeding or refreshing the known-hash map DetectHashDelta
// compares against.
func (d *HashDeltaDetector) HashFiles(paths []string) map[string]string {
	out := make(map[string]string, len(paths))
	for _, rel := range paths {
		hash, err := d.hashFile(rel)
		if err != nil {
			d.logger.Warn("watcher.hash_delta_hash_failed", "path", rel, "error", err)
			continue
		}
		out[rel] = hash
	}
	return out
}

func (d *HashDeltaDetector) hashFile(rel string) (string, error) {
	content, err := os.ReadFile(filepath.Join(d.repoPath, rel))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", rel, err)
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:]), nil
}
