// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package watcher

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
)

// FileDelta is the set of paths (relative to a workspace's source
// directory) that changed between two reconciliation points, regardless of
// which detection strategy found them.
type FileDelta struct {
	Added    []string
	Modified []string
	Deleted  []string
	// Renamed maps old path -> new path. A rename is resolved as a delete of
	// the old path plus a reindex of the new one; it is not tracked as a
	// distinct kind downstream.
	Renamed map[string]string
	// All is the sorted, deduplicated union of every path touched by the
	// delta (both sides of a rename included), ready to hand to a
	// Reindexer.Run call.
	All []string
}

// HasChanges reports whether the delta touched any path.
func (d *FileDelta) HasChanges() bool {
	return len(d.All) > 0
}

func (d *FileDelta) finalize() {
	sort.Strings(d.Added)
	sort.Strings(d.Modified)
	sort.Strings(d.Deleted)

	all := make(map[string]struct{}, len(d.Added)+len(d.Modified)+len(d.Deleted)+2*len(d.Renamed))
	for _, p := range d.Added {
		all[p] = struct{}{}
	}
	for _, p := range d.Modified {
		all[p] = struct{}{}
	}
	for _, p := range d.Deleted {
		all[p] = struct{}{}
	}
	for oldPath, newPath := range d.Renamed {
		all[oldPath] = struct{}{}
		all[newPath] = struct{}{}
	}
	d.All = make([]string, 0, len(all))
	for p := range all {
		d.All = append(d.All, p)
	}
	sort.Strings(d.All)
}

// GitDeltaDetector reconciles a workspace against git history: it asks git
// which files changed between two refs rather than relying on filesystem
// events, for the "catch up after the watcher was off" case.
type GitDeltaDetector struct {
	repoPath string
	logger   *slog.Logger
}

// NewGitDeltaDetector creates a detector rooted at repoPath.
func NewGitDeltaDetector(repoPath string, logger *slog.Logger) *GitDeltaDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitDeltaDetector{repoPath: repoPath, logger: logger}
}

// IsGitRepository reports whether repoPath is inside a git working tree.
func (d *GitDeltaDetector) IsGitRepository() bool {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	cmd.Dir = d.repoPath
	return cmd.Run() == nil
}

// HeadSHA resolves the repository's current HEAD commit.
func (d *GitDeltaDetector) HeadSHA() (string, error) {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = d.repoPath
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git rev-parse HEAD: %s", string(exitErr.Stderr))
		}
		return "", fmt.Errorf("git rev-parse HEAD: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// DetectGitDelta runs `git diff --name-status -M` between baseRef and
// headRef (defaulting headRef to "HEAD") and returns the changed paths.
// Renames are detected with git's own similarity heuristic (-M) rather than
// being reported as a delete+add pair.
func (d *GitDeltaDetector) DetectGitDelta(baseRef, headRef string) (*FileDelta, error) {
	if headRef == "" {
		headRef = "HEAD"
	}
	if baseRef == "" {
		// Git's well-known empty-tree object: every path is "added".
		baseRef = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"
	}

	cmd := exec.Command("git", "diff", "--name-status", "-M", baseRef, headRef) //nolint:gosec // refs are caller-controlled, not request input
	cmd.Dir = d.repoPath
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("git diff %s..%s: %s", baseRef, headRef, string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("git diff %s..%s: %w", baseRef, headRef, err)
	}

	delta := &FileDelta{Renamed: make(map[string]string)}
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		applyGitDiffLine(line, delta)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan git diff output: %w", err)
	}
	delta.finalize()

	d.logger.Info("watcher.git_delta_detected",
		"base_ref", baseRef, "head_ref", headRef,
		"added", len(delta.Added), "modified", len(delta.Modified),
		"deleted", len(delta.Deleted), "renamed", len(delta.Renamed))
	return delta, nil
}

func applyGitDiffLine(line string, delta *FileDelta) {
	parts := strings.Split(line, "\t")
	if len(parts) < 2 {
		return
	}
	status, paths := parts[0], parts[1:]

	switch status[0] {
	case 'A':
		delta.Added = append(delta.Added, paths[0])
	case 'M':
		delta.Modified = append(delta.Modified, paths[0])
	case 'D':
		delta.Deleted = append(delta.Deleted, paths[0])
	case 'R':
		if len(paths) >= 2 {
			delta.Renamed[paths[0]] = paths[1]
		}
	case 'C':
		if len(paths) >= 2 {
			delta.Added = append(delta.Added, paths[1])
		}
	}
}
