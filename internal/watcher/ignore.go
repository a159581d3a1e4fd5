// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package watcher turns noisy OS-level filesystem notifications into a
// serialized stream of (workspace_id, changed_paths) batches: a recursive
// directory watcher, a debouncer, a per-workspace reindex gate, and the
// incremental reindexer that drives an external CodeIndexer and GraphStore.
package watcher

import (
	"path/filepath"
	"strings"
)

// defaultIgnoreGlobs are the always-on ignore patterns.
var defaultIgnoreGlobs = []string{
	"target/", "node_modules/", ".git/", "build/", "dist/", "__pycache__/",
	"vendor/", ".idea/", ".vscode/",
	"Cargo.lock", "*-lock.*", "*.swp", "*.swo", "*~", ".DS_Store", "*.pyc",
}

// IgnoreMatcher is an immutable, freely-shared matcher compiled once from
// the default ignore globs plus any workspace-scoped custom globs. It
// evaluates a path with early exit: directory patterns are compared for
// equality against every path segment first, then the remaining globs are
// matched against the path's basename.
type IgnoreMatcher struct {
	dirPrefixes []string // patterns ending in "/": matched against any path segment
	globs       []string // filepath.Match-compatible patterns, matched against the basename
}

// NewIgnoreMatcher compiles the default globs plus extra workspace-scoped
// globs into a matcher. extra may be nil.
func NewIgnoreMatcher(extra []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, pattern := range append(append([]string(nil), defaultIgnoreGlobs...), extra...) {
		if strings.HasSuffix(pattern, "/") {
			m.dirPrefixes = append(m.dirPrefixes, strings.TrimSuffix(pattern, "/"))
		} else {
			m.globs = append(m.globs, pattern)
		}
	}
	return m
}

// Match reports whether path should be discarded at ingress. path may be
// absolute or relative; it is evaluated one path segment at a time so a
// directory pattern like "node_modules/" matches regardless of nesting
// depth.
func (m *IgnoreMatcher) Match(path string) bool {
	segments := strings.Split(filepath.ToSlash(path), "/")
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		for _, dir := range m.dirPrefixes {
			if seg == dir {
				return true
			}
		}
	}

	base := filepath.Base(path)
	for _, glob := range m.globs {
		if ok, _ := filepath.Match(glob, base); ok {
			return true
		}
	}
	return false
}
