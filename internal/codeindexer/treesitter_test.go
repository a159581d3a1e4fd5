// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package codeindexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kraklabs/parseltongue/internal/codegraph"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestIndexPaths_GoFunctionsAndCalls(t *testing.T) {
	dir := t.TempDir()
	src := `package main

func helper() int {
	return 1
}

func main() {
	helper()
	fmt.Println("x")
}
`
	path := writeTemp(t, dir, "main.go", src)

	ix := NewTreeSitterIndexer(nil)
	entities, edges, err := ix.IndexPaths(context.Background(), dir, []string{path})
	if err != nil {
		t.Fatalf("IndexPaths: %v", err)
	}

	if len(entities) != 2 {
		t.Fatalf("expected 2 entities (helper, main), got %d: %+v", len(entities), entities)
	}
	for _, e := range entities {
		if e.FilePath != "main.go" {
			t.Errorf("expected entity attributed to main.go, got %q", e.FilePath)
		}
		if e.Language != "go" {
			t.Errorf("expected language go, got %q", e.Language)
		}
	}

	var sawInternalCall, sawExternalCall bool
	for _, edge := range edges {
		if edge.EdgeType != codegraph.EdgeCalls {
			t.Errorf("expected Calls edge type, got %q", edge.EdgeType)
		}
		if edge.ToKey == "" {
			t.Error("edge ToKey must never be empty")
		}
		if !external(edge.ToKey) && containsSuffix(edge.ToKey, "helper") {
			sawInternalCall = true
		}
		if external(edge.ToKey) {
			sawExternalCall = true
		}
	}
	if !sawInternalCall {
		t.Error("expected main->helper to resolve to an internal edge")
	}
	if !sawExternalCall {
		t.Error("expected fmt.Println to produce an external-reference edge")
	}
}

func TestIndexPaths_UnsupportedExtensionSkipped(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "notes.txt", "not code")

	ix := NewTreeSitterIndexer(nil)
	entities, edges, err := ix.IndexPaths(context.Background(), dir, []string{path})
	if err != nil {
		t.Fatalf("IndexPaths: %v", err)
	}
	if len(entities) != 0 || len(edges) != 0 {
		t.Errorf("expected no entities/edges for unsupported file, got %d/%d", len(entities), len(edges))
	}
}

func TestIndexPaths_Idempotent(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "a.py", "def foo():\n    bar()\n")

	ix := NewTreeSitterIndexer(nil)
	e1, d1, err := ix.IndexPaths(context.Background(), dir, []string{path})
	if err != nil {
		t.Fatalf("first IndexPaths: %v", err)
	}
	e2, d2, err := ix.IndexPaths(context.Background(), dir, []string{path})
	if err != nil {
		t.Fatalf("second IndexPaths: %v", err)
	}
	if len(e1) != len(e2) || len(d1) != len(d2) {
		t.Errorf("expected identical results across repeated calls, got (%d,%d) vs (%d,%d)", len(e1), len(d1), len(e2), len(d2))
	}
	for i := range e1 {
		if e1[i].Key != e2[i].Key || e1[i].ContentHash != e2[i].ContentHash {
			t.Errorf("entity %d differs across runs: %+v vs %+v", i, e1[i], e2[i])
		}
	}
}

func external(key string) bool {
	const suffix = ":unknown:0-0"
	return len(key) >= len(suffix) && key[len(key)-len(suffix):] == suffix
}

func containsSuffix(key, name string) bool {
	for i := 0; i+len(name) <= len(key); i++ {
		if key[i:i+len(name)] == name {
			return true
		}
	}
	return false
}
