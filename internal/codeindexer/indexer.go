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

// Package codeindexer defines the CodeIndexer capability contract — the
// source-language parser the core assumes but does not implement as a full
// compiler front end — and ships one Tree-sitter-based reference
// implementation covering Go, Python, JavaScript, and TypeScript.
package codeindexer

import (
	"context"

	"github.com/kraklabs/parseltongue/internal/codegraph"
)

// Indexer is the CodeIndexer capability contract. IndexPaths must be
// idempotent and referentially transparent given the file contents on disk
// at call time, must attribute each returned entity to exactly one path in
// paths, and must return external-reference edges (unknown:0-0 endpoints)
// for callees it cannot resolve within the given paths.
type Indexer interface {
	IndexPaths(ctx context.Context, root string, paths []string) ([]codegraph.CodeEntity, []codegraph.DependencyEdge, error)
}
