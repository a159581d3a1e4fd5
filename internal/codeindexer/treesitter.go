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

package codeindexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/parseltongue/internal/codegraph"
	"github.com/kraklabs/parseltongue/internal/identity"
)

// TreeSitterIndexer is the reference CodeIndexer: AST-based extraction of
// functions, methods, structs/classes, and same-batch call edges across Go,
// Python, JavaScript, and TypeScript.
//
// Cross-file call resolution is name-based and scoped to the batch of paths
// passed to one IndexPaths call (the indexer does not itself own a
// whole-workspace symbol table); a call target not found by name among the
// entities parsed in this batch is emitted as an external-reference edge.
type TreeSitterIndexer struct {
	logger            *slog.Logger
	maxSourceTextSize int64

	specs   map[string]langSpec
	pools   map[string]*sync.Pool
	queries map[string]compiledQueries

	initOnce sync.Once
}

type compiledQueries struct {
	decl *sitter.Query
	call *sitter.Query
}

// NewTreeSitterIndexer constructs a reference indexer. A nil logger falls
// back to slog.Default().
func NewTreeSitterIndexer(logger *slog.Logger) *TreeSitterIndexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &TreeSitterIndexer{
		logger:            logger,
		maxSourceTextSize: 102400,
		specs:             languageSpecs(),
	}
}

// SetMaxSourceTextSize caps the SourceText stored per entity, in bytes.
func (ix *TreeSitterIndexer) SetMaxSourceTextSize(size int64) {
	ix.maxSourceTextSize = size
}

func (ix *TreeSitterIndexer) init() {
	ix.initOnce.Do(func() {
		ix.pools = make(map[string]*sync.Pool, len(ix.specs))
		ix.queries = make(map[string]compiledQueries, len(ix.specs))
		for lang, spec := range ix.specs {
			spec := spec
			ix.pools[lang] = &sync.Pool{New: func() any {
				p := sitter.NewParser()
				p.SetLanguage(spec.language)
				return p
			}}

			declQ, err := sitter.NewQuery([]byte(spec.declQuery), spec.language)
			if err != nil {
				ix.logger.Error("codeindexer.query.compile_failed", "language", lang, "query", "decl", "error", err)
				continue
			}
			callQ, err := sitter.NewQuery([]byte(spec.callQuery), spec.language)
			if err != nil {
				ix.logger.Error("codeindexer.query.compile_failed", "language", lang, "query", "call", "error", err)
				continue
			}
			ix.queries[lang] = compiledQueries{decl: declQ, call: callQ}
		}
	})
}

// rawCall is a call site attributed to its enclosing declaration, still
// carrying the callee's bare name pending batch-wide resolution.
type rawCall struct {
	callerKey  string
	targetName string
}

// IndexPaths implements Indexer. It parses every supported path, collects
// declared entities, and resolves call sites against the name index built
// across the whole batch.
func (ix *TreeSitterIndexer) IndexPaths(ctx context.Context, root string, paths []string) ([]codegraph.CodeEntity, []codegraph.DependencyEdge, error) {
	ix.init()

	sortedPaths := append([]string(nil), paths...)
	sort.Strings(sortedPaths)

	var allEntities []codegraph.CodeEntity
	var allCalls []rawCall
	byName := make(map[string]string, len(paths))

	for _, absPath := range sortedPaths {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		relPath, err := filepath.Rel(root, absPath)
		if err != nil {
			relPath = absPath
		}
		relPath = filepath.ToSlash(relPath)

		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(absPath), "."))
		lang, supported := languageForExt(ext)
		if !supported {
			ix.logger.Debug("codeindexer.skip_unsupported", "path", relPath, "ext", ext)
			continue
		}

		content, err := os.ReadFile(absPath)
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", relPath, err)
		}

		entities, calls, err := ix.parseFile(lang, relPath, content)
		if err != nil {
			return nil, nil, fmt.Errorf("parse %s: %w", relPath, err)
		}

		for _, e := range entities {
			allEntities = append(allEntities, e)
			if _, exists := byName[e.Name]; !exists {
				byName[e.Name] = e.Key
			}
		}
		allCalls = append(allCalls, calls...)
	}

	edges := make([]codegraph.DependencyEdge, 0, len(allCalls))
	for _, c := range allCalls {
		toKey, resolved := byName[c.targetName]
		if !resolved {
			lang := strings.SplitN(c.callerKey, ":", 2)[0]
			toKey = externalKey(lang, "fn", c.targetName)
		}
		edges = append(edges, codegraph.DependencyEdge{
			FromKey:  c.callerKey,
			ToKey:    toKey,
			EdgeType: codegraph.EdgeCalls,
		})
	}

	return allEntities, edges, nil
}

// declSpan records a declaration's key and line span (0-indexed, inclusive)
// so call sites can be attributed to their innermost enclosing declaration.
type declSpan struct {
	key        string
	start, end uint32
}

func (ix *TreeSitterIndexer) parseFile(lang, relPath string, content []byte) ([]codegraph.CodeEntity, []rawCall, error) {
	spec, ok := ix.specs[lang]
	if !ok {
		return nil, nil, fmt.Errorf("unsupported language %q", lang)
	}
	queries, ok := ix.queries[lang]
	if !ok {
		return nil, nil, fmt.Errorf("queries not compiled for language %q", lang)
	}

	pool := ix.pools[lang]
	parser := pool.Get().(*sitter.Parser)
	defer pool.Put(parser)

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, nil, err
	}
	defer tree.Close()
	root := tree.RootNode()

	var entities []codegraph.CodeEntity
	var spans []declSpan

	declCursor := sitter.NewQueryCursor()
	defer declCursor.Close()
	declCursor.Exec(queries.decl, root)
	for {
		match, ok := declCursor.NextMatch()
		if !ok {
			break
		}

		var declNode, nameNode *sitter.Node
		var kindTag string
		for _, cap := range match.Captures {
			capName := queries.decl.CaptureNameForId(cap.Index)
			if tag, isDecl := spec.declKinds[capName]; isDecl {
				node := cap.Node
				declNode = node
				kindTag = tag
				continue
			}
			node := cap.Node
			nameNode = node
		}
		if declNode == nil || nameNode == nil {
			continue
		}

		name := nameNode.Content(content)
		startLine := int(declNode.StartPoint().Row) + 1
		endLine := int(declNode.EndPoint().Row) + 1
		source := ix.truncate(declNode.Content(content))

		key := entityKey(lang, kindTag, name, relPath, startLine, endLine)
		entities = append(entities, codegraph.CodeEntity{
			Key:         key,
			StableID:    identity.StableID(key),
			EntityType:  entityTypeForTag(kindTag),
			Name:        name,
			FilePath:    relPath,
			LineRange:   codegraph.LineRange{Start: startLine, End: endLine},
			SourceText:  source,
			ContentHash: contentHash(source),
			Language:    lang,
		})
		spans = append(spans, declSpan{key: key, start: declNode.StartPoint().Row, end: declNode.EndPoint().Row})
	}

	// Sort by ascending span width so the first match in enclosingKey is
	// always the innermost declaration (handles nested functions/closures).
	sort.Slice(spans, func(i, j int) bool {
		return (spans[i].end - spans[i].start) < (spans[j].end - spans[j].start)
	})

	enclosingKey := func(row uint32) (string, bool) {
		for _, s := range spans {
			if row >= s.start && row <= s.end {
				return s.key, true
			}
		}
		return "", false
	}

	var calls []rawCall
	callCursor := sitter.NewQueryCursor()
	defer callCursor.Close()
	callCursor.Exec(queries.call, root)
	for {
		match, ok := callCursor.NextMatch()
		if !ok {
			break
		}
		for _, cap := range match.Captures {
			targetNode := cap.Node
			callerKey, found := enclosingKey(targetNode.StartPoint().Row)
			if !found {
				continue // call at module scope, outside any tracked declaration
			}
			calls = append(calls, rawCall{
				callerKey:  callerKey,
				targetName: targetNode.Content(content),
			})
		}
	}

	return entities, calls, nil
}

func (ix *TreeSitterIndexer) truncate(text string) string {
	if ix.maxSourceTextSize > 0 && int64(len(text)) > ix.maxSourceTextSize {
		return text[:ix.maxSourceTextSize]
	}
	return text
}

func entityTypeForTag(tag string) codegraph.EntityType {
	switch tag {
	case "method":
		return codegraph.EntityMethod
	case "struct":
		return codegraph.EntityStruct
	case "trait":
		return codegraph.EntityTrait
	default:
		return codegraph.EntityFunction
	}
}
