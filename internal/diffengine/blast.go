// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package diffengine

import (
	"sort"

	"github.com/kraklabs/parseltongue/internal/codegraph"
	"github.com/kraklabs/parseltongue/internal/identity"
)

// ComputeBlastRadius walks outward from a set of changed stable ids
// and a hop limit H, BFS out along the live dependency graph (both forward
// callee edges and reverse caller edges) and return every stable id
// reachable within H hops, excluding externals and the origins themselves.
//
// Performance: builds one adjacency map over the live edges (O(E)) and
// performs one BFS per call bounded by O(V+E); a visited set prevents cycles
// from causing non-termination (P6) and ensures each stable id is expanded
// at most once.
func ComputeBlastRadius(liveEdges []codegraph.DependencyEdge, origins []string, maxHops int) codegraph.BlastRadius {
	adjacency := buildAdjacency(liveEdges)

	originSet := make(map[string]struct{}, len(origins))
	sortedOrigins := append([]string(nil), origins...)
	sort.Strings(sortedOrigins)
	for _, id := range sortedOrigins {
		originSet[id] = struct{}{}
	}

	distance := make(map[string]int)
	byHop := make(map[int][]string)
	maxDepthReached := 0

	if maxHops > 0 {
		frontier := sortedOrigins
		visited := make(map[string]struct{}, len(originSet))
		for id := range originSet {
			visited[id] = struct{}{}
		}

		for hop := 1; hop <= maxHops && len(frontier) > 0; hop++ {
			next := make(map[string]struct{})
			for _, id := range frontier {
				for _, neighbor := range adjacency[id] {
					if _, seen := visited[neighbor]; seen {
						continue
					}
					next[neighbor] = struct{}{}
				}
			}
			if len(next) == 0 {
				break
			}
			layer := make([]string, 0, len(next))
			for id := range next {
				layer = append(layer, id)
				visited[id] = struct{}{}
				distance[id] = hop
			}
			sort.Strings(layer)
			byHop[hop] = layer
			maxDepthReached = hop
			frontier = layer
		}
	}

	total := 0
	for _, layer := range byHop {
		total += len(layer)
	}

	return codegraph.BlastRadius{
		OriginStableIDs:    sortedOrigins,
		AffectedByDistance: byHop,
		TotalAffected:      total,
		MaxDepthReached:    maxDepthReached,
	}
}

// buildAdjacency constructs an undirected (union of forward/reverse)
// adjacency map keyed by stable id, excluding external endpoints on either
// side. An edge with an external endpoint contributes nothing to the map,
// so external nodes are never neighbors, never expanded, and never
// included in the output.
func buildAdjacency(edges []codegraph.DependencyEdge) map[string][]string {
	adjacency := make(map[string][]string)
	seenPair := make(map[[2]string]struct{})

	add := func(a, b string) {
		key := [2]string{a, b}
		if _, dup := seenPair[key]; dup {
			return
		}
		seenPair[key] = struct{}{}
		adjacency[a] = append(adjacency[a], b)
	}

	for _, e := range edges {
		from := identity.StableID(e.FromKey)
		to := identity.StableID(e.ToKey)
		fromExternal := identity.IsExternal(e.FromKey, "", "")
		toExternal := identity.IsExternal(e.ToKey, "", "")

		if fromExternal || toExternal {
			// An external endpoint is never expandable and is omitted from
			// the adjacency map entirely, so traversal can't reach it.
			continue
		}
		add(from, to)
		add(to, from)
	}

	return adjacency
}
