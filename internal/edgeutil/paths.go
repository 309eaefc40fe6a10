package edgeutil

import "github.com/rendis/regraph/pkg/schema"

// DefaultMaxDepth caps path enumeration when the caller passes no limit.
// Enumeration is exponential in the worst case; keep the cap small (<= 10)
// on dense graphs.
const DefaultMaxDepth = 10

// PathsBetween enumerates all simple paths (no repeated nodes) from source
// to target, at most maxDepth hops long. A maxDepth <= 0 uses
// DefaultMaxDepth. Each path includes both endpoints.
func PathsBetween(source, target string, edges []schema.Edge, maxDepth int) [][]string {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	adjacency := make(map[string][]string)
	for _, e := range edges {
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
	}

	var paths [][]string
	onPath := map[string]bool{source: true}
	path := []string{source}

	var walk func(node string)
	walk = func(node string) {
		if node == target {
			found := make([]string, len(path))
			copy(found, path)
			paths = append(paths, found)
			return
		}
		if len(path)-1 >= maxDepth {
			return
		}
		for _, next := range adjacency[node] {
			if onPath[next] {
				continue
			}
			onPath[next] = true
			path = append(path, next)
			walk(next)
			path = path[:len(path)-1]
			delete(onPath, next)
		}
	}
	walk(source)

	return paths
}
