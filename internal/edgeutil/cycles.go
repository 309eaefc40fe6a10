package edgeutil

import (
	"sort"

	"github.com/rendis/regraph/pkg/schema"
)

// CycleReport is the result of cycle detection.
type CycleReport struct {
	HasCycle bool
	// Cycles lists each independent cycle as the sequence of node IDs on it,
	// starting at the first node of the cycle encountered on the DFS path.
	Cycles [][]string
}

// DetectCycles runs a depth-first search with an explicit stack over every
// node in the snapshot. When a neighbor already on the current DFS path is
// revisited, the path from that neighbor onward is recorded as a cycle.
// The search continues after a cycle is found so independent cycles are all
// reported. The stack is explicit rather than recursive to stay safe on
// pathological input depths.
func DetectCycles(nodes []schema.Node, edges []schema.Edge) CycleReport {
	adjacency := make(map[string][]string, len(nodes))
	for _, e := range edges {
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
	}

	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	// Deterministic traversal order keeps reported cycles stable.
	sort.Strings(ids)

	report := CycleReport{}
	visited := make(map[string]bool, len(nodes))
	onPath := make(map[string]int, len(nodes)) // node -> index in path

	type frame struct {
		node string
		next int
	}

	for _, start := range ids {
		if visited[start] {
			continue
		}

		stack := []frame{{node: start}}
		path := []string{start}
		onPath[start] = 0
		visited[start] = true

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			neighbors := adjacency[top.node]

			if top.next < len(neighbors) {
				next := neighbors[top.next]
				top.next++

				if idx, ok := onPath[next]; ok {
					cycle := make([]string, len(path)-idx)
					copy(cycle, path[idx:])
					report.Cycles = append(report.Cycles, cycle)
					continue
				}
				if visited[next] {
					continue
				}

				visited[next] = true
				onPath[next] = len(path)
				path = append(path, next)
				stack = append(stack, frame{node: next})
				continue
			}

			delete(onPath, top.node)
			path = path[:len(path)-1]
			stack = stack[:len(stack)-1]
		}
	}

	report.HasCycle = len(report.Cycles) > 0
	return report
}
