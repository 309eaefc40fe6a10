// Package analysis discovers which steps belong to a new branch and derives
// the transfer plan for rewiring them. It only reads snapshots; mutation is
// the transfer executor's job.
package analysis

import "github.com/rendis/regraph/pkg/schema"

// SubsequentSteps collects every node reachable downstream of nodeID via
// outgoing edges, in depth-first traversal order, excluding the start node
// itself. A visited set guards against cyclic or reconvergent input: a node
// already seen contributes nothing further, which is not an error; graphs
// legitimately reconverge.
func SubsequentSteps(nodeID string, nodes []schema.Node, edges []schema.Edge) []schema.Node {
	index := schema.NodeIndex(nodes)
	adjacency := make(map[string][]string, len(edges))
	for _, e := range edges {
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
	}

	visited := map[string]bool{nodeID: true}
	var steps []schema.Node

	var walk func(id string)
	walk = func(id string) {
		for _, next := range adjacency[id] {
			if visited[next] {
				continue
			}
			visited[next] = true
			if n, ok := index[next]; ok {
				steps = append(steps, n)
			}
			walk(next)
		}
	}
	walk(nodeID)

	return steps
}

// stepIDSet builds a lookup set from a node slice.
func stepIDSet(steps []schema.Node) map[string]bool {
	set := make(map[string]bool, len(steps))
	for _, s := range steps {
		set[s.ID] = true
	}
	return set
}
