// Package edgeutil provides primitive operations over workflow edges:
// construction, connection lookup, cycle detection, path enumeration and
// deduplication. All functions are pure; malformed input is reported
// through return values, never panics.
package edgeutil

import (
	"fmt"

	"github.com/rendis/regraph/pkg/schema"
)

// EdgeOptions carries the optional fields of a new edge.
type EdgeOptions struct {
	SourceHandle string
	TargetHandle string
	Animated     bool
	Label        string
	Style        map[string]any
}

// NewEdge builds an edge with a deterministic ID derived from the logical
// connection, so constructing the same connection twice yields the same ID.
func NewEdge(source, target string, opts EdgeOptions) schema.Edge {
	id := fmt.Sprintf("edge-%s-%s", source, target)
	if opts.SourceHandle != "" {
		id = fmt.Sprintf("edge-%s-%s-%s", source, opts.SourceHandle, target)
	}
	return schema.Edge{
		ID:           id,
		Source:       source,
		Target:       target,
		SourceHandle: opts.SourceHandle,
		TargetHandle: opts.TargetHandle,
		Animated:     opts.Animated,
		Label:        opts.Label,
		Style:        opts.Style,
	}
}

// Connections groups the edges touching a node.
type Connections struct {
	Incoming []schema.Edge
	Outgoing []schema.Edge
	All      []schema.Edge
}

// FindConnections returns the edges touching nodeID, in input order. O(E).
func FindConnections(nodeID string, edges []schema.Edge) Connections {
	var c Connections
	for _, e := range edges {
		touched := false
		if e.Target == nodeID {
			c.Incoming = append(c.Incoming, e)
			touched = true
		}
		if e.Source == nodeID {
			c.Outgoing = append(c.Outgoing, e)
			touched = true
		}
		if touched {
			c.All = append(c.All, e)
		}
	}
	return c
}

// OptimizeEdges deduplicates edges sharing (source, target, sourceHandle),
// keeping the first occurrence. Returns a fresh slice.
func OptimizeEdges(edges []schema.Edge) []schema.Edge {
	seen := make(map[string]bool, len(edges))
	out := make([]schema.Edge, 0, len(edges))
	for _, e := range edges {
		key := e.Source + "\x00" + e.Target + "\x00" + e.SourceHandle
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}

// ConnectionKey identifies an edge by its logical connection. Used when
// matching planned removals against the live edge set, where IDs may drift.
func ConnectionKey(e schema.Edge) string {
	return e.Source + "\x00" + e.Target + "\x00" + e.SourceHandle
}
