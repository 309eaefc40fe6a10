package edgeutil

import (
	"fmt"

	"github.com/rendis/regraph/pkg/schema"
)

// ValidateConnections checks edge integrity against the node set:
// dangling endpoints, self-loops, edges leaving end nodes, and branch-handle
// legality (an edge leaving a branch node must carry a sourceHandle naming
// one of its slots). Hard problems become errors; an end node with several
// inbound edges is only a warning.
func ValidateConnections(nodes []schema.Node, edges []schema.Edge) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	index := schema.NodeIndex(nodes)

	endInbound := make(map[string]int)

	for i, e := range edges {
		path := fmt.Sprintf("edges[%d]", i)

		src, srcOK := index[e.Source]
		if !srcOK {
			result.AddError(path, schema.ErrCodeNodeNotFound,
				fmt.Sprintf("edge %s references missing source node %q", e.ID, e.Source))
		}
		tgt, tgtOK := index[e.Target]
		if !tgtOK {
			result.AddError(path, schema.ErrCodeNodeNotFound,
				fmt.Sprintf("edge %s references missing target node %q", e.ID, e.Target))
		}

		if e.Source == e.Target && e.Source != "" {
			result.AddError(path, schema.ErrCodeSelfLoop,
				fmt.Sprintf("edge %s connects node %q to itself", e.ID, e.Source))
		}

		if srcOK {
			switch src.Variant() {
			case schema.VariantEnd:
				result.AddError(path, schema.ErrCodeEndOutgoing,
					fmt.Sprintf("end node %q has an outgoing edge %s", e.Source, e.ID))
			case schema.VariantBranch:
				if e.SourceHandle == "" {
					result.AddError(path, schema.ErrCodeInvalidHandle,
						fmt.Sprintf("edge %s leaves branch node %q without a sourceHandle", e.ID, e.Source))
				} else if !src.HasBranchSlot(e.SourceHandle) {
					result.AddError(path, schema.ErrCodeInvalidHandle,
						fmt.Sprintf("edge %s sourceHandle %q does not name a slot of branch node %q",
							e.ID, e.SourceHandle, e.Source))
				}
			}
		}

		if tgtOK && tgt.Variant() == schema.VariantEnd {
			endInbound[e.Target]++
		}
	}

	for nodeID, count := range endInbound {
		if count > 1 {
			result.AddWarning("", schema.WarnCodeEndMultiIn,
				fmt.Sprintf("end node %q has %d inbound edges", nodeID, count), schema.ImpactLow)
		}
	}

	return result
}
