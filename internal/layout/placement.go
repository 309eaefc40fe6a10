package layout

import "github.com/rendis/regraph/pkg/schema"

// Offsets for derived placements, in editor units.
const (
	// BranchSpread is the horizontal distance between sibling branch slots.
	BranchSpread = 300.0
	// BranchDrop is the vertical distance from a branch node to its slots.
	BranchDrop = 180.0
	// VerticalOffset separates above/below placements from their anchor.
	VerticalOffset = 160.0
)

// BranchPosition computes the slot position for branchIndex of
// totalBranches under the parent node. One slot sits directly beneath the
// parent, two slots sit symmetrically left and right, more are spread
// evenly around the parent's x-coordinate. The result is collision-resolved
// against existing nodes.
func BranchPosition(parent schema.Node, branchIndex, totalBranches int, existing []schema.Node) Placement {
	var offsetX float64
	switch totalBranches {
	case 1:
		offsetX = 0
	case 2:
		if branchIndex == 0 {
			offsetX = -BranchSpread / 2
		} else {
			offsetX = BranchSpread / 2
		}
	default:
		center := float64(totalBranches-1) / 2
		offsetX = (float64(branchIndex) - center) * BranchSpread
	}

	preferred := schema.Position{
		X: parent.Position.X + offsetX,
		Y: parent.Position.Y + BranchDrop,
	}
	return ResolveCollisions(preferred, existing, ResolveOptions{})
}

// AbovePosition places a node directly above the anchor.
func AbovePosition(anchor schema.Node, existing []schema.Node) Placement {
	preferred := schema.Position{X: anchor.Position.X, Y: anchor.Position.Y - VerticalOffset}
	return ResolveCollisions(preferred, existing, ResolveOptions{})
}

// BelowPosition places a node directly below the anchor.
func BelowPosition(anchor schema.Node, existing []schema.Node) Placement {
	preferred := schema.Position{X: anchor.Position.X, Y: anchor.Position.Y + VerticalOffset}
	return ResolveCollisions(preferred, existing, ResolveOptions{})
}

// InsertPosition places a node at the midpoint of two anchors.
func InsertPosition(a, b schema.Node, existing []schema.Node) Placement {
	preferred := schema.Position{
		X: (a.Position.X + b.Position.X) / 2,
		Y: (a.Position.Y + b.Position.Y) / 2,
	}
	return ResolveCollisions(preferred, existing, ResolveOptions{})
}
