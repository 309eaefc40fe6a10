package analysis

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/rendis/regraph/internal/edgeutil"
	"github.com/rendis/regraph/pkg/schema"
)

// NewBranchSlotID mints a branch-slot identifier.
func NewBranchSlotID() string {
	return "branch-" + uuid.NewString()
}

// AnalyzeBranchInsertion derives the StepTransferPlan for turning
// targetNodeID into a branch node. A missing target is caller misuse (the
// engine is being asked to plan around a node the caller never had) and
// returns a TARGET_NODE_NOT_FOUND error rather than a soft validation
// finding.
//
// The plan removes the edges into the target from upstream and the target's
// direct links into subsequent steps (those links are replaced by the new
// branch wiring), and creates one slot-tagged edge from the target to the
// first subsequent step. Inserting at a graph's tail yields an empty
// transfer with no created edges; that is the designed behavior, not an
// error. When a subsequent step has several inbound edges, only the edge
// from the insertion point is removed; all other inbound connections are
// preserved.
func AnalyzeBranchInsertion(targetNodeID string, nodes []schema.Node, edges []schema.Edge) (*schema.StepTransferPlan, error) {
	if _, ok := schema.NodeIndex(nodes)[targetNodeID]; !ok {
		return nil, schema.NewErrorf(schema.ErrCodeTargetNotFound,
			"branch insertion target %q is not in the snapshot", targetNodeID).
			WithNode(targetNodeID)
	}

	subsequent := SubsequentSteps(targetNodeID, nodes, edges)
	subsequentIDs := stepIDSet(subsequent)

	var edgesToRemove []schema.Edge
	for _, e := range edges {
		switch {
		case e.Target == targetNodeID && !subsequentIDs[e.Source]:
			// The original upstream connection into the insertion point.
			edgesToRemove = append(edgesToRemove, e)
		case e.Source == targetNodeID && subsequentIDs[e.Target]:
			// Direct links being replaced by the new branch wiring.
			edgesToRemove = append(edgesToRemove, e)
		}
	}

	branchID := NewBranchSlotID()

	var edgesToCreate []schema.Edge
	if len(subsequent) > 0 {
		edgesToCreate = append(edgesToCreate, edgeutil.NewEdge(
			targetNodeID, subsequent[0].ID,
			edgeutil.EdgeOptions{SourceHandle: branchID, Animated: true},
		))
	}

	return &schema.StepTransferPlan{
		TargetNodeID:        targetNodeID,
		StepsToTransfer:     subsequent,
		EdgesToRemove:       edgesToRemove,
		EdgesToCreate:       edgesToCreate,
		TargetBranchID:      branchID,
		EstimatedComplexity: schema.EstimateComplexity(len(subsequent), len(edgesToRemove), len(edgesToCreate)),
	}, nil
}

// InsertionStrategy classifies how a branch should be introduced at a node.
type InsertionStrategy string

const (
	// StrategyConvert: no inbound edges, the node itself can become a branch.
	StrategyConvert InsertionStrategy = "convert"
	// StrategyInsertBefore: exactly one inbound edge to re-route.
	StrategyInsertBefore InsertionStrategy = "insertBefore"
	// StrategyInsertAbove: several inbound edges; a new node above keeps
	// every incoming path intact instead of silently dropping one.
	StrategyInsertAbove InsertionStrategy = "insertAbove"
)

// InsertionPoint is the classification result.
type InsertionPoint struct {
	TargetNodeID string
	Strategy     InsertionStrategy
	InboundCount int
}

// OptimalInsertionPoint classifies the insertion at targetNodeID by its
// inbound degree.
func OptimalInsertionPoint(targetNodeID string, nodes []schema.Node, edges []schema.Edge) (InsertionPoint, error) {
	if _, ok := schema.NodeIndex(nodes)[targetNodeID]; !ok {
		return InsertionPoint{}, schema.NewError(schema.ErrCodeTargetNotFound,
			fmt.Sprintf("insertion target %q is not in the snapshot", targetNodeID)).
			WithNode(targetNodeID)
	}

	inbound := len(edgeutil.FindConnections(targetNodeID, edges).Incoming)

	point := InsertionPoint{TargetNodeID: targetNodeID, InboundCount: inbound}
	switch {
	case inbound == 0:
		point.Strategy = StrategyConvert
	case inbound == 1:
		point.Strategy = StrategyInsertBefore
	default:
		point.Strategy = StrategyInsertAbove
	}
	return point, nil
}
