package schema

// Complexity is a coarse UX signal for how heavy a transfer will be.
// It is not a correctness gate.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// StepTransferPlan describes how to move the steps downstream of an
// insertion point into a newly created branch. Plans are ephemeral:
// built fresh per operation, validated against the current snapshot,
// and never persisted.
type StepTransferPlan struct {
	TargetNodeID        string     `json:"targetNodeId"`
	StepsToTransfer     []Node     `json:"stepsToTransfer"`
	EdgesToRemove       []Edge     `json:"edgesToRemove"`
	EdgesToCreate       []Edge     `json:"edgesToCreate"`
	TargetBranchID      string     `json:"targetBranchId"`
	EstimatedComplexity Complexity `json:"estimatedComplexity"`
}

// StepIDs returns the IDs of the steps to transfer, in plan order.
func (p *StepTransferPlan) StepIDs() []string {
	ids := make([]string, len(p.StepsToTransfer))
	for i, s := range p.StepsToTransfer {
		ids[i] = s.ID
	}
	return ids
}

// HasStep reports whether the plan transfers the given node.
func (p *StepTransferPlan) HasStep(nodeID string) bool {
	for _, s := range p.StepsToTransfer {
		if s.ID == nodeID {
			return true
		}
	}
	return false
}

// EstimateComplexity grades a plan by the total number of touched items:
// simple up to 5, moderate up to 15, complex beyond.
func EstimateComplexity(steps, removals, creations int) Complexity {
	total := steps + removals + creations
	switch {
	case total <= 5:
		return ComplexitySimple
	case total <= 15:
		return ComplexityModerate
	default:
		return ComplexityComplex
	}
}
