package validation

import (
	"fmt"
	"strings"

	"github.com/rendis/regraph/internal/edgeutil"
	"github.com/rendis/regraph/pkg/schema"
)

// validateCycles applies the plan's edge changes to a simulated copy of the
// current edge set and runs cycle detection on the outcome. Jump steps are
// checked separately: a jump is a data field, not an edge, so a transferred
// jump pointing back at the insertion point would slip past edge-based
// detection.
func validateCycles(plan *schema.StepTransferPlan, nodes []schema.Node, edges []schema.Edge) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	removed := make(map[string]bool, len(plan.EdgesToRemove))
	for _, e := range plan.EdgesToRemove {
		removed[edgeutil.ConnectionKey(e)] = true
	}

	simulated := make([]schema.Edge, 0, len(edges)+len(plan.EdgesToCreate))
	for _, e := range edges {
		if removed[edgeutil.ConnectionKey(e)] {
			continue
		}
		simulated = append(simulated, e)
	}
	simulated = append(simulated, plan.EdgesToCreate...)

	report := edgeutil.DetectCycles(nodes, simulated)
	for _, cycle := range report.Cycles {
		result.AddError("edges", schema.ErrCodeCircular,
			fmt.Sprintf("applying the plan creates a cycle: %s", strings.Join(cycle, " -> ")))
	}

	for i, step := range plan.StepsToTransfer {
		if target, isJump := step.JumpTarget(); isJump && target == plan.TargetNodeID {
			result.AddError(fmt.Sprintf("stepsToTransfer[%d]", i), schema.ErrCodeJumpCycle,
				fmt.Sprintf("jump step %q targets the branch insertion point %q",
					step.ID, plan.TargetNodeID))
		}
	}

	return result
}
