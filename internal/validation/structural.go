package validation

import (
	"fmt"

	"github.com/rendis/regraph/pkg/schema"
)

// validateStructure checks the plan against the current node set: the
// target and every transferred step must still exist (plans can be stale),
// a target that is already a branch will have its slots overwritten, and an
// empty transfer is worth flagging even though it is legal.
func validateStructure(plan *schema.StepTransferPlan, nodes []schema.Node) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	index := schema.NodeIndex(nodes)

	target, ok := index[plan.TargetNodeID]
	if !ok {
		result.AddError("target", schema.ErrCodeTargetNotFound,
			fmt.Sprintf("target node %q no longer exists in the snapshot", plan.TargetNodeID))
		return result
	}

	if target.Variant() == schema.VariantBranch {
		result.AddWarning("target", schema.WarnCodeAlreadyBranch,
			fmt.Sprintf("node %q is already a branch; its existing slots will be overwritten", plan.TargetNodeID),
			schema.ImpactMedium)
	}

	for i, step := range plan.StepsToTransfer {
		if _, ok := index[step.ID]; !ok {
			result.AddError(fmt.Sprintf("stepsToTransfer[%d]", i), schema.ErrCodeStepNotFound,
				fmt.Sprintf("transferred step %q no longer exists in the snapshot", step.ID))
		}
	}

	if len(plan.StepsToTransfer) == 0 {
		result.AddWarning("stepsToTransfer", schema.WarnCodeNoSteps,
			"no downstream steps to transfer; the new branch will start empty",
			schema.ImpactLow)
	}

	return result
}
