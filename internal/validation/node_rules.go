package validation

import (
	"fmt"

	"github.com/rendis/regraph/pkg/schema"
)

// validateNodeRules applies variant-specific rules to the transferred
// steps: an end node anywhere but last, nested branch nodes, and jump
// steps with dangling or unset targets.
func validateNodeRules(plan *schema.StepTransferPlan, nodes []schema.Node) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	index := schema.NodeIndex(nodes)

	last := len(plan.StepsToTransfer) - 1
	for i, step := range plan.StepsToTransfer {
		path := fmt.Sprintf("stepsToTransfer[%d]", i)

		switch step.Variant() {
		case schema.VariantEnd:
			if i != last {
				result.AddWarning(path, schema.WarnCodeEndMidSequence,
					fmt.Sprintf("end node %q sits mid-sequence; steps after it are unreachable within the branch", step.ID),
					schema.ImpactHigh)
			}
		case schema.VariantBranch:
			result.AddWarning(path, schema.WarnCodeNestedBranch,
				fmt.Sprintf("transferred step %q is itself a branch node", step.ID),
				schema.ImpactMedium)
			result.Suggest(fmt.Sprintf("consider flattening the nested branch %q into sibling slots", step.ID))
		case schema.VariantJump:
			target, _ := step.JumpTarget()
			switch {
			case target == "":
				result.AddWarning(path, schema.WarnCodeJumpUnset,
					fmt.Sprintf("jump step %q has no target configured", step.ID),
					schema.ImpactMedium)
			default:
				if _, ok := index[target]; !ok {
					result.AddError(path, schema.ErrCodeInvalidJump,
						fmt.Sprintf("jump step %q targets %q, which no longer exists", step.ID, target))
				}
			}
		}
	}

	return result
}
