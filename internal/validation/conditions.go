package validation

import (
	"fmt"

	"github.com/rendis/regraph/pkg/schema"
)

// validateConditions compile-checks the condition expressions on branch
// slots among the transferred steps. A condition that does not compile is a
// warning: the branch wiring itself is sound, the expression just will not
// route until fixed.
func validateConditions(plan *schema.StepTransferPlan, checker ConditionChecker) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	for i, step := range plan.StepsToTransfer {
		slots, ok := step.BranchSlots()
		if !ok {
			continue
		}
		for j, slot := range slots {
			if slot.Condition == "" {
				continue
			}
			if err := checker.Check(slot.Condition); err != nil {
				result.AddWarning(
					fmt.Sprintf("stepsToTransfer[%d].branches[%d]", i, j),
					schema.WarnCodeBadCondition,
					fmt.Sprintf("slot %q of node %q has a condition that does not compile: %v",
						slot.ID, step.ID, err),
					schema.ImpactMedium)
			}
		}
	}

	return result
}
