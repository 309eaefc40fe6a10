// Package validation checks step-transfer plans against the current graph
// snapshot before execution. Five independent, stateless passes produce a
// single severity-graded report; sixth, an optional condition pass
// compile-checks branch-slot expressions when an expression checker is
// configured.
package validation

import (
	"github.com/rendis/regraph/pkg/schema"
)

// ConditionChecker compile-checks a branch-slot condition expression.
// Implemented by the expression engines; nil disables the pass.
type ConditionChecker interface {
	Check(expression string) error
}

// TransferValidator runs the validation pipeline for step-transfer plans.
type TransferValidator struct {
	conditions ConditionChecker
}

// NewTransferValidator creates a validator. checker may be nil.
func NewTransferValidator(checker ConditionChecker) *TransferValidator {
	return &TransferValidator{conditions: checker}
}

// Validate runs every pass against the plan and the current snapshot and
// merges the findings. Passes are order-independent; plans may be stale
// relative to concurrent edits, so staleness shows up as findings here
// rather than as failures later.
func (v *TransferValidator) Validate(plan *schema.StepTransferPlan, nodes []schema.Node, edges []schema.Edge) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if plan == nil {
		result.AddError("plan", schema.ErrCodeValidation, "no transfer plan supplied")
		return result
	}

	result.Merge(validateStructure(plan, nodes))
	result.Merge(validateCycles(plan, nodes, edges))
	result.Merge(validateNodeRules(plan, nodes))
	result.Merge(validateEdgeDrift(plan, edges))
	result.Merge(validateFlowHealth(plan, nodes, edges))
	if v.conditions != nil {
		result.Merge(validateConditions(plan, v.conditions))
	}

	return result
}
