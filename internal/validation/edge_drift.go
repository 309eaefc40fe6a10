package validation

import (
	"fmt"

	"github.com/rendis/regraph/internal/edgeutil"
	"github.com/rendis/regraph/pkg/schema"
)

// validateEdgeDrift compares the plan's edge changes against the live edge
// set. Removals that already happened and creations that already exist are
// recoverable drift from concurrent edits, so they warn rather than error.
// The same connection appearing twice inside edgesToCreate is different:
// that is a malformed plan and blocks commit.
func validateEdgeDrift(plan *schema.StepTransferPlan, edges []schema.Edge) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	live := make(map[string]bool, len(edges))
	for _, e := range edges {
		live[edgeutil.ConnectionKey(e)] = true
	}

	for i, e := range plan.EdgesToRemove {
		if !live[edgeutil.ConnectionKey(e)] {
			result.AddWarning(fmt.Sprintf("edgesToRemove[%d]", i), schema.WarnCodeEdgeGone,
				fmt.Sprintf("edge %s -> %s is already gone", e.Source, e.Target),
				schema.ImpactLow)
		}
	}

	planned := make(map[string]bool, len(plan.EdgesToCreate))
	for i, e := range plan.EdgesToCreate {
		key := edgeutil.ConnectionKey(e)

		if planned[key] {
			result.AddError(fmt.Sprintf("edgesToCreate[%d]", i), schema.ErrCodeDuplicateEdge,
				fmt.Sprintf("plan creates the edge %s -> %s twice", e.Source, e.Target))
			continue
		}
		planned[key] = true

		if live[key] {
			result.AddWarning(fmt.Sprintf("edgesToCreate[%d]", i), schema.WarnCodeEdgeExists,
				fmt.Sprintf("edge %s -> %s already exists in the snapshot", e.Source, e.Target),
				schema.ImpactLow)
		}
	}

	return result
}
