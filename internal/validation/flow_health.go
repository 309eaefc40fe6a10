package validation

import (
	"fmt"

	"github.com/rendis/regraph/pkg/schema"
)

// largeTransferThreshold is where a single branch starts getting unwieldy.
const largeTransferThreshold = 5

// validateFlowHealth looks at the graph around the transfer: nodes outside
// the set whose only inbound edge comes from a transferred node may end up
// orphaned, a non-empty branch without an end node usually wants one, and
// very large transfers are better split across slots.
func validateFlowHealth(plan *schema.StepTransferPlan, nodes []schema.Node, edges []schema.Edge) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	transferred := make(map[string]bool, len(plan.StepsToTransfer))
	for _, s := range plan.StepsToTransfer {
		transferred[s.ID] = true
	}

	inbound := make(map[string][]string, len(edges))
	for _, e := range edges {
		inbound[e.Target] = append(inbound[e.Target], e.Source)
	}

	for _, n := range nodes {
		if transferred[n.ID] || n.ID == plan.TargetNodeID {
			continue
		}
		sources := inbound[n.ID]
		if len(sources) != 1 || !transferred[sources[0]] {
			continue
		}
		result.AddWarning("", schema.WarnCodeOrphan,
			fmt.Sprintf("node %q would depend entirely on transferred step %q and may be orphaned",
				n.ID, sources[0]),
			schema.ImpactMedium)
	}

	if len(plan.StepsToTransfer) > 0 {
		hasEnd := false
		for _, s := range plan.StepsToTransfer {
			if s.Variant() == schema.VariantEnd {
				hasEnd = true
				break
			}
		}
		if !hasEnd {
			result.Suggest("add an end node to terminate the transferred branch")
		}
	}

	if len(plan.StepsToTransfer) > largeTransferThreshold {
		result.Suggest(fmt.Sprintf("transfer moves %d steps; consider splitting them across branch slots",
			len(plan.StepsToTransfer)))
	}

	return result
}
