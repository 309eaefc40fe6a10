package schema

import (
	"encoding/json"
	"fmt"
)

// nodeWire is the editor wire shape for a node:
//
//	{"id": "...", "position": {"x": 0, "y": 0},
//	 "data": {"variant": "branch", "label": "...", "branches": [...], "targetNodeId": "..."}}
//
// The in-memory Node uses a tagged union for the variant payload, so both
// directions go through this intermediate struct.
type nodeWire struct {
	ID       string       `json:"id"`
	Position Position     `json:"position"`
	Data     nodeDataWire `json:"data"`
}

type nodeDataWire struct {
	Variant      Variant      `json:"variant,omitempty"`
	Label        string       `json:"label,omitempty"`
	Branches     []BranchSlot `json:"branches,omitempty"`
	TargetNodeID string       `json:"targetNodeId,omitempty"`
}

// MarshalJSON encodes the node in the editor wire format.
func (n Node) MarshalJSON() ([]byte, error) {
	w := nodeWire{
		ID:       n.ID,
		Position: n.Position,
		Data: nodeDataWire{
			Variant: n.Variant(),
			Label:   n.Label,
		},
	}
	switch d := n.Detail.(type) {
	case BranchDetail:
		w.Data.Branches = d.Slots
	case JumpDetail:
		w.Data.TargetNodeID = d.TargetNodeID
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the editor wire format into the tagged union.
// Auxiliary fields that are illegal for the declared variant are dropped
// rather than rejected; structural validation reports them separately.
func (n *Node) UnmarshalJSON(data []byte) error {
	var w nodeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	n.ID = w.ID
	n.Position = w.Position
	n.Label = w.Data.Label

	switch w.Data.Variant {
	case VariantStep, "":
		n.Detail = StepDetail{}
	case VariantBranch:
		n.Detail = BranchDetail{Slots: w.Data.Branches}
	case VariantEnd:
		n.Detail = EndDetail{}
	case VariantJump:
		n.Detail = JumpDetail{TargetNodeID: w.Data.TargetNodeID}
	default:
		return fmt.Errorf("node %s: unknown variant %q", w.ID, w.Data.Variant)
	}
	return nil
}
