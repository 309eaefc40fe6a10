package schema

// Variant classifies a workflow node. The variant determines which detail
// payload is legal on the node (see Detail implementations).
type Variant string

const (
	VariantStep   Variant = "default"
	VariantBranch Variant = "branch"
	VariantEnd    Variant = "end"
	VariantJump   Variant = "jump"
)

// Position is a 2-D coordinate in editor space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Detail is the variant-specific payload of a Node. Exactly one
// implementation exists per Variant, so invalid field combinations
// (a jump target on a branch node, slots on an end node) cannot be
// represented.
type Detail interface {
	Variant() Variant
}

// StepDetail marks an ordinary sequential step. It carries no extra data.
type StepDetail struct{}

func (StepDetail) Variant() Variant { return VariantStep }

// BranchSlot is one outgoing slot of a branch node. Slot IDs are the only
// legal sourceHandle values for edges leaving the node. Condition is an
// expression string (CEL or expr dialect) evaluated by the editor runtime.
type BranchSlot struct {
	ID        string `json:"id"`
	Label     string `json:"label,omitempty"`
	Condition string `json:"condition,omitempty"`
}

// BranchDetail marks a decision node with ordered outgoing slots.
type BranchDetail struct {
	Slots []BranchSlot
}

func (BranchDetail) Variant() Variant { return VariantBranch }

// EndDetail marks a terminal node. End nodes must have out-degree 0.
type EndDetail struct{}

func (EndDetail) Variant() Variant { return VariantEnd }

// JumpDetail marks a step that transfers control to an explicit target node
// instead of following its outgoing edges. The jump is a data field, not an
// edge; cycle analysis must account for it separately.
type JumpDetail struct {
	TargetNodeID string
}

func (JumpDetail) Variant() Variant { return VariantJump }

// Node is a single workflow step in a graph snapshot.
type Node struct {
	ID       string
	Position Position
	Label    string
	Detail   Detail
}

// Variant returns the node's variant. A nil Detail is treated as an
// ordinary step, matching how editors omit the field for default nodes.
func (n Node) Variant() Variant {
	if n.Detail == nil {
		return VariantStep
	}
	return n.Detail.Variant()
}

// BranchSlots returns the node's slots and true when the node is a branch.
func (n Node) BranchSlots() ([]BranchSlot, bool) {
	if d, ok := n.Detail.(BranchDetail); ok {
		return d.Slots, true
	}
	return nil, false
}

// JumpTarget returns the jump target and true when the node is a jump step.
// The boolean reports the variant, not whether a target is configured.
func (n Node) JumpTarget() (string, bool) {
	if d, ok := n.Detail.(JumpDetail); ok {
		return d.TargetNodeID, true
	}
	return "", false
}

// HasBranchSlot reports whether slotID names one of the node's slots.
func (n Node) HasBranchSlot(slotID string) bool {
	slots, ok := n.BranchSlots()
	if !ok {
		return false
	}
	for _, s := range slots {
		if s.ID == slotID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	cp := n
	if d, ok := n.Detail.(BranchDetail); ok {
		slots := make([]BranchSlot, len(d.Slots))
		copy(slots, d.Slots)
		cp.Detail = BranchDetail{Slots: slots}
	}
	return cp
}

// Edge is a directed connection between two nodes. Endpoints are relational
// references; edges never own nodes. Animated, Style and Label are
// presentational and opaque to the engine.
type Edge struct {
	ID           string         `json:"id"`
	Source       string         `json:"source"`
	Target       string         `json:"target"`
	SourceHandle string         `json:"sourceHandle,omitempty"`
	TargetHandle string         `json:"targetHandle,omitempty"`
	Animated     bool           `json:"animated,omitempty"`
	Style        map[string]any `json:"style,omitempty"`
	Label        string         `json:"label,omitempty"`
}

// Clone returns a deep copy of the edge.
func (e Edge) Clone() Edge {
	cp := e
	if e.Style != nil {
		cp.Style = make(map[string]any, len(e.Style))
		for k, v := range e.Style {
			cp.Style[k] = v
		}
	}
	return cp
}

// Snapshot is a caller-owned view of a workflow graph. Engine functions
// treat snapshots as immutable and return fresh node/edge slices.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	cp := Snapshot{
		Nodes: make([]Node, len(s.Nodes)),
		Edges: make([]Edge, len(s.Edges)),
	}
	for i, n := range s.Nodes {
		cp.Nodes[i] = n.Clone()
	}
	for i, e := range s.Edges {
		cp.Edges[i] = e.Clone()
	}
	return cp
}

// FindNode returns the node with the given ID, or false if absent.
func (s Snapshot) FindNode(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// NodeIndex builds a map of node ID to node for repeated lookups.
func NodeIndex(nodes []Node) map[string]Node {
	idx := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		idx[n.ID] = n
	}
	return idx
}
