// Package diagram renders graph snapshots as Mermaid flowcharts.
package diagram

import (
	"fmt"
	"strings"

	"github.com/rendis/regraph/pkg/schema"
)

// RenderMermaid renders a snapshot as a Mermaid flowchart string. Branch
// nodes get decision shapes and their slot labels annotate the outgoing
// edges; animated edges render dashed.
func RenderMermaid(title string, snap schema.Snapshot) string {
	var b strings.Builder

	b.WriteString("graph TD\n")

	if title != "" {
		b.WriteString(fmt.Sprintf("    %%%% %s\n", title))
	}

	slotLabels := slotLabelIndex(snap.Nodes)

	for _, node := range snap.Nodes {
		b.WriteString(fmt.Sprintf("    %s\n", mermaidNodeDef(node)))
	}

	for _, edge := range snap.Edges {
		label := ""
		if edge.SourceHandle != "" {
			if name, ok := slotLabels[edge.Source+"/"+edge.SourceHandle]; ok && name != "" {
				label = fmt.Sprintf("|%s|", name)
			}
		}
		arrow := "-->"
		if edge.Animated {
			arrow = "-.->"
		}
		b.WriteString(fmt.Sprintf("    %s %s%s %s\n",
			mermaidSafeID(edge.Source), arrow, label, mermaidSafeID(edge.Target)))
	}

	b.WriteString("\n")
	b.WriteString("    classDef branch fill:#1a5276,stroke:#0e3a52,color:#fff\n")
	b.WriteString("    classDef terminal fill:#2d6a2d,stroke:#1a4a1a,color:#fff\n")
	b.WriteString("    classDef jump fill:#b7791a,stroke:#8a5c14,color:#fff\n")

	for _, node := range snap.Nodes {
		if cls := mermaidVariantClass(node.Variant()); cls != "" {
			b.WriteString(fmt.Sprintf("    class %s %s\n", mermaidSafeID(node.ID), cls))
		}
	}

	return b.String()
}

// mermaidNodeDef returns a Mermaid node definition with a shape per variant.
func mermaidNodeDef(node schema.Node) string {
	id := mermaidSafeID(node.ID)
	label := node.Label
	if label == "" {
		label = node.ID
	}

	switch node.Variant() {
	case schema.VariantBranch:
		return fmt.Sprintf("%s{%q}", id, label)
	case schema.VariantEnd:
		return fmt.Sprintf("%s((%q))", id, label)
	case schema.VariantJump:
		if target, ok := node.JumpTarget(); ok && target != "" {
			label = fmt.Sprintf("%s → %s", label, target)
		}
		return fmt.Sprintf("%s([%q])", id, label)
	default:
		return fmt.Sprintf("%s[%q]", id, label)
	}
}

// mermaidSafeID converts a node ID to a Mermaid-safe identifier.
// Replaces dots and dashes with underscores.
func mermaidSafeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_")
	return r.Replace(id)
}

// mermaidVariantClass maps a node variant to a Mermaid class name.
func mermaidVariantClass(v schema.Variant) string {
	switch v {
	case schema.VariantBranch:
		return "branch"
	case schema.VariantEnd:
		return "terminal"
	case schema.VariantJump:
		return "jump"
	default:
		return ""
	}
}

// slotLabelIndex maps "nodeID/slotID" to the slot's label so branch edges
// can be annotated.
func slotLabelIndex(nodes []schema.Node) map[string]string {
	idx := make(map[string]string)
	for _, n := range nodes {
		slots, ok := n.BranchSlots()
		if !ok {
			continue
		}
		for _, slot := range slots {
			idx[n.ID+"/"+slot.ID] = slot.Label
		}
	}
	return idx
}
