// Package transfer commits step-transfer plans against graph snapshots.
// Planning is a pure preview; Commit runs the phased pipeline (convert,
// reposition, rewrite edges, verify) on a private clone and only hands the
// result back once every phase succeeded. A failed commit leaves the
// caller's snapshot untouched.
package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/rendis/regraph/internal/analysis"
	"github.com/rendis/regraph/internal/edgeutil"
	"github.com/rendis/regraph/internal/layout"
	"github.com/rendis/regraph/pkg/schema"
)

// Options tune a single Commit call. The zero value repositions transferred
// steps and verifies graph integrity before committing.
type Options struct {
	// SkipRepositioning leaves transferred steps at their current
	// coordinates.
	SkipRepositioning bool
	// SkipIntegrityCheck disables the post-rewrite connection and cycle
	// verification.
	SkipIntegrityCheck bool
}

// Result is the outcome of a committed transfer.
type Result struct {
	Snapshot           schema.Snapshot
	OperationID        string
	TransferredStepIDs []string
	// SlotIDs holds the two branch-slot ids on the converted target:
	// slot 0 carries the transferred steps, slot 1 starts empty.
	SlotIDs [2]string
}

// ExecutorOptions configure an Executor.
type ExecutorOptions struct {
	Recorder PhaseRecorder // nil disables phase recording
	Logger   *slog.Logger  // nil discards
}

// Executor commits step-transfer plans.
type Executor struct {
	fsm    *FSM
	logger *slog.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(opts ExecutorOptions) *Executor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{
		fsm:    NewFSM(opts.Recorder),
		logger: logger,
	}
}

// Plan derives the transfer plan for turning targetNodeID into a branch.
// Pure preview: nothing is mutated and nothing is recorded.
func (x *Executor) Plan(targetNodeID string, snap schema.Snapshot) (*schema.StepTransferPlan, error) {
	return analysis.AnalyzeBranchInsertion(targetNodeID, snap.Nodes, snap.Edges)
}

// Commit applies the plan to a clone of snap and returns the committed
// result. On any error the returned result is nil and snap is untouched;
// the caller's snapshot remains the authoritative state.
func (x *Executor) Commit(ctx context.Context, plan *schema.StepTransferPlan, snap schema.Snapshot, opts Options) (*Result, error) {
	if plan == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "no transfer plan supplied")
	}

	opID := uuid.NewString()
	work := snap.Clone()

	fail := func(phase Phase, err error) (*Result, error) {
		if terr := x.fsm.Transition(ctx, opID, phase, PhaseFailed); terr != nil {
			x.logger.Warn("phase failure not recorded",
				slog.String("operation_id", opID), slog.String("error", terr.Error()))
		}
		x.logger.Error("transfer commit failed",
			slog.String("operation_id", opID),
			slog.String("target_node_id", plan.TargetNodeID),
			slog.String("phase", string(phase)),
			slog.String("error", err.Error()))
		return nil, err
	}

	if err := x.fsm.Transition(ctx, opID, PhasePlanned, PhaseConverting); err != nil {
		return nil, err
	}
	slotIDs, err := x.convertTarget(&work, plan)
	if err != nil {
		return fail(PhaseConverting, err)
	}

	if err := x.fsm.Transition(ctx, opID, PhaseConverting, PhaseRepositioning); err != nil {
		return fail(PhaseConverting, err)
	}
	if !opts.SkipRepositioning {
		x.repositionSteps(&work, plan)
	}

	if err := x.fsm.Transition(ctx, opID, PhaseRepositioning, PhaseEdgeRewriting); err != nil {
		return fail(PhaseRepositioning, err)
	}
	x.rewriteEdges(&work, plan, slotIDs[0])

	if err := x.fsm.Transition(ctx, opID, PhaseEdgeRewriting, PhaseValidated); err != nil {
		return fail(PhaseEdgeRewriting, err)
	}
	if !opts.SkipIntegrityCheck {
		if err := verifyIntegrity(work); err != nil {
			return fail(PhaseValidated, err)
		}
	}

	if err := x.fsm.Transition(ctx, opID, PhaseValidated, PhaseCommitted); err != nil {
		return fail(PhaseValidated, err)
	}

	x.logger.Info("transfer committed",
		slog.String("operation_id", opID),
		slog.String("target_node_id", plan.TargetNodeID),
		slog.Int("steps", len(plan.StepsToTransfer)),
		slog.String("complexity", string(plan.EstimatedComplexity)))

	return &Result{
		Snapshot:           work,
		OperationID:        opID,
		TransferredStepIDs: plan.StepIDs(),
		SlotIDs:            slotIDs,
	}, nil
}

// Rollback restores a caller-held pre-commit snapshot. Commits never mutate
// their input, so rolling back is a deep copy of what the caller kept.
func Rollback(before schema.Snapshot) schema.Snapshot {
	return before.Clone()
}

// convertTarget rewrites the target node into a branch with two slots. The
// first slot carries the plan's slot id so the created edges line up; the
// second starts empty. Position and label are preserved.
func (x *Executor) convertTarget(work *schema.Snapshot, plan *schema.StepTransferPlan) ([2]string, error) {
	var slotIDs [2]string

	idx := -1
	for i := range work.Nodes {
		if work.Nodes[i].ID == plan.TargetNodeID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return slotIDs, schema.NewErrorf(schema.ErrCodeTargetNotFound,
			"transfer target %q is not in the snapshot", plan.TargetNodeID).
			WithNode(plan.TargetNodeID)
	}

	slotIDs[0] = plan.TargetBranchID
	if slotIDs[0] == "" {
		slotIDs[0] = analysis.NewBranchSlotID()
	}
	slotIDs[1] = analysis.NewBranchSlotID()

	work.Nodes[idx].Detail = schema.BranchDetail{Slots: []schema.BranchSlot{
		{ID: slotIDs[0], Label: "Option 1"},
		{ID: slotIDs[1], Label: "Option 2"},
	}}
	return slotIDs, nil
}

// repositionSteps stacks the transferred steps in a column beneath the
// target's first slot, resolving collisions against the untouched nodes.
func (x *Executor) repositionSteps(work *schema.Snapshot, plan *schema.StepTransferPlan) {
	if len(plan.StepsToTransfer) == 0 {
		return
	}

	target, ok := work.FindNode(plan.TargetNodeID)
	if !ok {
		return
	}

	moving := make(map[string]bool, len(plan.StepsToTransfer))
	for _, s := range plan.StepsToTransfer {
		moving[s.ID] = true
	}
	var anchored []schema.Node
	for _, n := range work.Nodes {
		if !moving[n.ID] {
			anchored = append(anchored, n)
		}
	}

	placement := layout.BranchPosition(target, 0, 2, anchored)
	StackBeneath(work, placement.Position, plan.StepIDs())
}

// StackBeneath repositions the named nodes into a vertical column starting
// at start, in the given order, collision-resolving each against every node
// that is not being moved plus the ones already placed.
func StackBeneath(work *schema.Snapshot, start schema.Position, nodeIDs []string) {
	index := make(map[string]int, len(work.Nodes))
	for i, n := range work.Nodes {
		index[n.ID] = i
	}
	moving := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		moving[id] = true
	}
	var anchored []schema.Node
	for _, n := range work.Nodes {
		if !moving[n.ID] {
			anchored = append(anchored, n)
		}
	}

	pos := start
	for _, id := range nodeIDs {
		i, ok := index[id]
		if !ok {
			continue
		}
		resolved := layout.ResolveCollisions(pos, anchored, layout.ResolveOptions{})
		work.Nodes[i].Position = resolved.Position
		anchored = append(anchored, work.Nodes[i])
		pos = layout.SnapToGrid(schema.Position{
			X: resolved.Position.X,
			Y: resolved.Position.Y + layout.NodeHeight + layout.MinimumGap,
		})
	}
}

// rewriteEdges removes the plan's stale connections, appends the new ones,
// and synthesizes the slot edge into the first transferred step if the plan
// did not carry it. Duplicate connections are collapsed at the end.
func (x *Executor) rewriteEdges(work *schema.Snapshot, plan *schema.StepTransferPlan, slotID string) {
	removed := make(map[string]bool, len(plan.EdgesToRemove))
	for _, e := range plan.EdgesToRemove {
		removed[edgeutil.ConnectionKey(e)] = true
	}

	kept := work.Edges[:0]
	for _, e := range work.Edges {
		if !removed[edgeutil.ConnectionKey(e)] {
			kept = append(kept, e)
		}
	}
	work.Edges = append(kept, plan.EdgesToCreate...)

	if len(plan.StepsToTransfer) > 0 {
		// Any edge leaving the target on this handle counts, whatever its
		// destination: a plan may route the slot to a node of its own
		// choosing (the composer points it at a freshly minted slot node),
		// and a second edge on the same handle would be invalid.
		hasSlotEdge := false
		for _, e := range work.Edges {
			if e.Source == plan.TargetNodeID && e.SourceHandle == slotID {
				hasSlotEdge = true
				break
			}
		}
		if !hasSlotEdge {
			work.Edges = append(work.Edges, edgeutil.NewEdge(
				plan.TargetNodeID, plan.StepsToTransfer[0].ID,
				edgeutil.EdgeOptions{SourceHandle: slotID, Animated: true},
			))
		}
	}

	work.Edges = edgeutil.OptimizeEdges(work.Edges)
}

// verifyIntegrity runs the structural connection checks and cycle detection
// over the rewritten snapshot.
func verifyIntegrity(work schema.Snapshot) error {
	result := edgeutil.ValidateConnections(work.Nodes, work.Edges)
	if !result.Valid() {
		return schema.NewError(schema.ErrCodeValidation,
			"rewritten graph failed integrity checks").
			WithCause(result.ToError())
	}

	report := edgeutil.DetectCycles(work.Nodes, work.Edges)
	if len(report.Cycles) > 0 {
		parts := make([]string, len(report.Cycles))
		for i, c := range report.Cycles {
			parts[i] = strings.Join(c, " -> ")
		}
		return schema.NewError(schema.ErrCodeCircular,
			fmt.Sprintf("rewritten graph contains cycles: %s", strings.Join(parts, "; ")))
	}
	return nil
}
