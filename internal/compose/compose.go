// Package compose builds complete branch-insertion operations out of the
// analysis, validation and transfer primitives. It is the entry point for
// drag gestures in the editor: one call turns a node into a branch, places
// two slot nodes beneath it, and relocates the downstream steps under the
// first slot. Failures come back as a result record so the caller can keep
// the prior graph and show a banner instead of crashing the session.
package compose

import (
	"context"
	"log/slog"

	"github.com/rendis/regraph/internal/edgeutil"
	"github.com/rendis/regraph/internal/layout"
	"github.com/rendis/regraph/internal/transfer"
	"github.com/rendis/regraph/internal/validation"
	"github.com/rendis/regraph/pkg/schema"
)

// NodeFactory mints a new node for the composer. Supplied by the caller;
// the editor owns node identity and default data.
type NodeFactory func(pos schema.Position, variant schema.Variant, label string) schema.Node

// Options configure a drag composition.
type Options struct {
	// Factory creates the two slot nodes. Required.
	Factory NodeFactory
	// SlotLabels name the slot nodes. Zero values default to
	// "Option 1" / "Option 2".
	SlotLabels [2]string
	// Conditions enables the expression pass during pre-commit
	// validation. Optional.
	Conditions validation.ConditionChecker
	// Recorder persists the phase transitions of the underlying
	// transfer operation. Optional.
	Recorder transfer.PhaseRecorder
	// Logger defaults to discard.
	Logger *slog.Logger
}

// Result is the outcome of a drag composition. On failure Err is set and
// Nodes/Edges echo the caller's snapshot unchanged.
type Result struct {
	Success            bool
	Err                error
	OperationID        string
	TransferredCount   int
	TransferredStepIDs []string
	// SlotNodeIDs are the two placeholder nodes heading the new branch
	// paths: index 0 carries the transferred steps, index 1 starts empty.
	SlotNodeIDs [2]string
	Nodes       []schema.Node
	Edges       []schema.Edge
}

// InsertBranchWithDrag converts sourceID into a branch and moves the steps
// downstream of it beneath the first of two new slot nodes. targetID is the
// node the gesture was dropped on; it must be the head of the downstream
// chain being transferred.
func InsertBranchWithDrag(ctx context.Context, sourceID, targetID string, snap schema.Snapshot, opts Options) Result {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	failure := func(err error) Result {
		logger.Warn("branch insertion rejected",
			slog.String("source_node_id", sourceID),
			slog.String("target_node_id", targetID),
			slog.String("error", err.Error()))
		return Result{Err: err, Nodes: snap.Nodes, Edges: snap.Edges}
	}

	if opts.Factory == nil {
		return failure(schema.NewError(schema.ErrCodeValidation, "no node factory supplied"))
	}
	if sourceID == targetID {
		return failure(schema.NewError(schema.ErrCodeSelfLoop,
			"drag source and target are the same node").WithNode(sourceID))
	}
	source, ok := snap.FindNode(sourceID)
	if !ok {
		return failure(schema.NewErrorf(schema.ErrCodeNodeNotFound,
			"drag source %q is not in the snapshot", sourceID).WithNode(sourceID))
	}
	if _, ok := snap.FindNode(targetID); !ok {
		return failure(schema.NewErrorf(schema.ErrCodeTargetNotFound,
			"drag target %q is not in the snapshot", targetID).WithNode(targetID))
	}

	executor := transfer.NewExecutor(transfer.ExecutorOptions{Recorder: opts.Recorder, Logger: logger})

	plan, err := executor.Plan(sourceID, snap)
	if err != nil {
		return failure(err)
	}
	if len(plan.StepsToTransfer) > 0 && plan.StepsToTransfer[0].ID != targetID {
		return failure(schema.NewErrorf(schema.ErrCodeValidation,
			"drag target %q does not head the downstream chain of %q", targetID, sourceID))
	}

	if result := validation.NewTransferValidator(opts.Conditions).Validate(plan, snap.Nodes, snap.Edges); !result.Valid() {
		return failure(result.ToError())
	}

	labels := opts.SlotLabels
	if labels[0] == "" {
		labels[0] = "Option 1"
	}
	if labels[1] == "" {
		labels[1] = "Option 2"
	}

	// Slot nodes go in before the commit so edge rewiring and integrity
	// checks see them.
	work := snap.Clone()
	left := opts.Factory(layout.BranchPosition(source, 0, 2, work.Nodes).Position, schema.VariantStep, labels[0])
	work.Nodes = append(work.Nodes, left)
	right := opts.Factory(layout.BranchPosition(source, 1, 2, work.Nodes).Position, schema.VariantStep, labels[1])
	work.Nodes = append(work.Nodes, right)

	// The branch wiring runs through the slot nodes instead of straight
	// into the first transferred step.
	plan.EdgesToCreate = []schema.Edge{
		edgeutil.NewEdge(sourceID, left.ID, edgeutil.EdgeOptions{
			SourceHandle: plan.TargetBranchID, Animated: true,
		}),
	}
	if len(plan.StepsToTransfer) > 0 {
		plan.EdgesToCreate = append(plan.EdgesToCreate,
			edgeutil.NewEdge(left.ID, plan.StepsToTransfer[0].ID, edgeutil.EdgeOptions{}))
	}

	committed, err := executor.Commit(ctx, plan, work, transfer.Options{SkipRepositioning: true})
	if err != nil {
		return failure(err)
	}

	out := committed.Snapshot
	out.Edges = append(out.Edges, edgeutil.NewEdge(sourceID, right.ID, edgeutil.EdgeOptions{
		SourceHandle: committed.SlotIDs[1], Animated: true,
	}))

	transfer.StackBeneath(&out, layout.SnapToGrid(schema.Position{
		X: left.Position.X,
		Y: left.Position.Y + layout.NodeHeight + layout.MinimumGap,
	}), plan.StepIDs())

	logger.Info("branch inserted",
		slog.String("source_node_id", sourceID),
		slog.String("operation_id", committed.OperationID),
		slog.Int("steps", len(plan.StepsToTransfer)))

	return Result{
		Success:            true,
		OperationID:        committed.OperationID,
		TransferredCount:   len(plan.StepsToTransfer),
		TransferredStepIDs: committed.TransferredStepIDs,
		SlotNodeIDs:        [2]string{left.ID, right.ID},
		Nodes:              out.Nodes,
		Edges:              out.Edges,
	}
}
