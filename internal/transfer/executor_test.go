package transfer

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/regraph/internal/edgeutil"
	"github.com/rendis/regraph/internal/layout"
	"github.com/rendis/regraph/pkg/schema"
)

// chainSnapshot builds a vertical linear chain of step nodes.
func chainSnapshot(ids ...string) schema.Snapshot {
	snap := schema.Snapshot{}
	for i, id := range ids {
		snap.Nodes = append(snap.Nodes, schema.Node{
			ID:       id,
			Position: schema.Position{X: 100, Y: float64(i) * 160},
			Detail:   schema.StepDetail{},
		})
		if i > 0 {
			snap.Edges = append(snap.Edges, edgeutil.NewEdge(ids[i-1], id, edgeutil.EdgeOptions{}))
		}
	}
	return snap
}

func TestExecutor_PlanMissingTarget(t *testing.T) {
	x := NewExecutor(ExecutorOptions{})
	_, err := x.Plan("ghost", chainSnapshot("a", "b"))
	require.Error(t, err)

	var ge *schema.GraphError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, schema.ErrCodeTargetNotFound, ge.Code)
}

func TestExecutor_CommitLinearChain(t *testing.T) {
	snap := chainSnapshot("a", "b", "c", "d")
	x := NewExecutor(ExecutorOptions{})

	plan, err := x.Plan("b", snap)
	require.NoError(t, err)
	require.Equal(t, []string{"c", "d"}, plan.StepIDs())

	result, err := x.Commit(context.Background(), plan, snap, Options{})
	require.NoError(t, err)

	// Input snapshot stays untouched.
	assert.Len(t, snap.Edges, 3)
	assert.Equal(t, schema.VariantStep, snap.Nodes[1].Variant())

	// The target is now a branch with two slots; the first carries the
	// plan's slot id.
	target, ok := result.Snapshot.FindNode("b")
	require.True(t, ok)
	assert.Equal(t, schema.VariantBranch, target.Variant())
	slots, _ := target.BranchSlots()
	require.Len(t, slots, 2)
	assert.Equal(t, plan.TargetBranchID, slots[0].ID)
	assert.NotEmpty(t, slots[1].ID)
	assert.NotEqual(t, slots[0].ID, slots[1].ID)
	assert.Equal(t, [2]string{slots[0].ID, slots[1].ID}, result.SlotIDs)

	// a->b and b->c are gone, the slot edge is in.
	keys := make(map[string]bool)
	for _, e := range result.Snapshot.Edges {
		keys[e.Source+">"+e.Target+">"+e.SourceHandle] = true
	}
	assert.False(t, keys["a>b>"])
	assert.False(t, keys["b>c>"])
	assert.True(t, keys["b>c>"+plan.TargetBranchID])
	assert.True(t, keys["c>d>"])

	// Conservation: same node ids, each exactly once.
	seen := make(map[string]int)
	for _, n := range result.Snapshot.Nodes {
		seen[n.ID]++
	}
	assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1, "d": 1}, seen)
	assert.Equal(t, []string{"c", "d"}, result.TransferredStepIDs)

	// Acyclicity preserved.
	report := edgeutil.DetectCycles(result.Snapshot.Nodes, result.Snapshot.Edges)
	assert.Empty(t, report.Cycles)
}

func TestExecutor_CommitRepositionsBeneathFirstSlot(t *testing.T) {
	snap := chainSnapshot("a", "b", "c", "d")
	x := NewExecutor(ExecutorOptions{})

	plan, err := x.Plan("b", snap)
	require.NoError(t, err)
	result, err := x.Commit(context.Background(), plan, snap, Options{})
	require.NoError(t, err)

	c, _ := result.Snapshot.FindNode("c")
	d, _ := result.Snapshot.FindNode("d")
	b, _ := result.Snapshot.FindNode("b")

	// Stacked in traversal order beneath the converted node, grid-snapped.
	assert.Greater(t, c.Position.Y, b.Position.Y)
	assert.Greater(t, d.Position.Y, c.Position.Y)
	for _, p := range []schema.Position{c.Position, d.Position} {
		assert.Zero(t, math.Mod(p.X, layout.GridStep))
		assert.Zero(t, math.Mod(p.Y, layout.GridStep))
	}
}

func TestExecutor_CommitSkipRepositioning(t *testing.T) {
	snap := chainSnapshot("a", "b", "c", "d")
	x := NewExecutor(ExecutorOptions{})

	plan, err := x.Plan("b", snap)
	require.NoError(t, err)
	result, err := x.Commit(context.Background(), plan, snap, Options{SkipRepositioning: true})
	require.NoError(t, err)

	c, _ := result.Snapshot.FindNode("c")
	d, _ := result.Snapshot.FindNode("d")
	assert.Equal(t, snap.Nodes[2].Position, c.Position)
	assert.Equal(t, snap.Nodes[3].Position, d.Position)
}

func TestExecutor_CommitSynthesizesMissingSlotEdge(t *testing.T) {
	snap := chainSnapshot("a", "b", "c")
	x := NewExecutor(ExecutorOptions{})

	plan, err := x.Plan("b", snap)
	require.NoError(t, err)
	plan.EdgesToCreate = nil // under-specified plan

	result, err := x.Commit(context.Background(), plan, snap, Options{})
	require.NoError(t, err)

	found := false
	for _, e := range result.Snapshot.Edges {
		if e.Source == "b" && e.Target == "c" && e.SourceHandle == plan.TargetBranchID {
			found = true
			assert.True(t, e.Animated)
		}
	}
	assert.True(t, found, "slot edge must be synthesized")
}

func TestExecutor_CommitKeepsPlanOwnedSlotEdge(t *testing.T) {
	snap := chainSnapshot("a", "b", "c", "d")
	x := NewExecutor(ExecutorOptions{})

	plan, err := x.Plan("b", snap)
	require.NoError(t, err)

	// The plan routes the slot to a node of its own choosing instead of the
	// first transferred step. Commit must not synthesize a second edge on
	// the same handle.
	plan.EdgesToCreate = []schema.Edge{
		edgeutil.NewEdge("b", "d", edgeutil.EdgeOptions{
			SourceHandle: plan.TargetBranchID, Animated: true,
		}),
	}

	result, err := x.Commit(context.Background(), plan, snap, Options{})
	require.NoError(t, err)

	var slotEdges []schema.Edge
	for _, e := range result.Snapshot.Edges {
		if e.Source == "b" && e.SourceHandle == plan.TargetBranchID {
			slotEdges = append(slotEdges, e)
		}
	}
	require.Len(t, slotEdges, 1)
	assert.Equal(t, "d", slotEdges[0].Target)
}

func TestExecutor_CommitEmptyTail(t *testing.T) {
	snap := chainSnapshot("a", "b", "c", "d")
	x := NewExecutor(ExecutorOptions{})

	plan, err := x.Plan("d", snap)
	require.NoError(t, err)
	require.Empty(t, plan.StepsToTransfer)

	result, err := x.Commit(context.Background(), plan, snap, Options{})
	require.NoError(t, err)

	target, _ := result.Snapshot.FindNode("d")
	assert.Equal(t, schema.VariantBranch, target.Variant())

	// No slot edge exists yet; the slots await authoring.
	for _, e := range result.Snapshot.Edges {
		assert.NotEqual(t, "d", e.Source)
	}
}

func TestExecutor_CommitMissingTargetFails(t *testing.T) {
	snap := chainSnapshot("a", "b", "c")
	x := NewExecutor(ExecutorOptions{})

	plan, err := x.Plan("b", snap)
	require.NoError(t, err)

	stale := chainSnapshot("a", "c")
	result, err := x.Commit(context.Background(), plan, stale, Options{})
	require.Error(t, err)
	assert.Nil(t, result)

	var ge *schema.GraphError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, schema.ErrCodeTargetNotFound, ge.Code)
}

func TestExecutor_CommitIntegrityFailureLeavesInputUntouched(t *testing.T) {
	snap := chainSnapshot("a", "b", "c")
	x := NewExecutor(ExecutorOptions{})

	plan, err := x.Plan("b", snap)
	require.NoError(t, err)
	// A hostile plan closing a cycle back into the chain's head.
	plan.EdgesToCreate = append(plan.EdgesToCreate,
		edgeutil.NewEdge("c", "a", edgeutil.EdgeOptions{}))

	result, err := x.Commit(context.Background(), plan, snap, Options{})
	require.Error(t, err)
	assert.Nil(t, result)

	var ge *schema.GraphError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, schema.ErrCodeCircular, ge.Code)

	// No partial mutation observable on the input.
	assert.Equal(t, schema.VariantStep, snap.Nodes[1].Variant())
	assert.Len(t, snap.Edges, 2)

	// The same plan commits when integrity checking is off; the caller
	// owns the consequences.
	result, err = x.Commit(context.Background(), plan, snap, Options{SkipIntegrityCheck: true})
	require.NoError(t, err)
	require.NotNil(t, result)
}

func TestExecutor_CommitRecordsPhases(t *testing.T) {
	snap := chainSnapshot("a", "b", "c")
	log := &phaseLog{}
	x := NewExecutor(ExecutorOptions{Recorder: log})

	plan, err := x.Plan("b", snap)
	require.NoError(t, err)
	result, err := x.Commit(context.Background(), plan, snap, Options{})
	require.NoError(t, err)

	prefix := result.OperationID + ":"
	assert.Equal(t, []string{
		prefix + "planned->converting",
		prefix + "converting->repositioning",
		prefix + "repositioning->edgeRewriting",
		prefix + "edgeRewriting->validated",
		prefix + "validated->committed",
	}, log.entries)
}

func TestExecutor_CommitFailureRecordsFailedPhase(t *testing.T) {
	snap := chainSnapshot("a", "b", "c")
	log := &phaseLog{}
	x := NewExecutor(ExecutorOptions{Recorder: log})

	plan, err := x.Plan("b", snap)
	require.NoError(t, err)

	stale := chainSnapshot("a", "c")
	_, err = x.Commit(context.Background(), plan, stale, Options{})
	require.Error(t, err)

	require.Len(t, log.entries, 2)
	assert.Contains(t, log.entries[0], "planned->converting")
	assert.Contains(t, log.entries[1], "converting->failed")
}

func TestExecutor_CommitNilPlan(t *testing.T) {
	x := NewExecutor(ExecutorOptions{})
	_, err := x.Commit(context.Background(), nil, chainSnapshot("a"), Options{})
	require.Error(t, err)
}

func TestRollback(t *testing.T) {
	before := chainSnapshot("a", "b")
	restored := Rollback(before)

	require.Equal(t, before, restored)

	restored.Nodes[0].Position.X = 999
	restored.Edges[0].Target = "z"
	assert.Equal(t, 100.0, before.Nodes[0].Position.X)
	assert.Equal(t, "b", before.Edges[0].Target)
}
