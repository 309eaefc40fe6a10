package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/regraph/pkg/schema"
)

func newTestStore(t *testing.T) *LibSQLStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	s, err := NewLibSQLStore("file:" + dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() {
		_ = s.Close()
		_ = os.RemoveAll(dir)
	})
	return s
}

func seedGraph(t *testing.T, s *LibSQLStore, name string) *Graph {
	t.Helper()
	g := &Graph{ID: uuid.New().String(), Name: name}
	require.NoError(t, s.CreateGraph(context.Background(), g))
	return g
}

func sampleSnapshot() schema.Snapshot {
	return schema.Snapshot{
		Nodes: []schema.Node{
			{ID: "a", Position: schema.Position{X: 100, Y: 0}, Label: "Start", Detail: schema.StepDetail{}},
			{ID: "b", Position: schema.Position{X: 100, Y: 160}, Detail: schema.BranchDetail{
				Slots: []schema.BranchSlot{{ID: "branch-1", Label: "yes", Condition: "inputs.ok"}},
			}},
		},
		Edges: []schema.Edge{
			{ID: "edge-a-b", Source: "a", Target: "b"},
		},
	}
}

// --- Graph tests ---

func TestCreateAndGetGraph(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g := seedGraph(t, s, "checkout flow")

	got, err := s.GetGraph(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.ID, got.ID)
	assert.Equal(t, "checkout flow", got.Name)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetGraphNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetGraph(context.Background(), "ghost")
	require.Error(t, err)

	var ge *schema.GraphError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, schema.ErrCodeNotFound, ge.Code)
}

func TestRenameGraph(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g := seedGraph(t, s, "draft")
	require.NoError(t, s.RenameGraph(ctx, g.ID, "final"))

	got, err := s.GetGraph(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Name)

	assert.Error(t, s.RenameGraph(ctx, "ghost", "x"))
}

func TestListGraphs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedGraph(t, s, "checkout flow")
	seedGraph(t, s, "onboarding flow")
	seedGraph(t, s, "billing")

	all, err := s.ListGraphs(ctx, GraphFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	flows, err := s.ListGraphs(ctx, GraphFilter{Name: "flow"})
	require.NoError(t, err)
	assert.Len(t, flows, 2)

	limited, err := s.ListGraphs(ctx, GraphFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestDeleteGraphCascadesSnapshots(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g := seedGraph(t, s, "doomed")
	_, err := s.SaveSnapshot(ctx, g.ID, sampleSnapshot(), "")
	require.NoError(t, err)

	require.NoError(t, s.DeleteGraph(ctx, g.ID))

	_, err = s.GetSnapshot(ctx, g.ID)
	require.Error(t, err)

	assert.Error(t, s.DeleteGraph(ctx, g.ID))
}

// --- Snapshot tests ---

func TestSaveAndGetSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g := seedGraph(t, s, "with content")
	snap := sampleSnapshot()

	v1, err := s.SaveSnapshot(ctx, g.ID, snap, "op-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1)

	rec, err := s.GetSnapshot(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Version)
	assert.Equal(t, "op-1", rec.OperationID)
	require.Len(t, rec.Snapshot.Nodes, 2)

	// The variant round-trips through the wire codec.
	b, ok := rec.Snapshot.FindNode("b")
	require.True(t, ok)
	assert.Equal(t, schema.VariantBranch, b.Variant())
	slots, _ := b.BranchSlots()
	require.Len(t, slots, 1)
	assert.Equal(t, "inputs.ok", slots[0].Condition)
}

func TestSnapshotVersionsIncrease(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g := seedGraph(t, s, "versioned")
	snap := sampleSnapshot()

	for i := 1; i <= 3; i++ {
		v, err := s.SaveSnapshot(ctx, g.ID, snap, "")
		require.NoError(t, err)
		assert.Equal(t, int64(i), v)
	}

	rec, err := s.GetSnapshotVersion(ctx, g.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Version)

	versions, err := s.ListSnapshotVersions(ctx, g.ID, 0)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, int64(3), versions[0].Version, "newest first")
}

func TestPruneSnapshots(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g := seedGraph(t, s, "pruned")
	for i := 0; i < 5; i++ {
		_, err := s.SaveSnapshot(ctx, g.ID, sampleSnapshot(), "")
		require.NoError(t, err)
	}

	removed, err := s.PruneSnapshots(ctx, g.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	versions, err := s.ListSnapshotVersions(ctx, g.ID, 0)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, int64(5), versions[0].Version)
	assert.Equal(t, int64(4), versions[1].Version)
}

// --- Operation event tests ---

func TestAppendOperationEventSequencing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	opID := uuid.New().String()
	for i := 0; i < 3; i++ {
		err := s.AppendOperationEvent(ctx, &OperationEvent{
			OperationID: opID,
			Type:        EventPhaseTransition,
		})
		require.NoError(t, err)
	}

	events, err := s.GetOperationEvents(ctx, opID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, e := range events {
		assert.Equal(t, int64(i+1), e.Sequence)
		assert.False(t, e.Timestamp.IsZero())
	}
}

func TestListOperationEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendOperationEvent(ctx, &OperationEvent{
		OperationID: "op-a", GraphID: "g1", Type: EventPhaseTransition,
	}))
	require.NoError(t, s.AppendOperationEvent(ctx, &OperationEvent{
		OperationID: "op-b", GraphID: "g1", Type: EventSnapshotSaved,
	}))
	require.NoError(t, s.AppendOperationEvent(ctx, &OperationEvent{
		OperationID: "op-c", GraphID: "g2", Type: EventSnapshotSaved,
	}))

	byGraph, err := s.ListOperationEvents(ctx, OperationEventFilter{GraphID: "g1"})
	require.NoError(t, err)
	assert.Len(t, byGraph, 2)

	byType, err := s.ListOperationEvents(ctx, OperationEventFilter{EventType: EventSnapshotSaved})
	require.NoError(t, err)
	assert.Len(t, byType, 2)

	limited, err := s.ListOperationEvents(ctx, OperationEventFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestPruneOperationEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, s.AppendOperationEvent(ctx, &OperationEvent{
		OperationID: "op-old", Type: EventPhaseTransition, Timestamp: old,
	}))
	require.NoError(t, s.AppendOperationEvent(ctx, &OperationEvent{
		OperationID: "op-new", Type: EventPhaseTransition,
	}))

	removed, err := s.PruneOperationEvents(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	remaining, err := s.ListOperationEvents(ctx, OperationEventFilter{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "op-new", remaining[0].OperationID)
}
