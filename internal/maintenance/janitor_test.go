package maintenance

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/regraph/internal/store"
	"github.com/rendis/regraph/pkg/schema"
)

func newTestStore(t *testing.T) *store.LibSQLStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "maintenance.db")
	s, err := store.NewLibSQLStore("file:" + dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedGraph(t *testing.T, s *store.LibSQLStore, name string) *store.Graph {
	t.Helper()
	g := &store.Graph{ID: uuid.New().String(), Name: name}
	require.NoError(t, s.CreateGraph(context.Background(), g))
	return g
}

func seedSnapshots(t *testing.T, s *store.LibSQLStore, graphID string, count int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < count; i++ {
		snap := schema.Snapshot{
			Nodes: []schema.Node{{ID: fmt.Sprintf("n%d", i), Detail: schema.StepDetail{}}},
		}
		_, err := s.SaveSnapshot(ctx, graphID, snap, "")
		require.NoError(t, err)
	}
}

func seedEvent(t *testing.T, s *store.LibSQLStore, graphID string, age time.Duration) {
	t.Helper()
	err := s.AppendOperationEvent(context.Background(), &store.OperationEvent{
		OperationID: uuid.New().String(),
		GraphID:     graphID,
		Type:        store.EventSnapshotSaved,
		Timestamp:   time.Now().UTC().Add(-age),
	})
	require.NoError(t, err)
}

func TestSweepPrunesOldEventsAndExtraSnapshots(t *testing.T) {
	s := newTestStore(t)
	g := seedGraph(t, s, "checkout flow")

	seedSnapshots(t, s, g.ID, 7)
	seedEvent(t, s, g.ID, 45*24*time.Hour)
	seedEvent(t, s, g.ID, 40*24*time.Hour)
	seedEvent(t, s, g.ID, time.Hour)

	j := NewJanitor(s, Config{
		EventRetention: 30 * 24 * time.Hour,
		SnapshotKeep:   3,
		Vacuum:         true,
	}, nil)

	report, err := j.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), report.EventsPruned)
	assert.Equal(t, int64(4), report.SnapshotsPruned)
	assert.Equal(t, 1, report.GraphsVisited)
	assert.True(t, report.Vacuumed)

	versions, err := s.ListSnapshotVersions(context.Background(), g.ID, 0)
	require.NoError(t, err)
	assert.Len(t, versions, 3)

	events, err := s.ListOperationEvents(context.Background(), store.OperationEventFilter{GraphID: g.ID})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSweepNothingToDo(t *testing.T) {
	s := newTestStore(t)
	g := seedGraph(t, s, "quiet graph")
	seedSnapshots(t, s, g.ID, 2)

	j := NewJanitor(s, Config{}, nil)

	report, err := j.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.EventsPruned)
	assert.Zero(t, report.SnapshotsPruned)
	assert.False(t, report.Vacuumed)
}

func TestSweepVisitsEveryGraph(t *testing.T) {
	s := newTestStore(t)
	a := seedGraph(t, s, "first")
	b := seedGraph(t, s, "second")
	seedSnapshots(t, s, a.ID, 5)
	seedSnapshots(t, s, b.ID, 5)

	j := NewJanitor(s, Config{SnapshotKeep: 2}, nil)

	report, err := j.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.GraphsVisited)
	assert.Equal(t, int64(6), report.SnapshotsPruned)
}

func TestNextRun(t *testing.T) {
	s := newTestStore(t)
	j := NewJanitor(s, Config{Schedule: "30 4 * * *"}, nil)

	from := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	next, err := j.NextRun(from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 11, 4, 30, 0, 0, time.UTC), next)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := newTestStore(t)
	j := NewJanitor(s, Config{Schedule: "not a cron line"}, nil)

	err := j.Start(context.Background())
	require.Error(t, err)
}

func TestStartAndStop(t *testing.T) {
	s := newTestStore(t)
	j := NewJanitor(s, Config{}, nil)

	require.NoError(t, j.Start(context.Background()))
	require.Error(t, j.Start(context.Background()))
	require.NoError(t, j.Stop())
	require.NoError(t, j.Stop())

	require.NoError(t, j.Start(context.Background()))
	require.NoError(t, j.Stop())
}

func TestStopWaitsOutActiveSweep(t *testing.T) {
	s := newTestStore(t)
	g := seedGraph(t, s, "busy graph")
	seedSnapshots(t, s, g.ID, 5)
	j := NewJanitor(s, Config{SnapshotKeep: 2}, nil)

	// Reconstruct the loop goroutine mid-cycle: cancellation arrives while
	// a sweep still has to re-take the mutex to clear its running flag.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	j.cancel = cancel
	j.done = done
	go func() {
		defer close(done)
		<-ctx.Done()
		_, _ = j.Sweep(context.Background())
	}()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		assert.NoError(t, j.Stop())
	}()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop blocked on a sweep that needs the janitor mutex")
	}
}
