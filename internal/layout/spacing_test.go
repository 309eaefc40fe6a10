package layout

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/regraph/internal/edgeutil"
	"github.com/rendis/regraph/pkg/schema"
)

func chainSnapshot() schema.Snapshot {
	return schema.Snapshot{
		Nodes: []schema.Node{
			nodeAt("a", 100, 0),
			nodeAt("b", 100, 10), // too close to a
			nodeAt("c", 100, 20), // too close to b
		},
		Edges: []schema.Edge{
			edgeutil.NewEdge("a", "b", edgeutil.EdgeOptions{}),
			edgeutil.NewEdge("b", "c", edgeutil.EdgeOptions{}),
		},
	}
}

func TestSpacer_EstimatedHeight(t *testing.T) {
	s := NewSpacer(SpacerOptions{})
	assert.Equal(t, NodeHeight, s.EstimatedHeight(schema.Node{Detail: schema.StepDetail{}}))
	assert.Equal(t, 170.0, s.EstimatedHeight(schema.Node{Detail: schema.BranchDetail{}}))
	assert.Equal(t, 80.0, s.EstimatedHeight(schema.Node{Detail: schema.EndDetail{}}))

	measured := NewSpacer(SpacerOptions{Measure: func(schema.Node) float64 { return 250 }})
	assert.Equal(t, 250.0, measured.EstimatedHeight(schema.Node{Detail: schema.StepDetail{}}))

	// Non-positive measurement falls back to the estimate.
	broken := NewSpacer(SpacerOptions{Measure: func(schema.Node) float64 { return -1 }})
	assert.Equal(t, NodeHeight, broken.EstimatedHeight(schema.Node{Detail: schema.StepDetail{}}))
}

func TestSpacer_NextPosition(t *testing.T) {
	s := NewSpacer(SpacerOptions{})
	prev := nodeAt("a", 100, 0)
	next := s.NextPosition(prev)
	assert.Equal(t, 100.0, next.X, "column preserved")
	assert.Equal(t, NodeHeight+MinimumGap, next.Y)
}

func TestSpacer_ReflowBelow(t *testing.T) {
	s := NewSpacer(SpacerOptions{})
	snap := chainSnapshot()

	nodes, touched := s.ReflowBelow("a", snap)
	require.ElementsMatch(t, []string{"b", "c"}, touched)

	byID := schema.NodeIndex(nodes)
	assert.Equal(t, NodeHeight+MinimumGap, byID["b"].Position.Y)
	assert.Greater(t, byID["c"].Position.Y, byID["b"].Position.Y)

	// Input untouched.
	assert.Equal(t, 10.0, snap.Nodes[1].Position.Y)
}

func TestSpacer_ReflowBelow_CycleTerminates(t *testing.T) {
	s := NewSpacer(SpacerOptions{})
	snap := schema.Snapshot{
		Nodes: []schema.Node{nodeAt("a", 0, 0), nodeAt("b", 0, 10)},
		Edges: []schema.Edge{
			{ID: "e1", Source: "a", Target: "b"},
			{ID: "e2", Source: "b", Target: "a"},
		},
	}
	assert.NotPanics(t, func() {
		_, touched := s.ReflowBelow("a", snap)
		assert.Equal(t, []string{"b"}, touched)
	})
}

func TestSpacer_ScheduleDebouncesAndApplies(t *testing.T) {
	s := NewSpacer(SpacerOptions{Debounce: 10 * time.Millisecond})
	defer s.Close()

	var mu sync.Mutex
	applies := 0
	done := make(chan struct{})

	ok := s.Schedule("a", chainSnapshot(), func(nodes []schema.Node) {
		mu.Lock()
		applies++
		mu.Unlock()
		close(done)
	})
	require.True(t, ok)

	// Second request for the same node before the window fires coalesces.
	require.True(t, s.Schedule("a", chainSnapshot(), func(nodes []schema.Node) {
		mu.Lock()
		applies++
		mu.Unlock()
		close(done)
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced pass never ran")
	}

	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, applies, "burst coalesced into one pass")
}

func TestSpacer_ReentrySuppressed(t *testing.T) {
	s := NewSpacer(SpacerOptions{Debounce: time.Millisecond})
	defer s.Close()

	done := make(chan struct{})
	var reentry, reentryTouched bool

	require.True(t, s.Schedule("a", chainSnapshot(), func(nodes []schema.Node) {
		// The pass is in flight: both the root and the repositioned nodes
		// must reject recursive scheduling.
		reentry = s.Schedule("a", chainSnapshot(), func([]schema.Node) {})
		reentryTouched = s.Schedule("b", chainSnapshot(), func([]schema.Node) {})
		close(done)
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pass never ran")
	}

	assert.False(t, reentry, "in-flight root suppressed")
	assert.False(t, reentryTouched, "in-flight follower suppressed")

	// After the pass completes, scheduling works again.
	assert.Eventually(t, func() bool {
		return s.Schedule("a", chainSnapshot(), nil)
	}, time.Second, 5*time.Millisecond)
}

func TestSpacer_CloseStopsWork(t *testing.T) {
	s := NewSpacer(SpacerOptions{Debounce: 50 * time.Millisecond})

	ran := false
	require.True(t, s.Schedule("a", chainSnapshot(), func([]schema.Node) { ran = true }))
	s.Close()

	assert.False(t, s.Schedule("a", chainSnapshot(), nil), "closed spacer rejects work")
	time.Sleep(80 * time.Millisecond)
	assert.False(t, ran, "pending pass cancelled by Close")
}
