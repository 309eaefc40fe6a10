package edgeutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/regraph/pkg/schema"
)

func stepNodes(ids ...string) []schema.Node {
	nodes := make([]schema.Node, len(ids))
	for i, id := range ids {
		nodes[i] = schema.Node{ID: id, Detail: schema.StepDetail{}}
	}
	return nodes
}

func edgeChain(pairs ...[2]string) []schema.Edge {
	edges := make([]schema.Edge, len(pairs))
	for i, p := range pairs {
		edges[i] = NewEdge(p[0], p[1], EdgeOptions{})
	}
	return edges
}

func TestDetectCycles_LinearChain(t *testing.T) {
	report := DetectCycles(stepNodes("a", "b", "c"),
		edgeChain([2]string{"a", "b"}, [2]string{"b", "c"}))
	assert.False(t, report.HasCycle)
	assert.Empty(t, report.Cycles)
}

func TestDetectCycles_DiamondReconvergence(t *testing.T) {
	report := DetectCycles(stepNodes("a", "b", "c", "d"), edgeChain(
		[2]string{"a", "b"}, [2]string{"a", "c"},
		[2]string{"b", "d"}, [2]string{"c", "d"}))
	assert.False(t, report.HasCycle, "reconvergence is not a cycle")
}

func TestDetectCycles_SimpleCycle(t *testing.T) {
	report := DetectCycles(stepNodes("a", "b", "c"), edgeChain(
		[2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"c", "a"}))
	require.True(t, report.HasCycle)
	require.Len(t, report.Cycles, 1)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, report.Cycles[0])
}

func TestDetectCycles_SelfLoop(t *testing.T) {
	report := DetectCycles(stepNodes("a"), []schema.Edge{{ID: "e", Source: "a", Target: "a"}})
	require.True(t, report.HasCycle)
	require.Len(t, report.Cycles, 1)
	assert.Equal(t, []string{"a"}, report.Cycles[0])
}

func TestDetectCycles_IndependentCyclesAllReported(t *testing.T) {
	// Two disjoint cycles plus an acyclic tail.
	nodes := stepNodes("a", "b", "x", "y", "z", "t")
	edges := edgeChain(
		[2]string{"a", "b"}, [2]string{"b", "a"},
		[2]string{"x", "y"}, [2]string{"y", "z"}, [2]string{"z", "x"},
		[2]string{"a", "t"})

	report := DetectCycles(nodes, edges)
	require.True(t, report.HasCycle)
	require.Len(t, report.Cycles, 2, "search continues past the first cycle")

	var sizes []int
	for _, c := range report.Cycles {
		sizes = append(sizes, len(c))
	}
	assert.ElementsMatch(t, []int{2, 3}, sizes)
}

func TestDetectCycles_EmptyGraph(t *testing.T) {
	report := DetectCycles(nil, nil)
	assert.False(t, report.HasCycle)
}

func TestDetectCycles_DeepChainNoStackOverflow(t *testing.T) {
	// 50k-node chain; explicit-stack DFS must not blow the goroutine stack.
	const n = 50_000
	nodes := make([]schema.Node, n)
	edges := make([]schema.Edge, 0, n-1)
	prev := ""
	for i := 0; i < n; i++ {
		id := nodeID(i)
		nodes[i] = schema.Node{ID: id, Detail: schema.StepDetail{}}
		if prev != "" {
			edges = append(edges, NewEdge(prev, id, EdgeOptions{}))
		}
		prev = id
	}

	report := DetectCycles(nodes, edges)
	assert.False(t, report.HasCycle)
}

func nodeID(i int) string {
	// Zero-padded so lexical sort matches chain order.
	const digits = "0123456789"
	buf := []byte{'n', '0', '0', '0', '0', '0'}
	for pos := len(buf) - 1; i > 0 && pos > 0; pos-- {
		buf[pos] = digits[i%10]
		i /= 10
	}
	return string(buf)
}
