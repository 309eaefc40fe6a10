package edgeutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathsBetween_SinglePath(t *testing.T) {
	edges := edgeChain([2]string{"a", "b"}, [2]string{"b", "c"})
	paths := PathsBetween("a", "c", edges, 10)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{"a", "b", "c"}, paths[0])
}

func TestPathsBetween_MultiplePaths(t *testing.T) {
	edges := edgeChain(
		[2]string{"a", "b"}, [2]string{"a", "c"},
		[2]string{"b", "d"}, [2]string{"c", "d"})
	paths := PathsBetween("a", "d", edges, 10)
	require.Len(t, paths, 2)
	assert.ElementsMatch(t, [][]string{
		{"a", "b", "d"},
		{"a", "c", "d"},
	}, paths)
}

func TestPathsBetween_DepthCap(t *testing.T) {
	edges := edgeChain([2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"c", "d"})
	assert.Empty(t, PathsBetween("a", "d", edges, 2), "path needs 3 hops")
	assert.Len(t, PathsBetween("a", "d", edges, 3), 1)
}

func TestPathsBetween_SimplePathsOnly(t *testing.T) {
	// The cycle b->c->b must not be walked twice within one path.
	edges := edgeChain(
		[2]string{"a", "b"}, [2]string{"b", "c"},
		[2]string{"c", "b"}, [2]string{"c", "d"})
	paths := PathsBetween("a", "d", edges, 10)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{"a", "b", "c", "d"}, paths[0])
}

func TestPathsBetween_NoPath(t *testing.T) {
	edges := edgeChain([2]string{"a", "b"})
	assert.Empty(t, PathsBetween("b", "a", edges, 10))
}

func TestPathsBetween_SourceIsTarget(t *testing.T) {
	paths := PathsBetween("a", "a", nil, 10)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{"a"}, paths[0])
}

func TestPathsBetween_DefaultDepth(t *testing.T) {
	edges := edgeChain([2]string{"a", "b"})
	assert.Len(t, PathsBetween("a", "b", edges, 0), 1, "non-positive cap falls back to default")
}
