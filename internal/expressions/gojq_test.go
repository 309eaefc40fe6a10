package expressions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/regraph/pkg/schema"
)

func snapshotDoc() map[string]any {
	return map[string]any{
		"nodes": []any{
			map[string]any{"id": "a", "data": map[string]any{"variant": "default"}},
			map[string]any{"id": "b", "data": map[string]any{"variant": "branch"}},
			map[string]any{"id": "c", "data": map[string]any{"variant": "end"}},
		},
		"edges": []any{
			map[string]any{"id": "edge-a-b", "source": "a", "target": "b"},
			map[string]any{"id": "edge-b-c", "source": "b", "target": "c"},
		},
	}
}

func TestNewGoJQEngine(t *testing.T) {
	e := NewGoJQEngine()
	assert.Equal(t, "jq", e.Name())
}

func TestGoJQ_SnapshotQueries(t *testing.T) {
	e := NewGoJQEngine()
	ctx := context.Background()

	t.Run("count nodes", func(t *testing.T) {
		out, err := e.Evaluate(ctx, `.nodes | length`, snapshotDoc())
		require.NoError(t, err)
		assert.Equal(t, 3, out)
	})

	t.Run("filter by variant", func(t *testing.T) {
		out, err := e.Evaluate(ctx, `[.nodes[] | select(.data.variant == "branch") | .id]`, snapshotDoc())
		require.NoError(t, err)
		assert.Equal(t, []any{"b"}, out)
	})

	t.Run("multiple outputs collected", func(t *testing.T) {
		out, err := e.Evaluate(ctx, `.edges[].source`, snapshotDoc())
		require.NoError(t, err)
		assert.Equal(t, []any{"a", "b"}, out)
	})

	t.Run("no output", func(t *testing.T) {
		out, err := e.Evaluate(ctx, `.nodes[] | select(.id == "ghost")`, snapshotDoc())
		require.NoError(t, err)
		assert.Nil(t, out)
	})
}

func TestGoJQ_EvaluateAll(t *testing.T) {
	e := NewGoJQEngine()

	out, err := e.EvaluateAll(context.Background(), `.nodes[].id`, snapshotDoc())
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, out)
}

func TestGoJQ_NumberNormalization(t *testing.T) {
	e := NewGoJQEngine()

	data := map[string]any{"counts": map[string]any{"nodes": 3}}
	out, err := e.Evaluate(context.Background(), `.counts.nodes + 1`, data)
	require.NoError(t, err)
	assert.Equal(t, 4.0, out)
}

func TestGoJQ_Errors(t *testing.T) {
	e := NewGoJQEngine()
	ctx := context.Background()

	_, err := e.Evaluate(ctx, "", snapshotDoc())
	require.Error(t, err)

	_, err = e.Evaluate(ctx, `.nodes[`, snapshotDoc())
	require.Error(t, err)
	var ge *schema.GraphError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, schema.ErrCodeValidation, ge.Code)

	// Runtime failure: iterating a scalar.
	_, err = e.Evaluate(ctx, `.nodes[0].id[]`, snapshotDoc())
	require.Error(t, err)
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, schema.ErrCodeExpression, ge.Code)
}

func TestGoJQ_EnvironBlocked(t *testing.T) {
	e := NewGoJQEngine()

	out, err := e.Evaluate(context.Background(), `env | length`, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, 0, out)
}
