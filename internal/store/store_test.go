package store_test

import (
	"testing"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LadnerLab/Protein-Oligo/internal/store"
)

func chain(t *testing.T, ids ...string) *store.MemoryStore[string, string] {
	t.Helper()

	s := store.NewMemoryStore[string, string]()
	for _, id := range ids {
		require.NoError(t, s.AddVertex(id, id, graph.VertexProperties{}))
	}
	for i := 1; i < len(ids); i++ {
		require.NoError(t, s.AddEdge(ids[i-1], ids[i], graph.Edge[string]{Source: ids[i-1], Target: ids[i]}))
	}

	return s
}

func TestCreatesCycle(t *testing.T) {
	t.Parallel()

	s := chain(t, "a", "b", "c")

	tcs := map[string]struct {
		source, target string
		expected       bool
	}{
		"closing edge":  {source: "c", target: "a", expected: true},
		"self loop":     {source: "b", target: "b", expected: true},
		"forward edge":  {source: "a", target: "c", expected: false},
		"middle to top": {source: "b", target: "a", expected: true},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := s.CreatesCycle(tc.source, tc.target)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestCreatesCycleUnknownVertex(t *testing.T) {
	t.Parallel()

	s := chain(t, "a")
	_, err := s.CreatesCycle("a", "z")
	assert.True(t, errors.Is(err, graph.ErrVertexNotFound))
}

func TestSetVertexAttribute(t *testing.T) {
	t.Parallel()

	s := chain(t, "a")
	require.NoError(t, s.SetVertexAttribute("a", "job", "42"))

	_, props, err := s.Vertex("a")
	require.NoError(t, err)
	assert.Equal(t, "42", props.Attributes["job"])

	err = s.SetVertexAttribute("z", "job", "1")
	assert.True(t, errors.Is(err, graph.ErrVertexNotFound))
}

func TestPredecessors(t *testing.T) {
	t.Parallel()

	s := chain(t, "a", "b")
	require.NoError(t, s.AddVertex("c", "c", graph.VertexProperties{}))
	require.NoError(t, s.AddEdge("c", "b", graph.Edge[string]{Source: "c", Target: "b"}))

	preds, err := s.Predecessors("b")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "c"}, preds)
}

func TestRemoveVertex(t *testing.T) {
	t.Parallel()

	s := chain(t, "a", "b")
	assert.ErrorIs(t, s.RemoveVertex("a"), graph.ErrVertexHasEdges)

	require.NoError(t, s.RemoveEdge("a", "b"))
	require.NoError(t, s.RemoveVertex("a"))

	n, err := s.VertexCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
