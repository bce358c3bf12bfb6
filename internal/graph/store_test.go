package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStoreContract runs the behaviour every Store implementation shares.
func testStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.InitSchema(ctx))

	base := Vertex{Label: LabelClass, Key: "c:@S@Base", Props: Props{
		PropKey: "c:@S@Base", PropKind: "CLASS_DECL", PropName: "Base",
		PropFile: "include_d.h", PropLine: 1, "is_exported": true,
	}}
	derived := Vertex{Label: LabelClass, Key: "c:@S@Derived", Props: Props{
		PropKind: "CLASS_DECL", PropName: "Derived", PropLine: 2,
	}}
	method := Vertex{Label: LabelFunction, Key: "c:@S@Derived@F@m__", Props: Props{
		PropKind: "CXX_METHOD", PropName: "m", "is_virtual": false, "access_specifier": "private",
	}}

	t.Run("exists before and after upsert", func(t *testing.T) {
		ok, err := s.Exists(ctx, base.Key)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.UpsertVertex(ctx, base))
		ok, err = s.Exists(ctx, base.Key)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("upsert is idempotent", func(t *testing.T) {
		changed := base
		changed.Props = Props{PropName: "Other"}
		require.NoError(t, s.UpsertVertex(ctx, changed))

		vs, err := s.Vertices(ctx)
		require.NoError(t, err)
		require.Len(t, vs, 1)
		assert.Equal(t, "Base", vs[0].Props[PropName], "existing vertex must be left untouched")
		assert.Equal(t, 1, vs[0].Props[PropLine])
		assert.Equal(t, true, vs[0].Props["is_exported"])
	})

	require.NoError(t, s.UpsertVertex(ctx, derived))
	require.NoError(t, s.UpsertVertex(ctx, method))

	t.Run("edges append", func(t *testing.T) {
		inh := Edge{From: derived.Key, Label: EdgeInherits, To: base.Key, PropKey: "access_specifier", PropValue: "public"}
		require.NoError(t, s.UpsertEdge(ctx, inh))
		require.NoError(t, s.UpsertEdge(ctx, Edge{From: derived.Key, Label: EdgeContainsMethod, To: method.Key}))
		require.NoError(t, s.UpsertEdge(ctx, inh))

		edges, err := s.Edges(ctx)
		require.NoError(t, err)
		assert.Len(t, edges, 3, "edges are not deduplicated")
		assert.Contains(t, edges, inh)
	})

	t.Run("introspection", func(t *testing.T) {
		labels, err := s.VertexLabels(ctx)
		require.NoError(t, err)
		assert.Equal(t, []Label{LabelClass, LabelFunction}, labels)

		out, err := s.OutEdgeLabels(ctx, LabelClass)
		require.NoError(t, err)
		assert.Equal(t, []EdgeLabel{EdgeContainsMethod, EdgeInherits}, out)

		out, err = s.OutEdgeLabels(ctx, LabelFunction)
		require.NoError(t, err)
		assert.Empty(t, out)

		keys, err := s.PropertyKeys(ctx, LabelClass)
		require.NoError(t, err)
		assert.Subset(t, keys, []string{PropKey, PropKind, PropName, PropLine})

		keys, err = s.PropertyKeys(ctx, LabelEnum)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("stats", func(t *testing.T) {
		st, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, st.VertexCount)
		assert.Equal(t, 3, st.EdgeCount)
		assert.Equal(t, 2, st.ByLabel[LabelClass])
		assert.Equal(t, 1, st.ByLabel[LabelFunction])
	})
}

func TestMemStore_Contract(t *testing.T) {
	testStoreContract(t, NewMemStore())
}

func TestMemStore_QueryUnsupported(t *testing.T) {
	s := NewMemStore()
	_, err := s.Query(context.Background(), "MATCH (n) RETURN n")
	assert.ErrorIs(t, err, ErrQueryUnsupported)
	assert.Equal(t, DialectNone, s.Dialect())
}

func TestMemStore_Counters(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	v := Vertex{Label: LabelNamespace, Key: "c:@N@n"}
	require.NoError(t, s.UpsertVertex(ctx, v))
	require.NoError(t, s.UpsertVertex(ctx, v))
	_, _ = s.Exists(ctx, v.Key)

	assert.Equal(t, 2, s.Writes)
	assert.Equal(t, 1, s.ExistsCalls)

	got, ok := s.Vertex(v.Key)
	require.True(t, ok)
	assert.Equal(t, LabelNamespace, got.Label)
}

func TestMemStore_EdgesFrom(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	require.NoError(t, s.UpsertEdge(ctx, Edge{From: "a", Label: EdgeContains, To: "b"}))
	require.NoError(t, s.UpsertEdge(ctx, Edge{From: "a", Label: EdgeDeclares, To: "c"}))
	require.NoError(t, s.UpsertEdge(ctx, Edge{From: "b", Label: EdgeContains, To: "c"}))

	got := s.EdgesFrom("a", EdgeContains)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].To)
}

func TestBadgerStore_Contract(t *testing.T) {
	s, err := NewBadgerStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	testStoreContract(t, s)
}

func TestBadgerStore_Persists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewBadgerStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.UpsertVertex(ctx, Vertex{Label: LabelFile, Key: "file@src_a.cpp"}))
	require.NoError(t, s.UpsertEdge(ctx, Edge{From: "tu@src_a.cpp", Label: EdgeIncludes, To: "file@src_a.cpp"}))
	require.NoError(t, s.Close())

	s, err = NewBadgerStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ok, err := s.Exists(ctx, "file@src_a.cpp")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.UpsertEdge(ctx, Edge{From: "tu@src_a.cpp", Label: EdgeIncludes, To: "file@src_b.h"}))
	edges, err := s.Edges(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, "file@src_a.cpp", edges[0].To, "edges keep insertion order across reopen")
}

func TestQueryResult_Maps(t *testing.T) {
	r := &QueryResult{Columns: []string{"name", "line"}, Rows: [][]any{{"Base", 1}, {"Derived"}}}
	got := r.Maps()
	require.Len(t, got, 2)
	assert.Equal(t, map[string]any{"name": "Base", "line": 1}, got[0])
	assert.Equal(t, map[string]any{"name": "Derived"}, got[1])
}

func TestWriteError(t *testing.T) {
	err := &WriteError{Op: "edge", Key: "a->b", Err: ErrQueryUnsupported}
	assert.ErrorIs(t, err, ErrQueryUnsupported)
	assert.Contains(t, err.Error(), "write edge a->b")
}
