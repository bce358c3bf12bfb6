//go:build cgo

package graph

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore creates a fresh in-memory KuzuStore with an initialized schema.
// It registers a cleanup function to close the store when the test finishes.
func newTestStore(t *testing.T) *KuzuStore {
	t.Helper()
	s, err := NewKuzuStore()
	require.NoError(t, err, "NewKuzuStore should not fail")
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.NoError(t, s.InitSchema(ctx), "InitSchema should not fail")
	return s
}

func TestKuzuStore_InitSchema(t *testing.T) {
	s, err := NewKuzuStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()

	// First call creates the tables.
	require.NoError(t, s.InitSchema(ctx))

	// Second call should be idempotent (IF NOT EXISTS).
	require.NoError(t, s.InitSchema(ctx))
}

func TestKuzuStore_Contract(t *testing.T) {
	s, err := NewKuzuStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	testStoreContract(t, s)
}

func TestKuzuStore_ExtraProps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertVertex(ctx, Vertex{
		Label: LabelTypeAlias,
		Key:   "c:@T@size_t",
		Props: Props{PropName: "size_t", "underlying": "unsigned long"},
	}))

	vs, err := s.Vertices(ctx)
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, "size_t", vs[0].Props[PropName])
	assert.Equal(t, "unsigned long", vs[0].Props["underlying"])
	_, hasLine := vs[0].Props[PropLine]
	assert.False(t, hasLine, "unset columns are not reported")
}

func TestKuzuStore_Query(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertVertex(ctx, Vertex{Label: LabelClass, Key: "c:@S@Base", Props: Props{PropName: "Base"}}))
	require.NoError(t, s.UpsertVertex(ctx, Vertex{Label: LabelClass, Key: "c:@S@Derived", Props: Props{PropName: "Derived"}}))
	require.NoError(t, s.UpsertEdge(ctx, Edge{From: "c:@S@Derived", Label: EdgeInherits, To: "c:@S@Base", PropKey: "access_specifier", PropValue: "public"}))

	assert.Equal(t, DialectCypher, s.Dialect())

	res, err := s.Query(ctx,
		"MATCH (d:Vertex)-[e:Edge {label: 'inherits'}]->(b:Vertex) RETURN d.name AS derived, b.name AS base, e.prop_value AS access")
	require.NoError(t, err)
	assert.Equal(t, []string{"derived", "base", "access"}, res.Columns)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, []any{"Derived", "Base", "public"}, res.Rows[0])

	_, err = s.Query(ctx, "THIS IS NOT CYPHER")
	assert.Error(t, err)
}

func TestKuzuStore_QueryIsReadOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertVertex(ctx, Vertex{Label: LabelClass, Key: "c:@S@A", Props: Props{PropName: "A"}}))

	for _, stmt := range []string{
		"MATCH (n:Vertex) DELETE n",
		"MATCH (n:Vertex) DETACH DELETE n",
		"DROP TABLE Edge",
		"CREATE (:Vertex {key: 'x'})",
		"MERGE (:Vertex {key: 'x'})",
		"MATCH (n:Vertex) SET n.name = 'z'",
	} {
		t.Run(stmt, func(t *testing.T) {
			_, err := s.Query(ctx, stmt)
			assert.ErrorIs(t, err, ErrReadOnly)
		})
	}

	ok, err := s.Exists(ctx, "c:@S@A")
	require.NoError(t, err)
	assert.True(t, ok)

	res, err := s.Query(ctx, "MATCH (n:Vertex) WHERE n.name <> 'DELETE me' RETURN n.name")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"A"}}, res.Rows)
}

func TestKuzuStore_EdgeNeedsEndpoints(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// MATCH finds nothing, so nothing is created.
	require.NoError(t, s.UpsertEdge(ctx, Edge{From: "missing-a", Label: EdgeContains, To: "missing-b"}))
	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.EdgeCount)
}

func TestKuzuFileStore_Persists(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "graph", "db")
	ctx := context.Background()

	s, err := NewKuzuFileStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.InitSchema(ctx))
	require.NoError(t, s.UpsertVertex(ctx, Vertex{Label: LabelNamespace, Key: "c:@N@app"}))
	require.NoError(t, s.Close())

	s, err = NewKuzuFileStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.InitSchema(ctx))

	ok, err := s.Exists(ctx, "c:@N@app")
	require.NoError(t, err)
	assert.True(t, ok)
}
