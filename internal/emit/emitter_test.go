package emit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/cxxgraph/internal/graph"
)

// failingStore rejects writes for the keys in fail.
type failingStore struct {
	*graph.MemStore
	fail map[string]bool
}

var errBackend = errors.New("backend unavailable")

func (f *failingStore) UpsertVertex(ctx context.Context, v graph.Vertex) error {
	if f.fail[v.Key] {
		return errBackend
	}
	return f.MemStore.UpsertVertex(ctx, v)
}

func (f *failingStore) UpsertEdge(ctx context.Context, e graph.Edge) error {
	if f.fail[e.To] {
		return errBackend
	}
	return f.MemStore.UpsertEdge(ctx, e)
}

func vertex(key string) graph.Vertex {
	return graph.Vertex{Label: graph.LabelClass, Key: key, Props: graph.Props{graph.PropName: key}}
}

func TestUpsertVertex_Idempotent(t *testing.T) {
	store := graph.NewMemStore()
	e := New(store, nil)
	ctx := context.Background()

	created, err := e.UpsertVertex(ctx, vertex("c:@S@Base"))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = e.UpsertVertex(ctx, vertex("c:@S@Base"))
	require.NoError(t, err)
	assert.False(t, created)

	st, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.VertexCount)

	v, ok := store.Vertex("c:@S@Base")
	require.True(t, ok)
	assert.Equal(t, "c:@S@Base", v.Props[graph.PropKey], "key is always a property")

	c := e.Counters()
	assert.Equal(t, 1, c.VerticesCreated)
	assert.Equal(t, 1, c.VerticesExisting)
}

func TestUpsertVertex_CacheAvoidsExists(t *testing.T) {
	store := graph.NewMemStore()
	e := New(store, nil)
	ctx := context.Background()

	for range 5 {
		_, err := e.UpsertVertex(ctx, vertex("c:@N@ns"))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, store.ExistsCalls)
	assert.Equal(t, 1, store.Writes)
}

func TestUpsertVertex_ExistingInStore(t *testing.T) {
	store := graph.NewMemStore()
	ctx := context.Background()
	require.NoError(t, store.UpsertVertex(ctx, vertex("c:@S@Old")))

	e := New(store, nil)
	created, err := e.UpsertVertex(ctx, vertex("c:@S@Old"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, e.Known("c:@S@Old"), "a key found in the store counts as ensured")
	assert.Equal(t, 1, store.Writes, "no second write for a stored key")
}

func TestEnsureStub(t *testing.T) {
	store := graph.NewMemStore()
	e := New(store, nil)
	ctx := context.Background()

	created, err := e.EnsureStub(ctx, graph.LabelClass, "c:@N@std@S@string", graph.Props{graph.PropName: "string"})
	require.NoError(t, err)
	assert.True(t, created)

	v, ok := store.Vertex("c:@N@std@S@string")
	require.True(t, ok)
	assert.Equal(t, true, v.Props[graph.PropStub])
	assert.Equal(t, 1, e.Counters().Stubs)

	// A declaration created first wins over a later stub.
	_, err = e.UpsertVertex(ctx, vertex("c:@S@Base"))
	require.NoError(t, err)
	created, err = e.EnsureStub(ctx, graph.LabelClass, "c:@S@Base", nil)
	require.NoError(t, err)
	assert.False(t, created)
	v, _ = store.Vertex("c:@S@Base")
	assert.NotContains(t, v.Props, graph.PropStub)
}

func TestUpsertEdge_OrderingGuard(t *testing.T) {
	store := graph.NewMemStore()
	e := New(store, nil)
	ctx := context.Background()

	_, err := e.UpsertVertex(ctx, vertex("c:@S@Derived"))
	require.NoError(t, err)

	err = e.UpsertEdge(ctx, graph.Edge{From: "c:@S@Derived", Label: graph.EdgeInherits, To: "c:@S@Base"})
	require.ErrorIs(t, err, ErrEndpointMissing)
	var werr *graph.WriteError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, "edge", werr.Op)

	edges, err := store.Edges(ctx)
	require.NoError(t, err)
	assert.Empty(t, edges, "nothing reaches the store before both vertices exist")

	_, err = e.UpsertVertex(ctx, vertex("c:@S@Base"))
	require.NoError(t, err)
	require.NoError(t, e.UpsertEdge(ctx, graph.Edge{From: "c:@S@Derived", Label: graph.EdgeInherits, To: "c:@S@Base"}))

	c := e.Counters()
	assert.Equal(t, 1, c.EdgesRejected)
	assert.Equal(t, 1, c.EdgesWritten)
}

func TestUpsertEdge_NotDeduplicated(t *testing.T) {
	store := graph.NewMemStore()
	e := New(store, nil)
	ctx := context.Background()

	for _, k := range []string{"a", "b"} {
		_, err := e.UpsertVertex(ctx, vertex(k))
		require.NoError(t, err)
	}
	edge := graph.Edge{From: "a", Label: graph.EdgeContains, To: "b"}
	require.NoError(t, e.UpsertEdge(ctx, edge))
	require.NoError(t, e.UpsertEdge(ctx, edge))

	assert.Len(t, store.EdgesFrom("a", graph.EdgeContains), 2)
}

func TestWriteFailures(t *testing.T) {
	store := &failingStore{MemStore: graph.NewMemStore(), fail: map[string]bool{"bad": true}}
	e := New(store, nil)
	ctx := context.Background()

	_, err := e.UpsertVertex(ctx, vertex("bad"))
	var werr *graph.WriteError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, "vertex", werr.Op)
	assert.Equal(t, "bad", werr.Key)
	assert.ErrorIs(t, err, errBackend)
	assert.False(t, e.Known("bad"))

	// The failure does not poison later writes.
	created, err := e.UpsertVertex(ctx, vertex("good"))
	require.NoError(t, err)
	assert.True(t, created)

	c := e.Counters()
	assert.Equal(t, 1, c.VerticesFailed)
	assert.Equal(t, 1, c.VerticesCreated)
}

func TestCounters_Sub(t *testing.T) {
	a := Counters{VerticesCreated: 5, EdgesWritten: 3, Stubs: 1}
	b := Counters{VerticesCreated: 2, EdgesWritten: 1}
	assert.Equal(t, Counters{VerticesCreated: 3, EdgesWritten: 2, Stubs: 1}, a.Sub(b))
}
