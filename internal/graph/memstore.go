package graph

import (
	"context"
	"sort"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu       sync.RWMutex
	vertices map[string]Vertex
	order    []string // insertion order of vertex keys
	edges    []Edge

	// Writes counts UpsertVertex calls that reached the store, including
	// no-op calls for existing keys.
	Writes int
	// ExistsCalls counts Exists lookups.
	ExistsCalls int
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{vertices: make(map[string]Vertex)}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// Exists reports whether a vertex with key is stored.
func (m *MemStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExistsCalls++
	_, ok := m.vertices[key]
	return ok, nil
}

// UpsertVertex stores v unless its key is already present.
func (m *MemStore) UpsertVertex(_ context.Context, v Vertex) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Writes++
	if _, ok := m.vertices[v.Key]; ok {
		return nil
	}
	props := make(Props, len(v.Props))
	for k, val := range v.Props {
		props[k] = val
	}
	v.Props = props
	m.vertices[v.Key] = v
	m.order = append(m.order, v.Key)
	return nil
}

// UpsertEdge appends e.
func (m *MemStore) UpsertEdge(_ context.Context, e Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges = append(m.edges, e)
	return nil
}

// Query is not supported in memory.
func (m *MemStore) Query(_ context.Context, _ string) (*QueryResult, error) {
	return nil, ErrQueryUnsupported
}

// Dialect reports that MemStore has no query language.
func (m *MemStore) Dialect() Dialect { return DialectNone }

// Vertex returns the vertex stored under key.
func (m *MemStore) Vertex(key string) (Vertex, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vertices[key]
	return v, ok
}

// EdgesFrom returns the edges leaving key with the given label.
func (m *MemStore) EdgesFrom(key string, label EdgeLabel) []Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Edge
	for _, e := range m.edges {
		if e.From == key && e.Label == label {
			out = append(out, e)
		}
	}
	return out
}

// VertexLabels returns the distinct vertex labels, sorted.
func (m *MemStore) VertexLabels(_ context.Context) ([]Label, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := map[Label]bool{}
	for _, v := range m.vertices {
		set[v.Label] = true
	}
	return sortedKeys(set), nil
}

// OutEdgeLabels returns the distinct labels of edges leaving vertices of
// the given label, sorted.
func (m *MemStore) OutEdgeLabels(_ context.Context, label Label) ([]EdgeLabel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := map[EdgeLabel]bool{}
	for _, e := range m.edges {
		if v, ok := m.vertices[e.From]; ok && v.Label == label {
			set[e.Label] = true
		}
	}
	return sortedKeys(set), nil
}

// PropertyKeys returns the property keys of the first stored vertex with
// the given label, sorted.
func (m *MemStore) PropertyKeys(_ context.Context, label Label) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, key := range m.order {
		v := m.vertices[key]
		if v.Label != label {
			continue
		}
		set := map[string]bool{PropKey: true}
		for k := range v.Props {
			set[k] = true
		}
		return sortedKeys(set), nil
	}
	return nil, nil
}

// Vertices returns all vertices in insertion order.
func (m *MemStore) Vertices(_ context.Context) ([]Vertex, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Vertex, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, m.vertices[k])
	}
	return out, nil
}

// Edges returns a copy of all edges in the store.
func (m *MemStore) Edges(_ context.Context) ([]Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Edge, len(m.edges))
	copy(out, m.edges)
	return out, nil
}

// Stats returns vertex and edge counts.
func (m *MemStore) Stats(_ context.Context) (*GraphStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	by := make(map[Label]int)
	for _, v := range m.vertices {
		by[v.Label]++
	}
	return &GraphStats{
		VertexCount: len(m.vertices),
		EdgeCount:   len(m.edges),
		ByLabel:     by,
	}, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}

// sortEdges orders edges by (from, label, to) for deterministic output.
func sortEdges(edges []Edge) {
	sort.SliceStable(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.Label != b.Label {
			return a.Label < b.Label
		}
		return a.To < b.To
	})
}
