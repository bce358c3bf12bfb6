package graph

import (
	"context"
	"errors"
	"io"
)

// ErrQueryUnsupported is returned by Query on stores without a query language.
var ErrQueryUnsupported = errors.New("graph: store does not support ad-hoc queries")

// Store is the interface for the declaration graph backend.
// Implementations: KuzuStore, SQLiteStore, BadgerStore, MemStore (testing).
// All graph access goes through this interface.
type Store interface {
	io.Closer

	// Schema setup, called once before any data is inserted.
	InitSchema(ctx context.Context) error

	// Exists reports whether a vertex with key is stored.
	Exists(ctx context.Context, key string) (bool, error)

	// Write operations. UpsertVertex leaves an existing vertex untouched;
	// UpsertEdge always appends.
	UpsertVertex(ctx context.Context, v Vertex) error
	UpsertEdge(ctx context.Context, e Edge) error

	// Query runs a traversal expression in the store's Dialect.
	Query(ctx context.Context, expr string) (*QueryResult, error)
	Dialect() Dialect

	// Introspection for schema summaries.
	VertexLabels(ctx context.Context) ([]Label, error)
	OutEdgeLabels(ctx context.Context, label Label) ([]EdgeLabel, error)
	PropertyKeys(ctx context.Context, label Label) ([]string, error)

	// Enumeration for export.
	Vertices(ctx context.Context) ([]Vertex, error)
	Edges(ctx context.Context) ([]Edge, error)

	Stats(ctx context.Context) (*GraphStats, error)
}
