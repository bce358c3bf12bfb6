// Package export renders a stored code graph as Mermaid or JSON.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dusk-indust/cxxgraph/internal/graph"
)

// GraphExport is the top-level JSON export structure.
type GraphExport struct {
	ExportedAt string           `json:"exportedAt"`
	Stats      graph.GraphStats `json:"stats"`
	Vertices   []graph.Vertex   `json:"vertices"`
	Edges      []graph.Edge     `json:"edges"`
}

// ExportGraph reads every vertex and edge of store.
func ExportGraph(ctx context.Context, store graph.Store) (*GraphExport, error) {
	stats, err := store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	vertices, err := store.Vertices(ctx)
	if err != nil {
		return nil, fmt.Errorf("get vertices: %w", err)
	}
	edges, err := store.Edges(ctx)
	if err != nil {
		return nil, fmt.Errorf("get edges: %w", err)
	}
	return &GraphExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Stats:      *stats,
		Vertices:   vertices,
		Edges:      edges,
	}, nil
}

// WriteJSON writes the export as indented JSON.
func WriteJSON(w io.Writer, e *GraphExport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}
