// Package advisor answers natural-language questions about an indexed
// codebase: it summarizes the graph schema, asks a language model for a
// query, runs it against the store and asks the model to explain the rows.
package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/cxxgraph/internal/graph"
)

// LabelSchema is what the store holds for one vertex label.
type LabelSchema struct {
	Label      graph.Label       `json:"label"`
	EdgeLabels []graph.EdgeLabel `json:"edgeLabels"`
	Properties []string          `json:"properties"`
}

// Schema is the observed shape of a stored graph.
type Schema struct {
	Dialect graph.Dialect `json:"dialect"`
	Labels  []LabelSchema `json:"labels"`
}

// ReadSchema introspects store: every vertex label with the distinct
// outgoing edge labels and property keys seen on it.
func ReadSchema(ctx context.Context, store graph.Store) (*Schema, error) {
	labels, err := store.VertexLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("advisor: vertex labels: %w", err)
	}
	s := &Schema{Dialect: store.Dialect(), Labels: make([]LabelSchema, 0, len(labels))}
	for _, l := range labels {
		edges, err := store.OutEdgeLabels(ctx, l)
		if err != nil {
			return nil, fmt.Errorf("advisor: edge labels of %s: %w", l, err)
		}
		props, err := store.PropertyKeys(ctx, l)
		if err != nil {
			return nil, fmt.Errorf("advisor: properties of %s: %w", l, err)
		}
		s.Labels = append(s.Labels, LabelSchema{Label: l, EdgeLabels: edges, Properties: props})
	}
	return s, nil
}

// String renders the summary the query prompt embeds.
func (s *Schema) String() string {
	var sb strings.Builder
	for _, l := range s.Labels {
		edges := make([]string, len(l.EdgeLabels))
		for i, e := range l.EdgeLabels {
			edges[i] = string(e)
		}
		fmt.Fprintf(&sb, "- `%s` vertices can have the following edges: %s\n", l.Label, orNone(edges))
		fmt.Fprintf(&sb, "  `%s` vertices have the following properties: %s\n", l.Label, orNone(l.Properties))
	}
	return sb.String()
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
