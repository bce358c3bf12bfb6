package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dusk-indust/cxxgraph/internal/export"
	"github.com/dusk-indust/cxxgraph/internal/graph"
)

// ExportCmd writes the graph as Mermaid or JSON.
type ExportCmd struct {
	Format string   `short:"F" enum:"mermaid,json" default:"mermaid" help:"Output format (mermaid, json)."`
	Output string   `short:"o" type:"path" help:"Output file (default: stdout)."`
	Labels []string `help:"Vertex labels drawn in Mermaid output (default: records)."`
	Edges  []string `help:"Edge labels drawn in Mermaid output (default: inherits, contains_inner)."`
}

// Run executes the export command.
func (c *ExportCmd) Run(ctx context.Context, g *Globals) error {
	store, err := g.openStore(false)
	if err != nil {
		return err
	}
	defer store.Close()

	var w io.Writer = g.out
	if c.Output != "" {
		f, err := os.Create(c.Output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	if c.Format == "json" {
		data, err := export.ExportGraph(ctx, store)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		return export.WriteJSON(w, data)
	}

	opts := export.MermaidOptions{}
	for _, l := range c.Labels {
		opts.Labels = append(opts.Labels, graph.Label(l))
	}
	for _, e := range c.Edges {
		opts.Edges = append(opts.Edges, graph.EdgeLabel(e))
	}
	mermaid, err := export.GenerateMermaid(ctx, store, opts)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, mermaid)
	return err
}
