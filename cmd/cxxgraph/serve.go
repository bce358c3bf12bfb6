package main

import (
	"context"
	"fmt"

	"github.com/dusk-indust/cxxgraph/internal/advisor"
	"github.com/dusk-indust/cxxgraph/internal/cxx"
	"github.com/dusk-indust/cxxgraph/internal/mcptools"
)

// ServeMCPCmd runs the MCP server over the configured store.
type ServeMCPCmd struct {
	LLMFlags `embed:""`
	Addr     string `help:"Listen address for streamable HTTP, e.g. :8080. Empty serves stdio."`
	NoLLM    bool   `name:"no-llm" help:"Do not register a language model; ask_codebase then fails."`
}

// Run executes the serve-mcp command.
func (c *ServeMCPCmd) Run(ctx context.Context, g *Globals) error {
	store, err := g.openStore(true)
	if err != nil {
		return fmt.Errorf("open graph: %w", err)
	}
	defer store.Close()

	opts := (&IndexCmd{}).options(g)
	parser := cxx.New(cxx.WithRepoRoot(opts.RepoRoot))
	defer parser.Close()

	var adv *advisor.Advisor
	if !c.NoLLM {
		adv = advisor.New(store, c.completer(g), g.log)
	}
	svc := mcptools.NewCodeIntelService(store, parser, adv, g.log)
	svc.SetIndexOptions(opts, g.cfg.ParserFlags(), g.cfg.Workers)

	if c.Addr == "" {
		g.log.Info("mcp.serve", "transport", "stdio")
		return mcptools.RunMCPServerStdio(ctx, svc)
	}
	g.log.Info("mcp.serve", "transport", "http", "addr", c.Addr)
	return mcptools.RunMCPServer(ctx, svc, c.Addr)
}
