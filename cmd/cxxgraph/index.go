package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fatih/color"

	"github.com/dusk-indust/cxxgraph/internal/cxx"
	"github.com/dusk-indust/cxxgraph/internal/discover"
	"github.com/dusk-indust/cxxgraph/internal/emit"
	"github.com/dusk-indust/cxxgraph/internal/index"
)

// IndexCmd indexes translation units into the graph.
type IndexCmd struct {
	Paths      []string `arg:"" optional:"" help:"Artifacts (.i, .ii), sources, or directories searched for artifacts." type:"path"`
	Sources    bool     `help:"Search directories for C/C++ sources instead of preprocessed artifacts."`
	Flag       []string `short:"f" help:"Compiler flag passed to the front end (repeatable), e.g. -f=-xc."`
	RepoRoot   string   `help:"Make file identifiers relative to this directory."`
	Exclude    []string `help:"Path prefix never emitted (repeatable)."`
	Workers    int      `help:"Concurrent parses (default: number of CPUs)."`
	SkipLocals bool     `help:"Do not index declarations inside function bodies."`
	SkipNode   bool     `help:"On an unresolvable location skip only the node, not its subtree."`
}

// options merges flags over the project config.
func (c *IndexCmd) options(g *Globals) index.Options {
	opts := index.Options{
		RepoRoot:              c.RepoRoot,
		SkipLocalDeclarations: c.SkipLocals || g.cfg.SkipLocalDeclarations,
		SkipNodeOnly:          c.SkipNode || g.cfg.SkipNodeOnly,
	}
	if opts.RepoRoot == "" {
		opts.RepoRoot = g.cfg.RepoRoot
	}
	if opts.RepoRoot == "" {
		opts.RepoRoot, _ = os.Getwd()
	}
	if len(c.Exclude) > 0 || len(g.cfg.Exclude) > 0 {
		opts.Exclude = append(append([]string(nil), g.cfg.Exclude...), c.Exclude...)
	}
	return opts
}

// units expands directories into the translation units under them.
func (c *IndexCmd) units(g *Globals) ([]string, error) {
	paths := c.Paths
	if len(paths) == 0 {
		paths = []string{"."}
	}
	dopts := discover.Options{Extensions: g.cfg.Extensions, Ignore: g.cfg.Ignore}
	if c.Sources {
		dopts.Extensions = discover.SourceExtensions
	}
	var units []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("accessing %s: %w", p, err)
		}
		if !info.IsDir() {
			abs, err := filepath.Abs(p)
			if err != nil {
				return nil, err
			}
			units = append(units, abs)
			continue
		}
		found, err := discover.TranslationUnits(p, dopts)
		if err != nil {
			return nil, fmt.Errorf("discover %s: %w", p, err)
		}
		units = append(units, found...)
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("no translation units found")
	}
	return units, nil
}

// Run executes the index command.
func (c *IndexCmd) Run(ctx context.Context, g *Globals) error {
	units, err := c.units(g)
	if err != nil {
		return err
	}

	store, err := g.openStore(true)
	if err != nil {
		return fmt.Errorf("open graph: %w", err)
	}
	defer store.Close()
	if err := store.InitSchema(ctx); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	opts := c.options(g)
	parser := cxx.New(cxx.WithRepoRoot(opts.RepoRoot))
	defer parser.Close()

	workers := c.Workers
	if workers == 0 {
		workers = g.cfg.Workers
	}
	runner := &index.Runner{
		Parser:  parser,
		Emitter: emit.New(store, g.log),
		Logger:  g.log,
		Options: opts,
		Flags:   append(g.cfg.ParserFlags(), c.Flag...),
		Workers: workers,
	}
	color.New(color.FgGreen).Fprintf(g.out, "Indexing %d translation units\n", len(units))
	report, err := runner.IndexAll(ctx, units)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}
	printReport(g, report)
	return nil
}

func printReport(g *Globals, report *index.Report) {
	t := report.Total
	color.New(color.FgGreen).Fprintf(g.out, "✓ Indexing complete\n")
	fmt.Fprintf(g.out, "  Units:          %d\n", len(report.Summaries))
	fmt.Fprintf(g.out, "  Nodes:          %d\n", t.Nodes)
	fmt.Fprintf(g.out, "  Vertices:       %d (%d stubs, %d existing)\n", t.Emitted.VerticesCreated, t.Emitted.Stubs, t.Emitted.VerticesExisting)
	fmt.Fprintf(g.out, "  Edges:          %d\n", t.Emitted.EdgesWritten)
	fmt.Fprintf(g.out, "  Duration:       %.2fs\n", t.Elapsed.Seconds())

	if n := t.Failures(); n > 0 {
		warn := color.New(color.FgYellow)
		warn.Fprintf(g.out, "  Node failures:  %d\n", n)
		classes := make([]string, 0, len(t.Errors))
		for c := range t.Errors {
			classes = append(classes, string(c))
		}
		sort.Strings(classes)
		for _, c := range classes {
			fmt.Fprintf(g.out, "    %-22s %d\n", c, t.Errors[index.ErrorClass(c)])
		}
	}
	if len(report.Failed) > 0 {
		bad := color.New(color.FgRed)
		bad.Fprintf(g.out, "  Failed units:   %d\n", len(report.Failed))
		paths := make([]string, 0, len(report.Failed))
		for p := range report.Failed {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			fmt.Fprintf(g.out, "    %s: %v\n", p, report.Failed[p])
		}
	}
}
