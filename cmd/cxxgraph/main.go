// Command cxxgraph indexes C and C++ translation units into a property graph
// of declarations and answers questions about it.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/dusk-indust/cxxgraph/internal/config"
)

// version is set by goreleaser at build time.
var version = "dev"

// Globals are the flags shared by every command.
type Globals struct {
	Verbose   bool   `short:"v" help:"Enable debug logging."`
	ConfigDir string `name:"config-dir" default:"." type:"existingdir" help:"Directory holding cxxgraph.yml."`
	Backend   string `help:"Graph store: kuzu, sqlite, badger or mem (default: config or kuzu)."`
	DB        string `name:"db" help:"Store location (default: .cxxgraph/<backend>)."`

	cfg *config.ProjectConfig
	out io.Writer
	log *slog.Logger
}

// CLI is the root command structure.
type CLI struct {
	Globals

	Version  kong.VersionFlag `help:"Show version information."`
	Index    IndexCmd         `cmd:"" help:"Index translation units into the graph."`
	Schema   SchemaCmd        `cmd:"" help:"Show the labels, edges and properties stored."`
	Query    QueryCmd         `cmd:"" help:"Run a query in the store's dialect."`
	Ask      AskCmd           `cmd:"" help:"Ask a question about the indexed code."`
	Export   ExportCmd        `cmd:"" help:"Export the graph as Mermaid or JSON."`
	ServeMCP ServeMCPCmd      `cmd:"" name:"serve-mcp" help:"Run the MCP server (stdio unless --addr is set)."`
	Show     VersionCmd       `cmd:"" name:"version" help:"Print the version."`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("cxxgraph"),
		kong.Description("Index the C/C++ AST into a property graph of declarations."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": version,
		},
		kong.Writers(out, os.Stderr),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	g := &cli.Globals
	g.out = out
	g.log = newLogger(g.Verbose)
	if g.cfg, err = config.Load(g.ConfigDir); err != nil {
		return err
	}
	return kctx.Run(g)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// VersionCmd prints the version.
type VersionCmd struct{}

// Run executes the version command.
func (c *VersionCmd) Run(g *Globals) error {
	_, err := fmt.Fprintln(g.out, version)
	return err
}
