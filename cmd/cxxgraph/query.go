package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/dusk-indust/cxxgraph/internal/advisor"
	"github.com/dusk-indust/cxxgraph/internal/graph"
)

// SchemaCmd prints the stored schema.
type SchemaCmd struct {
	JSON bool `help:"Print JSON."`
}

// Run executes the schema command.
func (c *SchemaCmd) Run(ctx context.Context, g *Globals) error {
	store, err := g.openStore(false)
	if err != nil {
		return err
	}
	defer store.Close()

	schema, err := advisor.ReadSchema(ctx, store)
	if err != nil {
		return err
	}
	if c.JSON {
		return writeJSON(g, schema)
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	color.New(color.Bold).Fprintf(g.out, "%d vertices, %d edges", stats.VertexCount, stats.EdgeCount)
	if schema.Dialect != graph.DialectNone {
		fmt.Fprintf(g.out, " (query dialect: %s)", schema.Dialect)
	}
	fmt.Fprintln(g.out)
	fmt.Fprint(g.out, schema.String())
	return nil
}

// QueryCmd runs a query in the store's dialect.
type QueryCmd struct {
	Expr  string `arg:"" help:"Cypher (kuzu) or SQL (sqlite) query."`
	Limit int    `short:"n" default:"50" help:"Maximum rows printed."`
	JSON  bool   `help:"Print JSON."`
}

// Run executes the query command.
func (c *QueryCmd) Run(ctx context.Context, g *Globals) error {
	store, err := g.openStore(false)
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := store.Query(ctx, c.Expr)
	if err != nil {
		return err
	}
	if c.JSON {
		return writeJSON(g, res.Maps())
	}
	printRows(g, res, c.Limit)
	return nil
}

func printRows(g *Globals, res *graph.QueryResult, limit int) {
	if len(res.Rows) == 0 {
		fmt.Fprintln(g.out, "No results found")
		return
	}
	tw := tabwriter.NewWriter(g.out, 0, 4, 2, ' ', 0)
	for i, col := range res.Columns {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, col)
	}
	fmt.Fprintln(tw)
	for i, row := range res.Rows {
		if limit > 0 && i == limit {
			break
		}
		for j, v := range row {
			if j > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, v)
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
	if limit > 0 && len(res.Rows) > limit {
		fmt.Fprintf(g.out, "... (%d more rows)\n", len(res.Rows)-limit)
	}
}

// LLMFlags configure the chat completions endpoint.
type LLMFlags struct {
	Endpoint   string `help:"Chat completions API root, e.g. https://api.openai.com/v1."`
	Model      string `help:"Model, or deployment name on Azure."`
	APIVersion string `name:"api-version" help:"Azure OpenAI API version; selects the Azure URL layout."`
	APIKey     string `name:"api-key" env:"CXXGRAPH_LLM_API_KEY" help:"API key."`
}

const (
	defaultEndpoint = "https://api.openai.com/v1"
	defaultModel    = "gpt-4o"
)

// completer builds the chat client from flags, then config.
func (f *LLMFlags) completer(g *Globals) advisor.Completer {
	endpoint, model, apiVersion := f.Endpoint, f.Model, f.APIVersion
	if endpoint == "" {
		endpoint = g.cfg.LLM.Endpoint
	}
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if model == "" {
		model = g.cfg.LLM.Model
	}
	if model == "" {
		model = defaultModel
	}
	if apiVersion == "" {
		apiVersion = g.cfg.LLM.APIVersion
	}
	opts := []advisor.ClientOption{advisor.WithAPIKey(f.APIKey)}
	if apiVersion != "" {
		opts = append(opts, advisor.WithAzureAPIVersion(apiVersion))
	}
	return advisor.NewChatClient(endpoint, model, opts...)
}

// AskCmd answers a question about the indexed code.
type AskCmd struct {
	LLMFlags  `embed:""`
	Question  string `arg:"" help:"Question about the code."`
	ShowQuery bool   `help:"Print the generated query and its rows."`
	JSON      bool   `help:"Print JSON."`
}

// Run executes the ask command.
func (c *AskCmd) Run(ctx context.Context, g *Globals) error {
	store, err := g.openStore(false)
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := advisor.New(store, c.completer(g), g.log).Ask(ctx, c.Question)
	if err != nil {
		return err
	}
	if c.JSON {
		return writeJSON(g, res)
	}
	if c.ShowQuery {
		color.New(color.FgCyan).Fprintf(g.out, "Query: %s\n", res.Query)
		if res.QueryError != "" {
			color.New(color.FgYellow).Fprintf(g.out, "Query failed: %s\n", res.QueryError)
		} else if res.Rows != nil {
			printRows(g, res.Rows, 20)
		}
		fmt.Fprintln(g.out)
	}
	fmt.Fprintln(g.out, res.Answer)
	return nil
}

func writeJSON(g *Globals, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = g.out.Write(append(out, '\n'))
	return err
}
