package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewCodeIntelMCPServer creates an MCP server with the code graph tools
// registered.
func NewCodeIntelMCPServer(svc *CodeIntelService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "cxxgraph",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_translation_unit",
		Description: "Parse preprocessed C/C++ translation units and add their declarations (namespaces, classes, functions, fields, parameters...) and relationships to the code graph.",
	}, svc.IndexTranslationUnit)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "graph_schema",
		Description: "Describe the code graph: vertex labels, the edge labels leaving each label, property keys and counts.",
	}, svc.GraphSchema)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_graph",
		Description: "Run a read-only query against the code graph in the store's dialect and return the rows.",
	}, svc.QueryGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_codebase",
		Description: "Answer a natural-language question about the indexed code: a language model writes a graph query, it is executed, and the model explains the rows.",
	}, svc.AskCodebase)

	return server
}

// RunMCPServer starts an HTTP server exposing the code graph MCP tools.
func RunMCPServer(ctx context.Context, svc *CodeIntelService, addr string) error {
	server := NewCodeIntelMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// RunMCPServerStdio runs the MCP server on stdio transport, blocking until
// stdin is closed or the context is cancelled.
func RunMCPServerStdio(ctx context.Context, svc *CodeIntelService) error {
	return NewCodeIntelMCPServer(svc).Run(ctx, &mcp.StdioTransport{})
}
