package mcptools

import (
	"github.com/dusk-indust/cxxgraph/internal/advisor"
	"github.com/dusk-indust/cxxgraph/internal/graph"
)

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// IndexInput is the input for the index_translation_unit MCP tool.
type IndexInput struct {
	Paths []string `json:"paths,omitempty" jsonschema:"absolute paths of preprocessed artifacts (.i, .ii) or source files to index"`
	Dir   string   `json:"dir,omitempty" jsonschema:"directory searched for .i and .ii artifacts when paths is empty"`
	Flags []string `json:"flags,omitempty" jsonschema:"compiler flags such as -x c or -std=c11, added to the configured ones"`
}

// IndexOutput is the result of the index_translation_unit MCP tool.
type IndexOutput struct {
	Units           int               `json:"units"`
	Failed          map[string]string `json:"failed,omitempty"`
	VerticesCreated int               `json:"verticesCreated"`
	Stubs           int               `json:"stubs"`
	EdgesWritten    int               `json:"edgesWritten"`
	NodeFailures    int               `json:"nodeFailures"`
	Stats           graph.GraphStats  `json:"stats"`
}

// GraphSchemaInput is the input for the graph_schema MCP tool.
type GraphSchemaInput struct{}

// GraphSchemaOutput is the result of the graph_schema MCP tool.
type GraphSchemaOutput struct {
	Schema advisor.Schema   `json:"schema"`
	Stats  graph.GraphStats `json:"stats"`
}

// QueryGraphInput is the input for the query_graph MCP tool.
type QueryGraphInput struct {
	Query string `json:"query" jsonschema:"a read-only query in the store's dialect (Cypher for kuzu, SQL for sqlite)"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of rows returned (default: 100)"`
}

// QueryGraphOutput is the result of the query_graph MCP tool.
type QueryGraphOutput struct {
	Dialect   graph.Dialect `json:"dialect"`
	Columns   []string      `json:"columns"`
	Rows      [][]any       `json:"rows"`
	Truncated bool          `json:"truncated,omitempty"`
}

// AskInput is the input for the ask_codebase MCP tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"a natural-language question about the indexed code"`
}

// AskOutput is the result of the ask_codebase MCP tool.
type AskOutput struct {
	Query      string             `json:"query"`
	Rows       *graph.QueryResult `json:"rows,omitempty"`
	QueryError string             `json:"queryError,omitempty"`
	Answer     string             `json:"answer"`
}
