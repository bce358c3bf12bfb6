package advisor

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/cxxgraph/internal/graph"
)

const queryPreamble = `You generate exactly one %s query against a graph database that represents a C/C++ codebase.
Do not generate explanations or any other text. Another assistant uses the rows your query returns to answer the user.
`

const cypherLayout = `Storage layout:
- Every vertex is a node of table Vertex with columns key, label and one column per property.
- Every relationship is a rel of table Edge with columns label, prop_key and prop_value.
- Filter vertex kinds with v.label = '<Label>' and relationship kinds with e.label = '<edge label>'.
Example: MATCH (c:Vertex)-[e:Edge]->(m:Vertex) WHERE c.label = 'Class' AND e.label = 'contains_method' RETURN c.name, m.name
`

const sqlLayout = `Storage layout (SQLite):
- vertices(key TEXT PRIMARY KEY, label TEXT, props TEXT) where props is a JSON object; read properties with json_extract(props, '$.<property>').
- edges(id INTEGER, src TEXT, label TEXT, dst TEXT, prop_key TEXT, prop_value TEXT); src and dst hold vertex keys.
Example: SELECT json_extract(c.props, '$.name'), json_extract(m.props, '$.name') FROM vertices c JOIN edges e ON e.src = c.key JOIN vertices m ON m.key = e.dst WHERE c.label = 'Class' AND e.label = 'contains_method'
`

const queryRules = `Important notes:
- Your response must be the query and nothing else.
- Extract as little data as possible: return only the properties relevant to the question, together with the vertex keys.
- Never modify the database.
`

const answerPrompt = `You are an expert codebase advisor. Answer technical questions about a C/C++ codebase.
Base your answer on the data retrieved from the code graph for the user's question.

Guidelines:
- Address the user's question directly.
- Use the retrieved data to give a precise and concise answer.
- Where it helps, list the relevant classes, methods or fields in a simple, easily parsed format.
- If the data does not contain the answer, say so.
`

// dialectName is the query language the prompt asks for.
func dialectName(d graph.Dialect) string {
	switch d {
	case graph.DialectCypher:
		return "Cypher (Kuzu)"
	case graph.DialectSQL:
		return "SQLite SQL"
	}
	return string(d)
}

// QueryPrompt builds the system message asking for a query over schema.
func QueryPrompt(schema *Schema) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, queryPreamble, dialectName(schema.Dialect))
	switch schema.Dialect {
	case graph.DialectCypher:
		sb.WriteString(cypherLayout)
	case graph.DialectSQL:
		sb.WriteString(sqlLayout)
	}
	sb.WriteString("The graph holds the following vertex labels:\n")
	sb.WriteString(schema.String())
	sb.WriteString(queryRules)
	return sb.String()
}

// stripFences removes a markdown code fence around a model's query.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop the info string, e.g. "cypher" or "sql".
		if !strings.ContainsAny(s[:nl], " (") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
