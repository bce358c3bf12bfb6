package graph

import (
	"fmt"
	"sort"
)

// --- Enums ---

// Label classifies vertices in the declaration graph.
type Label string

const (
	LabelFile              Label = "File"
	LabelTranslationUnit   Label = "TranslationUnit"
	LabelNamespace         Label = "Namespace"
	LabelClass             Label = "Class"
	LabelStruct            Label = "Struct"
	LabelUnion             Label = "Union"
	LabelEnum              Label = "Enum"
	LabelEnumValue         Label = "EnumValue"
	LabelFunction          Label = "Function"
	LabelVariable          Label = "Variable"
	LabelField             Label = "Field"
	LabelParameter         Label = "Parameter"
	LabelTypeAlias         Label = "TypeAlias"
	LabelUsing             Label = "Using"
	LabelTemplateParameter Label = "TemplateParameter"
)

// EdgeLabel classifies relationships between vertices.
type EdgeLabel string

const (
	EdgeContains                 EdgeLabel = "contains"
	EdgeContainsMethod           EdgeLabel = "contains_method"
	EdgeContainsField            EdgeLabel = "contains_field"
	EdgeContainsArgument         EdgeLabel = "contains_argument"
	EdgeContainsValue            EdgeLabel = "contains_value"
	EdgeContainsInner            EdgeLabel = "contains_inner"
	EdgeContainsTemplateArgument EdgeLabel = "contains_template_argument"
	EdgeInherits                 EdgeLabel = "inherits"
	EdgeDeclares                 EdgeLabel = "declares"
	EdgeIncludes                 EdgeLabel = "includes"
)

// Dialect names the query language a Store accepts in Query.
type Dialect string

const (
	DialectNone   Dialect = ""
	DialectCypher Dialect = "cypher"
	DialectSQL    Dialect = "sql"
)

// Property keys shared by every declaration vertex.
const (
	PropKey         = "key"
	PropKind        = "kind"
	PropName        = "name"
	PropDisplayName = "display_name"
	PropUSR         = "usr"
	PropTU          = "tu"
	PropFile        = "file"
	PropLine        = "line"
	PropStub        = "stub"
)

// --- Models ---

// Props is a vertex property bag. Values are strings, ints or bools.
type Props map[string]any

// Vertex is a labelled graph vertex addressed by its key.
type Vertex struct {
	Label Label  `json:"label"`
	Key   string `json:"key"`
	Props Props  `json:"props,omitempty"`
}

// Edge is a directed relationship between two vertex keys with at most one
// property.
type Edge struct {
	From      string    `json:"from"`
	Label     EdgeLabel `json:"label"`
	To        string    `json:"to"`
	PropKey   string    `json:"propKey,omitempty"`
	PropValue string    `json:"propValue,omitempty"`
}

// QueryResult is the tabular result of an ad-hoc query.
type QueryResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Maps returns the rows as column-name keyed maps.
func (r *QueryResult) Maps() []map[string]any {
	out := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		m := make(map[string]any, len(r.Columns))
		for i, c := range r.Columns {
			if i < len(row) {
				m[c] = row[i]
			}
		}
		out = append(out, m)
	}
	return out
}

// GraphStats summarizes a stored graph.
type GraphStats struct {
	VertexCount int           `json:"vertexCount"`
	EdgeCount   int           `json:"edgeCount"`
	ByLabel     map[Label]int `json:"byLabel,omitempty"`
}

// WriteError reports a failed vertex or edge write.
type WriteError struct {
	Op  string // "vertex" or "edge"
	Key string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("graph: write %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// --- Column layout ---

// column is one typed vertex property in the tabular backends.
type column struct {
	name string
	kind columnKind
}

type columnKind int

const (
	colString columnKind = iota
	colInt
	colBool
)

// vertexColumns lists every property the indexer writes. Tabular backends
// store these as columns; anything else lands in the extra JSON column.
var vertexColumns = []column{
	{PropKind, colString},
	{PropName, colString},
	{PropDisplayName, colString},
	{PropUSR, colString},
	{PropTU, colString},
	{PropFile, colString},
	{PropLine, colInt},
	{PropStub, colBool},
	{"path", colString},
	{"hash", colString},
	{"flags", colString},
	{"type", colString},
	{"return_type", colString},
	{"access_specifier", colString},
	{"is_exported", colBool},
	{"is_static", colBool},
	{"is_const", colBool},
	{"is_virtual", colBool},
	{"is_pure_virtual", colBool},
	{"is_defaulted", colBool},
	{"is_deleted", colBool},
	{"is_explicit", colBool},
	{"is_copy_constructor", colBool},
	{"is_default_constructor", colBool},
	{"is_move_constructor", colBool},
	{"is_converting_constructor", colBool},
}

var knownColumns = func() map[string]columnKind {
	m := make(map[string]columnKind, len(vertexColumns))
	for _, c := range vertexColumns {
		m[c.name] = c.kind
	}
	return m
}()

// splitProps separates props into known columns and extras.
func splitProps(p Props) (known, extra Props) {
	known = Props{}
	for k, v := range p {
		if k == PropKey {
			continue
		}
		if _, ok := knownColumns[k]; ok {
			known[k] = v
			continue
		}
		if extra == nil {
			extra = Props{}
		}
		extra[k] = v
	}
	return known, extra
}

// sortedKeys returns the keys of a set in ascending order.
func sortedKeys[T ~string](set map[T]bool) []T {
	out := make([]T, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
