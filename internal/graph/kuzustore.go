//go:build cgo

package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements the Store interface using KuzuDB as the graph backend.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
//
// Every vertex lives in the Vertex node table with its label in a column, and
// every edge in the Edge relationship table, so new labels never need DDL.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(":memory:", cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given path. KuzuDB creates the database itself; the parent directory is
// created here.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(dbPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open file database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements returns the Cypher DDL executed by InitSchema.
// Order matters: node tables must precede relationship tables.
func ddlStatements() []string {
	var cols strings.Builder
	cols.WriteString("key STRING, label STRING")
	for _, c := range vertexColumns {
		cols.WriteString(", ")
		cols.WriteString(c.name)
		cols.WriteString(" ")
		cols.WriteString(kuzuType(c.kind))
	}
	cols.WriteString(", extra STRING, PRIMARY KEY(key)")
	return []string{
		"CREATE NODE TABLE IF NOT EXISTS Vertex(" + cols.String() + ")",
		`CREATE REL TABLE IF NOT EXISTS Edge(
			FROM Vertex TO Vertex,
			label STRING,
			prop_key STRING,
			prop_value STRING
		)`,
	}
}

func kuzuType(k columnKind) string {
	switch k {
	case colInt:
		return "INT64"
	case colBool:
		return "BOOLEAN"
	default:
		return "STRING"
	}
}

// InitSchema creates the node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements() {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// Exists reports whether a vertex with key is stored.
func (s *KuzuStore) Exists(_ context.Context, key string) (bool, error) {
	rows, err := s.query(
		"MATCH (v:Vertex {key: $key}) RETURN count(v)",
		map[string]any{"key": key},
	)
	if err != nil {
		return false, err
	}
	return len(rows) > 0 && toInt(rows[0][0]) > 0, nil
}

// UpsertVertex merges v by key. Only the properties present on v are set,
// and only when the vertex is created.
func (s *KuzuStore) UpsertVertex(_ context.Context, v Vertex) error {
	known, extra := splitProps(v.Props)

	params := map[string]any{"key": v.Key, "label": string(v.Label)}
	sets := []string{"v.label = $label"}
	names := make([]string, 0, len(known))
	for name := range known {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		val, ok := coerce(knownColumns[name], known[name])
		if !ok {
			continue
		}
		params[name] = val
		sets = append(sets, fmt.Sprintf("v.%s = $%s", name, name))
	}
	if len(extra) > 0 {
		data, err := json.Marshal(extra)
		if err != nil {
			return fmt.Errorf("kuzu: marshal extra props: %w", err)
		}
		params["extra"] = string(data)
		sets = append(sets, "v.extra = $extra")
	}

	cypher := "MERGE (v:Vertex {key: $key}) ON CREATE SET " + strings.Join(sets, ", ")
	return s.exec(cypher, params)
}

// UpsertEdge creates an edge between two existing vertices.
func (s *KuzuStore) UpsertEdge(_ context.Context, e Edge) error {
	return s.exec(
		`MATCH (a:Vertex {key: $src}), (b:Vertex {key: $dst})
		 CREATE (a)-[:Edge {label: $label, prop_key: $pk, prop_value: $pv}]->(b)`,
		map[string]any{
			"src":   e.From,
			"dst":   e.To,
			"label": string(e.Label),
			"pk":    e.PropKey,
			"pv":    e.PropValue,
		},
	)
}

// ---------- Queries ----------

// Dialect reports Cypher.
func (s *KuzuStore) Dialect() Dialect { return DialectCypher }

// Query runs a read-only Cypher statement. Statements with a write clause
// fail with ErrReadOnly before they reach the database.
func (s *KuzuStore) Query(_ context.Context, expr string) (*QueryResult, error) {
	if err := checkReadOnlyCypher(expr); err != nil {
		return nil, fmt.Errorf("kuzu: %w", err)
	}
	res, err := s.conn.Query(expr)
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	out := &QueryResult{Columns: res.GetColumnNames()}
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		out.Rows = append(out.Rows, vals)
	}
	return out, nil
}

// VertexLabels returns the distinct vertex labels, sorted.
func (s *KuzuStore) VertexLabels(_ context.Context) ([]Label, error) {
	rows, err := s.query("MATCH (v:Vertex) RETURN DISTINCT v.label", nil)
	if err != nil {
		return nil, err
	}
	set := map[Label]bool{}
	for _, r := range rows {
		set[Label(toString(r[0]))] = true
	}
	return sortedKeys(set), nil
}

// OutEdgeLabels returns the distinct labels of edges leaving vertices with
// the given label, sorted.
func (s *KuzuStore) OutEdgeLabels(_ context.Context, label Label) ([]EdgeLabel, error) {
	rows, err := s.query(
		"MATCH (a:Vertex {label: $label})-[e:Edge]->(:Vertex) RETURN DISTINCT e.label",
		map[string]any{"label": string(label)},
	)
	if err != nil {
		return nil, err
	}
	set := map[EdgeLabel]bool{}
	for _, r := range rows {
		set[EdgeLabel(toString(r[0]))] = true
	}
	return sortedKeys(set), nil
}

// PropertyKeys returns the keys of the non-null properties of one sample
// vertex with the given label.
func (s *KuzuStore) PropertyKeys(_ context.Context, label Label) ([]string, error) {
	rows, err := s.query(
		"MATCH (v:Vertex {label: $label}) RETURN "+vertexReturnList("v")+" LIMIT 1",
		map[string]any{"label": string(label)},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	v := rowToVertex(rows[0])
	set := map[string]bool{PropKey: true}
	for k := range v.Props {
		set[k] = true
	}
	return sortedKeys(set), nil
}

// Vertices returns every stored vertex, ordered by key.
func (s *KuzuStore) Vertices(_ context.Context) ([]Vertex, error) {
	rows, err := s.query("MATCH (v:Vertex) RETURN "+vertexReturnList("v")+" ORDER BY v.key", nil)
	if err != nil {
		return nil, err
	}
	out := make([]Vertex, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowToVertex(r))
	}
	return out, nil
}

// Edges returns every stored edge.
func (s *KuzuStore) Edges(_ context.Context) ([]Edge, error) {
	rows, err := s.query(
		"MATCH (a:Vertex)-[e:Edge]->(b:Vertex) RETURN a.key, e.label, b.key, e.prop_key, e.prop_value",
		nil,
	)
	if err != nil {
		return nil, err
	}
	out := make([]Edge, 0, len(rows))
	for _, r := range rows {
		out = append(out, Edge{
			From:      toString(r[0]),
			Label:     EdgeLabel(toString(r[1])),
			To:        toString(r[2]),
			PropKey:   toString(r[3]),
			PropValue: toString(r[4]),
		})
	}
	sortEdges(out)
	return out, nil
}

// ---------- Stats ----------

// Stats returns vertex counts per label and the edge count.
func (s *KuzuStore) Stats(_ context.Context) (*GraphStats, error) {
	rows, err := s.query("MATCH (v:Vertex) RETURN v.label, count(v)", nil)
	if err != nil {
		return nil, err
	}
	stats := &GraphStats{ByLabel: make(map[Label]int)}
	for _, r := range rows {
		n := toInt(r[1])
		stats.ByLabel[Label(toString(r[0]))] = n
		stats.VertexCount += n
	}
	rows, err = s.query("MATCH ()-[e:Edge]->() RETURN count(e)", nil)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		stats.EdgeCount = toInt(rows[0][0])
	}
	return stats, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// vertexReturnList projects key, label, every known column and extra.
func vertexReturnList(v string) string {
	parts := []string{v + ".key", v + ".label"}
	for _, c := range vertexColumns {
		parts = append(parts, v+"."+c.name)
	}
	parts = append(parts, v+".extra")
	return strings.Join(parts, ", ")
}

// rowToVertex converts a row projected with vertexReturnList. Null columns
// are omitted from the property bag.
func rowToVertex(r []any) Vertex {
	v := Vertex{Key: toString(r[0]), Label: Label(toString(r[1])), Props: Props{}}
	for i, c := range vertexColumns {
		val := r[i+2]
		if val == nil {
			continue
		}
		switch c.kind {
		case colInt:
			v.Props[c.name] = toInt(val)
		case colBool:
			v.Props[c.name] = toBool(val)
		default:
			v.Props[c.name] = toString(val)
		}
	}
	if extra, ok := r[len(r)-1].(string); ok && extra != "" {
		var m map[string]any
		if json.Unmarshal([]byte(extra), &m) == nil {
			for k, val := range m {
				v.Props[k] = val
			}
		}
	}
	return v
}
