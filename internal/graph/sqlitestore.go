//go:build cgo

package graph

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store on a single SQLite file. Vertex properties are
// kept as a JSON object so ad-hoc SQL can reach them with json_extract.
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore satisfies Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at dbPath. ":memory:" opens
// a private in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create parent directory: %w", err)
		}
		dsn = dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// A second connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var sqliteDDL = []string{
	`CREATE TABLE IF NOT EXISTS vertices (
		key   TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		props TEXT NOT NULL DEFAULT '{}'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_vertices_label ON vertices(label)`,
	`CREATE TABLE IF NOT EXISTS edges (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		src        TEXT NOT NULL,
		label      TEXT NOT NULL,
		dst        TEXT NOT NULL,
		prop_key   TEXT NOT NULL DEFAULT '',
		prop_value TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_src ON edges(src)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges(dst)`,
}

// InitSchema creates the tables if they do not exist.
func (s *SQLiteStore) InitSchema(ctx context.Context) error {
	for _, stmt := range sqliteDDL {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: init schema: %w", err)
		}
	}
	return nil
}

// Exists reports whether a vertex with key is stored.
func (s *SQLiteStore) Exists(ctx context.Context, key string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM vertices WHERE key = ?", key).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: exists: %w", err)
	}
	return n > 0, nil
}

// UpsertVertex inserts v unless its key is already stored.
func (s *SQLiteStore) UpsertVertex(ctx context.Context, v Vertex) error {
	props := make(Props, len(v.Props))
	for k, val := range v.Props {
		if k != PropKey {
			props[k] = val
		}
	}
	data, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("sqlite: marshal props: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO vertices(key, label, props) VALUES (?, ?, ?)",
		v.Key, string(v.Label), string(data))
	if err != nil {
		return fmt.Errorf("sqlite: insert vertex: %w", err)
	}
	return nil
}

// UpsertEdge appends e.
func (s *SQLiteStore) UpsertEdge(ctx context.Context, e Edge) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO edges(src, label, dst, prop_key, prop_value) VALUES (?, ?, ?, ?, ?)",
		e.From, string(e.Label), e.To, e.PropKey, e.PropValue)
	if err != nil {
		return fmt.Errorf("sqlite: insert edge: %w", err)
	}
	return nil
}

// Dialect reports SQL.
func (s *SQLiteStore) Dialect() Dialect { return DialectSQL }

// Query runs the first SQL statement of expr and returns its rows. Text
// columns come back as strings. The statement runs with query_only set, so
// anything that would change the database fails with ErrReadOnly.
func (s *SQLiteStore) Query(ctx context.Context, expr string) (*QueryResult, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("sqlite: empty query")
	}
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: conn: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return nil, fmt.Errorf("sqlite: query_only: %w", err)
	}
	defer conn.ExecContext(context.Background(), "PRAGMA query_only = OFF")

	// A prepared statement holds one statement; the rest of expr never runs.
	stmt, err := conn.PrepareContext(ctx, expr)
	if err != nil {
		return nil, fmt.Errorf("sqlite: prepare: %w", readOnlyErr(err))
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", readOnlyErr(err))
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sqlite: columns: %w", err)
	}
	out := &QueryResult{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out.Rows = append(out.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows: %w", readOnlyErr(err))
	}
	return out, nil
}

// readOnlyErr marks writes refused by query_only with ErrReadOnly.
func readOnlyErr(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrReadonly {
		return fmt.Errorf("%w: %v", ErrReadOnly, err)
	}
	return err
}

// VertexLabels returns the distinct vertex labels, sorted.
func (s *SQLiteStore) VertexLabels(ctx context.Context) ([]Label, error) {
	names, err := s.stringColumn(ctx, "SELECT DISTINCT label FROM vertices ORDER BY label")
	if err != nil {
		return nil, err
	}
	out := make([]Label, len(names))
	for i, n := range names {
		out[i] = Label(n)
	}
	return out, nil
}

// OutEdgeLabels returns the distinct labels of edges leaving vertices with
// the given label, sorted.
func (s *SQLiteStore) OutEdgeLabels(ctx context.Context, label Label) ([]EdgeLabel, error) {
	names, err := s.stringColumn(ctx,
		`SELECT DISTINCT e.label FROM edges e JOIN vertices v ON v.key = e.src
		 WHERE v.label = ? ORDER BY e.label`, string(label))
	if err != nil {
		return nil, err
	}
	out := make([]EdgeLabel, len(names))
	for i, n := range names {
		out[i] = EdgeLabel(n)
	}
	return out, nil
}

// PropertyKeys returns the property keys of the first stored vertex with the
// given label, sorted.
func (s *SQLiteStore) PropertyKeys(ctx context.Context, label Label) ([]string, error) {
	names, err := s.stringColumn(ctx,
		`SELECT j.key FROM vertices v, json_each(v.props) j
		 WHERE v.rowid = (SELECT rowid FROM vertices WHERE label = ? ORDER BY rowid LIMIT 1)`,
		string(label))
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}
	set := map[string]bool{PropKey: true}
	for _, n := range names {
		set[n] = true
	}
	return sortedKeys(set), nil
}

// Vertices returns every stored vertex in insertion order.
func (s *SQLiteStore) Vertices(ctx context.Context) ([]Vertex, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, label, props FROM vertices ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("sqlite: list vertices: %w", err)
	}
	defer rows.Close()

	var out []Vertex
	for rows.Next() {
		var key, label, data string
		if err := rows.Scan(&key, &label, &data); err != nil {
			return nil, fmt.Errorf("sqlite: scan vertex: %w", err)
		}
		var props Props
		if err := json.Unmarshal([]byte(data), &props); err != nil {
			return nil, fmt.Errorf("sqlite: vertex %s props: %w", key, err)
		}
		out = append(out, Vertex{Key: key, Label: Label(label), Props: normalizeProps(props)})
	}
	return out, rows.Err()
}

// Edges returns every stored edge in insertion order.
func (s *SQLiteStore) Edges(ctx context.Context) ([]Edge, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT src, label, dst, prop_key, prop_value FROM edges ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("sqlite: list edges: %w", err)
	}
	defer rows.Close()

	var out []Edge
	for rows.Next() {
		var e Edge
		var label string
		if err := rows.Scan(&e.From, &label, &e.To, &e.PropKey, &e.PropValue); err != nil {
			return nil, fmt.Errorf("sqlite: scan edge: %w", err)
		}
		e.Label = EdgeLabel(label)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats returns vertex counts per label and the edge count.
func (s *SQLiteStore) Stats(ctx context.Context) (*GraphStats, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT label, count(*) FROM vertices GROUP BY label")
	if err != nil {
		return nil, fmt.Errorf("sqlite: stats: %w", err)
	}
	defer rows.Close()

	stats := &GraphStats{ByLabel: make(map[Label]int)}
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("sqlite: scan stats: %w", err)
		}
		stats.ByLabel[Label(label)] = n
		stats.VertexCount += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: stats rows: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM edges").Scan(&stats.EdgeCount); err != nil {
		return nil, fmt.Errorf("sqlite: count edges: %w", err)
	}
	return stats, nil
}

// stringColumn runs a single-column query.
func (s *SQLiteStore) stringColumn(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
