package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes for the data kept in BadgerDB.
const (
	prefixVertex = "v:" // vertex by key
	prefixEdge   = "e:" // edge by insertion sequence
	keyEdgeSeq   = "seq:edge"
)

// BadgerStore implements Store on an embedded BadgerDB key-value store.
// Existence checks are point reads, which keeps indexing fast on large
// trees; it has no query language.
type BadgerStore struct {
	mu  sync.Mutex
	db  *badger.DB
	seq *badger.Sequence
}

// Compile-time check that BadgerStore satisfies Store.
var _ Store = (*BadgerStore)(nil)

// NewBadgerStore opens (or creates) a BadgerDB at path. An empty path opens
// an in-memory database.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithLoggingLevel(badger.ERROR)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open: %w", err)
	}
	seq, err := db.GetSequence([]byte(keyEdgeSeq), 1000)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("badger: edge sequence: %w", err)
	}
	return &BadgerStore{db: db, seq: seq}, nil
}

// Close releases the sequence lease and closes the database.
func (b *BadgerStore) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db == nil {
		return nil
	}
	if err := b.seq.Release(); err != nil {
		b.db.Close()
		b.db = nil
		return fmt.Errorf("badger: release sequence: %w", err)
	}
	err := b.db.Close()
	b.db = nil
	return err
}

// InitSchema is a no-op: BadgerDB is schemaless.
func (b *BadgerStore) InitSchema(_ context.Context) error {
	return nil
}

func vertexKey(key string) []byte { return []byte(prefixVertex + key) }

func edgeKey(n uint64) []byte { return []byte(fmt.Sprintf("%s%020d", prefixEdge, n)) }

// Exists reports whether a vertex with key is stored.
func (b *BadgerStore) Exists(_ context.Context, key string) (bool, error) {
	found := false
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(vertexKey(key))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			return nil
		case err != nil:
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("badger: exists: %w", err)
	}
	return found, nil
}

// UpsertVertex stores v unless its key is already present.
func (b *BadgerStore) UpsertVertex(_ context.Context, v Vertex) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("badger: marshal vertex: %w", err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		k := vertexKey(v.Key)
		if _, err := txn.Get(k); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(k, data)
	})
	if err != nil {
		return fmt.Errorf("badger: upsert vertex: %w", err)
	}
	return nil
}

// UpsertEdge appends e under the next sequence number.
func (b *BadgerStore) UpsertEdge(_ context.Context, e Edge) error {
	n, err := b.seq.Next()
	if err != nil {
		return fmt.Errorf("badger: next edge id: %w", err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("badger: marshal edge: %w", err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(edgeKey(n), data)
	})
	if err != nil {
		return fmt.Errorf("badger: upsert edge: %w", err)
	}
	return nil
}

// Query is not supported by the key-value backend.
func (b *BadgerStore) Query(_ context.Context, _ string) (*QueryResult, error) {
	return nil, ErrQueryUnsupported
}

// Dialect reports that BadgerStore has no query language.
func (b *BadgerStore) Dialect() Dialect { return DialectNone }

// VertexLabels returns the distinct vertex labels, sorted.
func (b *BadgerStore) VertexLabels(_ context.Context) ([]Label, error) {
	set := map[Label]bool{}
	err := b.eachVertex(func(v Vertex) bool {
		set[v.Label] = true
		return true
	})
	if err != nil {
		return nil, err
	}
	return sortedKeys(set), nil
}

// OutEdgeLabels returns the distinct labels of edges leaving vertices with
// the given label, sorted.
func (b *BadgerStore) OutEdgeLabels(_ context.Context, label Label) ([]EdgeLabel, error) {
	sources := map[string]bool{}
	err := b.eachVertex(func(v Vertex) bool {
		if v.Label == label {
			sources[v.Key] = true
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	set := map[EdgeLabel]bool{}
	err = b.eachEdge(func(e Edge) bool {
		if sources[e.From] {
			set[e.Label] = true
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return sortedKeys(set), nil
}

// PropertyKeys returns the property keys of one stored vertex with the given
// label, sorted.
func (b *BadgerStore) PropertyKeys(_ context.Context, label Label) ([]string, error) {
	var keys []string
	err := b.eachVertex(func(v Vertex) bool {
		if v.Label != label {
			return true
		}
		set := map[string]bool{PropKey: true}
		for k := range v.Props {
			set[k] = true
		}
		keys = sortedKeys(set)
		return false
	})
	return keys, err
}

// Vertices returns every stored vertex, ordered by key.
func (b *BadgerStore) Vertices(_ context.Context) ([]Vertex, error) {
	var out []Vertex
	err := b.eachVertex(func(v Vertex) bool {
		out = append(out, v)
		return true
	})
	return out, err
}

// Edges returns every stored edge in insertion order.
func (b *BadgerStore) Edges(_ context.Context) ([]Edge, error) {
	var out []Edge
	err := b.eachEdge(func(e Edge) bool {
		out = append(out, e)
		return true
	})
	return out, err
}

// Stats returns vertex counts per label and the edge count.
func (b *BadgerStore) Stats(_ context.Context) (*GraphStats, error) {
	stats := &GraphStats{ByLabel: make(map[Label]int)}
	err := b.eachVertex(func(v Vertex) bool {
		stats.ByLabel[v.Label]++
		stats.VertexCount++
		return true
	})
	if err != nil {
		return nil, err
	}
	err = b.eachEdge(func(Edge) bool {
		stats.EdgeCount++
		return true
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// eachVertex iterates the vertex prefix until fn returns false.
func (b *BadgerStore) eachVertex(fn func(Vertex) bool) error {
	return b.scan(prefixVertex, func(val []byte) (bool, error) {
		var v Vertex
		if err := json.Unmarshal(val, &v); err != nil {
			return false, fmt.Errorf("badger: decode vertex: %w", err)
		}
		v.Props = normalizeProps(v.Props)
		return fn(v), nil
	})
}

// eachEdge iterates the edge prefix until fn returns false.
func (b *BadgerStore) eachEdge(fn func(Edge) bool) error {
	return b.scan(prefixEdge, func(val []byte) (bool, error) {
		var e Edge
		if err := json.Unmarshal(val, &e); err != nil {
			return false, fmt.Errorf("badger: decode edge: %w", err)
		}
		return fn(e), nil
	})
}

func (b *BadgerStore) scan(prefix string, fn func(val []byte) (bool, error)) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var cont bool
			err := it.Item().Value(func(val []byte) error {
				var err error
				cont, err = fn(val)
				return err
			})
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		return nil
	})
}
