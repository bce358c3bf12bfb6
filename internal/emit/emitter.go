// Package emit writes vertices and edges to a graph store, deduplicating
// vertices by key for the duration of one run.
package emit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dusk-indust/cxxgraph/internal/graph"
)

// ErrEndpointMissing is returned by UpsertEdge when an endpoint was never
// ensured in this run.
var ErrEndpointMissing = errors.New("emit: edge endpoint not ensured in this run")

// Counters tallies emitter activity.
type Counters struct {
	VerticesCreated  int
	VerticesExisting int
	VerticesFailed   int
	Stubs            int
	EdgesWritten     int
	EdgesFailed      int
	EdgesRejected    int
}

// Sub returns the difference c - o.
func (c Counters) Sub(o Counters) Counters {
	return Counters{
		VerticesCreated:  c.VerticesCreated - o.VerticesCreated,
		VerticesExisting: c.VerticesExisting - o.VerticesExisting,
		VerticesFailed:   c.VerticesFailed - o.VerticesFailed,
		Stubs:            c.Stubs - o.Stubs,
		EdgesWritten:     c.EdgesWritten - o.EdgesWritten,
		EdgesFailed:      c.EdgesFailed - o.EdgesFailed,
		EdgesRejected:    c.EdgesRejected - o.EdgesRejected,
	}
}

// Emitter is the single writer of a run. The created-keys cache makes a
// repeated upsert of a key free after the first one; it is never shared
// between runs. Not safe for concurrent use.
type Emitter struct {
	store  graph.Store
	log    *slog.Logger
	known  map[string]bool
	counts Counters
}

// New creates an Emitter writing to store. A nil logger discards output.
func New(store graph.Store, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Emitter{
		store: store,
		log:   logger,
		known: make(map[string]bool),
	}
}

// Store returns the underlying store.
func (e *Emitter) Store() graph.Store { return e.store }

// Counters returns a snapshot of the counters.
func (e *Emitter) Counters() Counters { return e.counts }

// Known reports whether key was created or found in the store during this
// run.
func (e *Emitter) Known(key string) bool { return e.known[key] }

// UpsertVertex stores v unless a vertex with its key already exists. created
// reports whether this call wrote it.
func (e *Emitter) UpsertVertex(ctx context.Context, v graph.Vertex) (created bool, err error) {
	if e.known[v.Key] {
		e.counts.VerticesExisting++
		return false, nil
	}

	ok, err := e.store.Exists(ctx, v.Key)
	if err != nil {
		e.counts.VerticesFailed++
		return false, e.fail("exists", v.Key, err)
	}
	if ok {
		e.known[v.Key] = true
		e.counts.VerticesExisting++
		return false, nil
	}

	props := make(graph.Props, len(v.Props)+1)
	for k, val := range v.Props {
		props[k] = val
	}
	props[graph.PropKey] = v.Key
	v.Props = props

	if err := e.store.UpsertVertex(ctx, v); err != nil {
		e.counts.VerticesFailed++
		return false, e.fail("vertex", v.Key, err)
	}
	e.known[v.Key] = true
	e.counts.VerticesCreated++
	e.log.Debug("emit.vertex", "key", v.Key, "label", v.Label)
	return true, nil
}

// EnsureStub makes sure a vertex exists for key, creating a minimal one
// marked as a stub when nothing in the run or the store provides it.
func (e *Emitter) EnsureStub(ctx context.Context, label graph.Label, key string, props graph.Props) (created bool, err error) {
	stub := make(graph.Props, len(props)+1)
	for k, v := range props {
		stub[k] = v
	}
	stub[graph.PropStub] = true
	created, err = e.UpsertVertex(ctx, graph.Vertex{Label: label, Key: key, Props: stub})
	if created {
		e.counts.Stubs++
	}
	return created, err
}

// UpsertEdge appends edge. Both endpoints must have been created or seen by
// this emitter first; edges are never deduplicated.
func (e *Emitter) UpsertEdge(ctx context.Context, edge graph.Edge) error {
	for _, k := range []string{edge.From, edge.To} {
		if !e.known[k] {
			e.counts.EdgesRejected++
			return &graph.WriteError{Op: "edge", Key: edgeKey(edge), Err: ErrEndpointMissing}
		}
	}
	if err := e.store.UpsertEdge(ctx, edge); err != nil {
		e.counts.EdgesFailed++
		return e.fail("edge", edgeKey(edge), err)
	}
	e.counts.EdgesWritten++
	return nil
}

func (e *Emitter) fail(op, key string, err error) error {
	werr := &graph.WriteError{Op: op, Key: key, Err: err}
	e.log.Warn("emit.write_failed", "op", op, "key", key, "err", err)
	return werr
}

func edgeKey(e graph.Edge) string {
	return e.From + " -" + string(e.Label) + "-> " + e.To
}
