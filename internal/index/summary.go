package index

import (
	"errors"
	"log/slog"
	"time"

	"github.com/dusk-indust/cxxgraph/internal/emit"
	"github.com/dusk-indust/cxxgraph/internal/identity"
	"github.com/dusk-indust/cxxgraph/internal/location"
)

// ErrorClass groups per-node failures in a Summary.
type ErrorClass string

const (
	ErrLocationUnresolved ErrorClass = "location_unresolved"
	ErrLocationExcluded   ErrorClass = "location_excluded"
	ErrIdentity           ErrorClass = "identity"
	ErrStoreWrite         ErrorClass = "store_write"
	ErrEdgeOrder          ErrorClass = "edge_order"
	ErrPanic              ErrorClass = "panic"
)

// classOf maps an error returned by a pipeline stage to its class.
func classOf(err error) ErrorClass {
	var unresolved *location.UnresolvedError
	var ident *identity.Error
	switch {
	case errors.As(err, &unresolved) && unresolved.Excluded:
		return ErrLocationExcluded
	case errors.Is(err, location.ErrUnresolved):
		return ErrLocationUnresolved
	case errors.As(err, &ident):
		return ErrIdentity
	case errors.Is(err, emit.ErrEndpointMissing):
		return ErrEdgeOrder
	default:
		return ErrStoreWrite
	}
}

// Summary reports the outcome of indexing one translation unit.
type Summary struct {
	TU      string
	Path    string
	Nodes   int
	States  map[State]int
	Errors  map[ErrorClass]int
	Emitted emit.Counters
	Elapsed time.Duration
}

func newSummary(tu, path string) *Summary {
	return &Summary{
		TU:     tu,
		Path:   path,
		States: make(map[State]int),
		Errors: make(map[ErrorClass]int),
	}
}

// Failures returns the number of recorded per-node failures, excluding
// nodes skipped because they live under an excluded path.
func (s *Summary) Failures() int {
	n := 0
	for c, v := range s.Errors {
		if c != ErrLocationExcluded {
			n += v
		}
	}
	return n
}

// Add accumulates o into s.
func (s *Summary) Add(o *Summary) {
	s.Nodes += o.Nodes
	s.Elapsed += o.Elapsed
	for k, v := range o.States {
		s.States[k] += v
	}
	for k, v := range o.Errors {
		s.Errors[k] += v
	}
	c := &s.Emitted
	c.VerticesCreated += o.Emitted.VerticesCreated
	c.VerticesExisting += o.Emitted.VerticesExisting
	c.VerticesFailed += o.Emitted.VerticesFailed
	c.Stubs += o.Emitted.Stubs
	c.EdgesWritten += o.Emitted.EdgesWritten
	c.EdgesFailed += o.Emitted.EdgesFailed
	c.EdgesRejected += o.Emitted.EdgesRejected
}

// LogValue renders the summary as a log group.
func (s *Summary) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("tu", s.TU),
		slog.Int("nodes", s.Nodes),
		slog.Int("vertices", s.Emitted.VerticesCreated),
		slog.Int("stubs", s.Emitted.Stubs),
		slog.Int("edges", s.Emitted.EdgesWritten),
		slog.Int("failures", s.Failures()),
		slog.Duration("elapsed", s.Elapsed),
	}
	for c, v := range s.Errors {
		attrs = append(attrs, slog.Int("err."+string(c), v))
	}
	return slog.GroupValue(attrs...)
}
