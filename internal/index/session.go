// Package index drives the conversion of syntax trees into graph vertices
// and edges.
package index

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/dusk-indust/cxxgraph/internal/ast"
	"github.com/dusk-indust/cxxgraph/internal/classify"
	"github.com/dusk-indust/cxxgraph/internal/emit"
	"github.com/dusk-indust/cxxgraph/internal/graph"
	"github.com/dusk-indust/cxxgraph/internal/identity"
	"github.com/dusk-indust/cxxgraph/internal/location"
)

// Options tunes a Session.
type Options struct {
	// RepoRoot makes file identifiers repository-relative.
	RepoRoot string
	// Exclude overrides location.DefaultExclude.
	Exclude []string
	// SkipNodeOnly keeps visiting the children of a node whose location
	// cannot be resolved. By default the whole subtree is skipped.
	SkipNodeOnly bool
	// SkipLocalDeclarations stops the traversal at expressions and
	// statements, so declarations inside function bodies (local classes,
	// lambdas, local variables) are not indexed.
	SkipLocalDeclarations bool
}

// TUKey returns the key of the TranslationUnit vertex for a file identifier.
func TUKey(fileID string) string { return "tu@" + fileID }

// FileKey returns the key of the File vertex for a file identifier.
func FileKey(fileID string) string { return "file@" + fileID }

type stub struct {
	label graph.Label
	key   string
	props graph.Props
}

// Session indexes one translation unit. It owns all per-unit state: the
// directive table and cursor, node states, keys, and the pass-1 record list.
type Session struct {
	tree *ast.Tree
	em   *emit.Emitter
	log  *slog.Logger
	opts Options

	res  *location.Resolver
	ids  *identity.Assigner
	tuID string

	entries  []Entry
	states   []State
	spans    map[*ast.Node]location.Span
	keys     map[*ast.Node]string // occurrence key of nodes that produced a vertex
	refs     map[*ast.Node]string // entity key of reference targets
	recorded []int
	stubs    []stub
	files    []string // File vertex keys, directive order

	sum *Summary
}

// NewSession prepares a session for tree. Directives are read from
// tree.Source; a tree without them maps every line to itself.
func NewSession(tree *ast.Tree, em *emit.Emitter, logger *slog.Logger, opts Options) (*Session, error) {
	if tree == nil || tree.Root == nil {
		return nil, fmt.Errorf("index: empty tree")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	table, err := directiveTable(tree)
	if err != nil {
		return nil, err
	}
	res := location.NewResolver(table, location.Options{RepoRoot: opts.RepoRoot, Exclude: opts.Exclude})
	tuID := res.FileID(tree.Path)

	entries := Flatten(tree.Root)
	return &Session{
		tree:    tree,
		em:      em,
		log:     logger.With("tu", tuID),
		opts:    opts,
		res:     res,
		ids:     identity.New(identity.ResolverLocator{R: res}),
		tuID:    tuID,
		entries: entries,
		states:  make([]State, len(entries)),
		spans:   make(map[*ast.Node]location.Span),
		keys:    make(map[*ast.Node]string),
		refs:    make(map[*ast.Node]string),
		sum:     newSummary(tuID, tree.Path),
	}, nil
}

func directiveTable(tree *ast.Tree) (location.Table, error) {
	if len(tree.Source) == 0 {
		return location.Identity(tree.Path), nil
	}
	table, err := location.Scan(bytes.NewReader(tree.Source))
	if err != nil {
		return nil, fmt.Errorf("index: %s: %w", tree.Path, err)
	}
	if len(table) == 0 {
		return location.Identity(tree.Path), nil
	}
	return table, nil
}

// Run executes the vertex pass and then the edge pass. Per-node failures
// are recorded in the summary; only context cancellation stops a run early.
func (s *Session) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	before := s.em.Counters()

	s.emitUnit(ctx)

	t := time.Now()
	if err := s.vertexPass(ctx); err != nil {
		return s.finish(start, before), err
	}
	s.flushStubs(ctx)
	s.log.Debug("pass.timing", "pass", "vertices", "elapsed", time.Since(t))

	t = time.Now()
	if err := s.edgePass(ctx); err != nil {
		return s.finish(start, before), err
	}
	s.log.Debug("pass.timing", "pass", "edges", "elapsed", time.Since(t))

	sum := s.finish(start, before)
	s.log.Info("index.summary", "summary", sum)
	return sum, nil
}

func (s *Session) finish(start time.Time, before emit.Counters) *Summary {
	s.sum.Nodes = len(s.entries) - 1
	clear(s.sum.States)
	for _, st := range s.states[1:] {
		s.sum.States[st]++
	}
	s.sum.Emitted = s.em.Counters().Sub(before)
	s.sum.Elapsed = time.Since(start)
	return s.sum
}

// State returns the state of n, or StateUnvisited for nodes not in the tree.
func (s *Session) State(n *ast.Node) State {
	for i, e := range s.entries {
		if e.Node == n {
			return s.states[i]
		}
	}
	return StateUnvisited
}

// Key returns the key n was emitted under.
func (s *Session) Key(n *ast.Node) (string, bool) {
	k, ok := s.keys[n]
	return k, ok
}

// emitUnit writes the TranslationUnit vertex and one File vertex per
// directive path outside the excluded prefixes.
func (s *Session) emitUnit(ctx context.Context) {
	h := xxh3.New()
	_, _ = h.Write(s.tree.Source)
	tu := graph.Vertex{Label: graph.LabelTranslationUnit, Key: TUKey(s.tuID), Props: graph.Props{
		graph.PropName: path.Base(s.tree.Path),
		graph.PropTU:   s.tuID,
		"path":         s.tree.Path,
		"hash":         hex.EncodeToString(h.Sum(nil)),
		"flags":        strings.Join(s.tree.Flags, " "),
	}}
	if _, err := s.em.UpsertVertex(ctx, tu); err != nil {
		s.sum.Errors[ErrStoreWrite]++
		s.log.Warn("index.unit_failed", "key", tu.Key, "err", err)
	}

	for _, p := range s.res.Table().Files() {
		if s.res.Excluded(p) {
			continue
		}
		id := s.res.FileID(p)
		f := graph.Vertex{Label: graph.LabelFile, Key: FileKey(id), Props: graph.Props{
			graph.PropName: path.Base(strings.ReplaceAll(p, `\`, "/")),
			graph.PropFile: id,
			"path":         p,
		}}
		if _, err := s.em.UpsertVertex(ctx, f); err != nil {
			s.sum.Errors[ErrStoreWrite]++
			s.log.Warn("index.unit_failed", "key", f.Key, "err", err)
			continue
		}
		s.files = append(s.files, f.Key)
	}
}

// --- Vertex pass ---

func (s *Session) vertexPass(ctx context.Context) error {
	for i := 1; i < len(s.entries); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		e := s.entries[i]
		n := e.Node

		if s.opts.SkipLocalDeclarations && isLocalScope(n) {
			i = e.End - 1
			continue
		}

		span, err := s.res.Resolve(n.Line)
		if err != nil {
			s.states[i] = StateLocationUnresolved
			s.record(classOf(err), n, location.Span{}, err)
			if !s.opts.SkipNodeOnly {
				i = e.End - 1
			}
			continue
		}
		s.states[i] = StateLocationResolved
		s.spans[n] = span
		s.visit(ctx, i, span)
	}
	return nil
}

func isLocalScope(n *ast.Node) bool {
	c := n.Category()
	return c == ast.CategoryExpression || c == ast.CategoryStatement
}

// visit classifies one node and emits its vertex. Failures, including
// panics, mark the node skipped and never escape.
func (s *Session) visit(ctx context.Context, i int, span location.Span) {
	n := s.entries[i].Node
	defer func() {
		if r := recover(); r != nil {
			s.states[i] = StateSkipped
			s.record(ErrPanic, n, span, fmt.Errorf("panic: %v", r))
		}
	}()

	c, ok := classify.Classify(n)
	if !ok {
		s.states[i] = StateSkipped
		return
	}
	s.states[i] = StateClassified

	if c.IsReference() {
		s.visitReference(i, span)
		return
	}

	key, err := s.ids.Key(n)
	if err != nil {
		s.states[i] = StateSkipped
		s.record(ErrIdentity, n, span, err)
		return
	}

	props := c.Props
	props[graph.PropKind] = n.Kind.String()
	props[graph.PropName] = n.Spelling
	props[graph.PropDisplayName] = n.DisplayName
	props[graph.PropUSR] = n.USR
	props[graph.PropTU] = s.tuID
	props[graph.PropFile] = span.File
	props[graph.PropLine] = span.Line

	if _, err := s.em.UpsertVertex(ctx, graph.Vertex{Label: c.Label, Key: key, Props: props}); err != nil {
		s.states[i] = StateSkipped
		s.record(ErrStoreWrite, n, span, err)
		return
	}
	s.keys[n] = key
	s.states[i] = StateVertexEmitted
	s.recorded = append(s.recorded, i)
}

// visitReference resolves the referenced declaration and queues a stub for
// it. The stub is only written if no declaration provides the key by the
// end of the pass.
func (s *Session) visitReference(i int, span location.Span) {
	n := s.entries[i].Node
	target := n.Referenced()

	label, ok := classify.LabelOf(target.Kind)
	if !ok {
		s.states[i] = StateSkipped
		return
	}
	key, err := s.ids.EntityKey(target)
	if err != nil {
		s.states[i] = StateSkipped
		s.record(ErrIdentity, n, span, err)
		return
	}

	props := graph.Props{
		graph.PropKind:        target.Kind.String(),
		graph.PropName:        target.Spelling,
		graph.PropDisplayName: target.DisplayName,
		graph.PropUSR:         target.USR,
		graph.PropTU:          s.tuID,
	}
	if target.File == s.tree.Path && target.Line > 0 {
		if ts, err := s.res.ResolveStateless(target.Line); err == nil {
			props[graph.PropFile] = ts.File
			props[graph.PropLine] = ts.Line
		}
	}
	s.stubs = append(s.stubs, stub{label: label, key: key, props: props})
	s.refs[n] = key
	s.states[i] = StateVertexEmitted
	s.recorded = append(s.recorded, i)
}

func (s *Session) flushStubs(ctx context.Context) {
	for _, st := range s.stubs {
		if s.em.Known(st.key) {
			continue
		}
		if _, err := s.em.EnsureStub(ctx, st.label, st.key, st.props); err != nil {
			s.sum.Errors[ErrStoreWrite]++
			s.log.Warn("index.stub_failed", "key", st.key, "err", err)
		}
	}
}

// --- Edge pass ---

func (s *Session) edgePass(ctx context.Context) error {
	tuKey := TUKey(s.tuID)
	if s.em.Known(tuKey) {
		for _, f := range s.files {
			s.edge(ctx, nil, graph.Edge{From: tuKey, Label: graph.EdgeIncludes, To: f})
		}
	}

	for _, i := range s.recorded {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.states[i] != StateVertexEmitted {
			continue
		}
		s.edgesFor(ctx, i)
		s.states[i] = StateEdgesEmitted
	}
	return nil
}

func (s *Session) edgesFor(ctx context.Context, i int) {
	n := s.entries[i].Node
	defer func() {
		if r := recover(); r != nil {
			s.record(ErrPanic, n, s.spans[n], fmt.Errorf("panic: %v", r))
		}
	}()

	if n.Category() == ast.CategoryReference {
		if n.Kind != ast.KindCXXBaseSpecifier {
			return
		}
		from, ok := s.keys[n.Parent()]
		if !ok {
			return
		}
		s.edge(ctx, n, graph.Edge{
			From:      from,
			Label:     graph.EdgeInherits,
			To:        s.refs[n],
			PropKey:   "access_specifier",
			PropValue: baseAccess(n),
		})
		return
	}

	key := s.keys[n]
	if !identity.OwnsEntity(n) {
		def, err := s.ids.EntityKey(n)
		if err != nil {
			s.record(ErrIdentity, n, s.spans[n], err)
			return
		}
		if def != key {
			s.edge(ctx, n, graph.Edge{From: key, Label: graph.EdgeDeclares, To: def})
		}
		return
	}

	parent, from, ok := s.container(n)
	if !ok {
		return
	}
	if parent == nil {
		span := s.spans[n]
		s.edge(ctx, n, graph.Edge{
			From:      FileKey(span.File),
			Label:     graph.EdgeContains,
			To:        key,
			PropKey:   graph.PropLine,
			PropValue: strconv.Itoa(span.Line),
		})
		return
	}
	s.edge(ctx, n, graph.Edge{From: from, Label: containLabel(parent.Kind, n.Kind), To: key})
}

// container finds the nearest semantic ancestor that became a vertex.
// Ancestors that are never materialized (linkage specifications, bodies)
// are looked through. parent is nil for top-level declarations; ok is false
// when the real container exists but was skipped.
func (s *Session) container(n *ast.Node) (parent *ast.Node, key string, ok bool) {
	for p := n.SemanticParent(); p != nil && p.Kind != ast.KindTranslationUnit; p = p.SemanticParent() {
		if k, found := s.keys[p]; found {
			return p, k, true
		}
		if classify.Materialized(p.Kind) {
			return nil, "", false
		}
	}
	return nil, "", true
}

// containLabel picks the containment edge label for a child declaration.
func containLabel(parent, child ast.Kind) graph.EdgeLabel {
	switch {
	case child == ast.KindParmDecl:
		return graph.EdgeContainsArgument
	case child.IsTemplateParameter():
		return graph.EdgeContainsTemplateArgument
	case child == ast.KindEnumConstantDecl:
		return graph.EdgeContainsValue
	case parent.IsRecord():
		switch {
		case child.IsFunction():
			return graph.EdgeContainsMethod
		case child == ast.KindFieldDecl || child == ast.KindVarDecl:
			return graph.EdgeContainsField
		default:
			return graph.EdgeContainsInner
		}
	default:
		return graph.EdgeContains
	}
}

// baseAccess is the inheritance access of a base specifier: explicit when
// written, else public for structs and unions and private for classes.
func baseAccess(n *ast.Node) string {
	if n.Access != ast.AccessInvalid {
		return n.Access.String()
	}
	if p := n.Parent(); p != nil && (p.Kind == ast.KindStructDecl || p.Kind == ast.KindUnionDecl) {
		return ast.AccessPublic.String()
	}
	return ast.AccessPrivate.String()
}

func (s *Session) edge(ctx context.Context, n *ast.Node, e graph.Edge) {
	if err := s.em.UpsertEdge(ctx, e); err != nil {
		if n == nil {
			s.sum.Errors[classOf(err)]++
			s.log.Warn("index.edge_failed", "edge", e.Label, "from", e.From, "to", e.To, "err", err)
			return
		}
		s.record(classOf(err), n, s.spans[n], err)
	}
}

// record counts a per-node failure and logs it with its source location.
// Excluded locations are routine and logged at debug level.
func (s *Session) record(class ErrorClass, n *ast.Node, span location.Span, err error) {
	s.sum.Errors[class]++
	level := slog.LevelWarn
	if class == ErrLocationExcluded || class == ErrLocationUnresolved {
		level = slog.LevelDebug
	}
	s.log.Log(context.Background(), level, "index.node_skip",
		"class", string(class),
		"kind", n.Kind.String(),
		"spelling", n.Spelling,
		"file", span.File,
		"line", span.Line,
		"artifact_line", n.Line,
		"err", err,
	)
}
