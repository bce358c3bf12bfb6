package mcptools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/cxxgraph/internal/advisor"
	"github.com/dusk-indust/cxxgraph/internal/ast"
	"github.com/dusk-indust/cxxgraph/internal/discover"
	"github.com/dusk-indust/cxxgraph/internal/emit"
	"github.com/dusk-indust/cxxgraph/internal/graph"
	"github.com/dusk-indust/cxxgraph/internal/index"
)

const defaultQueryLimit = 100

// ErrNoAdvisor is returned by ask_codebase when no language model is set up.
var ErrNoAdvisor = errors.New("mcptools: no language model configured")

// CodeIntelService holds the graph store, parser and advisor used by MCP
// tool handlers.
type CodeIntelService struct {
	store   graph.Store
	parser  ast.Parser
	advisor *advisor.Advisor
	log     *slog.Logger

	opts    index.Options
	flags   []string
	workers int

	// mu keeps index runs single-writer.
	mu sync.Mutex
}

// NewCodeIntelService creates a CodeIntelService. adv may be nil, which
// disables ask_codebase.
func NewCodeIntelService(store graph.Store, parser ast.Parser, adv *advisor.Advisor, logger *slog.Logger) *CodeIntelService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CodeIntelService{store: store, parser: parser, advisor: adv, log: logger}
}

// SetIndexOptions sets the session options, parser flags and parse
// concurrency of index runs.
func (s *CodeIntelService) SetIndexOptions(opts index.Options, flags []string, workers int) {
	s.opts, s.flags, s.workers = opts, flags, workers
}

// IndexTranslationUnit parses and indexes translation units into the store.
func (s *CodeIntelService) IndexTranslationUnit(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexInput,
) (*mcp.CallToolResult, IndexOutput, error) {
	paths := input.Paths
	if len(paths) == 0 {
		if input.Dir == "" {
			return nil, IndexOutput{}, fmt.Errorf("paths or dir is required")
		}
		found, err := discover.TranslationUnits(input.Dir, discover.Options{})
		if err != nil {
			return nil, IndexOutput{}, fmt.Errorf("discover: %w", err)
		}
		if len(found) == 0 {
			return nil, IndexOutput{}, fmt.Errorf("no translation units under %s", input.Dir)
		}
		paths = found
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.InitSchema(ctx); err != nil {
		return nil, IndexOutput{}, fmt.Errorf("init schema: %w", err)
	}
	runner := &index.Runner{
		Parser:  s.parser,
		Emitter: emit.New(s.store, s.log),
		Logger:  s.log,
		Options: s.opts,
		Flags:   append(append([]string(nil), s.flags...), input.Flags...),
		Workers: s.workers,
	}
	report, err := runner.IndexAll(ctx, paths)
	if err != nil {
		return nil, IndexOutput{}, fmt.Errorf("index: %w", err)
	}

	out := IndexOutput{
		Units:           len(report.Summaries),
		VerticesCreated: report.Total.Emitted.VerticesCreated,
		Stubs:           report.Total.Emitted.Stubs,
		EdgesWritten:    report.Total.Emitted.EdgesWritten,
		NodeFailures:    report.Total.Failures(),
	}
	if len(report.Failed) > 0 {
		out.Failed = make(map[string]string, len(report.Failed))
		for path, err := range report.Failed {
			out.Failed[path] = err.Error()
		}
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, IndexOutput{}, fmt.Errorf("stats: %w", err)
	}
	out.Stats = *stats
	return nil, out, nil
}

// GraphSchema reports the vertex labels, edge labels and properties stored.
func (s *CodeIntelService) GraphSchema(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ GraphSchemaInput,
) (*mcp.CallToolResult, GraphSchemaOutput, error) {
	schema, err := advisor.ReadSchema(ctx, s.store)
	if err != nil {
		return nil, GraphSchemaOutput{}, err
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, GraphSchemaOutput{}, fmt.Errorf("stats: %w", err)
	}
	return nil, GraphSchemaOutput{Schema: *schema, Stats: *stats}, nil
}

// QueryGraph runs a query against the store.
func (s *CodeIntelService) QueryGraph(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryGraphInput,
) (*mcp.CallToolResult, QueryGraphOutput, error) {
	if input.Query == "" {
		return nil, QueryGraphOutput{}, fmt.Errorf("query is required")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	res, err := s.store.Query(ctx, input.Query)
	if err != nil {
		return nil, QueryGraphOutput{}, fmt.Errorf("query: %w", err)
	}
	out := QueryGraphOutput{Dialect: s.store.Dialect(), Columns: res.Columns, Rows: res.Rows}
	if len(out.Rows) > limit {
		out.Rows = out.Rows[:limit]
		out.Truncated = true
	}
	if out.Rows == nil {
		out.Rows = [][]any{}
	}
	return nil, out, nil
}

// AskCodebase answers a question with the advisor.
func (s *CodeIntelService) AskCodebase(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if input.Question == "" {
		return nil, AskOutput{}, fmt.Errorf("question is required")
	}
	if s.advisor == nil {
		return nil, AskOutput{}, ErrNoAdvisor
	}
	res, err := s.advisor.Ask(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}
	return nil, AskOutput{Query: res.Query, Rows: res.Rows, QueryError: res.QueryError, Answer: res.Answer}, nil
}
