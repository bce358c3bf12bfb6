package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/cxxgraph/internal/ast"
	"github.com/dusk-indust/cxxgraph/internal/emit"
	"github.com/dusk-indust/cxxgraph/internal/graph"
)

// fakeParser serves prebuilt trees by path.
type fakeParser struct {
	mu    sync.Mutex
	trees map[string]func() *ast.Tree
	calls int
	flags []string
}

func (p *fakeParser) Parse(_ context.Context, path string, flags []string) (*ast.Tree, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.flags = flags
	build, ok := p.trees[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return build(), nil
}

func (p *fakeParser) Close() error { return nil }

func TestRunner_IndexAll(t *testing.T) {
	header := func(path string) func() *ast.Tree {
		return func() *ast.Tree {
			b := ast.NewBuilder(path)
			b.Source(lines(
				`#line 1 "/repo/shared.h"`,
				"struct Shared {};",
				`#line 1 "`+path+`"`,
				"int use();",
			))
			b.Def(nil, ast.KindStructDecl, "Shared", "c:@S@Shared", 2)
			b.Add(nil, ast.KindFunctionDecl, "use", "c:@F@use#", 4)
			return b.Tree()
		}
	}
	parser := &fakeParser{trees: map[string]func() *ast.Tree{
		"/repo/a.cpp": header("/repo/a.cpp"),
		"/repo/b.cpp": header("/repo/b.cpp"),
	}}
	store := graph.NewMemStore()
	r := &Runner{
		Parser:  parser,
		Emitter: emit.New(store, nil),
		Options: Options{RepoRoot: "/repo"},
		Flags:   []string{"-std=c++20"},
		Workers: 2,
	}

	report, err := r.IndexAll(context.Background(), []string{"/repo/a.cpp", "/repo/missing.cpp", "/repo/b.cpp"})
	require.NoError(t, err)

	assert.Equal(t, 3, parser.calls)
	assert.Equal(t, []string{"-std=c++20"}, parser.flags)
	require.Len(t, report.Summaries, 2)
	assert.Equal(t, "a.cpp", report.Summaries[0].TU, "sessions run in input order")
	assert.Contains(t, report.Failed, "/repo/missing.cpp")

	// Both units declare Shared; only the first creates it.
	vs, err := store.Vertices(context.Background())
	require.NoError(t, err)
	n := 0
	for _, v := range vs {
		if v.Key == "c:@S@Shared" {
			n++
		}
	}
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, report.Summaries[1].Emitted.VerticesCreated, "second unit only adds its TU and source file")
	assert.Equal(t, report.Summaries[0].Emitted.VerticesCreated+2, report.Total.Emitted.VerticesCreated)
}

func TestRunner_Cancelled(t *testing.T) {
	parser := &fakeParser{trees: map[string]func() *ast.Tree{}}
	r := &Runner{Parser: parser, Emitter: emit.New(graph.NewMemStore(), nil)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.IndexAll(ctx, []string{"/x.cpp"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunner_StreamsInInputOrder(t *testing.T) {
	const units, workers = 12, 2
	store := graph.NewMemStore()
	var (
		mu     sync.Mutex
		behind []string
	)
	files := make([]string, units)
	trees := make(map[string]func() *ast.Tree, units)
	for i := range files {
		path := fmt.Sprintf("/repo/u%02d.cpp", i)
		files[i] = path
		trees[path] = func() *ast.Tree {
			// Parsing unit i may only start once unit i-workers-1 is written.
			if i > workers {
				prev := fmt.Sprintf("u%02d.cpp", i-workers-1)
				ok, err := store.Exists(context.Background(), TUKey(prev))
				mu.Lock()
				if err != nil || !ok {
					behind = append(behind, prev)
				}
				mu.Unlock()
			}
			b := ast.NewBuilder(path)
			b.Source("int f();\n")
			b.Add(nil, ast.KindFunctionDecl, "f", "c:@F@f#", 1)
			return b.Tree()
		}
	}
	r := &Runner{
		Parser:  &fakeParser{trees: trees},
		Emitter: emit.New(store, nil),
		Options: Options{RepoRoot: "/repo"},
		Workers: workers,
	}

	report, err := r.IndexAll(context.Background(), files)
	require.NoError(t, err)
	assert.Empty(t, behind, "parses ran ahead of emission")
	require.Len(t, report.Summaries, units)
	for i, sum := range report.Summaries {
		assert.Equal(t, fmt.Sprintf("u%02d.cpp", i), sum.TU)
	}
	assert.Empty(t, report.Failed)
}

func TestRunner_NoFiles(t *testing.T) {
	r := &Runner{Parser: &fakeParser{}, Emitter: emit.New(graph.NewMemStore(), nil)}
	report, err := r.IndexAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Summaries)
	assert.Empty(t, report.Failed)
}

func TestSummary_Add(t *testing.T) {
	a := newSummary("a", "a.i")
	a.Errors[ErrIdentity] = 1
	a.Errors[ErrLocationExcluded] = 4
	a.States[StateEdgesEmitted] = 3
	a.Emitted.VerticesCreated = 3

	b := newSummary("b", "b.i")
	b.Errors[ErrIdentity] = 2
	b.Emitted.VerticesCreated = 1

	total := newSummary("", "")
	total.Add(a)
	total.Add(b)
	assert.Equal(t, 3, total.Errors[ErrIdentity])
	assert.Equal(t, 3, total.Failures(), "excluded locations are not failures")
	assert.Equal(t, 4, total.Emitted.VerticesCreated)
	assert.Equal(t, 3, total.States[StateEdgesEmitted])
}
