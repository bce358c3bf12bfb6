package index

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/cxxgraph/internal/ast"
	"github.com/dusk-indust/cxxgraph/internal/emit"
)

// Runner indexes many translation units into one store.
type Runner struct {
	Parser  ast.Parser
	Emitter *emit.Emitter
	Logger  *slog.Logger
	Options Options
	// Flags are passed to the parser for every unit.
	Flags []string
	// Workers bounds concurrent parses. Zero means runtime.NumCPU().
	Workers int
}

// Report is the outcome of IndexAll.
type Report struct {
	Summaries []*Summary
	// Failed maps paths that could not be parsed to their error.
	Failed map[string]error
	Total  *Summary
}

type parsed struct {
	tree *ast.Tree
	err  error
}

// IndexAll parses files concurrently and runs one session per unit in input
// order. Parsed trees are handed to the calling goroutine through a bounded
// queue of per-file slots, so at most about twice Workers trees are held at
// once. All graph writes happen on the calling goroutine, so the emitter's
// check-then-insert never races.
func (r *Runner) IndexAll(ctx context.Context, files []string) (*Report, error) {
	log := r.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	start := time.Now()
	log.Info("index.start", "units", len(files))

	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = max(min(workers, len(files)), 1)

	pctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(pctx)
	g.SetLimit(workers)

	// Slots are queued in input order; each is filled by exactly one parse.
	pending := make(chan chan parsed, workers)
	go func() {
		defer close(pending)
		for _, f := range files {
			slot := make(chan parsed, 1)
			select {
			case pending <- slot:
			case <-gctx.Done():
				return
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					slot <- parsed{err: err}
					return err
				}
				tree, err := r.Parser.Parse(gctx, f, r.Flags)
				slot <- parsed{tree: tree, err: err}
				return nil
			})
		}
	}()
	stop := func() {
		cancel()
		for range pending {
		}
		_ = g.Wait()
	}

	report := &Report{Failed: make(map[string]error), Total: newSummary("", "")}
	i := 0
	for slot := range pending {
		res := <-slot
		path := files[i]
		i++
		if ctx.Err() != nil {
			stop()
			return report, ctx.Err()
		}
		if res.err != nil {
			log.Warn("index.parse_failed", "path", path, "err", res.err)
			report.Failed[path] = res.err
			continue
		}
		sum, err := r.IndexTree(ctx, res.tree)
		res.tree = nil
		if sum != nil {
			report.Summaries = append(report.Summaries, sum)
			report.Total.Add(sum)
		}
		if err != nil {
			if ctx.Err() != nil {
				stop()
				return report, err
			}
			log.Warn("index.unit_failed", "path", path, "err", err)
			report.Failed[path] = err
		}
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	log.Info("index.done", "units", len(report.Summaries), "failed", len(report.Failed),
		"elapsed", time.Since(start), "summary", report.Total)
	return report, nil
}

// IndexTree runs one session over an already parsed unit.
func (r *Runner) IndexTree(ctx context.Context, tree *ast.Tree) (*Summary, error) {
	s, err := NewSession(tree, r.Emitter, r.Logger, r.Options)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx)
}
