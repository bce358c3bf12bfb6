package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dusk-indust/cxxgraph/internal/graph"
)

const defaultBackend = "kuzu"

// storeLocation resolves the backend and path from flags, then config.
func (g *Globals) storeLocation() (backend, path string) {
	backend, path = g.Backend, g.DB
	if backend == "" {
		backend = g.cfg.Store.Backend
	}
	if backend == "" {
		backend = defaultBackend
	}
	if path == "" && backend == g.cfg.Store.Backend {
		path = g.cfg.Store.Path
	}
	if path == "" {
		name := backend
		if backend == "sqlite" {
			name = "graph.db"
		}
		path = filepath.Join(".cxxgraph", name)
	}
	return backend, path
}

// openStore opens the configured graph store. create makes missing parent
// directories; without it a missing store is an error.
func (g *Globals) openStore(create bool) (graph.Store, error) {
	backend, path := g.storeLocation()
	if backend != "mem" {
		if create {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("create store directory: %w", err)
			}
		} else if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("no graph found at %s\nRun 'cxxgraph index' first", path)
		}
	}
	g.log.Debug("store.open", "backend", backend, "path", path)

	switch backend {
	case "kuzu":
		return graph.NewKuzuFileStore(path)
	case "sqlite":
		return graph.NewSQLiteStore(path)
	case "badger":
		return graph.NewBadgerStore(path)
	case "mem":
		return graph.NewMemStore(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q (want kuzu, sqlite, badger or mem)", backend)
}
