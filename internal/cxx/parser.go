// Package cxx is a C and C++ front end built on tree-sitter. It turns a
// source file or preprocessed artifact into an ast.Tree whose declarations
// carry synthesized unique signatures (USRs) and are linked to their
// canonical and defining occurrences.
package cxx

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"

	"github.com/dusk-indust/cxxgraph/internal/ast"
	"github.com/dusk-indust/cxxgraph/internal/location"
)

// Language selects the grammar a unit is parsed with.
type Language int

const (
	LangCPP Language = iota
	LangC
)

func (l Language) String() string {
	if l == LangC {
		return "c"
	}
	return "c++"
}

// Parser implements ast.Parser with the tree-sitter C and C++ grammars.
// A tree-sitter parser is created per Parse call, so one Parser may be
// shared by concurrent callers.
type Parser struct {
	languages map[Language]*tree_sitter.Language
	repoRoot  string
}

var _ ast.Parser = (*Parser)(nil)

// Option configures a Parser.
type Option func(*Parser)

// WithRepoRoot makes the file identifiers inside local and file-scoped
// signatures relative to dir, matching the identifiers the indexer uses.
func WithRepoRoot(dir string) Option {
	return func(p *Parser) { p.repoRoot = dir }
}

// New creates a Parser with both grammars registered.
func New(opts ...Option) *Parser {
	p := &Parser{
		languages: map[Language]*tree_sitter.Language{
			LangCPP: tree_sitter.NewLanguage(tree_sitter_cpp.Language()),
			LangC:   tree_sitter.NewLanguage(tree_sitter_c.Language()),
		},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Parse reads path and parses it. flags are recorded on the tree and select
// the grammar (see DetectLanguage); the source is not preprocessed.
func (p *Parser) Parse(ctx context.Context, path string, flags []string) (*ast.Tree, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cxx: read %s: %w", path, err)
	}
	return p.ParseSource(ctx, path, src, flags)
}

// ParseSource parses src as the contents of path.
func (p *Parser) ParseSource(ctx context.Context, path string, src []byte, flags []string) (*ast.Tree, error) {
	lang := DetectLanguage(path, flags)

	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.languages[lang]); err != nil {
		return nil, fmt.Errorf("cxx: set language %s: %w", lang, err)
	}

	table, err := location.Scan(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("cxx: %s: %w", path, err)
	}
	masked := maskDirectives(src)
	tree := parser.ParseCtx(ctx, masked, nil)
	if tree == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("cxx: tree-sitter returned nil tree for %s", path)
	}
	defer tree.Close()

	c := newConverter(path, masked, lang, table, p.repoRoot)
	root := c.convert(tree.RootNode())
	return &ast.Tree{Path: path, Source: src, Flags: flags, Root: root}, nil
}

// Close is a no-op because parsers are created per Parse call.
func (p *Parser) Close() error {
	return nil
}

// DetectLanguage picks the C grammar for .c files, for -x c and for C
// language standards, and the C++ grammar otherwise.
func DetectLanguage(path string, flags []string) Language {
	for i, f := range flags {
		switch {
		case f == "-x" && i+1 < len(flags):
			return langOfName(flags[i+1])
		case strings.HasPrefix(f, "-x") && len(f) > 2:
			return langOfName(f[2:])
		case strings.HasPrefix(f, "-std="), strings.HasPrefix(f, "/std:"):
			std := f[strings.IndexAny(f, "=:")+1:]
			if !strings.Contains(std, "++") && (strings.HasPrefix(std, "c") || strings.HasPrefix(std, "gnu")) {
				return LangC
			}
		case f == "/TC":
			return LangC
		}
	}
	if strings.EqualFold(filepath.Ext(path), ".c") {
		return LangC
	}
	return LangCPP
}

func langOfName(name string) Language {
	switch name {
	case "c", "c-header", "cpp-output":
		return LangC
	}
	return LangCPP
}

// maskDirectives blanks line markers so the grammar does not see them.
// Byte offsets and line numbers are preserved.
func maskDirectives(src []byte) []byte {
	var out []byte
	start := 0
	for start < len(src) {
		end := bytes.IndexByte(src[start:], '\n')
		if end < 0 {
			end = len(src)
		} else {
			end += start
		}
		if line := src[start:end]; location.IsDirective(line) {
			if out == nil {
				out = bytes.Clone(src)
			}
			for i := start; i < end; i++ {
				if out[i] != '\r' {
					out[i] = ' '
				}
			}
		}
		start = end + 1
	}
	if out == nil {
		return src
	}
	return out
}
