// Package discover finds translation units to index under a directory.
package discover

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// ArtifactExtensions are the preprocessed outputs indexed by default.
var ArtifactExtensions = []string{".i", ".ii"}

// SourceExtensions are C and C++ implementation files.
var SourceExtensions = []string{".c", ".cc", ".cpp", ".cxx", ".c++"}

var skipDirs = map[string]struct{}{
	"node_modules": {},
	".git":         {},
	".hg":          {},
	".svn":         {},
	"CMakeFiles":   {},
	"_deps":        {},
}

// Options controls which files are returned.
type Options struct {
	// Extensions to accept, compared case-insensitively. Defaults to
	// ArtifactExtensions.
	Extensions []string
	// Ignore holds extra gitignore-style patterns.
	Ignore []string
	// NoGitignore disables the root .gitignore. Build trees holding
	// artifacts are usually ignored by it.
	NoGitignore bool
}

// TranslationUnits returns the absolute paths of the files under root with
// one of the accepted extensions, sorted.
func TranslationUnits(root string, opts Options) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = ArtifactExtensions
	}
	extSet := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		extSet[strings.ToLower(e)] = struct{}{}
	}

	var matchers []*ignore.GitIgnore
	if !opts.NoGitignore {
		if gi := loadGitignore(root); gi != nil {
			matchers = append(matchers, gi)
		}
	}
	if len(opts.Ignore) > 0 {
		matchers = append(matchers, ignore.CompileIgnoreLines(opts.Ignore...))
	}
	ignored := func(rel string) bool {
		for _, m := range matchers {
			if m.MatchesPath(rel) {
				return true
			}
		}
		return false
	}

	var results []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}
		if path == root {
			return nil
		}
		name := d.Name()
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") || ignored(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 || strings.HasPrefix(name, ".") {
			return nil
		}
		if _, ok := extSet[strings.ToLower(filepath.Ext(name))]; !ok {
			return nil
		}
		if ignored(rel) {
			return nil
		}
		results = append(results, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(results)
	return results, nil
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
