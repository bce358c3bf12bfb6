package location

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrUnresolved is matched by every resolution failure.
var ErrUnresolved = errors.New("location: unresolved")

// UnresolvedError describes why an artifact line could not be mapped.
type UnresolvedError struct {
	Line     int
	Path     string // set when the line resolved into an excluded file
	Excluded bool
}

func (e *UnresolvedError) Error() string {
	if e.Excluded {
		return fmt.Sprintf("location: line %d resolves to excluded path %s", e.Line, e.Path)
	}
	return fmt.Sprintf("location: no directive precedes line %d", e.Line)
}

// Is makes errors.Is(err, ErrUnresolved) hold for every UnresolvedError.
func (e *UnresolvedError) Is(target error) bool { return target == ErrUnresolved }

// Span is a logical source location.
type Span struct {
	Path string // original path as written in the directive
	File string // file identifier, see Resolver.FileID
	Line int
}

// DefaultExclude lists toolchain and system install prefixes whose contents
// are never part of an indexed repository.
var DefaultExclude = []string{
	"/usr/include",
	"/usr/lib",
	"/usr/local/include",
	"/Library/Developer",
	"/opt/homebrew",
	`C:\Program Files`,
	"C:/Program Files",
}

// Options configures a Resolver.
type Options struct {
	// RepoRoot makes file identifiers repository-relative.
	RepoRoot string
	// Exclude lists path prefixes that never resolve. Nil means DefaultExclude.
	Exclude []string
	// Separator replaces path separators in file identifiers. Zero means '_'.
	Separator rune
}

// Resolver answers line queries against one artifact's directive table. It
// keeps a forward cursor, so it is not safe for concurrent use; each
// traversal session owns its own Resolver.
type Resolver struct {
	table   Table
	root    string
	exclude []string
	sep     string
	cursor  int // index of the record used by the previous query, -1 before any
	last    int // previous query line
}

// NewResolver creates a Resolver over table.
func NewResolver(table Table, opts Options) *Resolver {
	exclude := opts.Exclude
	if exclude == nil {
		exclude = DefaultExclude
	}
	sep := opts.Separator
	if sep == 0 {
		sep = '_'
	}
	root := ""
	if opts.RepoRoot != "" {
		root = normalize(opts.RepoRoot)
		if !strings.HasSuffix(root, "/") {
			root += "/"
		}
	}
	norm := make([]string, 0, len(exclude))
	for _, e := range exclude {
		norm = append(norm, strings.ToLower(normalize(e)))
	}
	return &Resolver{
		table:   table,
		root:    root,
		exclude: norm,
		sep:     string(sep),
		cursor:  -1,
	}
}

// Table returns the directive table.
func (r *Resolver) Table() Table { return r.table }

// Resolve maps an artifact line to its original file and line. Queries that
// arrive in non-decreasing order advance a forward cursor; a query that goes
// backwards falls back to a scan from the end of the table.
func (r *Resolver) Resolve(line int) (Span, error) {
	var idx int
	if r.cursor >= 0 && line < r.last {
		idx = r.resolveBackward(line)
	} else {
		idx = r.resolveForward(line)
	}
	r.last = line
	if idx < 0 {
		r.cursor = -1
		return Span{}, &UnresolvedError{Line: line}
	}
	r.cursor = idx
	return r.span(idx, line)
}

// ResolveStateless maps a line with a backward scan and leaves the cursor
// untouched.
func (r *Resolver) ResolveStateless(line int) (Span, error) {
	idx := r.resolveBackward(line)
	if idx < 0 {
		return Span{}, &UnresolvedError{Line: line}
	}
	return r.span(idx, line)
}

// resolveForward advances from the current cursor while the next record
// still precedes line. Valid only for non-decreasing queries.
func (r *Resolver) resolveForward(line int) int {
	idx := r.cursor
	start := idx + 1
	if idx < 0 {
		start = 0
	}
	for i := start; i < len(r.table); i++ {
		if r.table[i].ArtifactLine > line {
			break
		}
		idx = i
	}
	return idx
}

// resolveBackward returns the last record whose directive line is <= line.
func (r *Resolver) resolveBackward(line int) int {
	for i := len(r.table) - 1; i >= 0; i-- {
		if r.table[i].ArtifactLine <= line {
			return i
		}
	}
	return -1
}

func (r *Resolver) span(idx, line int) (Span, error) {
	rec := r.table[idx]
	if r.Excluded(rec.Path) {
		return Span{}, &UnresolvedError{Line: line, Path: rec.Path, Excluded: true}
	}
	return Span{
		Path: rec.Path,
		File: r.FileID(rec.Path),
		Line: rec.OriginalLine + (line - rec.ArtifactLine),
	}, nil
}

// Excluded reports whether file lies under an excluded prefix.
func (r *Resolver) Excluded(file string) bool {
	p := strings.ToLower(normalize(file))
	for _, prefix := range r.exclude {
		if prefix != "" && strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// FileID turns a path into a file identifier usable inside graph keys: the
// path relative to the repository root (or its base name when outside the
// root), with separators replaced.
func (r *Resolver) FileID(filePath string) string {
	p := normalize(filePath)
	switch {
	case r.root != "" && strings.HasPrefix(strings.ToLower(p), strings.ToLower(r.root)):
		p = p[len(r.root):]
	case r.root != "":
		p = path.Base(p)
	}
	p = strings.TrimPrefix(p, "./")
	return strings.ReplaceAll(p, "/", r.sep)
}

// normalize converts Windows separators to forward slashes and cleans the
// path lexically.
func normalize(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if p == "" {
		return p
	}
	cleaned := path.Clean(p)
	if cleaned == "." {
		return ""
	}
	return cleaned
}
