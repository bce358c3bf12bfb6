// Package location maps lines of a preprocessed compilation artifact back to
// the original source files using the line directives the preprocessor left
// behind.
package location

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
)

// Directive records that artifact line ArtifactLine carries a marker naming
// OriginalLine of Path.
type Directive struct {
	ArtifactLine int
	OriginalLine int
	Path         string
}

// Table is the ordered list of directives of one artifact, in the order they
// appear. ArtifactLine is strictly increasing.
type Table []Directive

// MSVC /P writes `#line 12 "path"`; GCC and clang -E write `# 12 "path" 1 3`.
var directiveRe = regexp.MustCompile(`^\s*#\s*(?:line\s+)?(\d+)\s+"((?:[^"\\]|\\.)*)"`)

// IsDirective reports whether line is a line marker Scan would record.
func IsDirective(line []byte) bool { return directiveRe.Match(line) }

// Scan reads an artifact once and collects its directives.
func Scan(r io.Reader) (Table, error) {
	var table Table
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		m := directiveRe.FindSubmatch(sc.Bytes())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(string(m[1]))
		if err != nil {
			return nil, fmt.Errorf("location: directive at line %d: %w", line, err)
		}
		table = append(table, Directive{
			ArtifactLine: line,
			OriginalLine: n,
			Path:         unescape(string(m[2])),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("location: scan artifact: %w", err)
	}
	return table, nil
}

// Identity returns a table mapping every line of path to itself. It stands
// in for artifacts that were never preprocessed.
func Identity(path string) Table {
	return Table{{ArtifactLine: 0, OriginalLine: 0, Path: path}}
}

// Locate maps an artifact line to the original path and line with a binary
// search. ok is false when no directive precedes line.
func (t Table) Locate(line int) (path string, original int, ok bool) {
	i := sort.Search(len(t), func(i int) bool { return t[i].ArtifactLine > line }) - 1
	if i < 0 {
		return "", 0, false
	}
	d := t[i]
	return d.Path, d.OriginalLine + (line - d.ArtifactLine), true
}

// Files lists the distinct original paths in first-seen order.
func (t Table) Files() []string {
	seen := make(map[string]bool, len(t))
	var out []string
	for _, d := range t {
		if seen[d.Path] {
			continue
		}
		seen[d.Path] = true
		out = append(out, d.Path)
	}
	return out
}

// unescape undoes the backslash escaping compilers apply to directive paths
// ("C:\\src\\a.h").
func unescape(s string) string {
	if len(s) < 2 {
		return s
	}
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '\\' || s[i+1] == '"') {
			i++
		}
		out = append(out, s[i])
	}
	return string(out)
}
