package location

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const artifact = `#line 1 "/repo/include/a.h"
class A {};

int x;
# 10 "/repo/src/a.cpp" 2
void f() {}
#line 3 "/usr/include/stdio.h"
int printf(const char*, ...);
`

func scanArtifact(t *testing.T, src string) Table {
	t.Helper()
	table, err := Scan(strings.NewReader(src))
	require.NoError(t, err)
	return table
}

func TestScan(t *testing.T) {
	table := scanArtifact(t, artifact)

	require.Len(t, table, 3)
	assert.Equal(t, Directive{ArtifactLine: 1, OriginalLine: 1, Path: "/repo/include/a.h"}, table[0])
	assert.Equal(t, Directive{ArtifactLine: 5, OriginalLine: 10, Path: "/repo/src/a.cpp"}, table[1])
	assert.Equal(t, Directive{ArtifactLine: 7, OriginalLine: 3, Path: "/usr/include/stdio.h"}, table[2])

	assert.Equal(t, []string{"/repo/include/a.h", "/repo/src/a.cpp", "/usr/include/stdio.h"}, table.Files())
}

func TestScan_WindowsPaths(t *testing.T) {
	table := scanArtifact(t, "#line 5 \"C:\\\\repo\\\\src\\\\b.cpp\"\nint y;\n")
	require.Len(t, table, 1)
	assert.Equal(t, `C:\repo\src\b.cpp`, table[0].Path)

	r := NewResolver(table, Options{RepoRoot: `C:\repo`})
	span, err := r.Resolve(2)
	require.NoError(t, err)
	assert.Equal(t, "src_b.cpp", span.File)
	assert.Equal(t, 6, span.Line)
}

func TestScan_IgnoresOtherDirectives(t *testing.T) {
	table := scanArtifact(t, "#include \"x.h\"\n#pragma once\n#define N 3\n")
	assert.Empty(t, table)
}

func TestTable_Locate(t *testing.T) {
	table := scanArtifact(t, artifact)

	_, _, ok := table.Locate(0)
	assert.False(t, ok)

	path, line, ok := table.Locate(8)
	require.True(t, ok)
	assert.Equal(t, "/usr/include/stdio.h", path)
	assert.Equal(t, 4, line)

	r := NewResolver(table, Options{RepoRoot: "/repo"})
	for l := 1; l <= 6; l++ {
		span, err := r.ResolveStateless(l)
		require.NoError(t, err)
		path, line, ok := table.Locate(l)
		require.True(t, ok)
		assert.Equal(t, span.Path, path, "line %d", l)
		assert.Equal(t, span.Line, line, "line %d", l)
	}
}

func TestIsDirective(t *testing.T) {
	assert.True(t, IsDirective([]byte(`# 10 "/repo/src/a.cpp" 2`)))
	assert.True(t, IsDirective([]byte(`  #line 3 "a.h"`)))
	assert.False(t, IsDirective([]byte(`#include "a.h"`)))
	assert.False(t, IsDirective([]byte(`int x; // # 1 "a.h"`)))
}

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(scanArtifact(t, artifact), Options{RepoRoot: "/repo"})

	tests := []struct {
		line     int
		wantFile string
		wantLine int
	}{
		{2, "include_a.h", 2},
		{4, "include_a.h", 4},
		{5, "src_a.cpp", 10},
		{6, "src_a.cpp", 11},
	}
	for _, tt := range tests {
		span, err := r.Resolve(tt.line)
		require.NoError(t, err, "line %d", tt.line)
		assert.Equal(t, tt.wantFile, span.File, "line %d", tt.line)
		assert.Equal(t, tt.wantLine, span.Line, "line %d", tt.line)
	}
}

func TestResolver_Excluded(t *testing.T) {
	r := NewResolver(scanArtifact(t, artifact), Options{RepoRoot: "/repo"})

	_, err := r.Resolve(8)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnresolved))

	var ue *UnresolvedError
	require.True(t, errors.As(err, &ue))
	assert.True(t, ue.Excluded)
	assert.Equal(t, "/usr/include/stdio.h", ue.Path)
}

func TestResolver_CustomExclude(t *testing.T) {
	r := NewResolver(scanArtifact(t, artifact), Options{RepoRoot: "/repo", Exclude: []string{"/repo/include"}})

	_, err := r.Resolve(2)
	assert.ErrorIs(t, err, ErrUnresolved)

	// /usr/include is no longer excluded once the list is overridden.
	span, err := r.Resolve(8)
	require.NoError(t, err)
	assert.Equal(t, "stdio.h", span.File)
}

func TestResolver_NoPrecedingDirective(t *testing.T) {
	r := NewResolver(scanArtifact(t, "int a;\n#line 1 \"/repo/a.h\"\nint b;\n"), Options{RepoRoot: "/repo"})

	_, err := r.Resolve(1)
	require.Error(t, err)
	var ue *UnresolvedError
	require.True(t, errors.As(err, &ue))
	assert.False(t, ue.Excluded)

	span, err := r.Resolve(3)
	require.NoError(t, err)
	assert.Equal(t, "a.h", span.File)
	assert.Equal(t, 2, span.Line)
}

func TestResolver_BackwardQueryFallsBack(t *testing.T) {
	r := NewResolver(scanArtifact(t, artifact), Options{RepoRoot: "/repo"})

	span, err := r.Resolve(6)
	require.NoError(t, err)
	assert.Equal(t, "src_a.cpp", span.File)

	// Going backwards must not reuse the forward cursor.
	span, err = r.Resolve(2)
	require.NoError(t, err)
	assert.Equal(t, "include_a.h", span.File)
	assert.Equal(t, 2, span.Line)

	span, err = r.Resolve(6)
	require.NoError(t, err)
	assert.Equal(t, 11, span.Line)
}

func TestResolver_ForwardMatchesStateless(t *testing.T) {
	table := scanArtifact(t, artifact)
	fwd := NewResolver(table, Options{RepoRoot: "/repo", Exclude: []string{}})
	ref := NewResolver(table, Options{RepoRoot: "/repo", Exclude: []string{}})

	for line := 1; line <= 9; line++ {
		a, errA := fwd.Resolve(line)
		b, errB := ref.ResolveStateless(line)
		assert.Equal(t, errB == nil, errA == nil, "line %d", line)
		assert.Equal(t, b, a, "line %d", line)
	}
}

func TestResolver_OffsetsAreConsistent(t *testing.T) {
	r := NewResolver(scanArtifact(t, artifact), Options{RepoRoot: "/repo"})

	// Lines 1..4 share a record: differences in original lines equal
	// differences in artifact lines.
	for l1 := 1; l1 <= 4; l1++ {
		for l2 := l1 + 1; l2 <= 4; l2++ {
			s1, err := r.ResolveStateless(l1)
			require.NoError(t, err)
			s2, err := r.ResolveStateless(l2)
			require.NoError(t, err)
			assert.Equal(t, l2-l1, s2.Line-s1.Line)
		}
	}
}

func TestResolver_Identity(t *testing.T) {
	r := NewResolver(Identity("/repo/src/main.cpp"), Options{RepoRoot: "/repo"})

	span, err := r.Resolve(42)
	require.NoError(t, err)
	assert.Equal(t, "src_main.cpp", span.File)
	assert.Equal(t, 42, span.Line)
}

func TestResolver_FileID(t *testing.T) {
	tests := []struct {
		name string
		root string
		path string
		want string
	}{
		{"under root", "/repo", "/repo/src/x/y.h", "src_x_y.h"},
		{"outside root uses base name", "/repo", "/elsewhere/z.h", "z.h"},
		{"no root keeps path", "", "src/a.cpp", "src_a.cpp"},
		{"windows separators", `C:\repo\`, `C:\repo\inc\w.h`, "inc_w.h"},
		{"case-insensitive root", `C:\Repo`, `c:\repo\inc\w.h`, "inc_w.h"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(nil, Options{RepoRoot: tt.root})
			assert.Equal(t, tt.want, r.FileID(tt.path))
		})
	}
}
