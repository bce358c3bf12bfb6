package identity

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/cxxgraph/internal/ast"
	"github.com/dusk-indust/cxxgraph/internal/location"
)

// Artifact layout used by the tests:
//
//	line 1: #line 1 "/repo/include/d.h"   -> lines 2..9 map to d.h:2..9
//	line 10: #line 1 "/repo/src/d.cpp"    -> lines 11..  map to d.cpp:2..
const artifact = "#line 1 \"/repo/include/d.h\"\n" + "\n\n\n\n\n\n\n\n" + "#line 1 \"/repo/src/d.cpp\"\n"

func newAssigner(t *testing.T) *Assigner {
	t.Helper()
	table, err := location.Scan(strings.NewReader(artifact))
	require.NoError(t, err)
	r := location.NewResolver(table, location.Options{RepoRoot: "/repo"})
	return New(ResolverLocator{R: r})
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "c:@S@A@F@f__I__", Sanitize("c:@S@A@F@f#I#"))
	assert.Equal(t, "a___b____c_q_", Sanitize(`a/b\c?`))
	assert.NotContains(t, Sanitize("c:@F@operator/#"), "/")
	assert.NotContains(t, Sanitize("c:@F@operator/#"), "#")
}

func TestKey_DefinitionUsesSignature(t *testing.T) {
	a := newAssigner(t)
	b := ast.NewBuilder("/build/d.i")
	cls := b.Def(nil, ast.KindClassDecl, "Base", "c:@S@Base", 2)

	key, err := a.Key(cls)
	require.NoError(t, err)
	assert.Equal(t, "c:@S@Base", key)
}

func TestKey_OutOfLineMethod(t *testing.T) {
	a := newAssigner(t)
	b := ast.NewBuilder("/build/d.i")

	cls := b.Def(nil, ast.KindClassDecl, "Derived", "c:@S@Derived", 3)
	decl := b.Add(cls, ast.KindCXXMethod, "m", "c:@S@Derived@F@m#", 4)
	def := b.Def(nil, ast.KindCXXMethod, "m", "c:@S@Derived@F@m#", 11)
	def.SetSemanticParent(cls)
	b.Redeclare(decl, def)

	defKey, err := a.Key(def)
	require.NoError(t, err)
	assert.Equal(t, "c:@S@Derived@F@m__", defKey)

	declKey, err := a.Key(decl)
	require.NoError(t, err)
	assert.Equal(t, "c:@S@Derived@F@m__@include_d.h@4", declKey)
	assert.NotEqual(t, defKey, declKey)

	// Both occurrences refer to the same entity key.
	entityFromDecl, err := a.EntityKey(decl)
	require.NoError(t, err)
	entityFromDef, err := a.EntityKey(def)
	require.NoError(t, err)
	assert.Equal(t, defKey, entityFromDecl)
	assert.Equal(t, defKey, entityFromDef)
}

func TestKey_ForwardDeclarationsStayDistinct(t *testing.T) {
	a := newAssigner(t)
	b := ast.NewBuilder("/build/d.i")

	first := b.Add(nil, ast.KindClassDecl, "Fwd", "c:@S@Fwd", 5)
	second := b.Add(nil, ast.KindClassDecl, "Fwd", "c:@S@Fwd", 12)
	b.Redeclare(first, second)

	k1, err := a.Key(first)
	require.NoError(t, err)
	k2, err := a.Key(second)
	require.NoError(t, err)

	assert.Equal(t, "c:@S@Fwd", k1, "canonical forward declaration owns the entity")
	assert.Equal(t, "c:@S@Fwd@src_d.cpp@3", k2)
	assert.NotEqual(t, k1, k2)

	e, err := a.EntityKey(second)
	require.NoError(t, err)
	assert.Equal(t, k1, e)
}

func TestKey_ForwardDeclarationThenDefinition(t *testing.T) {
	a := newAssigner(t)
	b := ast.NewBuilder("/build/d.i")

	fwd := b.Add(nil, ast.KindStructDecl, "S", "c:@S@S", 2)
	def := b.Def(nil, ast.KindStructDecl, "S", "c:@S@S", 6)
	b.Redeclare(fwd, def)

	fwdKey, err := a.Key(fwd)
	require.NoError(t, err)
	defKey, err := a.Key(def)
	require.NoError(t, err)

	assert.Equal(t, "c:@S@S", defKey)
	assert.Equal(t, "c:@S@S@include_d.h@2", fwdKey)

	e, err := a.EntityKey(fwd)
	require.NoError(t, err)
	assert.Equal(t, defKey, e)
}

func TestKey_AnonymousNamespace(t *testing.T) {
	a := newAssigner(t)
	b := ast.NewBuilder("/build/d.i")

	ns := b.Def(nil, ast.KindNamespace, "", "c:@aN", 11)
	ns.Anonymous = true
	x := b.Def(ns, ast.KindVarDecl, "x", "c:@aN@x", 12)

	nsKey, err := a.Key(ns)
	require.NoError(t, err)
	assert.Equal(t, "c:@aN@src_d.cpp", nsKey)

	xKey, err := a.Key(x)
	require.NoError(t, err)
	assert.Equal(t, "c:@aN@x@src_d.cpp", xKey)

	// The same anonymous namespace in the header gets another key.
	other := b.Def(nil, ast.KindNamespace, "", "c:@aN", 3)
	other.Anonymous = true
	otherKey, err := a.Key(other)
	require.NoError(t, err)
	assert.Equal(t, "c:@aN@include_d.h", otherKey)
}

func TestKey_AnonymousUnionUsesLine(t *testing.T) {
	a := newAssigner(t)
	b := ast.NewBuilder("/build/d.i")

	cls := b.Def(nil, ast.KindStructDecl, "V", "c:@S@V", 2)
	u1 := b.Def(cls, ast.KindUnionDecl, "", "c:@S@V@Ua", 3)
	u1.Anonymous = true
	u2 := b.Def(cls, ast.KindUnionDecl, "", "c:@S@V@Ua", 5)
	u2.Anonymous = true

	k1, err := a.Key(u1)
	require.NoError(t, err)
	k2, err := a.Key(u2)
	require.NoError(t, err)
	assert.Equal(t, "c:@S@V@Ua@include_d.h@3", k1)
	assert.NotEqual(t, k1, k2)
}

func TestKey_EmptySignature(t *testing.T) {
	a := newAssigner(t)
	b := ast.NewBuilder("/build/d.i")
	n := b.Def(nil, ast.KindVarDecl, "tmp", "", 3)

	_, err := a.Key(n)
	require.Error(t, err)
	var ie *Error
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, ast.KindVarDecl, ie.Kind)
	assert.Equal(t, "tmp", ie.Spelling)
}

func TestKey_UnresolvedRedeclaration(t *testing.T) {
	table := location.Table{{ArtifactLine: 10, OriginalLine: 1, Path: "/repo/a.h"}}
	a := New(ResolverLocator{R: location.NewResolver(table, location.Options{RepoRoot: "/repo"})})
	b := ast.NewBuilder("/build/a.i")

	first := b.Add(nil, ast.KindFunctionDecl, "f", "c:@F@f#", 11)
	early := b.Add(nil, ast.KindFunctionDecl, "f", "c:@F@f#", 2)
	b.Redeclare(first, early)

	_, err := a.Key(early)
	var ie *Error
	require.True(t, errors.As(err, &ie))
}
