package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_Category(t *testing.T) {
	tests := []struct {
		kind Kind
		want Category
	}{
		{KindInvalid, CategoryInvalid},
		{KindUnexposedDecl, CategoryUnexposed},
		{KindUnexposedExpr, CategoryUnexposed},
		{KindStructDecl, CategoryDeclaration},
		{KindLinkageSpec, CategoryDeclaration},
		{KindStaticAssert, CategoryDeclaration},
		{KindTypeRef, CategoryReference},
		{KindCXXBaseSpecifier, CategoryReference},
		{KindMemberRef, CategoryReference},
		{KindDeclRefExpr, CategoryExpression},
		{KindLambdaExpr, CategoryExpression},
		{KindCompoundStmt, CategoryStatement},
		{KindWhileStmt, CategoryStatement},
		{KindTranslationUnit, CategoryTranslationUnit},
		{kindCount, CategoryInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.Category())
		})
	}
}

func TestKind_NamesRoundTrip(t *testing.T) {
	for k := KindInvalid; k < kindCount; k++ {
		name := k.String()
		require.NotEmpty(t, name, "kind %d has no name", k)
		got, ok := ParseKind(name)
		require.True(t, ok, name)
		assert.Equal(t, k, got)
	}
	_, ok := ParseKind("NOT_A_KIND")
	assert.False(t, ok)
	assert.Equal(t, "INVALID_FILE", Kind(-3).String())
}

func TestKind_Predicates(t *testing.T) {
	assert.True(t, KindClassTemplate.IsRecord())
	assert.False(t, KindEnumDecl.IsRecord())
	assert.True(t, KindDestructor.IsMethod())
	assert.True(t, KindDestructor.IsFunction())
	assert.True(t, KindFunctionTemplate.IsFunction())
	assert.False(t, KindFunctionTemplate.IsMethod())
	assert.True(t, KindTemplateNonTypeParameter.IsTemplateParameter())
	assert.False(t, KindParmDecl.IsTemplateParameter())
}

func TestNode_DefinitionAndCanonical(t *testing.T) {
	b := NewBuilder("t.i")
	fwd := b.Add(nil, KindClassDecl, "C", "c:@S@C", 1)
	def := b.Def(nil, KindClassDecl, "C", "c:@S@C", 3)
	late := b.Add(nil, KindClassDecl, "C", "c:@S@C", 9)
	b.Redeclare(fwd, def)
	b.Redeclare(fwd, late)

	assert.True(t, fwd.IsCanonical())
	assert.False(t, def.IsCanonical())
	assert.Same(t, fwd, late.Canonical())

	assert.Same(t, def, fwd.Definition())
	assert.Same(t, def, def.Definition())
	assert.Same(t, def, late.Definition())
}

func TestNode_DefinitionMissing(t *testing.T) {
	b := NewBuilder("t.i")
	a := b.Add(nil, KindFunctionDecl, "f", "c:@F@f#", 1)
	c := b.Add(nil, KindFunctionDecl, "f", "c:@F@f#", 2)
	b.Redeclare(a, c)

	assert.Nil(t, a.Definition())
	assert.Nil(t, c.Definition())
}

func TestNode_SemanticParent(t *testing.T) {
	b := NewBuilder("t.i")
	ns := b.Def(nil, KindNamespace, "n", "c:@N@n", 1)
	cls := b.Def(ns, KindClassDecl, "C", "c:@N@n@S@C", 2)
	m := b.Def(ns, KindCXXMethod, "m", "c:@N@n@S@C@F@m#", 5)

	assert.Same(t, ns, m.SemanticParent())
	m.SetSemanticParent(cls)
	assert.Same(t, cls, m.SemanticParent())
	assert.Same(t, ns, m.Parent())
	assert.Same(t, b.Root(), ns.Parent())
}

func TestNode_SetCanonicalSelf(t *testing.T) {
	n := &Node{Kind: KindVarDecl}
	n.SetCanonical(n)
	assert.True(t, n.IsCanonical())
}

func TestWalk_PreOrderAndPrune(t *testing.T) {
	b := NewBuilder("t.i")
	ns := b.Def(nil, KindNamespace, "n", "c:@N@n", 1)
	cls := b.Def(ns, KindClassDecl, "C", "c:@N@n@S@C", 2)
	b.Def(cls, KindFieldDecl, "f", "c:@N@n@S@C@FI@f", 3)
	b.Def(nil, KindVarDecl, "v", "c:@v", 6)

	var seen []string
	Walk(b.Root(), func(n *Node) bool {
		seen = append(seen, n.Spelling)
		return n.Kind != KindClassDecl
	})
	assert.Equal(t, []string{"t.i", "n", "C", "v"}, seen)
}

func TestBuilder_Ref(t *testing.T) {
	b := NewBuilder("t.i")
	base := b.Def(nil, KindClassDecl, "Base", "c:@S@Base", 1)
	derived := b.Def(nil, KindClassDecl, "Derived", "c:@S@Derived", 2)
	ref := b.Ref(derived, KindCXXBaseSpecifier, base, 2)

	assert.Equal(t, CategoryReference, ref.Category())
	assert.Same(t, base, ref.Referenced())
	assert.Equal(t, "c:@S@Base", ref.USR)
	assert.Len(t, derived.Children(), 1)
}

func TestAccess_String(t *testing.T) {
	assert.Equal(t, "public", AccessPublic.String())
	assert.Equal(t, "protected", AccessProtected.String())
	assert.Equal(t, "private", AccessPrivate.String())
	assert.Equal(t, "none", AccessInvalid.String())
}

func TestFlags_Has(t *testing.T) {
	m := MethodConst | MethodVirtual
	assert.True(t, m.Has(MethodConst))
	assert.True(t, m.Has(MethodConst|MethodVirtual))
	assert.False(t, m.Has(MethodStatic))

	c := CtorCopy | CtorConverting
	assert.True(t, c.Has(CtorCopy))
	assert.False(t, c.Has(CtorMove))
}
