// Package classify decides which syntax-tree nodes become graph vertices and
// extracts the properties that belong to each kind.
package classify

import (
	"github.com/dusk-indust/cxxgraph/internal/ast"
	"github.com/dusk-indust/cxxgraph/internal/graph"
)

// Classification is the outcome for a node that takes part in the graph.
type Classification struct {
	Category ast.Category
	// Label is the vertex label; empty for references.
	Label graph.Label
	// Props holds the kind-specific properties. Common properties (key,
	// location, translation unit) are added by the caller.
	Props graph.Props
}

// IsReference reports whether the node is a reference to another
// declaration rather than a declaration of its own.
func (c Classification) IsReference() bool { return c.Category == ast.CategoryReference }

type extractor func(n *ast.Node, p graph.Props)

type rule struct {
	label   graph.Label
	extract extractor
}

// rules is the allow-list of declaration kinds that become vertices.
var rules = map[ast.Kind]rule{
	ast.KindNamespace:        {graph.LabelNamespace, nil},
	ast.KindNamespaceAlias:   {graph.LabelNamespace, nil},
	ast.KindClassDecl:        {graph.LabelClass, record},
	ast.KindClassTemplate:    {graph.LabelClass, record},
	ast.KindStructDecl:       {graph.LabelStruct, record},
	ast.KindUnionDecl:        {graph.LabelUnion, record},
	ast.KindEnumDecl:         {graph.LabelEnum, record},
	ast.KindEnumConstantDecl: {graph.LabelEnumValue, nil},

	ast.KindClassTemplatePartialSpecialization: {graph.LabelClass, record},

	ast.KindFieldDecl: {graph.LabelField, field},
	ast.KindVarDecl:   {graph.LabelVariable, field},
	ast.KindParmDecl:  {graph.LabelParameter, typed},

	ast.KindFunctionDecl:       {graph.LabelFunction, function},
	ast.KindFunctionTemplate:   {graph.LabelFunction, function},
	ast.KindCXXMethod:          {graph.LabelFunction, method},
	ast.KindDestructor:         {graph.LabelFunction, destructor},
	ast.KindConversionFunction: {graph.LabelFunction, conversion},
	ast.KindConstructor:        {graph.LabelFunction, constructor},

	ast.KindTypedefDecl:           {graph.LabelTypeAlias, typed},
	ast.KindTypeAliasDecl:         {graph.LabelTypeAlias, typed},
	ast.KindTypeAliasTemplateDecl: {graph.LabelTypeAlias, typed},
	ast.KindUsingDirective:        {graph.LabelUsing, nil},
	ast.KindUsingDeclaration:      {graph.LabelUsing, nil},

	ast.KindTemplateTypeParameter:     {graph.LabelTemplateParameter, nil},
	ast.KindTemplateNonTypeParameter:  {graph.LabelTemplateParameter, typed},
	ast.KindTemplateTemplateParameter: {graph.LabelTemplateParameter, nil},
}

// Classify returns the classification of n. ok is false when the node is
// skipped: kinds outside the allow-list (linkage specifications, friend
// declarations, static assertions), expressions, statements, unexposed and
// invalid nodes, and references that resolve to nothing.
func Classify(n *ast.Node) (c Classification, ok bool) {
	switch cat := n.Category(); cat {
	case ast.CategoryDeclaration:
		r, found := rules[n.Kind]
		if !found {
			return Classification{}, false
		}
		props := graph.Props{}
		if r.extract != nil {
			r.extract(n, props)
		}
		return Classification{Category: cat, Label: r.label, Props: props}, true
	case ast.CategoryReference:
		if n.Referenced() == nil {
			return Classification{}, false
		}
		return Classification{Category: cat}, true
	default:
		return Classification{}, false
	}
}

// LabelOf returns the vertex label used for declarations of kind k.
func LabelOf(k ast.Kind) (graph.Label, bool) {
	r, ok := rules[k]
	return r.label, ok
}

// Materialized reports whether declarations of kind k become vertices.
func Materialized(k ast.Kind) bool {
	_, ok := rules[k]
	return ok
}

// AccessOf returns the access specifier of n, defaulting to private when the
// front end reports none.
func AccessOf(n *ast.Node) string {
	if n.Access == ast.AccessInvalid {
		return ast.AccessPrivate.String()
	}
	return n.Access.String()
}

func exported(n *ast.Node) bool { return n.Linkage == ast.LinkageExternal }

// --- Extractors ---

func record(n *ast.Node, p graph.Props) {
	if n.IsDefinition {
		p["is_exported"] = exported(n)
	}
}

func typed(n *ast.Node, p graph.Props) {
	if n.Type != "" {
		p["type"] = n.Type
	}
}

func field(n *ast.Node, p graph.Props) {
	typed(n, p)
	p["is_exported"] = exported(n)
	p["is_static"] = n.Storage == ast.StorageStatic
	p["access_specifier"] = AccessOf(n)
}

func function(n *ast.Node, p graph.Props) {
	p["is_exported"] = exported(n)
	if n.ResultType != "" {
		p["return_type"] = n.ResultType
	}
}

func method(n *ast.Node, p graph.Props) {
	function(n, p)
	p["is_const"] = n.Method.Has(ast.MethodConst)
	p["is_static"] = n.Method.Has(ast.MethodStatic)
	p["is_virtual"] = n.Method.Has(ast.MethodVirtual)
	p["is_pure_virtual"] = n.Method.Has(ast.MethodPureVirtual)
	p["is_defaulted"] = n.Method.Has(ast.MethodDefaulted)
	p["is_deleted"] = n.Method.Has(ast.MethodDeleted)
	p["access_specifier"] = AccessOf(n)
}

func destructor(n *ast.Node, p graph.Props) {
	p["is_exported"] = exported(n)
	p["is_virtual"] = n.Method.Has(ast.MethodVirtual)
	p["is_pure_virtual"] = n.Method.Has(ast.MethodPureVirtual)
	p["is_defaulted"] = n.Method.Has(ast.MethodDefaulted)
	p["is_deleted"] = n.Method.Has(ast.MethodDeleted)
	p["access_specifier"] = AccessOf(n)
}

func conversion(n *ast.Node, p graph.Props) {
	method(n, p)
	p["is_explicit"] = n.Method.Has(ast.MethodExplicit)
}

func constructor(n *ast.Node, p graph.Props) {
	p["is_copy_constructor"] = n.Ctor.Has(ast.CtorCopy)
	p["is_default_constructor"] = n.Ctor.Has(ast.CtorDefault)
	p["is_move_constructor"] = n.Ctor.Has(ast.CtorMove)
	p["is_converting_constructor"] = n.Ctor.Has(ast.CtorConverting)
	p["is_defaulted"] = n.Method.Has(ast.MethodDefaulted)
	p["is_deleted"] = n.Method.Has(ast.MethodDeleted)
	p["is_explicit"] = n.Method.Has(ast.MethodExplicit)
	p["access_specifier"] = AccessOf(n)
}
