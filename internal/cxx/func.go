package cxx

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/cxxgraph/internal/ast"
)

// funcShape is the part of a declarator that makes it a function.
type funcShape struct {
	scopes []string
	name   *tree_sitter.Node
	// decl is the function declarator holding parameters and qualifiers.
	decl *tree_sitter.Node
}

// shapeOf reports whether declarator d declares a function.
func (c *converter) shapeOf(d *tree_sitter.Node) (funcShape, bool) {
	core, fn := unwrap(d)
	if core == nil {
		return funcShape{}, false
	}
	scopes, name := splitQualified(core, c.src)
	if name == nil {
		return funcShape{}, false
	}
	if name.Kind() == "operator_cast" {
		fn = functionDeclarator(name.ChildByFieldName("declarator"))
	}
	if fn == nil {
		return funcShape{}, false
	}
	return funcShape{scopes: scopes, name: name, decl: fn}, true
}

type param struct {
	node     *tree_sitter.Node
	name     string
	typ      string
	optional bool
}

func types(params []param) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.typ
	}
	return out
}

// paramList reads a parameter list. A lone unnamed void means none.
func (c *converter) paramList(list *tree_sitter.Node) []param {
	if list == nil {
		return nil
	}
	var params []param
	for i := uint(0); i < list.ChildCount(); i++ {
		p := list.Child(i)
		if p == nil {
			continue
		}
		switch p.Kind() {
		case "parameter_declaration", "optional_parameter_declaration", "variadic_parameter_declaration":
			d := p.ChildByFieldName("declarator")
			typ := typeSpelling(p, d, c.src)
			if p.Kind() == "variadic_parameter_declaration" {
				typ += "..."
			}
			params = append(params, param{
				node:     p,
				name:     c.declaredName(d),
				typ:      typ,
				optional: p.Kind() == "optional_parameter_declaration",
			})
		case "...":
			params = append(params, param{node: p, typ: "..."})
		}
	}
	if len(params) == 1 && params[0].typ == "void" && params[0].name == "" {
		return nil
	}
	return params
}

// addParams attaches named parameters to owner.
func (c *converter) addParams(params []param, owner *ast.Node, sc *scope) {
	for _, p := range params {
		if p.name == "" {
			continue
		}
		node := c.add(owner, ast.KindParmDecl, p.node, p.name)
		node.USR = c.localUSR(p.node, owner.USR, p.name)
		node.Type = p.typ
		node.IsDefinition = true
		node.Linkage = ast.LinkageNone
		c.declare(node, "")
		c.typeRefs(p.node.ChildByFieldName("type"), node, sc)
	}
}

func (c *converter) parameters(list *tree_sitter.Node, owner *ast.Node, sc *scope) {
	c.addParams(c.paramList(list), owner, sc)
}

func (c *converter) functionDefinition(n *tree_sitter.Node, sc *scope, tmpl *templateInfo) {
	d := n.ChildByFieldName("declarator")
	if d == nil {
		return
	}
	shape, ok := c.shapeOf(d)
	if !ok {
		return
	}
	c.callable(n, d, shape, sc, tmpl, c.specsOf(n), n.ChildByFieldName("body"))
}

// callable converts a function, method, constructor, destructor or
// conversion declaration. body is nil for declarations.
func (c *converter) callable(decl, d *tree_sitter.Node, f funcShape, sc *scope, tmpl *templateInfo, s specs, body *tree_sitter.Node) *ast.Node {
	prefix, qual := sc.usr, sc.qual
	record := sc.record
	var owner *ast.Node
	if len(f.scopes) > 0 {
		record = nil
		if owner = c.lookup(f.scopes, sc); owner != nil {
			prefix, qual = owner.USR, c.quals[owner]
			if owner.Kind.IsRecord() {
				record = owner
			}
		} else {
			for _, seg := range f.scopes {
				prefix += "@N@" + seg
				qual = joinQual(qual, seg)
			}
		}
	}

	params := c.paramList(f.decl.ChildByFieldName("parameters"))
	isConst := hasChild(f.decl, c.src, "type_qualifier", "const")

	kind, spelling, result := c.callableName(f, record, decl, d)
	if tmpl != nil && owner != nil && isTemplateRecord(owner.Kind) {
		// The parameters belong to the class template being defined.
		tmpl = nil
	}
	if tmpl != nil {
		kind = ast.KindFunctionTemplate
	}
	if s.static && record == nil && owner == nil {
		prefix = c.fileScope(f.name, prefix)
	}

	sig := strings.Join(types(params), ", ")
	node := c.add(sc.parent, kind, f.name, spelling)
	node.USR = functionUSR(prefix, spelling, types(params), isConst, c.lang == LangC)
	node.DisplayName = spelling + "(" + sig + ")"
	node.ResultType = result
	node.Type = result + " (" + sig + ")"
	if isConst {
		node.Type += " const"
	}
	node.IsDefinition = body != nil || s.defaulted || s.deleted
	node.Linkage = linkage(sc, s.static && record == nil)
	if s.static {
		node.Storage = ast.StorageStatic
	} else if s.extern {
		node.Storage = ast.StorageExtern
	}
	if owner != nil && owner != sc.parent {
		node.SetSemanticParent(owner)
	}

	if record != nil {
		node.Access = sc.access
		if owner != nil {
			node.Access = defaultAccess(record.Kind)
		}
		node.Method = methodFlags(s, f.decl, isConst)
		if prev := c.occurrences[node.USR]; len(prev) > 0 && owner != nil {
			// Out-of-line definitions repeat none of the in-class specifiers.
			node.Access = prev[0].Access
			node.Storage = prev[0].Storage
			node.Method |= prev[0].Method & (ast.MethodStatic | ast.MethodVirtual | ast.MethodExplicit)
			s.explicit = s.explicit || prev[0].Method.Has(ast.MethodExplicit)
		}
		if kind == ast.KindConstructor {
			node.Ctor = ctorKind(record.Spelling, params, s.explicit)
		}
	}
	c.declare(node, "")
	c.typeRefs(decl.ChildByFieldName("type"), node, sc)

	if tmpl != nil {
		c.templateParams(tmpl, node)
	}
	c.addParams(params, node, sc)

	if body != nil {
		in := scope{
			parent:   node,
			usr:      c.localScope(body, node.USR),
			qual:     qual,
			internal: sc.internal,
			local:    true,
			fn:       node.USR,
			stmt:     true,
		}
		c.visit(body, &in)
	}
	return node
}

// callableName classifies a function declarator and returns its kind,
// spelling and result type.
func (c *converter) callableName(f funcShape, record *ast.Node, decl, d *tree_sitter.Node) (ast.Kind, string, string) {
	result := typeSpelling(decl, d, c.src)
	if tr := childOfKind(f.decl, "trailing_return_type"); tr != nil {
		result = normalizeType(strings.TrimPrefix(text(tr, c.src), "->"))
	}

	switch f.name.Kind() {
	case "destructor_name":
		return ast.KindDestructor, strings.ReplaceAll(text(f.name, c.src), " ", ""), "void"
	case "operator_cast":
		to := normalizeType(text(f.name.ChildByFieldName("type"), c.src) + declaratorSuffix(f.name.ChildByFieldName("declarator"), c.src))
		return ast.KindConversionFunction, "operator " + to, to
	}

	spelling := baseName(f.name, c.src)
	switch {
	case record == nil:
		return ast.KindFunctionDecl, spelling, result
	case spelling == record.Spelling:
		return ast.KindConstructor, spelling, "void"
	default:
		return ast.KindCXXMethod, spelling, result
	}
}

func isTemplateRecord(k ast.Kind) bool {
	return k == ast.KindClassTemplate || k == ast.KindClassTemplatePartialSpecialization
}

func methodFlags(s specs, fn *tree_sitter.Node, isConst bool) ast.MethodFlags {
	var m ast.MethodFlags
	if isConst {
		m |= ast.MethodConst
	}
	if s.static {
		m |= ast.MethodStatic
	}
	if s.virtual || s.pure || childOfKind(fn, "virtual_specifier") != nil {
		m |= ast.MethodVirtual
	}
	if s.pure {
		m |= ast.MethodPureVirtual
	}
	if s.defaulted {
		m |= ast.MethodDefaulted
	}
	if s.deleted {
		m |= ast.MethodDeleted
	}
	if s.explicit {
		m |= ast.MethodExplicit
	}
	return m
}

// ctorKind classifies a constructor of class by its parameters.
func ctorKind(class string, params []param, explicit bool) ast.CtorKind {
	var k ast.CtorKind
	required := 0
	for _, p := range params {
		if !p.optional {
			required++
		}
	}
	if required == 0 {
		k |= ast.CtorDefault
	}
	if len(params) == 0 || required > 1 {
		return k
	}
	first := params[0].typ
	constRef := strings.HasPrefix(first, "const ")
	first = strings.TrimPrefix(first, "const ")
	if strings.HasPrefix(first, class+"<") {
		if j := strings.LastIndexByte(first, '>'); j > 0 {
			first = class + first[j+1:]
		}
	}
	switch {
	case first == class+"&":
		k |= ast.CtorCopy
	case first == class+"&&" && !constRef:
		k |= ast.CtorMove
	}
	if !explicit && (len(params) == 1 || params[1].optional) {
		k |= ast.CtorConverting
	}
	return k
}
