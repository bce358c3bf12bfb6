package cxx

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/cxxgraph/internal/ast"
)

// specs are the declaration specifiers and clauses written around a
// declarator.
type specs struct {
	static, extern, virtual, explicit bool
	pure, defaulted, deleted          bool
}

func (c *converter) specsOf(n *tree_sitter.Node) specs {
	var s specs
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if n.FieldNameForChild(uint32(i)) == "default_value" && child.Utf8Text(c.src) == "0" {
			// A member function declarator followed by "= 0".
			s.pure = true
		}
		switch child.Kind() {
		case "storage_class_specifier":
			switch child.Utf8Text(c.src) {
			case "static":
				s.static = true
			case "extern":
				s.extern = true
			}
		case "virtual":
			s.virtual = true
		case "explicit_function_specifier":
			s.explicit = true
		case "pure_virtual_clause":
			s.pure = true
		case "default_method_clause":
			s.defaulted = true
		case "delete_method_clause":
			s.deleted = true
		}
	}
	return s
}

func (c *converter) namespace(n *tree_sitter.Node, sc *scope) {
	var names []string
	if name := n.ChildByFieldName("name"); name != nil {
		for _, seg := range strings.Split(text(name, c.src), "::") {
			if seg = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(seg), "inline")); seg != "" {
				names = append(names, seg)
			}
		}
	}
	if len(names) == 0 {
		names = []string{""}
	}

	in := *sc
	for _, name := range names {
		node := c.add(in.parent, ast.KindNamespace, n, name)
		node.IsDefinition = true
		node.Linkage = ast.LinkageExternal
		if name == "" {
			node.Anonymous = true
			node.USR = in.usr + "@aN"
			in.internal = true
		} else {
			node.USR = in.usr + "@N@" + name
		}
		if in.internal {
			node.Linkage = ast.LinkageInternal
		}
		in.qual = joinQual(in.qual, name)
		c.declare(node, in.qual)
		in.parent = node
		in.usr = node.USR
	}
	if body := n.ChildByFieldName("body"); body != nil {
		c.children(body, &in)
	}
}

func (c *converter) namespaceAlias(n *tree_sitter.Node, sc *scope) {
	name := text(n.ChildByFieldName("name"), c.src)
	if name == "" {
		return
	}
	node := c.add(sc.parent, ast.KindNamespaceAlias, n, name)
	node.USR = sc.usr + "@NA@" + name
	node.IsDefinition = true
	node.Linkage = linkage(sc, false)
	c.declare(node, joinQual(sc.qual, name))
}

// templateInfo carries the parameter list of an enclosing template
// declaration.
type templateInfo struct {
	params *tree_sitter.Node
}

// specifier converts a class, struct, union or enum specifier. Without a
// body it is a forward declaration only when standalone.
func (c *converter) specifier(n *tree_sitter.Node, sc *scope, tmpl *templateInfo, standalone bool) *ast.Node {
	body := n.ChildByFieldName("body")
	if body == nil && (!standalone || n.ChildByFieldName("name") == nil) {
		return nil
	}
	if n.Kind() == "enum_specifier" {
		return c.enum(n, sc)
	}
	return c.record(n, sc, tmpl)
}

func (c *converter) record(n *tree_sitter.Node, sc *scope, tmpl *templateInfo) *ast.Node {
	var kind ast.Kind
	tag := "@S"
	access := ast.AccessPublic
	switch n.Kind() {
	case "class_specifier":
		kind, access = ast.KindClassDecl, ast.AccessPrivate
	case "union_specifier":
		kind, tag = ast.KindUnionDecl, "@U"
	default:
		kind = ast.KindStructDecl
	}

	nameNode := n.ChildByFieldName("name")
	name, display := "", ""
	prefix, qual := sc.usr, sc.qual
	var owner *ast.Node
	if nameNode != nil {
		display = text(nameNode, c.src)
		scopes, last := splitQualified(nameNode, c.src)
		if last != nil {
			name = baseName(last, c.src)
		}
		if owner = c.lookup(scopes, sc); owner != nil {
			prefix, qual = owner.USR, c.quals[owner]
		}
	}
	if c.lang == LangC && name != "" {
		prefix = "c:"
	}

	// Specializations are keyed by their spelled arguments.
	signature := name
	if tmpl != nil {
		switch {
		case nameNode != nil && nameNode.Kind() == "template_type" && tmpl.params.NamedChildCount() > 0:
			kind, tag = ast.KindClassTemplatePartialSpecialization, "@SP"
			signature = display
		case nameNode != nil && nameNode.Kind() == "template_type":
			signature = display
		default:
			kind, tag = ast.KindClassTemplate, "@ST"
		}
	}

	node := c.add(sc.parent, kind, n, name)
	node.DisplayName = display
	node.IsDefinition = n.ChildByFieldName("body") != nil
	node.Linkage = linkage(sc, false)
	if sc.record != nil {
		node.Access = sc.access
	}
	if owner != nil && owner != sc.parent {
		node.SetSemanticParent(owner)
	}
	inQual := sc.qual
	if name == "" {
		node.Anonymous = true
		node.USR = prefix + tag + "a"
		c.declare(node, "")
	} else {
		node.USR = prefix + tag + "@" + signature
		inQual = joinQual(qual, name)
		c.declare(node, inQual)
	}

	if tmpl != nil {
		c.templateParams(tmpl, node)
	}
	if clause := childOfKind(n, "base_class_clause"); clause != nil {
		c.bases(clause, node, sc, access)
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		return node
	}
	in := scope{
		parent:   node,
		usr:      node.USR,
		qual:     inQual,
		record:   node,
		access:   access,
		internal: sc.internal,
		local:    sc.local,
		fn:       sc.fn,
	}
	for i := uint(0); i < body.NamedChildCount(); i++ {
		if child := body.NamedChild(i); child != nil {
			c.visit(child, &in)
		}
	}
	return node
}

func defaultAccess(k ast.Kind) ast.Access {
	if k == ast.KindClassDecl || isTemplateRecord(k) {
		return ast.AccessPrivate
	}
	return ast.AccessPublic
}

// bases adds one base specifier reference per entry of a base clause.
func (c *converter) bases(clause *tree_sitter.Node, record *ast.Node, sc *scope, def ast.Access) {
	access := ast.AccessInvalid
	for i := uint(0); i < clause.ChildCount(); i++ {
		child := clause.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "access_specifier":
			access = accessOf(child.Utf8Text(c.src))
		case "type_identifier", "qualified_identifier", "template_type":
			target := c.lookup(pathOf(child, c.src), sc)
			if target == nil {
				target = c.externalRecord(child)
			}
			ref := c.add(record, ast.KindCXXBaseSpecifier, child, text(child, c.src))
			ref.USR = target.USR
			ref.Access = access
			if ref.Access == ast.AccessInvalid {
				ref.Access = def
			}
			ref.SetReferenced(target)
			access = ast.AccessInvalid
		}
	}
}

// externalRecord stands in for a base class this unit never declares.
// Qualifiers are assumed to be namespaces.
func (c *converter) externalRecord(n *tree_sitter.Node) *ast.Node {
	path := pathOf(n, c.src)
	if len(path) == 0 {
		path = []string{text(n, c.src)}
	}
	usr := "c:"
	for _, seg := range path[:len(path)-1] {
		usr += "@N@" + seg
	}
	name := path[len(path)-1]
	usr += "@S@" + name
	if ext, ok := c.external[usr]; ok {
		return ext
	}
	ext := &ast.Node{
		Kind:        ast.KindClassDecl,
		Spelling:    name,
		DisplayName: strings.Join(path, "::"),
		USR:         usr,
		Linkage:     ast.LinkageExternal,
	}
	c.external[usr] = ext
	return ext
}

// typeRefs adds a reference under owner for the named type t and for the
// types among its template arguments. Unqualified names that resolve to no
// declaration of this unit are left alone; they are mostly template
// parameters. Unresolved qualified names become external records.
func (c *converter) typeRefs(t *tree_sitter.Node, owner *ast.Node, sc *scope) {
	if t == nil {
		return
	}
	switch t.Kind() {
	case "type_identifier", "qualified_identifier", "template_type":
		_, last := splitQualified(t, c.src)
		if last == nil {
			return
		}
		target := c.lookup(pathOf(t, c.src), sc)
		if target == nil && t.Kind() == "qualified_identifier" {
			target = c.externalRecord(t)
		}
		if target != nil {
			kind := ast.KindTypeRef
			if last.Kind() == "template_type" {
				kind = ast.KindTemplateRef
			}
			ref := c.add(owner, kind, t, text(t, c.src))
			ref.USR = target.USR
			ref.SetReferenced(target)
		}
		if last.Kind() == "template_type" {
			c.typeRefs(last.ChildByFieldName("arguments"), owner, sc)
		}
	case "template_argument_list":
		for i := uint(0); i < t.NamedChildCount(); i++ {
			if arg := t.NamedChild(i); arg != nil && arg.Kind() == "type_descriptor" {
				c.typeRefs(arg.ChildByFieldName("type"), owner, sc)
			}
		}
	}
}

func (c *converter) enum(n *tree_sitter.Node, sc *scope) *ast.Node {
	name := ""
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = baseName(nameNode, c.src)
	}
	prefix := sc.usr
	if c.lang == LangC && name != "" {
		prefix = "c:"
	}
	node := c.add(sc.parent, ast.KindEnumDecl, n, name)
	node.IsDefinition = n.ChildByFieldName("body") != nil
	if sc.record != nil {
		node.Access = sc.access
	}
	node.Linkage = linkage(sc, false)
	qual := ""
	if name == "" {
		node.Anonymous = true
		node.USR = prefix + "@Ea"
	} else {
		node.USR = prefix + "@E@" + name
		qual = joinQual(sc.qual, name)
	}
	c.declare(node, qual)

	body := n.ChildByFieldName("body")
	if body == nil {
		return node
	}
	for i := uint(0); i < body.NamedChildCount(); i++ {
		e := body.NamedChild(i)
		if e == nil || e.Kind() != "enumerator" {
			continue
		}
		ename := text(e.ChildByFieldName("name"), c.src)
		v := c.add(node, ast.KindEnumConstantDecl, e, ename)
		v.USR = node.USR + "@" + ename
		v.IsDefinition = true
		v.Access = node.Access
		v.Linkage = node.Linkage
		c.declare(v, "")
	}
	return node
}

// declaration converts a simple declaration: variables, function
// prototypes, and constructor or conversion declarations in class bodies.
func (c *converter) declaration(n *tree_sitter.Node, sc *scope, tmpl *templateInfo) {
	declarators := fieldAll(n, "declarator")
	if t := n.ChildByFieldName("type"); t != nil {
		c.specifier(t, sc, tmpl, len(declarators) == 0)
	}
	s := c.specsOf(n)
	for _, d := range declarators {
		if shape, ok := c.shapeOf(d); ok {
			c.callable(n, d, shape, sc, tmpl, s, nil)
			continue
		}
		c.variable(n, d, sc, s, false)
	}
}

// fieldDeclaration converts a member declaration in a class body.
func (c *converter) fieldDeclaration(n *tree_sitter.Node, sc *scope) {
	declarators := fieldAll(n, "declarator")
	if t := n.ChildByFieldName("type"); t != nil {
		c.specifier(t, sc, nil, len(declarators) == 0)
	}
	s := c.specsOf(n)
	for _, d := range declarators {
		if shape, ok := c.shapeOf(d); ok {
			c.callable(n, d, shape, sc, nil, s, nil)
			continue
		}
		c.variable(n, d, sc, s, true)
	}
}

// variable converts one declarator of a variable or data member.
func (c *converter) variable(decl, d *tree_sitter.Node, sc *scope, s specs, member bool) {
	core, _ := unwrap(d)
	if core == nil {
		return
	}
	scopes, nameNode := splitQualified(core, c.src)
	if nameNode == nil {
		return
	}
	switch nameNode.Kind() {
	case "identifier", "field_identifier":
	default:
		return
	}
	name := nameNode.Utf8Text(c.src)

	kind := ast.KindVarDecl
	if member && !s.static {
		kind = ast.KindFieldDecl
	}
	node := c.add(sc.parent, kind, nameNode, name)
	node.Type = typeSpelling(decl, d, c.src)
	node.Linkage = linkage(sc, s.static)
	if member {
		node.Access = sc.access
	}
	if s.static {
		node.Storage = ast.StorageStatic
	} else if s.extern {
		node.Storage = ast.StorageExtern
	}
	hasInit := d.Kind() == "init_declarator" || decl.ChildByFieldName("default_value") != nil

	switch {
	case len(scopes) > 0:
		// Out-of-line definition of a static data member.
		owner := c.lookup(scopes, sc)
		prefix := sc.usr
		if owner != nil {
			prefix = owner.USR
			node.SetSemanticParent(owner)
			if prev := c.occurrences[prefix+"@"+name]; len(prev) > 0 {
				node.Access = prev[0].Access
				node.Storage = prev[0].Storage
			}
		} else {
			for _, seg := range scopes {
				prefix += "@N@" + seg
			}
		}
		node.USR = prefix + "@" + name
		node.IsDefinition = true
	case sc.local && sc.record == nil:
		node.USR = c.localUSR(nameNode, sc.fn, name)
		node.IsDefinition = !s.extern
	case kind == ast.KindFieldDecl:
		node.USR = sc.usr + "@FI@" + name
		node.IsDefinition = true
	case member:
		node.USR = sc.usr + "@" + name
		node.IsDefinition = hasInit
	default:
		prefix := sc.usr
		if s.static {
			prefix = c.fileScope(nameNode, sc.usr)
		}
		node.USR = prefix + "@" + name
		node.IsDefinition = !s.extern || hasInit
	}
	c.declare(node, "")
	c.typeRefs(decl.ChildByFieldName("type"), node, sc)

	if d.Kind() == "init_declarator" {
		if value := d.ChildByFieldName("value"); value != nil {
			in := *sc
			in.parent = node
			in.stmt = true
			if in.fn == "" {
				in.fn = node.USR
			}
			c.visit(value, &in)
		}
	}
}

func (c *converter) typedef(n *tree_sitter.Node, sc *scope) {
	declarators := fieldAll(n, "declarator")
	if t := n.ChildByFieldName("type"); t != nil {
		c.specifier(t, sc, nil, false)
	}
	for _, d := range declarators {
		core, _ := unwrap(d)
		if core == nil {
			continue
		}
		name := core.Utf8Text(c.src)
		node := c.add(sc.parent, ast.KindTypedefDecl, core, name)
		node.USR = sc.usr + "@T@" + name
		node.Type = typeSpelling(n, d, c.src)
		node.IsDefinition = true
		node.Linkage = linkage(sc, false)
		if sc.record != nil {
			node.Access = sc.access
		}
		c.declare(node, joinQual(sc.qual, name))
	}
}

func (c *converter) alias(n *tree_sitter.Node, sc *scope, tmpl *templateInfo) {
	name := text(n.ChildByFieldName("name"), c.src)
	if name == "" {
		return
	}
	kind := ast.KindTypeAliasDecl
	if tmpl != nil {
		kind = ast.KindTypeAliasTemplateDecl
	}
	node := c.add(sc.parent, kind, n, name)
	node.USR = sc.usr + "@T@" + name
	node.Type = normalizeType(text(n.ChildByFieldName("type"), c.src))
	node.IsDefinition = true
	node.Linkage = linkage(sc, false)
	if sc.record != nil {
		node.Access = sc.access
	}
	c.declare(node, joinQual(sc.qual, name))
	if tmpl != nil {
		c.templateParams(tmpl, node)
	}
}

func (c *converter) using(n *tree_sitter.Node, sc *scope) {
	target := childOfKind(n, "identifier", "qualified_identifier")
	if target == nil {
		return
	}
	name := text(target, c.src)
	if hasChild(n, c.src, "namespace", "") {
		node := c.add(sc.parent, ast.KindUsingDirective, n, name)
		node.USR = c.localUSR(n, "", "UD@"+name)
		node.IsDefinition = true
		c.declare(node, "")
		return
	}
	node := c.add(sc.parent, ast.KindUsingDeclaration, n, name)
	node.USR = sc.usr + "@UD@" + name
	node.IsDefinition = true
	if sc.record != nil {
		node.Access = sc.access
	}
	c.declare(node, "")
}

// template converts a template declaration by handing its parameter list
// to the declaration it wraps.
func (c *converter) template(n *tree_sitter.Node, sc *scope) {
	tmpl := &templateInfo{params: n.ChildByFieldName("parameters")}
	if tmpl.params == nil {
		return
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "template_parameter_list", "requires_clause", "comment":
		case "class_specifier", "struct_specifier", "union_specifier":
			c.specifier(child, sc, tmpl, true)
		case "declaration", "field_declaration":
			c.templatedDeclaration(child, sc, tmpl)
		case "function_definition":
			c.functionDefinition(child, sc, tmpl)
		case "alias_declaration":
			c.alias(child, sc, tmpl)
		case "template_declaration":
			// Member template of a class template defined out of line.
			c.template(child, sc)
		default:
			c.visit(child, sc)
		}
	}
}

func (c *converter) templatedDeclaration(n *tree_sitter.Node, sc *scope, tmpl *templateInfo) {
	declarators := fieldAll(n, "declarator")
	if t := n.ChildByFieldName("type"); t != nil && len(declarators) == 0 {
		c.specifier(t, sc, tmpl, true)
		return
	}
	if n.Kind() == "field_declaration" {
		c.fieldDeclaration(n, sc)
		return
	}
	c.declaration(n, sc, tmpl)
}

// templateParams adds the parameters of tmpl as children of owner.
func (c *converter) templateParams(tmpl *templateInfo, owner *ast.Node) {
	list := tmpl.params
	for i := uint(0); i < list.NamedChildCount(); i++ {
		p := list.NamedChild(i)
		if p == nil {
			continue
		}
		var kind ast.Kind
		var name, typ string
		switch p.Kind() {
		case "type_parameter_declaration", "variadic_type_parameter_declaration":
			kind = ast.KindTemplateTypeParameter
			name = text(childOfKind(p, "type_identifier"), c.src)
		case "optional_type_parameter_declaration":
			kind = ast.KindTemplateTypeParameter
			name = text(p.ChildByFieldName("name"), c.src)
		case "template_template_parameter_declaration":
			kind = ast.KindTemplateTemplateParameter
			if tp := childOfKind(p, "type_parameter_declaration", "variadic_type_parameter_declaration", "optional_type_parameter_declaration"); tp != nil {
				if id := childOfKind(tp, "type_identifier"); id != nil {
					name = text(id, c.src)
				}
			}
		case "parameter_declaration", "optional_parameter_declaration", "variadic_parameter_declaration":
			kind = ast.KindTemplateNonTypeParameter
			d := p.ChildByFieldName("declarator")
			name = c.declaredName(d)
			typ = typeSpelling(p, d, c.src)
		default:
			continue
		}
		if name == "" {
			continue
		}
		node := c.add(owner, kind, p, name)
		node.USR = c.localUSR(p, owner.USR, name)
		node.Type = typ
		node.IsDefinition = true
		node.Linkage = ast.LinkageNone
		c.declare(node, "")
	}
}

// declaredName returns the identifier a parameter declarator introduces.
func (c *converter) declaredName(d *tree_sitter.Node) string {
	if d == nil {
		return ""
	}
	if d.Kind() == "variadic_declarator" {
		return text(childOfKind(d, "identifier"), c.src)
	}
	core, _ := unwrap(d)
	if core == nil {
		return ""
	}
	if core.Kind() == "variadic_declarator" {
		return text(childOfKind(core, "identifier"), c.src)
	}
	if core.Kind() != "identifier" {
		return ""
	}
	return core.Utf8Text(c.src)
}
