package cxx

import (
	"strconv"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/cxxgraph/internal/ast"
	"github.com/dusk-indust/cxxgraph/internal/location"
)

// converter turns one tree-sitter tree into an ast tree.
type converter struct {
	path string
	src  []byte
	lang Language
	root *ast.Node

	// table maps artifact lines to original files; ids names those files.
	table   location.Table
	ids     *location.Resolver
	fileIDs map[string]string

	// occurrences groups declaration nodes by USR in encounter order.
	occurrences map[string][]*ast.Node
	order       []string
	// names maps qualified names of scopes and types to their declaration,
	// preferring definitions.
	names map[string]*ast.Node
	quals map[*ast.Node]string
	// external holds targets of references that this unit never declares.
	external map[string]*ast.Node
}

// scope is the context a declaration is converted in.
type scope struct {
	parent *ast.Node
	// usr is the prefix of USRs declared here, e.g. "c:@N@ns@S@X".
	usr  string
	qual string
	// record is set inside a class body; access is the current access there.
	record *ast.Node
	access ast.Access
	// internal marks anonymous-namespace contents.
	internal bool
	// local marks entities without linkage; fn is the USR of the enclosing
	// function, stmt is set while walking statements.
	local bool
	fn    string
	stmt  bool
}

func newConverter(path string, src []byte, lang Language, table location.Table, repoRoot string) *converter {
	if len(table) == 0 {
		table = location.Identity(path)
	}
	return &converter{
		path:        path,
		src:         src,
		lang:        lang,
		table:       table,
		ids:         location.NewResolver(nil, location.Options{RepoRoot: repoRoot}),
		fileIDs:     make(map[string]string),
		occurrences: make(map[string][]*ast.Node),
		names:       make(map[string]*ast.Node),
		quals:       make(map[*ast.Node]string),
		external:    make(map[string]*ast.Node),
	}
}

func (c *converter) convert(root *tree_sitter.Node) *ast.Node {
	c.root = &ast.Node{Kind: ast.KindTranslationUnit, Spelling: c.path, File: c.path}
	sc := &scope{parent: c.root, usr: "c:"}
	c.children(root, sc)
	c.link()
	return c.root
}

// add creates a node for n under parent.
func (c *converter) add(parent *ast.Node, kind ast.Kind, n *tree_sitter.Node, spelling string) *ast.Node {
	pos := n.StartPosition()
	node := &ast.Node{
		Kind:        kind,
		Spelling:    spelling,
		DisplayName: spelling,
		File:        c.path,
		Line:        int(pos.Row) + 1,
		Column:      int(pos.Column) + 1,
	}
	return parent.AddChild(node)
}

// origin returns the file identifier, line and column n was written at in
// the original sources.
func (c *converter) origin(n *tree_sitter.Node) (file string, line, col int) {
	pos := n.StartPosition()
	path, line, ok := c.table.Locate(int(pos.Row) + 1)
	if !ok {
		path, line = c.path, int(pos.Row)+1
	}
	file, ok = c.fileIDs[path]
	if !ok {
		file = c.ids.FileID(path)
		c.fileIDs[path] = file
	}
	return file, line, int(pos.Column) + 1
}

// localScope is the USR prefix of entities declared at n inside owner, such
// as the records of a function body. It depends only on where n was written,
// so every unit that includes the same header agrees on it.
func (c *converter) localScope(n *tree_sitter.Node, owner string) string {
	file, line, col := c.origin(n)
	return "c:" + file + "@" + strconv.Itoa(line) + ":" + strconv.Itoa(col) + strings.TrimPrefix(owner, "c:")
}

// localUSR builds the signature of an entity with no linkage.
func (c *converter) localUSR(n *tree_sitter.Node, owner, name string) string {
	return c.localScope(n, owner) + "@" + name
}

// fileScope qualifies usr by the file n was written in, for entities with
// internal linkage.
func (c *converter) fileScope(n *tree_sitter.Node, usr string) string {
	file, _, _ := c.origin(n)
	return "c:" + file + strings.TrimPrefix(usr, "c:")
}

// declare registers node as an occurrence of its USR, and under qual when
// it names a scope or type.
func (c *converter) declare(node *ast.Node, qual string) {
	if node.USR == "" {
		return
	}
	if _, ok := c.occurrences[node.USR]; !ok {
		c.order = append(c.order, node.USR)
	}
	c.occurrences[node.USR] = append(c.occurrences[node.USR], node)
	if qual == "" {
		return
	}
	c.quals[node] = qual
	if prev, ok := c.names[qual]; !ok || (!prev.IsDefinition && node.IsDefinition) {
		c.names[qual] = node
	}
}

// lookup resolves a name written in sc, searching enclosing scopes outwards.
func (c *converter) lookup(path []string, sc *scope) *ast.Node {
	if len(path) == 0 {
		return nil
	}
	name := strings.Join(path, "::")
	for q := sc.qual; ; q = parentQual(q) {
		if n, ok := c.names[joinQual(q, name)]; ok {
			return n
		}
		if q == "" {
			return nil
		}
	}
}

// link wires every occurrence of an entity to the first occurrence and to
// the first definition.
func (c *converter) link() {
	for _, usr := range c.order {
		group := c.occurrences[usr]
		canonical := group[0]
		var def *ast.Node
		for _, n := range group {
			if n.IsDefinition {
				def = n
				break
			}
		}
		for _, n := range group {
			n.SetCanonical(canonical)
			if def != nil && !n.IsDefinition {
				n.SetDefinition(def)
			}
		}
	}
}

func (c *converter) children(n *tree_sitter.Node, sc *scope) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if child := n.NamedChild(i); child != nil {
			c.visit(child, sc)
		}
	}
}

// visit converts a declaration-level node.
func (c *converter) visit(n *tree_sitter.Node, sc *scope) {
	switch n.Kind() {
	case "declaration", "type_definition", "alias_declaration",
		"class_specifier", "struct_specifier", "union_specifier", "enum_specifier",
		"static_assert_declaration", "using_declaration":
		if sc.stmt {
			ds := c.add(sc.parent, ast.KindDeclStmt, n, "")
			in := *sc
			in.parent = ds
			sc = &in
		}
	}

	switch n.Kind() {
	case "namespace_definition":
		c.namespace(n, sc)
	case "namespace_alias_definition":
		c.namespaceAlias(n, sc)
	case "linkage_specification":
		node := c.add(sc.parent, ast.KindLinkageSpec, n, strings.Trim(text(n.ChildByFieldName("value"), c.src), `"`))
		in := *sc
		in.parent = node
		if body := n.ChildByFieldName("body"); body != nil {
			if body.Kind() == "declaration_list" {
				c.children(body, &in)
			} else {
				c.visit(body, &in)
			}
		}
	case "access_specifier":
		sc.access = accessOf(n.Utf8Text(c.src))
	case "class_specifier", "struct_specifier", "union_specifier", "enum_specifier":
		c.specifier(n, sc, nil, true)
	case "declaration":
		c.declaration(n, sc, nil)
	case "field_declaration":
		c.fieldDeclaration(n, sc)
	case "function_definition":
		c.functionDefinition(n, sc, nil)
	case "template_declaration":
		c.template(n, sc)
	case "type_definition":
		c.typedef(n, sc)
	case "alias_declaration":
		c.alias(n, sc, nil)
	case "using_declaration":
		c.using(n, sc)
	case "friend_declaration":
		c.add(sc.parent, ast.KindFriendDecl, n, "")
	case "static_assert_declaration":
		c.add(sc.parent, ast.KindStaticAssert, n, "")
	case "lambda_expression":
		c.lambda(n, sc)
	case "comment", "preproc_include", "preproc_def", "preproc_function_def", "preproc_call":
	default:
		if sc.stmt {
			c.statement(n, sc)
			return
		}
		c.children(n, sc)
	}
}

// statement converts a node inside a function body.
func (c *converter) statement(n *tree_sitter.Node, sc *scope) {
	var kind ast.Kind
	spelling := ""
	switch n.Kind() {
	case "compound_statement":
		kind = ast.KindCompoundStmt
	case "return_statement":
		kind = ast.KindReturnStmt
	case "if_statement":
		kind = ast.KindIfStmt
	case "for_statement", "for_range_loop":
		kind = ast.KindForStmt
	case "while_statement", "do_statement":
		kind = ast.KindWhileStmt
	case "call_expression":
		kind = ast.KindCallExpr
		spelling = text(n.ChildByFieldName("function"), c.src)
	default:
		c.children(n, sc)
		return
	}

	node := c.add(sc.parent, kind, n, spelling)
	in := *sc
	in.parent = node
	if n.Kind() == "for_range_loop" {
		c.rangeVariable(n, &in)
		if body := n.ChildByFieldName("body"); body != nil {
			c.visit(body, &in)
		}
		return
	}
	c.children(n, &in)
}

// rangeVariable declares the loop variable of a range-based for.
func (c *converter) rangeVariable(n *tree_sitter.Node, sc *scope) {
	d := n.ChildByFieldName("declarator")
	if d == nil {
		return
	}
	core, _ := unwrap(d)
	if core == nil || core.Kind() != "identifier" {
		return
	}
	name := core.Utf8Text(c.src)
	v := c.add(sc.parent, ast.KindVarDecl, core, name)
	v.USR = c.localUSR(core, sc.fn, name)
	v.Type = typeSpelling(n, d, c.src)
	v.IsDefinition = true
	v.Linkage = ast.LinkageNone
	c.declare(v, "")
	c.typeRefs(n.ChildByFieldName("type"), v, sc)
	if right := n.ChildByFieldName("right"); right != nil {
		c.visit(right, sc)
	}
}

// lambda converts a lambda expression. Its parameters and locals are
// scoped to the closure.
func (c *converter) lambda(n *tree_sitter.Node, sc *scope) {
	node := c.add(sc.parent, ast.KindLambdaExpr, n, "lambda")
	fn := c.localUSR(n, "", "Sa@F@operator()#")
	in := scope{parent: node, usr: fn, qual: sc.qual, internal: sc.internal, local: true, fn: fn, stmt: true}
	if decl := n.ChildByFieldName("declarator"); decl != nil {
		c.parameters(decl.ChildByFieldName("parameters"), node, sc)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		c.visit(body, &in)
	}
}

func accessOf(s string) ast.Access {
	switch strings.TrimSpace(strings.TrimSuffix(s, ":")) {
	case "public":
		return ast.AccessPublic
	case "protected":
		return ast.AccessProtected
	case "private":
		return ast.AccessPrivate
	}
	return ast.AccessInvalid
}

// linkage returns the linkage of a declaration made in sc.
func linkage(sc *scope, static bool) ast.Linkage {
	switch {
	case sc.local:
		return ast.LinkageNone
	case sc.internal || (static && sc.record == nil):
		return ast.LinkageInternal
	default:
		return ast.LinkageExternal
	}
}
