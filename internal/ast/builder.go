package ast

// Builder assembles trees by hand. Front ends use it to attach nodes, and
// tests use it to describe small translation units without a C++ parser.
type Builder struct {
	tree *Tree
}

// NewBuilder starts a tree for the artifact at path.
func NewBuilder(path string) *Builder {
	root := &Node{Kind: KindTranslationUnit, Spelling: path, File: path}
	return &Builder{tree: &Tree{Path: path, Root: root}}
}

// Root returns the translation-unit node.
func (b *Builder) Root() *Node { return b.tree.Root }

// Add creates a node under parent at the given artifact line. A nil parent
// attaches to the root.
func (b *Builder) Add(parent *Node, kind Kind, spelling, usr string, line int) *Node {
	if parent == nil {
		parent = b.tree.Root
	}
	n := &Node{
		Kind:        kind,
		Spelling:    spelling,
		DisplayName: spelling,
		USR:         usr,
		File:        b.tree.Path,
		Line:        line,
		Column:      1,
	}
	return parent.AddChild(n)
}

// Def is Add for a defining occurrence.
func (b *Builder) Def(parent *Node, kind Kind, spelling, usr string, line int) *Node {
	n := b.Add(parent, kind, spelling, usr, line)
	n.IsDefinition = true
	return n
}

// Ref adds a reference node pointing at target.
func (b *Builder) Ref(parent *Node, kind Kind, target *Node, line int) *Node {
	n := b.Add(parent, kind, target.Spelling, target.USR, line)
	n.SetReferenced(target)
	return n
}

// Redeclare links decl as another occurrence of canonical's entity, wiring
// the canonical pointer and, when either side defines the entity, the
// definition pointer of every occurrence.
func (b *Builder) Redeclare(canonical, decl *Node) {
	decl.SetCanonical(canonical)
	var def *Node
	switch {
	case decl.IsDefinition:
		def = decl
	case canonical.IsDefinition:
		def = canonical
	}
	if def != nil {
		canonical.SetDefinition(def)
		decl.SetDefinition(def)
	}
}

// Source sets the artifact contents.
func (b *Builder) Source(src string) { b.tree.Source = []byte(src) }

// Tree returns the assembled tree.
func (b *Builder) Tree() *Tree { return b.tree }
