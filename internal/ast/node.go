package ast

import "context"

// Access is a C++ access specifier.
type Access int

const (
	AccessInvalid Access = iota
	AccessPublic
	AccessProtected
	AccessPrivate
)

func (a Access) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessProtected:
		return "protected"
	case AccessPrivate:
		return "private"
	default:
		return "none"
	}
}

// Linkage is the linkage of a declared entity.
type Linkage int

const (
	LinkageInvalid Linkage = iota
	LinkageNone
	LinkageInternal
	LinkageUniqueExternal
	LinkageExternal
)

// StorageClass is the storage class written on a declaration.
type StorageClass int

const (
	StorageNone StorageClass = iota
	StorageExtern
	StorageStatic
	StorageRegister
)

// MethodFlags describe member function qualifiers.
type MethodFlags uint16

const (
	MethodConst MethodFlags = 1 << iota
	MethodStatic
	MethodVirtual
	MethodPureVirtual
	MethodDefaulted
	MethodDeleted
	MethodExplicit
)

// Has reports whether all bits in f are set.
func (m MethodFlags) Has(f MethodFlags) bool { return m&f == f }

// CtorKind classifies constructors. Several bits may be set at once, e.g. a
// single-argument constructor that is also a copy constructor.
type CtorKind uint8

const (
	CtorDefault CtorKind = 1 << iota
	CtorCopy
	CtorMove
	CtorConverting
)

// Has reports whether all bits in k are set.
func (c CtorKind) Has(k CtorKind) bool { return c&k == k }

// Node is one node of a syntax tree produced by a Parser. Location fields
// refer to the parsed artifact (for a preprocessed unit, the expanded .i
// file), not to the original sources.
type Node struct {
	Kind        Kind
	Spelling    string
	DisplayName string
	// USR is the front end's unique signature for the declared (or, for
	// references, referenced) entity. Empty when the node declares nothing.
	USR string

	File   string
	Line   int
	Column int

	IsDefinition bool
	Anonymous    bool

	Type       string
	ResultType string
	Access     Access
	Linkage    Linkage
	Storage    StorageClass
	Method     MethodFlags
	Ctor       CtorKind

	parent         *Node
	semanticParent *Node
	canonical      *Node
	definition     *Node
	referenced     *Node
	children       []*Node
}

// Parent returns the lexical parent, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// SemanticParent returns the semantic parent: for an out-of-line method
// definition this is the class, not the enclosing namespace. Falls back to
// the lexical parent.
func (n *Node) SemanticParent() *Node {
	if n.semanticParent != nil {
		return n.semanticParent
	}
	return n.parent
}

// Canonical returns the canonical occurrence of the declared entity. A node
// without an explicit canonical occurrence is its own.
func (n *Node) Canonical() *Node {
	if n.canonical != nil {
		return n.canonical
	}
	return n
}

// IsCanonical reports whether n is the canonical occurrence of its entity.
func (n *Node) IsCanonical() bool { return n.Canonical() == n }

// Definition returns the defining occurrence of the entity, or nil when the
// tree contains no definition.
func (n *Node) Definition() *Node {
	if n.IsDefinition {
		return n
	}
	if n.definition != nil {
		return n.definition
	}
	if c := n.canonical; c != nil && c != n {
		if c.IsDefinition {
			return c
		}
		return c.definition
	}
	return nil
}

// Referenced returns the declaration a reference node points at.
func (n *Node) Referenced() *Node { return n.referenced }

// Children returns the lexical children in source order.
func (n *Node) Children() []*Node { return n.children }

// Category is shorthand for n.Kind.Category().
func (n *Node) Category() Category { return n.Kind.Category() }

// AddChild appends c to n's children and sets its lexical parent.
func (n *Node) AddChild(c *Node) *Node {
	c.parent = n
	n.children = append(n.children, c)
	return c
}

// SetSemanticParent overrides the semantic parent.
func (n *Node) SetSemanticParent(p *Node) { n.semanticParent = p }

// SetCanonical links n to the canonical occurrence of its entity.
func (n *Node) SetCanonical(c *Node) {
	if c == n {
		c = nil
	}
	n.canonical = c
}

// SetDefinition links n to the defining occurrence of its entity.
func (n *Node) SetDefinition(d *Node) { n.definition = d }

// SetReferenced sets the target of a reference node.
func (n *Node) SetReferenced(t *Node) { n.referenced = t }

// Tree is a parsed translation unit.
type Tree struct {
	// Path is the parsed artifact path.
	Path string
	// Source is the artifact contents, when the parser kept them.
	Source []byte
	// Flags are the compiler flags the unit was parsed with.
	Flags []string
	Root  *Node
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the node's children.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.children {
		Walk(c, fn)
	}
}

// Parser turns a source file into a syntax tree.
// Implementations: cxx.Parser (tree-sitter).
type Parser interface {
	Parse(ctx context.Context, path string, flags []string) (*Tree, error)
	Close() error
}
