package cxx

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// text returns the source text of n with runs of whitespace collapsed.
func text(n *tree_sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return strings.Join(strings.Fields(n.Utf8Text(src)), " ")
}

// fieldAll returns every child of n stored under field, in order.
func fieldAll(n *tree_sitter.Node, field string) []*tree_sitter.Node {
	var out []*tree_sitter.Node
	for i := uint(0); i < n.ChildCount(); i++ {
		if n.FieldNameForChild(uint32(i)) == field {
			out = append(out, n.Child(i))
		}
	}
	return out
}

// childOfKind returns the first direct child of n with one of the kinds.
func childOfKind(n *tree_sitter.Node, kinds ...string) *tree_sitter.Node {
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		for _, k := range kinds {
			if child.Kind() == k {
				return child
			}
		}
	}
	return nil
}

// hasChild reports whether n has a direct child of kind k whose text,
// when want is non-empty, equals want.
func hasChild(n *tree_sitter.Node, src []byte, k, want string) bool {
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child == nil || child.Kind() != k {
			continue
		}
		if want == "" || child.Utf8Text(src) == want {
			return true
		}
	}
	return false
}

// inner returns the declarator wrapped by d, or nil when d is a name.
func inner(d *tree_sitter.Node) *tree_sitter.Node {
	switch d.Kind() {
	case "init_declarator", "pointer_declarator", "array_declarator",
		"function_declarator", "abstract_pointer_declarator",
		"abstract_array_declarator", "abstract_function_declarator":
		return d.ChildByFieldName("declarator")
	case "reference_declarator", "abstract_reference_declarator",
		"parenthesized_declarator", "abstract_parenthesized_declarator",
		"attributed_declarator":
		for i := int(d.NamedChildCount()) - 1; i >= 0; i-- {
			c := d.NamedChild(uint(i))
			if c != nil && c.Kind() != "attribute_declaration" && c.Kind() != "type_qualifier" {
				return c
			}
		}
	}
	return nil
}

// unwrap walks a declarator down to the declared name. fn is the first
// function declarator passed on the way, if any; it is nil when the name is
// a pointer or reference to a function rather than a function.
func unwrap(d *tree_sitter.Node) (core, fn *tree_sitter.Node) {
	indirect := false
	for d != nil {
		switch d.Kind() {
		case "function_declarator":
			if fn == nil {
				fn = d
			}
		case "pointer_declarator", "reference_declarator":
			if fn != nil {
				indirect = true
			}
		}
		next := inner(d)
		if next == nil {
			if isDeclaratorWrapper(d.Kind()) {
				d = nil
			}
			break
		}
		d = next
	}
	if indirect {
		fn = nil
	}
	return d, fn
}

func isDeclaratorWrapper(kind string) bool {
	switch kind {
	case "init_declarator", "pointer_declarator", "array_declarator",
		"function_declarator", "reference_declarator", "parenthesized_declarator",
		"abstract_pointer_declarator", "abstract_reference_declarator",
		"abstract_array_declarator", "abstract_function_declarator",
		"abstract_parenthesized_declarator", "attributed_declarator":
		return true
	}
	return false
}

// functionDeclarator returns the first function declarator in d's chain.
func functionDeclarator(d *tree_sitter.Node) *tree_sitter.Node {
	for d != nil {
		switch d.Kind() {
		case "function_declarator", "abstract_function_declarator":
			return d
		}
		d = inner(d)
	}
	return nil
}

// splitQualified separates the scope segments of a qualified name from the
// final name node. Template arguments on scopes are dropped.
func splitQualified(n *tree_sitter.Node, src []byte) (scopes []string, name *tree_sitter.Node) {
	for n != nil && n.Kind() == "qualified_identifier" {
		if s := n.ChildByFieldName("scope"); s != nil {
			scopes = append(scopes, baseName(s, src))
		}
		n = n.ChildByFieldName("name")
	}
	return scopes, n
}

// baseName returns the unqualified name of a type or scope node, without
// template arguments.
func baseName(n *tree_sitter.Node, src []byte) string {
	switch n.Kind() {
	case "template_type", "template_function", "template_method":
		return text(n.ChildByFieldName("name"), src)
	case "qualified_identifier":
		_, last := splitQualified(n, src)
		if last == nil {
			return text(n, src)
		}
		return baseName(last, src)
	}
	return text(n, src)
}

// pathOf returns the segments of a possibly qualified type name.
func pathOf(n *tree_sitter.Node, src []byte) []string {
	scopes, last := splitQualified(n, src)
	if last == nil {
		return scopes
	}
	return append(scopes, baseName(last, src))
}

// declaratorSuffix renders the pointer, reference and array parts of a
// declarator, stopping at the first function declarator.
func declaratorSuffix(d *tree_sitter.Node, src []byte) string {
	var sb strings.Builder
	for d != nil {
		switch d.Kind() {
		case "pointer_declarator", "abstract_pointer_declarator":
			sb.WriteString("*")
			if hasChild(d, src, "type_qualifier", "const") {
				sb.WriteString(" const")
			}
		case "reference_declarator", "abstract_reference_declarator":
			if c := d.Child(0); c != nil {
				sb.WriteString(c.Utf8Text(src))
			}
		case "array_declarator", "abstract_array_declarator":
			sb.WriteString("[]")
		case "function_declarator", "abstract_function_declarator":
			return sb.String()
		}
		d = inner(d)
	}
	return sb.String()
}

// typeSpelling renders the type a declarator gives to the entity declared by
// decl: leading qualifiers, the type specifier and the declarator suffix.
func typeSpelling(decl, declarator *tree_sitter.Node, src []byte) string {
	var parts []string
	for i := uint(0); i < decl.ChildCount(); i++ {
		child := decl.Child(i)
		if child == nil {
			continue
		}
		if decl.FieldNameForChild(uint32(i)) == "type" {
			break
		}
		if child.Kind() == "type_qualifier" {
			parts = append(parts, child.Utf8Text(src))
		}
	}
	parts = append(parts, text(decl.ChildByFieldName("type"), src))
	spelled := strings.Join(parts, " ")
	if declarator != nil {
		spelled += declaratorSuffix(declarator, src)
	}
	return normalizeType(spelled)
}

var typeTightener = strings.NewReplacer(
	" *", "*", " &", "&", " ,", ",", ", ", ",",
	"< ", "<", " <", "<", " >", ">", " ::", "::", ":: ", "::",
)

// normalizeType collapses whitespace so that declarations and out-of-line
// definitions spell the same type identically.
func normalizeType(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	for {
		t := typeTightener.Replace(s)
		if t == s {
			return t
		}
		s = t
	}
}

// joinQual appends name to a "::" separated qualified name.
func joinQual(qual, name string) string {
	if qual == "" {
		return name
	}
	return qual + "::" + name
}

// parentQual drops the last segment of a qualified name.
func parentQual(qual string) string {
	if i := strings.LastIndex(qual, "::"); i >= 0 {
		return qual[:i]
	}
	return ""
}

// functionUSR builds the signature of a callable. C has no overloading, so
// its functions are keyed by name alone.
func functionUSR(base, name string, params []string, isConst, isC bool) string {
	if isC {
		return base + "@F@" + name
	}
	usr := base + "@F@" + name + "#" + strings.Join(params, ",")
	if isConst {
		usr += "#1"
	}
	return usr
}
