// Package identity assigns stable graph keys to declarations.
//
// A key starts from the front end's unique signature (USR) of the declared
// entity. Occurrences that do not own the entity (redeclarations, and the
// in-class declaration of a method defined out of line) get their resolved
// location appended so distinct forward declarations never collapse into one
// vertex. Entities in anonymous scopes are qualified by their file, and the
// result is rewritten so it never contains characters the graph backends
// reject in keys.
package identity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dusk-indust/cxxgraph/internal/ast"
	"github.com/dusk-indust/cxxgraph/internal/location"
)

// Error reports a node whose key cannot be computed.
type Error struct {
	Kind     ast.Kind
	Spelling string
	Line     int
	Reason   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("identity: %s %q at artifact line %d: %s", e.Kind, e.Spelling, e.Line, e.Reason)
}

// Substitution table applied to every key. Longer runs of '_' encode
// characters that are more likely to follow an existing '_' so the common
// cases stay distinguishable.
var sanitizer = strings.NewReplacer(
	"#", "__",
	"/", "___",
	`\`, "____",
	"?", "_q_",
)

// Sanitize applies the key substitution table.
func Sanitize(s string) string { return sanitizer.Replace(s) }

// Locator resolves a node to its logical location.
type Locator interface {
	Locate(n *ast.Node) (location.Span, error)
}

// ResolverLocator adapts a location.Resolver to Locator. It uses stateless
// lookups because key computation visits nodes out of traversal order.
type ResolverLocator struct {
	R *location.Resolver
}

// Locate resolves n's artifact line.
func (l ResolverLocator) Locate(n *ast.Node) (location.Span, error) {
	return l.R.ResolveStateless(n.Line)
}

// Assigner computes keys for one translation unit.
type Assigner struct {
	loc Locator
}

// New creates an Assigner.
func New(loc Locator) *Assigner {
	return &Assigner{loc: loc}
}

// Key returns the key of the occurrence n.
func (a *Assigner) Key(n *ast.Node) (string, error) {
	if n == nil {
		return "", &Error{Reason: "nil node"}
	}
	if n.USR == "" {
		return "", &Error{Kind: n.Kind, Spelling: n.Spelling, Line: n.Line, Reason: "empty unique signature"}
	}

	key := Sanitize(n.USR)

	scoped, err := a.anonymousScope(n)
	if err != nil {
		return "", err
	}
	key += scoped

	if !OwnsEntity(n) {
		span, err := a.loc.Locate(n)
		if err != nil {
			return "", &Error{Kind: n.Kind, Spelling: n.Spelling, Line: n.Line, Reason: "redeclaration without location: " + err.Error()}
		}
		key += "@" + span.File + "@" + strconv.Itoa(span.Line)
	}
	return key, nil
}

// EntityKey returns the key the entity declared (or referenced) by n is
// known under: the key of its definition when the tree has one, else the key
// of its canonical occurrence.
func (a *Assigner) EntityKey(n *ast.Node) (string, error) {
	if n == nil {
		return "", &Error{Reason: "nil node"}
	}
	return a.Key(Owner(n))
}

// Owner returns the occurrence whose key stands for the whole entity.
func Owner(n *ast.Node) *ast.Node {
	if def := n.Definition(); def != nil {
		return def
	}
	return n.Canonical()
}

// OwnsEntity reports whether n's key is the entity key: n is the definition,
// or n is canonical and nothing defines the entity.
func OwnsEntity(n *ast.Node) bool {
	if n.IsDefinition {
		return true
	}
	return n.IsCanonical() && n.Definition() == nil
}

// anonymousScope returns the qualifier for entities declared in, or being,
// an anonymous namespace or record. Anonymous namespaces are per file, so
// their file is enough; anonymous records also take their line.
func (a *Assigner) anonymousScope(n *ast.Node) (string, error) {
	for cur := n; cur != nil; cur = cur.SemanticParent() {
		if !cur.Anonymous || cur.Kind == ast.KindTranslationUnit {
			continue
		}
		span, err := a.loc.Locate(cur)
		if err != nil {
			return "", &Error{Kind: n.Kind, Spelling: n.Spelling, Line: n.Line, Reason: "anonymous scope without location: " + err.Error()}
		}
		if cur.Kind == ast.KindNamespace {
			return "@" + span.File, nil
		}
		return "@" + span.File + "@" + strconv.Itoa(span.Line), nil
	}
	return "", nil
}
