package index

import "github.com/dusk-indust/cxxgraph/internal/ast"

// Entry is one node of a flattened tree.
type Entry struct {
	Node  *ast.Node
	Depth int
	// End is the index one past the node's last descendant, so the subtree
	// of entries[i] is entries[i:entries[i].End].
	End int
}

// Flatten lists root and its descendants in depth-first pre-order. Both
// indexing passes iterate this list instead of walking the tree.
func Flatten(root *ast.Node) []Entry {
	var out []Entry
	var walk func(n *ast.Node, depth int)
	walk = func(n *ast.Node, depth int) {
		i := len(out)
		out = append(out, Entry{Node: n, Depth: depth})
		for _, c := range n.Children() {
			walk(c, depth+1)
		}
		out[i].End = len(out)
	}
	if root != nil {
		walk(root, 0)
	}
	return out
}

// State is the progress of one node through a session.
type State int

const (
	StateUnvisited State = iota
	StateLocationResolved
	StateLocationUnresolved
	StateClassified
	StateSkipped
	StateVertexEmitted
	StateEdgesEmitted
)

var stateNames = [...]string{
	StateUnvisited:          "unvisited",
	StateLocationResolved:   "location_resolved",
	StateLocationUnresolved: "location_unresolved",
	StateClassified:         "classified",
	StateSkipped:            "skipped",
	StateVertexEmitted:      "vertex_emitted",
	StateEdgesEmitted:       "edges_emitted",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}
