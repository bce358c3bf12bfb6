package export

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dusk-indust/cxxgraph/internal/graph"
)

// DefaultMermaidLabels are the vertex labels drawn when none are given.
var DefaultMermaidLabels = []graph.Label{graph.LabelClass, graph.LabelStruct, graph.LabelUnion, graph.LabelEnum}

// DefaultMermaidEdges are the edge labels drawn when none are given.
var DefaultMermaidEdges = []graph.EdgeLabel{graph.EdgeInherits, graph.EdgeContainsInner}

// MermaidOptions selects what GenerateMermaid draws.
type MermaidOptions struct {
	Labels []graph.Label
	Edges  []graph.EdgeLabel
}

// GenerateMermaid produces a Mermaid graph TD diagram from a graph store.
// Vertices are grouped by the file that declares them; edges between two
// drawn vertices become arrows labelled with their property value.
func GenerateMermaid(ctx context.Context, store graph.Store, opts MermaidOptions) (string, error) {
	labels := opts.Labels
	if len(labels) == 0 {
		labels = DefaultMermaidLabels
	}
	edgeLabels := opts.Edges
	if len(edgeLabels) == 0 {
		edgeLabels = DefaultMermaidEdges
	}
	wantLabel := make(map[graph.Label]bool, len(labels))
	for _, l := range labels {
		wantLabel[l] = true
	}
	wantEdge := make(map[graph.EdgeLabel]bool, len(edgeLabels))
	for _, l := range edgeLabels {
		wantEdge[l] = true
	}

	vertices, err := store.Vertices(ctx)
	if err != nil {
		return "", fmt.Errorf("get vertices: %w", err)
	}
	edges, err := store.Edges(ctx)
	if err != nil {
		return "", fmt.Errorf("get edges: %w", err)
	}

	// Build key → ID mapping for Mermaid (alphanumeric only).
	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(key string) string {
		if id, ok := nodeIDs[key]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[key] = id
		return id
	}

	byFile := make(map[string][]graph.Vertex)
	drawn := make(map[string]bool)
	for _, v := range vertices {
		if !wantLabel[v.Label] {
			continue
		}
		file, _ := v.Props[graph.PropFile].(string)
		byFile[file] = append(byFile[file], v)
		drawn[v.Key] = true
	}
	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	// Emit one subgraph per declaring file.
	for _, f := range files {
		members := byFile[f]
		sort.Slice(members, func(i, j int) bool { return members[i].Key < members[j].Key })
		indent := "  "
		if f != "" {
			sb.WriteString(fmt.Sprintf("  subgraph %s[\"%.40s\"]\n", getID("file@"+f), shortPath(f)))
			indent = "    "
		}
		for _, v := range members {
			sb.WriteString(fmt.Sprintf("%s%s[\"%s\"]\n", indent, getID(v.Key), nodeLabel(v)))
		}
		if f != "" {
			sb.WriteString("  end\n")
		}
	}

	for _, e := range edges {
		if !wantEdge[e.Label] || !drawn[e.From] || !drawn[e.To] {
			continue
		}
		text := string(e.Label)
		if e.PropValue != "" {
			text += " " + e.PropValue
		}
		sb.WriteString(fmt.Sprintf("  %s -->|%s| %s\n", getID(e.From), text, getID(e.To)))
	}

	return sb.String(), nil
}

// nodeLabel is the vertex text: label and name, quotes escaped.
func nodeLabel(v graph.Vertex) string {
	name, _ := v.Props[graph.PropName].(string)
	if name == "" {
		name = v.Key
	}
	return strings.ReplaceAll(fmt.Sprintf("%s %s", v.Label, name), `"`, "#quot;")
}

// shortPath returns the last 2 path segments for readability.
func shortPath(path string) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= 2 {
		return path
	}
	return strings.Join(parts[len(parts)-2:], "/")
}
