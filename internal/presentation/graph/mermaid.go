package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/flowmanager/internal/compiler"
	"github.com/aretw0/flowmanager/pkg/domain"
)

// GraphOverlay marks run progress on the diagram.
// Top-level nodes are identified by their index in the flow.
type GraphOverlay struct {
	Visited []int
	Current int // -1 for none
}

// NodeID returns the diagram id of the top-level node at index i.
func NodeID(i int) string {
	return fmt.Sprintf("n%d", i)
}

type exit struct {
	id    string
	label string
}

type writer struct {
	sb    strings.Builder
	c     *compiler.Compiler
	depth int
}

// GenerateMermaid produces a Mermaid flowchart of a node list.
// Shapes:
// - Call or reference: [[Subroutine]]
// - prompt: [/Parallelogram/]
// - Branch: {Rhombus}, one labelled arrow per arm
// - Empty: ((Circle))
// - Invalid or unresolved: [Rectangle] styled as invalid
// Subflows and loops are drawn as subgraphs; a loop's last action points back to its controller.
func GenerateMermaid(nodes []any, scope compiler.Scope, overlay *GraphOverlay) string {
	w := &writer{c: compiler.New(scope)}
	w.sb.WriteString("graph TD\n")
	w.chain("n", nodes, true)

	w.sb.WriteString("    classDef invalid fill:#ffebee,stroke:#c62828,color:#000;\n")
	if overlay != nil {
		w.sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text for contrast on light fills in both themes.
		w.sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		w.sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[int]bool)
		for _, i := range overlay.Visited {
			if i < 0 || i >= len(nodes) || seen[i] {
				continue
			}
			seen[i] = true
			fmt.Fprintf(&w.sb, "    class %s visited;\n", NodeID(i))
		}
		if overlay.Current >= 0 && overlay.Current < len(nodes) {
			fmt.Fprintf(&w.sb, "    class %s current;\n", NodeID(overlay.Current))
		}
	}
	return w.sb.String()
}

// chain draws nodes in order and links each node's exits to the next entry.
// Top-level ids are n0, n1...; nested ids extend their parent's.
func (w *writer) chain(prefix string, nodes []any, top bool) (entry string, exits []exit) {
	for i, raw := range nodes {
		id := fmt.Sprintf("%s_%d", prefix, i)
		if top {
			id = NodeID(i)
		}
		in, out := w.node(id, raw)
		if entry == "" {
			entry = in
		}
		for _, e := range exits {
			w.arrow(e, in)
		}
		exits = out
	}
	return entry, exits
}

func (w *writer) node(id string, raw any) (string, []exit) {
	node := w.c.Compile(raw)
	indent := strings.Repeat("    ", w.depth+1)

	switch node.Kind {
	case domain.KindBranch:
		fmt.Fprintf(&w.sb, "%s%s{\"%s\"}\n", indent, id, escape(node.Info.Label))
		exits := []exit{{id: id, label: "no match"}}
		for _, b := range node.Branches {
			first, last := w.nested(id+"_"+sanitizeMermaidID(b.Edge), "", b.Nodes)
			if first == "" {
				exits = append(exits, exit{id: id, label: b.Edge})
				continue
			}
			w.arrow(exit{id: id, label: b.Edge}, first)
			exits = append(exits, last...)
		}
		return id, exits

	case domain.KindSubflow:
		first, last := w.nested(id, "subflow", node.Children)
		return first, last

	case domain.KindLoop:
		ctrl := node.Children[0]
		fmt.Fprintf(&w.sb, "%ssubgraph %s [\"loop\"]\n", indent, id)
		w.depth++
		ctrlID, _ := w.node(id+"_c", ctrl)
		first, last := w.chain(id+"_a", node.Children[1:], false)
		if first != "" {
			w.arrow(exit{id: ctrlID, label: domain.EdgeContinue}, first)
			for _, e := range last {
				w.arrow(e, ctrlID)
			}
		}
		w.depth--
		fmt.Fprintf(&w.sb, "%send\n", indent)
		return ctrlID, []exit{{id: ctrlID, label: domain.EdgeExit}}

	case domain.KindEmpty:
		fmt.Fprintf(&w.sb, "%s%s((\" \"))\n", indent, id)
		return id, []exit{{id: id}}
	}

	label := node.Info.Label
	if label == "" {
		label = node.Info.Name
	}
	if node.Err != nil || node.Kind == domain.KindInvalid {
		fmt.Fprintf(&w.sb, "%s%s[\"%s\"]:::invalid\n", indent, id, escape(label))
		return id, []exit{{id: id, label: domain.EdgeError}}
	}

	opener, closer := "[[", "]]"
	if node.Info.Name == "prompt" {
		opener, closer = "[/", "/]"
	}
	fmt.Fprintf(&w.sb, "%s%s%s\"%s\"%s\n", indent, id, opener, escape(label), closer)
	return id, []exit{{id: id}}
}

// nested draws a child list, inside a subgraph when title is set.
func (w *writer) nested(prefix, title string, nodes []any) (string, []exit) {
	if len(nodes) == 0 {
		return "", nil
	}
	indent := strings.Repeat("    ", w.depth+1)
	if title != "" {
		fmt.Fprintf(&w.sb, "%ssubgraph %s [\"%s\"]\n", indent, prefix, title)
		w.depth++
		defer func() {
			w.depth--
			fmt.Fprintf(&w.sb, "%send\n", indent)
		}()
	}
	return w.chain(prefix, nodes, false)
}

func (w *writer) arrow(from exit, to string) {
	indent := strings.Repeat("    ", w.depth+1)
	if from.label == "" {
		fmt.Fprintf(&w.sb, "%s%s --> %s\n", indent, from.id, to)
		return
	}
	fmt.Fprintf(&w.sb, "%s%s -- \"%s\" --> %s\n", indent, from.id, escape(from.label), to)
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return r.Replace(id)
}
