// Package export renders a filtered forest for output outside the TUI:
// an indented text tree, JSON, SVG and PNG diagrams, and a SQLite snapshot
// of the underlying records.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/assettree/pkg/model"
	"github.com/vanderheijden86/assettree/pkg/tree"
)

// TextOptions controls WriteText.
type TextOptions struct {
	// ShowIDs appends the node id in brackets.
	ShowIDs bool
	// ShowStatus appends status and sensor markers.
	ShowStatus bool
	// MaxNameWidth truncates names to this many cells; 0 means no limit.
	MaxNameWidth int
	// Empty is written when the forest has no nodes.
	Empty string
}

// WriteText writes the forest as an indented tree, siblings ordered
// location, asset, component:
//
//	Plant
//	├── Hall
//	│   └── Pump
//	└── Yard
func WriteText(w io.Writer, forest []*tree.Node, opts TextOptions) error {
	bw := bufio.NewWriter(w)
	if len(forest) == 0 {
		if opts.Empty != "" {
			fmt.Fprintln(bw, opts.Empty)
		}
		return bw.Flush()
	}
	for _, root := range tree.Sorted(forest) {
		bw.WriteString(label(root, opts))
		bw.WriteByte('\n')
		writeChildren(bw, root.Children, "", opts)
	}
	return bw.Flush()
}

func writeChildren(bw *bufio.Writer, children []*tree.Node, indent string, opts TextOptions) {
	for i, child := range children {
		last := i == len(children)-1
		branch, next := "├── ", "│   "
		if last {
			branch, next = "└── ", "    "
		}
		bw.WriteString(indent)
		bw.WriteString(branch)
		bw.WriteString(label(child, opts))
		bw.WriteByte('\n')
		writeChildren(bw, child.Children, indent+next, opts)
	}
}

func label(n *tree.Node, opts TextOptions) string {
	var b strings.Builder
	b.WriteString(truncate(n.Name, opts.MaxNameWidth))
	if opts.ShowIDs {
		fmt.Fprintf(&b, " [%s]", n.ID)
	}
	if opts.ShowStatus {
		if m := markers(n); m != "" {
			b.WriteString(" ")
			b.WriteString(m)
		}
	}
	return b.String()
}

// markers returns the plain-text status suffix for a node.
func markers(n *tree.Node) string {
	var parts []string
	switch n.Status {
	case model.StatusAlert:
		parts = append(parts, "(alert)")
	case model.StatusOperating:
		parts = append(parts, "(operating)")
	}
	if n.SensorType != model.SensorNone {
		parts = append(parts, "<"+string(n.SensorType)+">")
	}
	return strings.Join(parts, " ")
}

// truncate shortens s to maxWidth terminal cells, adding an ellipsis.
func truncate(s string, maxWidth int) string {
	if maxWidth <= 0 || runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth == 1 {
		return "…"
	}
	return runewidth.Truncate(s, maxWidth, "…")
}
