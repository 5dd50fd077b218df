package export

import (
	"fmt"
	"image/color"

	"github.com/vanderheijden86/assettree/pkg/model"
	"github.com/vanderheijden86/assettree/pkg/tree"
)

// GraphicOptions controls the SVG and PNG diagrams.
type GraphicOptions struct {
	// Title is drawn in the header block; empty omits the header text.
	Title string
	// Subtitle is drawn under the title.
	Subtitle string
}

const (
	boxW         = 260
	boxH         = 30
	rowGap       = 10
	indentW      = 36
	padding      = 24
	headerHeight = 72
	nameChars    = 30
)

// layoutNode is a node placed in an indented tree diagram.
type layoutNode struct {
	Node   *tree.Node
	X, Y   int
	Parent int // index into layout.Nodes, -1 for roots
}

type layout struct {
	Width, Height int
	Nodes         []layoutNode
	Header        int
}

// buildLayout places one box per row, indented by depth, in display order.
func buildLayout(forest []*tree.Node, opts GraphicOptions) layout {
	header := 0
	if opts.Title != "" || opts.Subtitle != "" {
		header = headerHeight
	}
	l := layout{Header: header}
	maxDepth := 0

	var place func(nodes []*tree.Node, depth, parent int)
	place = func(nodes []*tree.Node, depth, parent int) {
		for _, n := range nodes {
			idx := len(l.Nodes)
			l.Nodes = append(l.Nodes, layoutNode{
				Node:   n,
				X:      padding + depth*indentW,
				Y:      padding + header + idx*(boxH+rowGap),
				Parent: parent,
			})
			if depth > maxDepth {
				maxDepth = depth
			}
			place(n.Children, depth+1, idx)
		}
	}
	place(tree.Sorted(forest), 0, -1)

	l.Width = 2*padding + maxDepth*indentW + boxW
	l.Height = 2*padding + header + len(l.Nodes)*(boxH+rowGap)
	if len(l.Nodes) == 0 {
		l.Height += boxH
	}
	return l
}

var (
	colorBackdrop  = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG  = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorStroke    = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorEdge      = color.RGBA{0x6b, 0x80, 0xbf, 0xff}
	colorText      = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle    = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorLocation  = color.RGBA{0xe3, 0xf2, 0xfd, 0xff}
	colorAsset     = color.RGBA{0xff, 0xf8, 0xe1, 0xff}
	colorComponent = color.RGBA{0xf3, 0xe5, 0xf5, 0xff}
	colorAlert     = color.RGBA{0xe5, 0x39, 0x35, 0xff}
	colorOperating = color.RGBA{0x43, 0xa0, 0x47, 0xff}
	colorEnergy    = color.RGBA{0xf9, 0xa8, 0x25, 0xff}
)

func typeColor(t model.NodeType) color.RGBA {
	switch t {
	case model.TypeLocation:
		return colorLocation
	case model.TypeComponent:
		return colorComponent
	default:
		return colorAsset
	}
}

// statusColor returns the indicator dot color and whether a dot is drawn.
func statusColor(s model.Status) (color.RGBA, bool) {
	switch s {
	case model.StatusAlert:
		return colorAlert, true
	case model.StatusOperating:
		return colorOperating, true
	}
	return color.RGBA{}, false
}

func boxLabel(n *tree.Node) string {
	name := truncate(n.Name, nameChars)
	if n.SensorType == model.SensorEnergy {
		return name + " ⚡"
	}
	return name
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
