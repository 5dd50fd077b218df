package export

import (
	"fmt"
	"io"

	svg "github.com/ajstarks/svgo"

	"github.com/vanderheijden86/assettree/pkg/tree"
)

// WriteSVG draws the forest as an indented box diagram.
func WriteSVG(w io.Writer, forest []*tree.Node, opts GraphicOptions) error {
	l := buildLayout(forest, opts)

	canvas := svg.New(w)
	canvas.Start(l.Width, l.Height)
	canvas.Rect(0, 0, l.Width, l.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))

	if l.Header > 0 {
		canvas.Roundrect(16, 16, l.Width-32, l.Header-16, 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))
		canvas.Text(padding+8, 44, opts.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
		canvas.Text(padding+8, 64, opts.Subtitle, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	}

	if len(l.Nodes) == 0 {
		canvas.Text(padding, padding+l.Header+20, "No items", fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
		canvas.End()
		return nil
	}

	// Elbow connectors from the parent's left edge down and across.
	for _, n := range l.Nodes {
		if n.Parent < 0 {
			continue
		}
		p := l.Nodes[n.Parent]
		x := p.X + indentW/2
		y := n.Y + boxH/2
		style := fmt.Sprintf("stroke:%s;stroke-width:1.5;fill:none", css(colorEdge))
		canvas.Polyline([]int{x, x, n.X}, []int{p.Y + boxH, y, y}, style)
	}

	for _, n := range l.Nodes {
		canvas.Roundrect(n.X, n.Y, boxW, boxH, 6, 6,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(typeColor(n.Node.Type)), css(colorStroke)))
		canvas.Text(n.X+10, n.Y+20, boxLabel(n.Node),
			fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorText)))
		if c, ok := statusColor(n.Node.Status); ok {
			canvas.Circle(n.X+boxW-14, n.Y+boxH/2, 5, fmt.Sprintf("fill:%s", css(c)))
		}
	}

	canvas.End()
	return nil
}
