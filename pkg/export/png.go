package export

import (
	"image/png"
	"io"

	"git.sr.ht/~sbinet/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/assettree/pkg/model"
	"github.com/vanderheijden86/assettree/pkg/tree"
)

// WritePNG renders the same diagram as WriteSVG to a PNG image.
func WritePNG(w io.Writer, forest []*tree.Node, opts GraphicOptions) error {
	l := buildLayout(forest, opts)

	dc := gg.NewContext(l.Width, l.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	if l.Header > 0 {
		dc.SetColor(colorHeaderBG)
		dc.DrawRoundedRectangle(16, 16, float64(l.Width-32), float64(l.Header-16), 10)
		dc.Fill()
		dc.SetColor(colorText)
		dc.DrawStringAnchored(opts.Title, padding+8, 40, 0, 0.5)
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(opts.Subtitle, padding+8, 60, 0, 0.5)
	}

	if len(l.Nodes) == 0 {
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored("No items", padding, float64(padding+l.Header+boxH/2), 0, 0.5)
		return png.Encode(w, dc.Image())
	}

	dc.SetColor(colorEdge)
	dc.SetLineWidth(1.5)
	for _, n := range l.Nodes {
		if n.Parent < 0 {
			continue
		}
		p := l.Nodes[n.Parent]
		x := float64(p.X + indentW/2)
		y := float64(n.Y + boxH/2)
		dc.MoveTo(x, float64(p.Y+boxH))
		dc.LineTo(x, y)
		dc.LineTo(float64(n.X), y)
		dc.Stroke()
	}

	for _, n := range l.Nodes {
		x, y := float64(n.X), float64(n.Y)
		dc.SetColor(typeColor(n.Node.Type))
		dc.DrawRoundedRectangle(x, y, boxW, boxH, 6)
		dc.Fill()
		dc.SetColor(colorStroke)
		dc.SetLineWidth(1)
		dc.DrawRoundedRectangle(x, y, boxW, boxH, 6)
		dc.Stroke()

		// basicfont has no glyph for the bolt, so energy sensors get a
		// colored bar instead.
		dc.SetColor(colorText)
		dc.DrawStringAnchored(truncate(n.Node.Name, nameChars), x+10, y+boxH/2, 0, 0.5)
		if n.Node.SensorType == model.SensorEnergy {
			dc.SetColor(colorEnergy)
			dc.DrawRectangle(x, y+4, 3, boxH-8)
			dc.Fill()
		}
		if c, ok := statusColor(n.Node.Status); ok {
			dc.SetColor(c)
			dc.DrawCircle(x+boxW-14, y+boxH/2, 5)
			dc.Fill()
		}
	}

	return png.Encode(w, dc.Image())
}
