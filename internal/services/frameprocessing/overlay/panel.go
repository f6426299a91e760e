package overlay

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"fvgvision-worker-go/internal/models"
)

const (
	fontFace      = gocv.FontHersheySimplex
	fontScale     = 0.5
	fontThickness = 1
)

var (
	black  = color.RGBA{A: 255}
	white  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	yellow = color.RGBA{R: 255, G: 255, A: 255}
	red    = color.RGBA{R: 255, A: 255}
	green  = color.RGBA{G: 255, A: 255}
	blue   = color.RGBA{B: 255, A: 255}
	amber  = color.RGBA{R: 255, G: 204, A: 255}
)

type anchor int

const (
	topLeft anchor = iota
	topRight
	bottomLeft
	bottomRight
)

// row is one line of a panel. An empty value draws the label only.
type row struct {
	label string
	value string
	color color.RGBA
}

// panel is a black text box pinned to a corner of the frame. Its width is
// measured from a sample string so the box does not jitter as values change.
type panel struct {
	anchor  anchor
	sample  string
	width   int
	height  int
	spacing int

	frameW int
	frameH int
}

func newPanel(a anchor, sample string) *panel {
	return &panel{anchor: a, sample: sample}
}

func (p *panel) init(frameW, frameH int) {
	size, baseline := gocv.GetTextSizeWithBaseline(p.sample, fontFace, fontScale, fontThickness)
	p.width, p.height, p.spacing = size.X, size.Y, baseline
	p.frameW, p.frameH = frameW, frameH
}

func (p *panel) origin(rows int) image.Point {
	boxW := p.width + p.spacing*2
	boxH := (p.height+p.spacing)*rows + p.spacing*2
	switch p.anchor {
	case topRight:
		return image.Pt(p.frameW-boxW, 0)
	case bottomLeft:
		return image.Pt(0, p.frameH-boxH)
	case bottomRight:
		return image.Pt(p.frameW-boxW, p.frameH-boxH)
	default:
		return image.Pt(0, 0)
	}
}

// draw paints the background and the rows. Values are aligned in a second
// column at 70% of the box width.
func (p *panel) draw(mat *gocv.Mat, rows []row) {
	if len(rows) == 0 {
		return
	}
	o := p.origin(len(rows))
	bg := image.Rect(o.X, o.Y, o.X+p.width+p.spacing*2, o.Y+(p.height+p.spacing)*len(rows)+p.spacing*2)
	gocv.Rectangle(mat, bg, black, -1)

	valueX := o.X + p.spacing + int(float64(p.width)*0.7)
	for i, r := range rows {
		y := o.Y + p.spacing + (p.height+p.spacing)*(i+1)
		putText(mat, r.label, image.Pt(o.X+p.spacing, y), r.color)
		if r.value != "" {
			putText(mat, r.value, image.Pt(valueX, y), r.color)
		}
	}
}

func putText(mat *gocv.Mat, text string, org image.Point, c color.RGBA) {
	gocv.PutTextWithParams(mat, text, org, fontFace, fontScale, c, fontThickness, gocv.LineAA, false)
}

// drawCorners highlights the corners of a box.
func drawCorners(mat *gocv.Mat, x1, y1, x2, y2 int, c color.RGBA) {
	const cornerLength, cornerThickness = 15, 3
	gocv.Line(mat, image.Pt(x1, y1), image.Pt(x1+cornerLength, y1), c, cornerThickness)
	gocv.Line(mat, image.Pt(x1, y1), image.Pt(x1, y1+cornerLength), c, cornerThickness)
	gocv.Line(mat, image.Pt(x2, y1), image.Pt(x2-cornerLength, y1), c, cornerThickness)
	gocv.Line(mat, image.Pt(x2, y1), image.Pt(x2, y1+cornerLength), c, cornerThickness)
	gocv.Line(mat, image.Pt(x1, y2), image.Pt(x1+cornerLength, y2), c, cornerThickness)
	gocv.Line(mat, image.Pt(x1, y2), image.Pt(x1, y2-cornerLength), c, cornerThickness)
	gocv.Line(mat, image.Pt(x2, y2), image.Pt(x2-cornerLength, y2), c, cornerThickness)
	gocv.Line(mat, image.Pt(x2, y2), image.Pt(x2, y2-cornerLength), c, cornerThickness)
}

func rgba(c models.Color) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
