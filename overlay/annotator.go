// Package overlay renders detection boxes and translucent labels onto
// frames in place.
package overlay

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

const (
	boxThickness  = 2
	textThickness = 1
	fontScale     = 0.6
	padX          = 8
	padY          = 6
	labelAlpha    = 0.85
)

var textColor = color.RGBA{R: 0, G: 0, B: 0, A: 255}

// Annotator draws a detection's bounding box and class/track label.
type Annotator struct {
	font gocv.HersheyFont
}

// New returns an Annotator with the fixed pipeline font.
func New() *Annotator {
	return &Annotator{font: gocv.FontHersheySimplex}
}

// Annotate mutates img: an unfilled 2-px rectangle at box, then a
// translucent label background directly above the box's top edge with the
// label text bottom-aligned inside it. A label whose background is clipped
// away entirely at the frame edge is skipped; the box is always drawn.
func (a *Annotator) Annotate(img *gocv.Mat, box image.Rectangle, label string, c color.RGBA) {
	gocv.Rectangle(img, box, c, boxThickness)

	textSize := gocv.GetTextSize(label, a.font, fontScale, textThickness)
	bg := labelBackground(img.Cols(), img.Rows(), box, textSize)
	if bg.Empty() {
		return
	}

	a.blendRect(img, bg, c)

	textOrigin := image.Pt(bg.Min.X+padX, bg.Max.Y-padY)
	gocv.PutText(img, label, textOrigin, a.font, fontScale, textColor, textThickness)
}

// labelBackground computes the label background rectangle: above the box,
// left-aligned with it, sized to the text extent plus padding, clipped to
// the frame. The zero rectangle means the label cannot be placed.
func labelBackground(frameWidth, frameHeight int, box image.Rectangle, textSize image.Point) image.Rectangle {
	top := box.Min.Y - textSize.Y - 2*padY
	if top < 0 {
		top = 0
	}
	bg := image.Rect(box.Min.X, top, box.Min.X+textSize.X+2*padX, box.Min.Y)

	clipped := bg.Intersect(image.Rect(0, 0, frameWidth-1, frameHeight-1))
	if clipped.Dx() <= 0 || clipped.Dy() <= 0 {
		return image.Rectangle{}
	}
	return clipped
}

// blendRect fills r with c at labelAlpha opacity, leaving the underlying
// video faintly visible.
func (a *Annotator) blendRect(img *gocv.Mat, r image.Rectangle, c color.RGBA) {
	overlay := img.Clone()
	defer overlay.Close()

	gocv.Rectangle(&overlay, r, c, -1)
	gocv.AddWeighted(overlay, labelAlpha, *img, 1-labelAlpha, 0, img)
}
