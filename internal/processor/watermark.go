package processor

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/aliskhannn/thumbor/internal/spec"
)

// watermark draws the mark with its top-left corner at (X, Y).
// Parts that fall outside the image are clipped.
func (p *Processor) watermark(img image.Image, w spec.Watermark) image.Image {
	dc := gg.NewContextForImage(img)

	if p.mark != nil {
		dc.DrawImage(p.mark, int(w.X), int(w.Y))
		return dc.Image()
	}

	dc.SetFontFace(basicfont.Face7x13)
	dc.SetColor(color.White)
	dc.DrawStringAnchored(p.markText, float64(w.X), float64(w.Y), 0, 1)

	return dc.Image()
}
