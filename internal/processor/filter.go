package processor

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/aliskhannn/thumbor/internal/spec"
)

// tintStrength is how much of the preset colour is mixed into each pixel.
const tintStrength = 0.2

// tint returns the colour a filter preset mixes into the image.
func tint(kind spec.FilterKind) (color.NRGBA, bool) {
	switch kind {
	case spec.FilterOceanic:
		return color.NRGBA{R: 0, G: 89, B: 173, A: 255}, true
	case spec.FilterIslands:
		return color.NRGBA{R: 0, G: 24, B: 95, A: 255}, true
	case spec.FilterMarine:
		return color.NRGBA{R: 0, G: 14, B: 119, A: 255}, true
	default:
		return color.NRGBA{}, false
	}
}

// applyFilter tints img with the preset colour. Unspecified leaves img as is.
func applyFilter(img image.Image, kind spec.FilterKind) image.Image {
	c, ok := tint(kind)
	if !ok {
		return img
	}

	return imaging.AdjustFunc(img, func(px color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: mix(px.R, c.R),
			G: mix(px.G, c.G),
			B: mix(px.B, c.B),
			A: px.A,
		}
	})
}

func mix(a, b uint8) uint8 {
	return uint8(math.Round(float64(a)*(1-tintStrength) + float64(b)*tintStrength))
}
