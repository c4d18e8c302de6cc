package processor

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

const (
	// maxSeams bounds the seams removed per axis. Anything beyond it is
	// taken off with a regular resize first.
	maxSeams = 64

	// maxSeamArea bounds the target area of a seam-carving resize.
	maxSeamArea = 1 << 20
)

// seamCarve resizes img to width x height by repeatedly removing the
// lowest-energy vertical (then horizontal) seam. An axis that has to grow is
// stretched with a regular resize instead, since seams can only be removed.
func seamCarve(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Empty() {
		return imaging.Clone(img)
	}
	width, height = fitAspect(b.Dx(), b.Dy(), width, height)

	var dst *image.NRGBA
	if w, h := carveStart(b.Dx(), b.Dy(), width, height); w != b.Dx() || h != b.Dy() {
		dst = imaging.Resize(img, w, h, imaging.Lanczos)
	} else {
		dst = imaging.Clone(img)
	}

	dst = carveWidth(dst, width)
	if height != dst.Bounds().Dy() {
		dst = imaging.Transpose(carveWidth(imaging.Transpose(dst), height))
	}

	return dst
}

// fitAspect fills in a zero dimension from the source aspect ratio.
func fitAspect(srcW, srcH, width, height int) (int, int) {
	switch {
	case width == 0:
		width = int(math.Max(1, math.Round(float64(srcW)*float64(height)/float64(srcH))))
	case height == 0:
		height = int(math.Max(1, math.Round(float64(srcH)*float64(width)/float64(srcW))))
	}
	return width, height
}

// carveStart returns the size seam removal starts from: the source size,
// shrunk so that no axis loses more than maxSeams seams.
func carveStart(srcW, srcH, width, height int) (int, int) {
	return min(srcW, width+maxSeams), min(srcH, height+maxSeams)
}

func carveWidth(img *image.NRGBA, width int) *image.NRGBA {
	if width > img.Bounds().Dx() {
		return imaging.Resize(img, width, img.Bounds().Dy(), imaging.Lanczos)
	}
	for img.Bounds().Dx() > width {
		img = removeVerticalSeam(img)
	}
	return img
}

// removeVerticalSeam drops one pixel per row along the connected top-to-bottom
// path with the smallest accumulated energy. img must have a zero origin.
func removeVerticalSeam(img *image.NRGBA) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	cost := energyMap(img)

	// Accumulate the cheapest path cost from the top row down.
	for y := 1; y < h; y++ {
		row, prev := y*w, (y-1)*w
		for x := 0; x < w; x++ {
			best := cost[prev+x]
			if x > 0 && cost[prev+x-1] < best {
				best = cost[prev+x-1]
			}
			if x < w-1 && cost[prev+x+1] < best {
				best = cost[prev+x+1]
			}
			cost[row+x] += best
		}
	}

	seam := make([]int, h)
	last := (h - 1) * w
	x := 0
	for i := 1; i < w; i++ {
		if cost[last+i] < cost[last+x] {
			x = i
		}
	}
	seam[h-1] = x
	for y := h - 2; y >= 0; y-- {
		row, best := y*w, x
		if x > 0 && cost[row+x-1] < cost[row+best] {
			best = x - 1
		}
		if x < w-1 && cost[row+x+1] < cost[row+best] {
			best = x + 1
		}
		x = best
		seam[y] = x
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w-1, h))
	for y := 0; y < h; y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+w*4]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+(w-1)*4]
		cut := seam[y] * 4
		copy(out, src[:cut])
		copy(out[cut:], src[cut+4:])
	}

	return dst
}

// energyMap returns the gradient magnitude of the luminance at every pixel,
// using clamped neighbours at the borders.
func energyMap(img *image.NRGBA) []float64 {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()

	lum := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*img.Stride + x*4
			r, g, b := float64(img.Pix[i]), float64(img.Pix[i+1]), float64(img.Pix[i+2])
			lum[y*w+x] = 0.299*r + 0.587*g + 0.114*b
		}
	}

	energy := make([]float64, w*h)
	for y := 0; y < h; y++ {
		up, down := max(y-1, 0), min(y+1, h-1)
		for x := 0; x < w; x++ {
			left, right := max(x-1, 0), min(x+1, w-1)
			dx := lum[y*w+right] - lum[y*w+left]
			dy := lum[down*w+x] - lum[up*w+x]
			energy[y*w+x] = math.Abs(dx) + math.Abs(dy)
		}
	}

	return energy
}
