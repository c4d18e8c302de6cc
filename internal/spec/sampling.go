package spec

import (
	"fmt"

	"github.com/disintegration/imaging"
)

// Resample maps f to the imaging resampling filter used for a normal resize.
// Undefined falls back to nearest-neighbour. Every declared filter has its own
// case; add one here whenever a SampleFilter is added.
func (f SampleFilter) Resample() (imaging.ResampleFilter, error) {
	switch f {
	case SampleUndefined:
		return imaging.NearestNeighbor, nil
	case SampleNearest:
		return imaging.NearestNeighbor, nil
	case SampleTriangle:
		return imaging.Linear, nil
	case SampleCatmullRom:
		return imaging.CatmullRom, nil
	case SampleGaussian:
		return imaging.Gaussian, nil
	case SampleLanczos3:
		return imaging.Lanczos, nil
	}
	return imaging.ResampleFilter{}, fmt.Errorf("%w: %d", ErrUnknownSampleFilter, int32(f))
}
