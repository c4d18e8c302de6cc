package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"

	"github.com/aliskhannn/thumbor/internal/model"
	"github.com/aliskhannn/thumbor/internal/spec"
)

const (
	defaultQuality      = 85
	defaultMaxDimension = 8192
	defaultMarkText     = "thumbor"
)

// ErrInvalidSize is returned when a resize asks for an impossible target size.
var ErrInvalidSize = errors.New("invalid target size")

// fileStorage defines the interface for file storage.
// It allows saving and loading files from a backend (e.g., local FS, S3, MinIO).
type fileStorage interface {
	Save(ctx context.Context, subdir, filename string, src io.Reader) (string, error)
	Load(ctx context.Context, path string) (io.ReadCloser, error)
}

// Options tunes rendering. Zero values select defaults.
type Options struct {
	Quality      int         // JPEG quality of rendered images
	MaxDimension int         // upper bound for resize width and height
	Mark         image.Image // watermark image; when nil MarkText is drawn instead
	MarkText     string
}

// Processor executes decoded pipelines against images kept in file storage.
type Processor struct {
	fileStorage  fileStorage
	quality      int
	maxDimension int
	mark         image.Image
	markText     string
}

// New creates a new Processor with the given file storage backend.
func New(fs fileStorage, opts Options) *Processor {
	p := &Processor{
		fileStorage:  fs,
		quality:      opts.Quality,
		maxDimension: opts.MaxDimension,
		mark:         opts.Mark,
		markText:     opts.MarkText,
	}
	if p.quality <= 0 || p.quality > 100 {
		p.quality = defaultQuality
	}
	if p.maxDimension <= 0 {
		p.maxDimension = defaultMaxDimension
	}
	if p.markText == "" {
		p.markText = defaultMarkText
	}
	return p
}

// Process decodes the job's pipeline, renders it over the source image and
// stores the JPEG result under rendered/. The returned job carries the
// result path and the processed status.
func (p *Processor) Process(ctx context.Context, job model.Render) (model.Render, error) {
	pipeline, err := spec.ParseToken(job.Token)
	if err != nil {
		return model.Render{}, fmt.Errorf("failed to decode pipeline: %w", err)
	}

	// Load the source image from storage.
	srcReader, err := p.fileStorage.Load(ctx, job.Source)
	if err != nil {
		return model.Render{}, fmt.Errorf("failed to load source image: %w", err)
	}
	defer srcReader.Close()

	src, err := imaging.Decode(srcReader, imaging.AutoOrientation(true))
	if err != nil {
		return model.Render{}, fmt.Errorf("failed to decode image: %w", err)
	}

	out, err := p.Render(src, pipeline)
	if err != nil {
		return model.Render{}, err
	}

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, out, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return model.Render{}, fmt.Errorf("failed to encode rendered image: %w", err)
	}

	dst, err := p.fileStorage.Save(ctx, model.RenderedDir, job.ObjectName(), buf)
	if err != nil {
		return model.Render{}, fmt.Errorf("failed to save rendered image: %w", err)
	}

	job.Path = dst
	job.Status = model.StatusProcessed

	return job, nil
}

// Render applies the pipeline's operations to img in order.
func (p *Processor) Render(img image.Image, pipeline spec.Pipeline) (image.Image, error) {
	for i, op := range pipeline.Operations() {
		var err error

		switch op := op.(type) {
		case spec.Resize:
			img, err = p.resize(img, op)
		case spec.Filter:
			img = applyFilter(img, op.Kind)
		case spec.Watermark:
			img = p.watermark(img, op)
		default:
			err = fmt.Errorf("unsupported operation %T", op)
		}
		if err != nil {
			return nil, fmt.Errorf("operation %d (%v): %w", i, op, err)
		}
	}

	return img, nil
}

// resize scales img to the requested size. A zero width or height keeps
// the aspect ratio. Limits apply to the size actually produced.
func (p *Processor) resize(img image.Image, r spec.Resize) (image.Image, error) {
	if r.Width == 0 && r.Height == 0 {
		return nil, fmt.Errorf("%w: width and height are both zero", ErrInvalidSize)
	}
	if int64(r.Width) > int64(p.maxDimension) || int64(r.Height) > int64(p.maxDimension) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d", ErrInvalidSize, r.Width, r.Height, p.maxDimension)
	}

	b := img.Bounds()
	if b.Empty() {
		return imaging.Clone(img), nil
	}
	width, height := fitAspect(b.Dx(), b.Dy(), int(r.Width), int(r.Height))
	if width > p.maxDimension || height > p.maxDimension {
		return nil, fmt.Errorf("%w: %v becomes %dx%d, exceeds %d", ErrInvalidSize, r, width, height, p.maxDimension)
	}

	switch r.Type {
	case spec.ResizeNormal:
		filter, err := r.Filter.Resample()
		if err != nil {
			return nil, err
		}
		return imaging.Resize(img, width, height, filter), nil
	case spec.ResizeSeamCarve:
		if int64(width)*int64(height) > maxSeamArea {
			return nil, fmt.Errorf("%w: seam carving %dx%d exceeds %d pixels", ErrInvalidSize, width, height, maxSeamArea)
		}
		return seamCarve(img, width, height), nil
	default:
		return nil, fmt.Errorf("unsupported resize type %v", r.Type)
	}
}
