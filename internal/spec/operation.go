// Package spec describes image pipelines and their URL-embeddable encoding.
//
// A Pipeline is an ordered list of Operations (resize, filter, watermark).
// Encode turns it into a compact binary message, EncodeText wraps the bytes
// into a URL-safe token, and the Decode/DecodeText pair reverses both steps.
// Every function in this package is pure and safe for concurrent use.
package spec

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ResizeType selects the resize algorithm.
type ResizeType int32

const (
	ResizeNormal    ResizeType = iota // plain resampling
	ResizeSeamCarve                   // content-aware seam carving
)

// SampleFilter is the interpolation used by a normal resize.
type SampleFilter int32

const (
	SampleUndefined SampleFilter = iota
	SampleNearest
	SampleTriangle
	SampleCatmullRom
	SampleGaussian
	SampleLanczos3
)

// FilterKind is a named colour filter preset.
type FilterKind int32

const (
	FilterUnspecified FilterKind = iota
	FilterOceanic
	FilterIslands
	FilterMarine
)

var resizeTypeNames = [...]string{
	ResizeNormal:    "normal",
	ResizeSeamCarve: "seam_carve",
}

var sampleFilterNames = [...]string{
	SampleUndefined:  "undefined",
	SampleNearest:    "nearest",
	SampleTriangle:   "triangle",
	SampleCatmullRom: "catmullrom",
	SampleGaussian:   "gaussian",
	SampleLanczos3:   "lanczos3",
}

var filterKindNames = [...]string{
	FilterUnspecified: "unspecified",
	FilterOceanic:     "oceanic",
	FilterIslands:     "islands",
	FilterMarine:      "marine",
}

// Valid reports whether t is a declared resize type.
func (t ResizeType) Valid() bool { return t >= 0 && int(t) < len(resizeTypeNames) }

// Valid reports whether f is a declared sample filter.
func (f SampleFilter) Valid() bool { return f >= 0 && int(f) < len(sampleFilterNames) }

// Valid reports whether k is a declared filter kind.
func (k FilterKind) Valid() bool { return k >= 0 && int(k) < len(filterKindNames) }

func (t ResizeType) String() string {
	if !t.Valid() {
		return "ResizeType(" + strconv.Itoa(int(t)) + ")"
	}
	return resizeTypeNames[t]
}

func (f SampleFilter) String() string {
	if !f.Valid() {
		return "SampleFilter(" + strconv.Itoa(int(f)) + ")"
	}
	return sampleFilterNames[f]
}

func (k FilterKind) String() string {
	if !k.Valid() {
		return "FilterKind(" + strconv.Itoa(int(k)) + ")"
	}
	return filterKindNames[k]
}

// Name returns the display name of the filter preset. Unspecified means
// no filter is applied and has no name.
func (k FilterKind) Name() (string, bool) {
	switch k {
	case FilterOceanic:
		return "oceanic", true
	case FilterIslands:
		return "islands", true
	case FilterMarine:
		return "marine", true
	default:
		return "", false
	}
}

// ParseResizeType looks up a resize type by its String name.
func ParseResizeType(s string) (ResizeType, error) {
	for i, name := range resizeTypeNames {
		if strings.EqualFold(s, name) {
			return ResizeType(i), nil
		}
	}
	return ResizeNormal, fmt.Errorf("unknown resize type %q", s)
}

// ParseSampleFilter looks up a sample filter by its String name.
func ParseSampleFilter(s string) (SampleFilter, error) {
	for i, name := range sampleFilterNames {
		if strings.EqualFold(s, name) {
			return SampleFilter(i), nil
		}
	}
	return SampleUndefined, fmt.Errorf("unknown sample filter %q", s)
}

// ParseFilterKind looks up a filter preset by its String name.
func ParseFilterKind(s string) (FilterKind, error) {
	for i, name := range filterKindNames {
		if strings.EqualFold(s, name) {
			return FilterKind(i), nil
		}
	}
	return FilterUnspecified, fmt.Errorf("unknown filter %q", s)
}

// Operation is one step of a Pipeline. It is a closed set: only Resize,
// Filter and Watermark implement it.
type Operation interface {
	fmt.Stringer
	operation()
}

// Resize scales the image to Width x Height.
type Resize struct {
	Width  uint32
	Height uint32
	Type   ResizeType
	Filter SampleFilter
}

// Filter applies a colour preset.
type Filter struct {
	Kind FilterKind
}

// Watermark stamps the watermark with its top-left corner at (X, Y).
type Watermark struct {
	X uint32
	Y uint32
}

func (Resize) operation()    {}
func (Filter) operation()    {}
func (Watermark) operation() {}

// NewResize returns a normal resize using the given sample filter.
func NewResize(width, height uint32, filter SampleFilter) Operation {
	return Resize{Width: width, Height: height, Type: ResizeNormal, Filter: filter}
}

// NewResizeSeamCarve returns a seam-carving resize. Seam carving does not
// resample, so the filter is always SampleUndefined.
func NewResizeSeamCarve(width, height uint32) Operation {
	return Resize{Width: width, Height: height, Type: ResizeSeamCarve, Filter: SampleUndefined}
}

// NewFilter returns a colour filter operation.
func NewFilter(kind FilterKind) Operation {
	return Filter{Kind: kind}
}

// NewWatermark returns a watermark operation anchored at (x, y).
func NewWatermark(x, y uint32) Operation {
	return Watermark{X: x, Y: y}
}

// String renders the operation in the form accepted by ParseOperation,
// e.g. "resize:600x600:catmullrom" or "seam:300x200".
func (r Resize) String() string {
	if r.Type == ResizeSeamCarve {
		return fmt.Sprintf("seam:%dx%d", r.Width, r.Height)
	}
	return fmt.Sprintf("resize:%dx%d:%s", r.Width, r.Height, r.Filter)
}

func (f Filter) String() string { return "filter:" + f.Kind.String() }

func (w Watermark) String() string { return fmt.Sprintf("watermark:%d,%d", w.X, w.Y) }

// ParseOperation parses the compact text form produced by Operation.String:
//
//	resize:WxH[:filter]
//	seam:WxH
//	filter:kind
//	watermark:X,Y
func ParseOperation(s string) (Operation, error) {
	kind, args, _ := strings.Cut(s, ":")
	switch strings.ToLower(kind) {
	case "resize":
		dims, name, hasFilter := strings.Cut(args, ":")
		w, h, err := parsePair(dims, "x")
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", s, err)
		}
		filter := SampleUndefined
		if hasFilter {
			if filter, err = ParseSampleFilter(name); err != nil {
				return nil, fmt.Errorf("parse %q: %w", s, err)
			}
		}
		return NewResize(w, h, filter), nil
	case "seam":
		w, h, err := parsePair(args, "x")
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", s, err)
		}
		return NewResizeSeamCarve(w, h), nil
	case "filter":
		k, err := ParseFilterKind(args)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", s, err)
		}
		return NewFilter(k), nil
	case "watermark":
		x, y, err := parsePair(args, ",")
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", s, err)
		}
		return NewWatermark(x, y), nil
	default:
		return nil, fmt.Errorf("parse %q: unknown operation %q", s, kind)
	}
}

func parsePair(s, sep string) (uint32, uint32, error) {
	a, b, ok := strings.Cut(s, sep)
	if !ok {
		return 0, 0, fmt.Errorf("expected two values separated by %q", sep)
	}
	x, err := strconv.ParseUint(a, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid value %q: %w", a, err)
	}
	y, err := strconv.ParseUint(b, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid value %q: %w", b, err)
	}
	return uint32(x), uint32(y), nil
}

// enum values outside int32 or outside the declared set collapse to zero.
func resizeTypeFromWire(v uint64) ResizeType {
	if v > math.MaxInt32 || !ResizeType(v).Valid() {
		return ResizeNormal
	}
	return ResizeType(v)
}

func sampleFilterFromWire(v uint64) SampleFilter {
	if v > math.MaxInt32 || !SampleFilter(v).Valid() {
		return SampleUndefined
	}
	return SampleFilter(v)
}

func filterKindFromWire(v uint64) FilterKind {
	if v > math.MaxInt32 || !FilterKind(v).Valid() {
		return FilterUnspecified
	}
	return FilterKind(v)
}
