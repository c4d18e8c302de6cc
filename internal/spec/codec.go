package spec

import (
	"errors"
	"fmt"
	"io"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the pipeline schema. In proto3 terms:
//
//	message ImageSpec { repeated Spec specs = 1; }
//	message Spec {
//	  oneof data { Resize resize = 1; Filter filter = 2; Watermark watermark = 3; }
//	}
//	message Resize { uint32 width = 1; uint32 height = 2; ResizeType rtype = 3; SampleFilter filter = 4; }
//	message Filter { FilterKind filter = 1; }
//	message Watermark { uint32 x = 1; uint32 y = 2; }
//
// Numbers are part of the token format and must never be reused.
const (
	specsField protowire.Number = 1

	resizeField    protowire.Number = 1
	filterField    protowire.Number = 2
	watermarkField protowire.Number = 3

	resizeWidthField  protowire.Number = 1
	resizeHeightField protowire.Number = 2
	resizeTypeField   protowire.Number = 3
	resizeFilterField protowire.Number = 4

	filterKindField protowire.Number = 1

	watermarkXField protowire.Number = 1
	watermarkYField protowire.Number = 2
)

// Encode serializes p. Fields are written in ascending field-number order and
// zero scalars are omitted, so equal pipelines always encode to equal bytes.
// Undeclared enum values are written as the enum's zero value.
//
// Encode panics if p contains a nil Operation.
func Encode(p Pipeline) []byte {
	var b []byte
	for _, op := range p.ops {
		b = appendMessage(b, specsField, appendOperation(nil, op))
	}
	return b
}

func appendOperation(b []byte, op Operation) []byte {
	switch op := op.(type) {
	case Resize:
		var m []byte
		m = appendVarint(m, resizeWidthField, uint64(op.Width))
		m = appendVarint(m, resizeHeightField, uint64(op.Height))
		m = appendVarint(m, resizeTypeField, uint64(resizeTypeFromWire(uint64(op.Type))))
		m = appendVarint(m, resizeFilterField, uint64(sampleFilterFromWire(uint64(op.Filter))))
		return appendMessage(b, resizeField, m)
	case Filter:
		m := appendVarint(nil, filterKindField, uint64(filterKindFromWire(uint64(op.Kind))))
		return appendMessage(b, filterField, m)
	case Watermark:
		var m []byte
		m = appendVarint(m, watermarkXField, uint64(op.X))
		m = appendVarint(m, watermarkYField, uint64(op.Y))
		return appendMessage(b, watermarkField, m)
	default:
		panic(fmt.Sprintf("spec: cannot encode operation %T", op))
	}
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// appendMessage always writes the field, even when m is empty, so that a
// zero-valued operation keeps its variant tag.
func appendMessage(b []byte, num protowire.Number, m []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m)
}

// Decode parses a message produced by Encode.
//
// Structural problems are hard errors: ErrTruncated when the input ends inside
// a field, ErrMalformedField for a wrong wire type, bad length, unexpected field
// or an operation without exactly one variant, and ErrUnknownVariant for a
// variant tag other than resize, filter or watermark. An undeclared value in a
// known enum field is not an error; it decodes as the enum's zero variant
// (ResizeNormal, SampleUndefined, FilterUnspecified).
func Decode(b []byte) (Pipeline, error) {
	var ops []Operation
	for len(b) > 0 {
		f, n, err := readField(b, "pipeline")
		if err != nil {
			return Pipeline{}, err
		}
		b = b[n:]

		if f.num != specsField {
			return Pipeline{}, f.unexpected("pipeline")
		}
		if err := f.expect("pipeline", protowire.BytesType); err != nil {
			return Pipeline{}, err
		}

		op, err := decodeOperation(f.bytes)
		if err != nil {
			return Pipeline{}, fmt.Errorf("operation %d: %w", len(ops), err)
		}
		ops = append(ops, op)
	}
	return NewPipeline(ops...), nil
}

func decodeOperation(b []byte) (Operation, error) {
	var op Operation
	for len(b) > 0 {
		f, n, err := readField(b, "operation")
		if err != nil {
			return nil, err
		}
		b = b[n:]

		var next Operation
		switch f.num {
		case resizeField:
			if err = f.expect("operation", protowire.BytesType); err == nil {
				next, err = decodeResize(f.bytes)
			}
		case filterField:
			if err = f.expect("operation", protowire.BytesType); err == nil {
				next, err = decodeFilter(f.bytes)
			}
		case watermarkField:
			if err = f.expect("operation", protowire.BytesType); err == nil {
				next, err = decodeWatermark(f.bytes)
			}
		default:
			return nil, fmt.Errorf("%w: tag %d", ErrUnknownVariant, f.num)
		}
		if err != nil {
			return nil, err
		}
		if op != nil {
			return nil, fmt.Errorf("%w: operation carries more than one variant", ErrMalformedField)
		}
		op = next
	}
	if op == nil {
		return nil, fmt.Errorf("%w: operation carries no variant", ErrMalformedField)
	}
	return op, nil
}

func decodeResize(b []byte) (Resize, error) {
	var r Resize
	for len(b) > 0 {
		f, n, err := readField(b, "resize")
		if err != nil {
			return Resize{}, err
		}
		b = b[n:]

		switch f.num {
		case resizeWidthField:
			r.Width, err = f.uint32("resize")
		case resizeHeightField:
			r.Height, err = f.uint32("resize")
		case resizeTypeField:
			var v uint64
			v, err = f.enum("resize")
			r.Type = resizeTypeFromWire(v)
		case resizeFilterField:
			var v uint64
			v, err = f.enum("resize")
			r.Filter = sampleFilterFromWire(v)
		default:
			err = f.unexpected("resize")
		}
		if err != nil {
			return Resize{}, err
		}
	}
	return r, nil
}

func decodeFilter(b []byte) (Filter, error) {
	var flt Filter
	for len(b) > 0 {
		f, n, err := readField(b, "filter")
		if err != nil {
			return Filter{}, err
		}
		b = b[n:]

		if f.num != filterKindField {
			return Filter{}, f.unexpected("filter")
		}
		v, err := f.enum("filter")
		if err != nil {
			return Filter{}, err
		}
		flt.Kind = filterKindFromWire(v)
	}
	return flt, nil
}

func decodeWatermark(b []byte) (Watermark, error) {
	var w Watermark
	for len(b) > 0 {
		f, n, err := readField(b, "watermark")
		if err != nil {
			return Watermark{}, err
		}
		b = b[n:]

		switch f.num {
		case watermarkXField:
			w.X, err = f.uint32("watermark")
		case watermarkYField:
			w.Y, err = f.uint32("watermark")
		default:
			err = f.unexpected("watermark")
		}
		if err != nil {
			return Watermark{}, err
		}
	}
	return w, nil
}

// field is one decoded tag/value pair. Only varint and length-delimited
// values are kept; other wire types are consumed and rejected by expect.
type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	bytes  []byte
}

func readField(b []byte, msg string) (field, int, error) {
	num, typ, n := protowire.ConsumeTag(b)
	if n < 0 {
		return field{}, 0, wireError(msg, n)
	}
	f := field{num: num, typ: typ}

	var m int
	switch typ {
	case protowire.VarintType:
		f.varint, m = protowire.ConsumeVarint(b[n:])
	case protowire.BytesType:
		f.bytes, m = protowire.ConsumeBytes(b[n:])
	default:
		m = protowire.ConsumeFieldValue(num, typ, b[n:])
	}
	if m < 0 {
		return field{}, 0, wireError(msg, m)
	}
	return f, n + m, nil
}

func (f field) expect(msg string, typ protowire.Type) error {
	if f.typ != typ {
		return fmt.Errorf("%w: %s field %d has wire type %d, want %d", ErrMalformedField, msg, f.num, f.typ, typ)
	}
	return nil
}

func (f field) unexpected(msg string) error {
	return fmt.Errorf("%w: unexpected %s field %d", ErrMalformedField, msg, f.num)
}

func (f field) uint32(msg string) (uint32, error) {
	if err := f.expect(msg, protowire.VarintType); err != nil {
		return 0, err
	}
	if f.varint > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %s field %d overflows uint32", ErrMalformedField, msg, f.num)
	}
	return uint32(f.varint), nil
}

func (f field) enum(msg string) (uint64, error) {
	if err := f.expect(msg, protowire.VarintType); err != nil {
		return 0, err
	}
	return f.varint, nil
}

func wireError(msg string, n int) error {
	err := protowire.ParseError(n)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s", ErrTruncated, msg)
	}
	return fmt.Errorf("%w: %s: %v", ErrMalformedField, msg, err)
}
