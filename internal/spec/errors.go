package spec

import "errors"

// Decode errors. Returned errors wrap one of these; match with errors.Is.
var (
	// ErrInvalidEncoding means a token is not unpadded URL-safe base64.
	ErrInvalidEncoding = errors.New("invalid token encoding")

	// ErrTruncated means the binary message ends inside a field.
	ErrTruncated = errors.New("truncated pipeline message")

	// ErrMalformedField means a tag, wire type or length does not fit the schema.
	ErrMalformedField = errors.New("malformed pipeline field")

	// ErrUnknownVariant means an operation carries a variant tag other than
	// resize, filter or watermark.
	ErrUnknownVariant = errors.New("unknown operation variant")

	// ErrUnknownSampleFilter is returned by the resample adapter for an
	// undeclared SampleFilter value.
	ErrUnknownSampleFilter = errors.New("unknown sample filter")
)

// IsDecodeError reports whether err came from decoding a token or message,
// as opposed to an I/O or rendering failure.
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrInvalidEncoding) ||
		errors.Is(err, ErrTruncated) ||
		errors.Is(err, ErrMalformedField) ||
		errors.Is(err, ErrUnknownVariant)
}
