package spec

import (
	"encoding/base64"
	"fmt"
)

// tokenEncoding is unpadded URL-safe base64. Strict mode rejects
// non-zero trailing bits so every token has exactly one byte form.
var tokenEncoding = base64.RawURLEncoding.Strict()

// EncodeText wraps b in a token made only of A-Z a-z 0-9 - and _,
// safe to place in a URL path segment without escaping.
func EncodeText(b []byte) string {
	return tokenEncoding.EncodeToString(b)
}

// DecodeText reverses EncodeText. Any character outside the URL-safe
// alphabet (including '=' padding and line breaks) or an impossible token
// length fails with ErrInvalidEncoding.
func DecodeText(token string) ([]byte, error) {
	for i := 0; i < len(token); i++ {
		if !isTokenChar(token[i]) {
			return nil, fmt.Errorf("%w: invalid character %q at offset %d", ErrInvalidEncoding, token[i], i)
		}
	}
	b, err := tokenEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return b, nil
}

func isTokenChar(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	case c == '-' || c == '_':
		return true
	}
	return false
}

// Token encodes p and wraps it as a URL-safe token.
func (p Pipeline) Token() string {
	return EncodeText(Encode(p))
}

// ParseToken decodes a token produced by Pipeline.Token.
func ParseToken(token string) (Pipeline, error) {
	b, err := DecodeText(token)
	if err != nil {
		return Pipeline{}, err
	}
	return Decode(b)
}
