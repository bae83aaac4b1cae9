package domain

import (
	"encoding/base64"
	"errors"
	"strings"
)

const inlineImagePrefix = "data:image"

var ErrNotInlineImage = errors.New("not an inline image data-url")

// IsInlineImage reports whether url carries the image bytes itself
// rather than referencing an external resource.
func IsInlineImage(url string) bool {
	return strings.HasPrefix(url, inlineImagePrefix)
}

// DecodeInlineImage extracts the raw bytes from a data:image/...;base64 url.
func DecodeInlineImage(url string) ([]byte, error) {
	if !IsInlineImage(url) {
		return nil, ErrNotInlineImage
	}
	_, encoded, ok := strings.Cut(url, ",")
	if !ok {
		return nil, ErrNotInlineImage
	}
	return base64.StdEncoding.DecodeString(encoded)
}
