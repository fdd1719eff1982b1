// Package dataurl parses and validates base64 image data URLs of the form
// data:image/<subtype>;base64,<payload>.
package dataurl

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrEmpty              = errors.New("data URL is empty")
	ErrMalformed          = errors.New("malformed data URL")
	ErrUnsupportedSubtype = errors.New("unsupported image format")
	ErrInvalidBase64      = errors.New("invalid base64 payload")
)

// grammar covers the accepted subtypes and the base64 alphabet including
// padding. Padding position is checked separately since a regexp alone
// cannot enforce length % 4 == 0.
var grammar = regexp.MustCompile(`^data:image/(png|jpeg|jpg|gif|webp);base64,([A-Za-z0-9+/]+={0,2})$`)

// Image is a validated data-URL image. The base64 payload is kept as-is;
// callers decode on demand.
type Image struct {
	MimeType string // e.g. "image/png"
	Subtype  string // e.g. "png"
	Payload  string // raw base64, prefix stripped
}

// Parse validates s against the data-URL grammar and returns the split image.
// It rejects unknown subtypes before reporting base64 problems so the caller
// sees the most actionable error first.
func Parse(s string) (*Image, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmpty
	}

	m := grammar.FindStringSubmatch(s)
	if m == nil {
		if rest, ok := strings.CutPrefix(s, "data:image/"); ok {
			subtype, _, found := strings.Cut(rest, ";")
			if found && !acceptedSubtype(subtype) {
				return nil, fmt.Errorf("%w: image/%s", ErrUnsupportedSubtype, subtype)
			}
		}
		return nil, ErrMalformed
	}

	subtype, payload := m[1], m[2]
	if len(payload)%4 != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of 4", ErrInvalidBase64, len(payload))
	}

	return &Image{
		MimeType: "image/" + subtype,
		Subtype:  subtype,
		Payload:  payload,
	}, nil
}

// Decode returns the decoded image bytes.
func (img *Image) Decode() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(img.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
	}
	return data, nil
}

// DecodedSize reports the decoded payload size in bytes without allocating
// a decode buffer.
func (img *Image) DecodedSize() int {
	n := len(img.Payload) / 4 * 3
	if strings.HasSuffix(img.Payload, "==") {
		n -= 2
	} else if strings.HasSuffix(img.Payload, "=") {
		n--
	}
	return n
}

// String reassembles the full data URL.
func (img *Image) String() string {
	return "data:" + img.MimeType + ";base64," + img.Payload
}

// Encode builds a data URL from raw image bytes.
func Encode(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func acceptedSubtype(s string) bool {
	switch s {
	case "png", "jpeg", "jpg", "gif", "webp":
		return true
	}
	return false
}
