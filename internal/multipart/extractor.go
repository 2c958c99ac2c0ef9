// Package multipart extracts the image and name field from an enrollment
// upload body. It is deliberately not a MIME parser: the client contract is
// fixed to exactly one JPEG part followed by one text part named "name",
// and the scanner below reproduces that contract byte for byte. Any broader
// compatibility requirement is a protocol renegotiation, not a bug fix here.
package multipart

import (
	"bytes"

	"github.com/doorwatch-io/doorwatch/internal/domain"
)

var (
	jpegStart = []byte{0xFF, 0xD8, 0xFF}
	jpegEnd   = []byte{0xFF, 0xD9}
	nameField = []byte(`name="name"`)
	crlfcrlf  = []byte("\r\n\r\n")
	crlf      = []byte("\r\n")
	dashes    = []byte("--")
)

// Upload is the decoded result of an enrollment body.
type Upload struct {
	// Image is a sub-slice of the input buffer holding the JPEG,
	// start-of-image through end-of-image marker inclusive.
	Image []byte
	// Name is the value of the "name" form field, truncated to
	// domain.MaxNameLen-1 bytes.
	Name string
}

// Extract scans body for a JPEG part followed by a text part literally
// named "name". Each failure mode has its own typed error.
func Extract(body []byte) (Upload, error) {
	start := bytes.Index(body, jpegStart)
	if start < 0 {
		return Upload{}, domain.ErrNoImageMarker
	}

	end := bytes.Index(body[start:], jpegEnd)
	if end < 0 {
		return Upload{}, domain.ErrTruncatedImage
	}
	imageEnd := start + end + len(jpegEnd)
	image := body[start:imageEnd]

	rest := body[imageEnd:]
	fieldAt := bytes.Index(rest, nameField)
	if fieldAt < 0 {
		return Upload{}, domain.ErrFieldNotFound
	}

	headerEnd := bytes.Index(rest[fieldAt:], crlfcrlf)
	if headerEnd < 0 {
		return Upload{}, domain.ErrFieldNotTerminated
	}
	valueStart := fieldAt + headerEnd + len(crlfcrlf)
	value := rest[valueStart:]

	// The value ends at the first CRLF or boundary terminator,
	// whichever comes first.
	valueEnd := -1
	if i := bytes.Index(value, crlf); i >= 0 {
		valueEnd = i
	}
	if i := bytes.Index(value, dashes); i >= 0 && (valueEnd < 0 || i < valueEnd) {
		valueEnd = i
	}
	if valueEnd < 0 {
		return Upload{}, domain.ErrFieldNotTerminated
	}

	name := value[:valueEnd]
	if len(name) > domain.MaxNameLen-1 {
		name = name[:domain.MaxNameLen-1]
	}

	return Upload{Image: image, Name: string(name)}, nil
}
