package imaging

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var contentTypes = []struct {
	format      string
	contentType string
}{
	{"JPEG", "image/jpeg"},
	{"PNG", "image/png"},
	{"GIF", "image/gif"},
	{"WEBP", "image/webp"},
	{"BMP", "image/bmp"},
	{"TIFF", "image/tiff"},
}

// OutputFormat resolves the format to encode to: the original format when
// nothing was requested, otherwise the requested one upper-cased with JPG
// mapped to JPEG.
func OutputFormat(requested, original string) string {
	if requested == "" {
		return original
	}
	f := strings.ToUpper(requested)
	if f == "JPG" {
		return "JPEG"
	}
	return f
}

// ContentType returns the MIME type for a format name, falling back to
// "image/<format>".
func ContentType(format string) string {
	f := strings.ToUpper(format)
	for _, ct := range contentTypes {
		if ct.format == f {
			return ct.contentType
		}
	}
	return "image/" + strings.ToLower(format)
}

// Sniff identifies the format of already encoded bytes from their signature,
// without decoding them.
func Sniff(b []byte) (string, bool) {
	m := mimetype.Detect(b)
	for _, ct := range contentTypes {
		if m.Is(ct.contentType) {
			return ct.format, true
		}
	}
	return "", false
}
