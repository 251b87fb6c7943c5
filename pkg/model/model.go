package model

import "strings"

const (
	HeaderContentType   = "Content-Type"
	HeaderContentLength = "Content-Length"
	HeaderCache         = "X-Cache"
)

// TransformRequest describes one image lookup. Nil Width, Height or Quality and an
// empty Format mean the parameter was not given.
type TransformRequest struct {
	SourcePath string
	Width      *int
	Height     *int
	Format     string // lower-case, "jpg" folded into "jpeg"
	Quality    *int
	UseCache   bool
}

// NewTransformRequest builds a request with a normalized format.
func NewTransformRequest(sourcePath string, width, height *int, format string, quality *int, useCache bool) TransformRequest {
	return TransformRequest{
		SourcePath: sourcePath,
		Width:      width,
		Height:     height,
		Format:     NormalizeFormat(format),
		Quality:    quality,
		UseCache:   useCache,
	}
}

// NormalizeFormat lower-cases a requested format name and maps the "jpg" alias to "jpeg".
func NormalizeFormat(format string) string {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "jpg" {
		return "jpeg"
	}
	return f
}

// EncodedOutput is the final encoded image handed back to the HTTP layer.
type EncodedOutput struct {
	Bytes       []byte
	Format      string // upper-case, e.g. "PNG"
	ContentType string
}

func (o *EncodedOutput) ContentLength() int {
	return len(o.Bytes)
}

// Int returns a pointer to v, for optional request parameters.
func Int(v int) *int {
	return &v
}
