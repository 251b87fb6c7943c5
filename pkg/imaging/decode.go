package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"strings"

	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WEBP format decoder
)

// ErrUnsupportedFormat is returned when bytes cannot be identified as a known
// image encoding, or when no encoder exists for a requested output format.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ErrImageTooLarge is returned for images declaring more than MaxPixels pixels.
var ErrImageTooLarge = fmt.Errorf("%w: image too large", ErrUnsupportedFormat)

// MaxPixels bounds the decoded pixel buffer (about 400 MB as RGBA).
const MaxPixels = 100_000_000

// DecodedImage is a decoded source image together with its original format.
type DecodedImage struct {
	Image  image.Image
	Width  int
	Height int
	// Format is the upper-case name of the decoder that read the image.
	Format string
}

// Decode reads raw image bytes. The format is detected from the content, not
// from any file name.
func Decode(raw []byte) (*DecodedImage, error) {
	// header only, so oversized images are rejected before allocating pixels
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if errors.Is(err, image.ErrFormat) {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode image header: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if errors.Is(err, image.ErrFormat) {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	return &DecodedImage{
		Image:  img,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Format: strings.ToUpper(format),
	}, nil
}
