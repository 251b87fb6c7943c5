package imaging

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/sepich/image-cache/pkg/model"
)

var encoders = map[string]imaging.Format{
	"JPEG": imaging.JPEG,
	"PNG":  imaging.PNG,
	"GIF":  imaging.GIF,
	"TIFF": imaging.TIFF,
	"BMP":  imaging.BMP,
}

// CanEncode reports whether an encoder exists for the upper-case format name.
func CanEncode(format string) bool {
	_, ok := encoders[strings.ToUpper(format)]
	return ok
}

// Encode writes img in outputFormat. A non-nil quality sets the JPEG quality
// and the best PNG compression; otherwise encoder defaults are used.
func Encode(img *DecodedImage, outputFormat string, quality *int) (*model.EncodedOutput, error) {
	format := strings.ToUpper(outputFormat)
	f, ok := encoders[format]
	if !ok {
		return nil, fmt.Errorf("%w: no encoder for %s", ErrUnsupportedFormat, format)
	}

	var opts []imaging.EncodeOption
	if quality != nil {
		opts = append(opts,
			imaging.JPEGQuality(*quality),
			imaging.PNGCompressionLevel(png.BestCompression),
		)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img.Image, f, opts...); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", format, err)
	}

	return &model.EncodedOutput{
		Bytes:       buf.Bytes(),
		Format:      format,
		ContentType: ContentType(format),
	}, nil
}
