package imaging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/sepich/image-cache/pkg/model"
)

// createGradientImage creates an in-memory image with enough detail for lossy
// encoders to produce quality-dependent output.
func createGradientImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8((x*7 + y*13) % 256)
			if (x/3+y/3)%2 == 0 {
				v = 255 - v
			}
			img.Set(x, y, color.RGBA{v, uint8(x % 256), uint8(y % 256), 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestTargetSize(t *testing.T) {
	tests := []struct {
		name          string
		origW, origH  int
		width, height *int
		wantW, wantH  int
	}{
		{"no resize", 800, 600, nil, nil, 800, 600},
		{"width keeps ratio", 800, 600, model.Int(400), nil, 400, 300},
		{"height keeps ratio", 800, 600, nil, model.Int(150), 200, 150},
		{"both verbatim", 800, 600, model.Int(100), model.Int(100), 100, 100},
		{"truncates toward zero", 333, 100, model.Int(100), nil, 100, 30},
		{"truncates height case", 100, 333, nil, model.Int(100), 30, 100},
		{"never below one pixel", 1000, 1, model.Int(10), nil, 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := TargetSize(tt.origW, tt.origH, tt.width, tt.height)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("TargetSize: got %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	src := createGradientImage(20, 10)

	decoded, err := Decode(encodePNG(t, src))
	if err != nil {
		t.Fatalf("Decode png failed: %v", err)
	}
	if decoded.Format != "PNG" || decoded.Width != 20 || decoded.Height != 10 {
		t.Errorf("png: got %s %dx%d, want PNG 20x10", decoded.Format, decoded.Width, decoded.Height)
	}

	decoded, err = Decode(encodeJPEG(t, src))
	if err != nil {
		t.Fatalf("Decode jpeg failed: %v", err)
	}
	if decoded.Format != "JPEG" {
		t.Errorf("jpeg: got format %s, want JPEG", decoded.Format)
	}
}

func TestDecode_Unsupported(t *testing.T) {
	_, err := Decode([]byte("definitely not an image"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestTransform(t *testing.T) {
	decoded, err := Decode(encodePNG(t, createGradientImage(800, 600)))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	resized := Transform(decoded, model.Int(400), nil)
	if resized.Width != 400 || resized.Height != 300 {
		t.Errorf("dimensions: got %dx%d, want 400x300", resized.Width, resized.Height)
	}
	b := resized.Image.Bounds()
	if b.Dx() != 400 || b.Dy() != 300 {
		t.Errorf("image bounds: got %dx%d, want 400x300", b.Dx(), b.Dy())
	}
	if resized.Format != "PNG" {
		t.Errorf("format should be preserved, got %s", resized.Format)
	}

	resized = Transform(decoded, nil, model.Int(150))
	if resized.Width != 200 || resized.Height != 150 {
		t.Errorf("dimensions: got %dx%d, want 200x150", resized.Width, resized.Height)
	}

	stretched := Transform(decoded, model.Int(50), model.Int(50))
	if stretched.Width != 50 || stretched.Height != 50 {
		t.Errorf("dimensions: got %dx%d, want 50x50", stretched.Width, stretched.Height)
	}
}

func TestTransform_Identity(t *testing.T) {
	decoded, err := Decode(encodePNG(t, createGradientImage(30, 20)))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got := Transform(decoded, nil, nil); got != decoded {
		t.Error("Transform without dimensions should return the input unchanged")
	}
}

func TestEncode(t *testing.T) {
	decoded, err := Decode(encodePNG(t, createGradientImage(64, 48)))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	out, err := Encode(decoded, "jpeg", nil)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if out.Format != "JPEG" || out.ContentType != "image/jpeg" {
		t.Errorf("got %s %s, want JPEG image/jpeg", out.Format, out.ContentType)
	}
	if out.ContentLength() != len(out.Bytes) || out.ContentLength() == 0 {
		t.Errorf("unexpected content length %d", out.ContentLength())
	}
	roundTrip, err := Decode(out.Bytes)
	if err != nil {
		t.Fatalf("encoded output does not decode: %v", err)
	}
	if roundTrip.Format != "JPEG" || roundTrip.Width != 64 || roundTrip.Height != 48 {
		t.Errorf("round trip: got %s %dx%d", roundTrip.Format, roundTrip.Width, roundTrip.Height)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	decoded, err := Decode(encodePNG(t, createGradientImage(64, 48)))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	for _, format := range []string{"PNG", "JPEG", "GIF", "BMP", "TIFF"} {
		first, err := Encode(decoded, format, model.Int(70))
		if err != nil {
			t.Fatalf("Encode %s failed: %v", format, err)
		}
		second, err := Encode(decoded, format, model.Int(70))
		if err != nil {
			t.Fatalf("Encode %s failed: %v", format, err)
		}
		if !bytes.Equal(first.Bytes, second.Bytes) {
			t.Errorf("%s: encoding is not deterministic", format)
		}
	}
}

func TestEncode_Quality(t *testing.T) {
	decoded, err := Decode(encodePNG(t, createGradientImage(128, 128)))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	low, err := Encode(decoded, "JPEG", model.Int(10))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	high, err := Encode(decoded, "JPEG", model.Int(95))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(low.Bytes) >= len(high.Bytes) {
		t.Errorf("quality 10 (%d bytes) should be smaller than quality 95 (%d bytes)", len(low.Bytes), len(high.Bytes))
	}
}

func TestEncode_Unsupported(t *testing.T) {
	decoded, err := Decode(encodePNG(t, createGradientImage(8, 8)))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	for _, format := range []string{"WEBP", "XYZ"} {
		if _, err := Encode(decoded, format, nil); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("%s: expected ErrUnsupportedFormat, got %v", format, err)
		}
	}
}

func TestOutputFormat(t *testing.T) {
	tests := []struct {
		requested, original, want string
	}{
		{"", "PNG", "PNG"},
		{"jpg", "PNG", "JPEG"},
		{"JPG", "PNG", "JPEG"},
		{"jpeg", "PNG", "JPEG"},
		{"png", "JPEG", "PNG"},
		{"webp", "JPEG", "WEBP"},
	}
	for _, tt := range tests {
		if got := OutputFormat(tt.requested, tt.original); got != tt.want {
			t.Errorf("OutputFormat(%q, %q): got %s, want %s", tt.requested, tt.original, got, tt.want)
		}
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"PNG":  "image/png",
		"JPEG": "image/jpeg",
		"gif":  "image/gif",
		"ICO":  "image/ico",
	}
	for format, want := range tests {
		if got := ContentType(format); got != want {
			t.Errorf("ContentType(%s): got %s, want %s", format, got, want)
		}
	}
}

func TestSniff(t *testing.T) {
	src := createGradientImage(8, 8)

	if format, ok := Sniff(encodePNG(t, src)); !ok || format != "PNG" {
		t.Errorf("png: got %s %v", format, ok)
	}
	if format, ok := Sniff(encodeJPEG(t, src)); !ok || format != "JPEG" {
		t.Errorf("jpeg: got %s %v", format, ok)
	}
	if _, ok := Sniff([]byte("plain text")); ok {
		t.Error("plain text should not be identified as an image")
	}
}

// pngHeader returns a PNG signature and IHDR chunk declaring the given size,
// with no pixel data.
func pngHeader(width, height uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], width)
	binary.BigEndian.PutUint32(ihdr[4:8], height)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 2 // truecolor

	chunk := append([]byte("IHDR"), ihdr...)
	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestDecode_TooLarge(t *testing.T) {
	_, err := Decode(pngHeader(100000, 100000))
	if !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("expected ErrImageTooLarge, got %v", err)
	}
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("ErrImageTooLarge should also match ErrUnsupportedFormat, got %v", err)
	}
}

func TestDecode_Truncated(t *testing.T) {
	raw := encodePNG(t, createGradientImage(64, 64))

	_, err := Decode(raw[:len(raw)/2])
	if err == nil {
		t.Fatal("expected an error for a truncated png")
	}
	if errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("a truncated png is a known format, got %v", err)
	}
}
