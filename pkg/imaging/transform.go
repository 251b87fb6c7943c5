package imaging

import (
	"github.com/disintegration/imaging"
)

// Transform resizes img to the requested dimensions. With neither dimension
// given img is returned unchanged.
func Transform(img *DecodedImage, width, height *int) *DecodedImage {
	if width == nil && height == nil {
		return img
	}

	w, h := TargetSize(img.Width, img.Height, width, height)
	resized := imaging.Resize(img.Image, w, h, imaging.Lanczos)

	return &DecodedImage{
		Image:  resized,
		Width:  w,
		Height: h,
		Format: img.Format,
	}
}

// TargetSize computes the output dimensions for a source of origW x origH.
// A missing dimension keeps the aspect ratio, truncated toward zero.
func TargetSize(origW, origH int, width, height *int) (int, int) {
	var w, h int
	switch {
	case width == nil && height == nil:
		return origW, origH
	case width == nil:
		h = *height
		w = int(float64(origW) * (float64(h) / float64(origH)))
	case height == nil:
		w = *width
		h = int(float64(origH) * (float64(w) / float64(origW)))
	default:
		w, h = *width, *height
	}

	return max(w, 1), max(h, 1)
}
