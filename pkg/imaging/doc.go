// Package imaging decodes source images, resizes them and re-encodes them to a
// target format.
//
// # Formats
//
// Decoding supports PNG, JPEG, GIF, WEBP, BMP and TIFF. Encoding supports
// JPEG, PNG, GIF, TIFF and BMP; WEBP can be read but not written. Format names
// are upper-case throughout ("PNG", "JPEG"), with "JPG" accepted as an alias
// for "JPEG" when resolving the output format.
//
// # Resizing
//
// When only one of width and height is given, the other is derived from the
// source aspect ratio and truncated toward zero, never below one pixel. When
// both are given they are used as is and the aspect ratio is not kept. All
// resampling uses the Lanczos filter.
//
// # Quality
//
// A quality value sets the JPEG quality and switches PNG output to the best
// compression level. Without it the encoder defaults apply. Encoding is
// deterministic for identical input and settings.
//
// # Ownership
//
// A DecodedImage belongs to the call that produced it and must not be shared
// between requests.
package imaging
