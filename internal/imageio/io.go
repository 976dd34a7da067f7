// Package imageio loads and saves the images that the command-line tools
// blur. The blur core itself never touches files.
package imageio

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	// Register decoders with image.Decode.
	_ "image/gif"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// I/O errors.
var (
	// ErrUnsupportedFormat is returned when the output extension has no encoder.
	ErrUnsupportedFormat = errors.New("imageio: unsupported format")

	// ErrEmptyImage is returned when a decoded image has zero area.
	ErrEmptyImage = errors.New("imageio: empty image")
)

// DefaultJPEGQuality is used when EncodeOptions.JPEGQuality is out of range.
const DefaultJPEGQuality = 90

// EncodeOptions controls output encoding.
type EncodeOptions struct {
	// JPEGQuality is in [1, 100]. Zero selects DefaultJPEGQuality.
	JPEGQuality int
}

// decodableExts lists extensions Load understands.
var decodableExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// IsImagePath reports whether path has an extension Load can decode.
func IsImagePath(path string) bool {
	return decodableExts[strings.ToLower(filepath.Ext(path))]
}

// Load decodes the image at path, detecting the format from its content.
// It returns the format name reported by the decoder.
func Load(path string) (image.Image, string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, "", fmt.Errorf("imageio: open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Decode(f)
}

// Decode decodes an image from r, detecting the format from its content.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("imageio: decode: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, format, ErrEmptyImage
	}
	return img, format, nil
}

// Save encodes img to path, choosing the encoder from the file extension.
// The file is only created once the extension is known to be supported.
func Save(path string, img image.Image, opts EncodeOptions) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !Encodable(ext) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("imageio: create file: %w", err)
	}

	if err := Encode(f, ext, img, opts); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Encodable reports whether ext (with leading dot) has an encoder.
func Encodable(ext string) bool {
	switch strings.ToLower(ext) {
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff":
		return true
	}
	return false
}

// Encode writes img to w in the format selected by ext.
func Encode(w io.Writer, ext string, img image.Image, opts EncodeOptions) error {
	var err error
	switch strings.ToLower(ext) {
	case ".png":
		err = png.Encode(w, img)
	case ".jpg", ".jpeg":
		q := opts.JPEGQuality
		if q < 1 || q > 100 {
			q = DefaultJPEGQuality
		}
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: q})
	case ".bmp":
		err = bmp.Encode(w, img)
	case ".tif", ".tiff":
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return fmt.Errorf("imageio: encode %s: %w", strings.TrimPrefix(ext, "."), err)
	}
	return nil
}

// OutputPath derives the destination for input inside dir: the base name
// gets suffix inserted before its extension. An empty dir keeps the input's
// directory. Inputs whose extension cannot be encoded are written as PNG.
func OutputPath(input, dir, suffix string) string {
	if dir == "" {
		dir = filepath.Dir(input)
	}
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if !Encodable(ext) {
		ext = ".png"
	}
	return filepath.Join(dir, stem+suffix+ext)
}
