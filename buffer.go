package boxblur

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
)

// BytesPerPixel is the fixed pixel size: four interleaved 8-bit channels.
const BytesPerPixel = 4

// Buffer construction errors.
var (
	// ErrInvalidDimensions is returned when width or height is negative.
	ErrInvalidDimensions = errors.New("boxblur: invalid dimensions")

	// ErrInvalidStride is returned when stride is less than width*4.
	ErrInvalidStride = errors.New("boxblur: stride too small for width")

	// ErrDataTooSmall is returned when the backing slice is shorter than stride*height.
	ErrDataTooSmall = errors.New("boxblur: data buffer too small")
)

// PixelBuffer is a view over 4-channel, 8-bit-per-channel pixel memory.
//
// Channel order is opaque: the convolution treats every channel independently,
// so RGBA, BGRA and ARGB buffers are all handled the same way. Rows may be
// padded; Stride is the distance in bytes between the starts of two rows.
//
// A PixelBuffer created with FromRaw or ViewRGBA does not own its memory.
// It is only valid while the caller keeps the backing slice alive.
type PixelBuffer struct {
	width  int
	height int
	stride int
	data   []byte
}

// NewPixelBuffer allocates a zeroed buffer with a tightly packed stride.
// Negative dimensions are treated as zero.
func NewPixelBuffer(width, height int) *PixelBuffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	stride := width * BytesPerPixel
	return &PixelBuffer{
		width:  width,
		height: height,
		stride: stride,
		data:   make([]byte, stride*height),
	}
}

// FromRaw wraps existing pixel memory without copying.
// The caller must keep data valid for the lifetime of the returned buffer.
func FromRaw(data []byte, width, height, stride int) (*PixelBuffer, error) {
	if width < 0 || height < 0 {
		return nil, ErrInvalidDimensions
	}
	if stride < width*BytesPerPixel {
		return nil, ErrInvalidStride
	}
	required := stride * height
	if len(data) < required {
		return nil, ErrDataTooSmall
	}
	return &PixelBuffer{
		width:  width,
		height: height,
		stride: stride,
		data:   data[:required],
	}, nil
}

// ViewRGBA returns a non-owning view over img's pixels.
// Writes to the buffer are visible in img.
func ViewRGBA(img *image.RGBA) *PixelBuffer {
	b := img.Bounds()
	if b.Empty() {
		return &PixelBuffer{}
	}
	start := img.PixOffset(b.Min.X, b.Min.Y)
	w, h := b.Dx(), b.Dy()
	end := start + (h-1)*img.Stride + w*BytesPerPixel
	return &PixelBuffer{
		width:  w,
		height: h,
		stride: img.Stride,
		data:   img.Pix[start:end:end],
	}
}

// FromImage copies img into a new tightly packed RGBA buffer.
// Colors are stored premultiplied, as image.RGBA stores them.
func FromImage(img image.Image) *PixelBuffer {
	b := img.Bounds()
	pb := NewPixelBuffer(b.Dx(), b.Dy())
	if pb.width == 0 || pb.height == 0 {
		return pb
	}

	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < pb.height; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(pb.Row(y), src.Pix[off:off+pb.width*BytesPerPixel])
		}
	default:
		dst := &image.RGBA{
			Pix:    pb.data,
			Stride: pb.stride,
			Rect:   image.Rect(0, 0, pb.width, pb.height),
		}
		draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	}
	return pb
}

// Width returns the width in pixels.
func (p *PixelBuffer) Width() int {
	return p.width
}

// Height returns the height in pixels.
func (p *PixelBuffer) Height() int {
	return p.height
}

// Stride returns the number of bytes between the starts of consecutive rows.
func (p *PixelBuffer) Stride() int {
	return p.stride
}

// Data returns the raw pixel memory, including any row padding.
func (p *PixelBuffer) Data() []byte {
	return p.data
}

// Bounds returns the buffer rectangle anchored at the origin.
func (p *PixelBuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.width, p.height)
}

// Empty reports whether the buffer has zero area.
func (p *PixelBuffer) Empty() bool {
	return p.width == 0 || p.height == 0
}

// SameSize reports whether both buffers have identical width and height.
func (p *PixelBuffer) SameSize(other *PixelBuffer) bool {
	return other != nil && p.width == other.width && p.height == other.height
}

// Row returns the pixel bytes of row y without padding.
// Returns nil if y is out of bounds.
func (p *PixelBuffer) Row(y int) []byte {
	if y < 0 || y >= p.height {
		return nil
	}
	start := y * p.stride
	return p.data[start : start+p.width*BytesPerPixel]
}

// PixelOffset returns the byte offset of pixel (x, y), or -1 if out of bounds.
func (p *PixelBuffer) PixelOffset(x, y int) int {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return -1
	}
	return y*p.stride + x*BytesPerPixel
}

// Pixel returns the four channels of pixel (x, y).
// Out-of-bounds coordinates return all zeros.
func (p *PixelBuffer) Pixel(x, y int) [4]uint8 {
	i := p.PixelOffset(x, y)
	if i < 0 {
		return [4]uint8{}
	}
	return [4]uint8{p.data[i], p.data[i+1], p.data[i+2], p.data[i+3]}
}

// SetPixel sets the four channels of pixel (x, y).
// Out-of-bounds coordinates are silently ignored.
func (p *PixelBuffer) SetPixel(x, y int, c [4]uint8) {
	i := p.PixelOffset(x, y)
	if i < 0 {
		return
	}
	copy(p.data[i:i+BytesPerPixel], c[:])
}

// Fill sets every pixel to c. Row padding is left untouched.
func (p *PixelBuffer) Fill(c [4]uint8) {
	for y := 0; y < p.height; y++ {
		row := p.Row(y)
		for i := 0; i < len(row); i += BytesPerPixel {
			row[i+0] = c[0]
			row[i+1] = c[1]
			row[i+2] = c[2]
			row[i+3] = c[3]
		}
	}
}

// Clone returns a tightly packed deep copy.
func (p *PixelBuffer) Clone() *PixelBuffer {
	c := NewPixelBuffer(p.width, p.height)
	c.CopyFrom(p)
	return c
}

// CopyFrom copies pixels row by row from src. Both buffers must be the same
// size; strides may differ.
func (p *PixelBuffer) CopyFrom(src *PixelBuffer) {
	if !p.SameSize(src) {
		panic("boxblur: CopyFrom size mismatch")
	}
	if p.stride == src.stride {
		copy(p.data, src.data)
		return
	}
	for y := 0; y < p.height; y++ {
		copy(p.Row(y), src.Row(y))
	}
}

// ToImage copies the buffer into a new image.RGBA.
func (p *PixelBuffer) ToImage() *image.RGBA {
	img := image.NewRGBA(p.Bounds())
	for y := 0; y < p.height; y++ {
		copy(img.Pix[y*img.Stride:], p.Row(y))
	}
	return img
}

// At implements the image.Image interface, interpreting channels as
// premultiplied RGBA.
func (p *PixelBuffer) At(x, y int) color.Color {
	c := p.Pixel(x, y)
	return color.RGBA{R: c[0], G: c[1], B: c[2], A: c[3]}
}

// ColorModel implements the image.Image interface.
func (p *PixelBuffer) ColorModel() color.Model {
	return color.RGBAModel
}
