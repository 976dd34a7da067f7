package boxblur

import (
	"image"
	"math"
)

// Blur returns img blurred with the given radius, using the sequential engine.
//
// A radius at or below zero is a no-op: the result is an unblurred copy.
func Blur(img image.Image, radius float64) *image.RGBA {
	return sequential.Blur(img, radius)
}

// Blur returns img blurred with the given radius.
func (e *Engine) Blur(img image.Image, radius float64) *image.RGBA {
	return e.BlurScaled(img, radius, 1)
}

// BlurScaled multiplies radius by scale before sizing the kernel. scale is
// the display density the caller rendered img at; values at or below zero
// are treated as 1.
func (e *Engine) BlurScaled(img image.Image, radius, scale float64) *image.RGBA {
	effective := effectiveRadius(radius, scale)

	src := FromImage(img)
	out := e.BlurBuffer(src, effective)
	if out == src {
		return Composite(img, nil)
	}
	return Composite(img, out.ToImage())
}

// BlurBuffer blurs src into a new tightly packed buffer and leaves src
// untouched. For a radius at or below zero, or an empty buffer, it returns
// src itself.
func (e *Engine) BlurBuffer(src *PixelBuffer, radius float64) *PixelBuffer {
	if !(radius > 0) || src.Empty() {
		Logger().Debug("boxblur: skipping blur",
			"radius", radius,
			"width", src.width,
			"height", src.height)
		return src
	}

	k := ComputeKernelSize(radius)
	input := src.Clone()
	scratch := NewPixelBuffer(src.width, src.height)
	return e.ApplyBoxBlur(input, scratch, k)
}

func effectiveRadius(radius, scale float64) float64 {
	if !(scale > 0) || math.IsInf(scale, 0) {
		scale = 1
	}
	return radius * scale
}
