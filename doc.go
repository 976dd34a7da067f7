// Package boxblur approximates a Gaussian blur over 4-channel, 8-bit pixel
// buffers with three successive box convolutions.
//
// # Quick Start
//
//	import "github.com/gogpu/boxblur"
//
//	out := boxblur.Blur(img, 8) // img is any image.Image
//
// # Pipeline
//
// A blur radius is converted into an odd box size by ComputeKernelSize:
//
//	k = floor(radius * 3*sqrt(2*pi)/4 + 0.5), rounded up to odd
//
// ApplyBoxBlur then runs three k×k box passes that ping-pong between two
// buffers (input -> scratch -> input -> scratch). Samples outside the buffer
// reuse the nearest edge pixel. Channels are averaged independently with
// integer sums and round-half-up division, so a uniform image is returned
// unchanged and every output stays within [0, 255].
//
// Composite draws the original and then the blurred result on top, fully
// opaque, at the same bounds.
//
// # Buffers
//
// PixelBuffer is a plain view over pixel memory with an explicit stride.
// FromRaw and ViewRGBA wrap caller memory without copying; the core never
// owns or retains buffers between calls.
//
// # Concurrency
//
// The package-level functions run on the calling goroutine. An Engine
// splits each pass into row and column bands over a worker pool and
// produces byte-identical output. Passes never overlap.
//
// # Radius
//
// A radius at or below zero means "do not blur". Scaling for display
// density is the caller's job; Engine.BlurScaled takes the scale as an
// explicit argument.
package boxblur

// Version is the current version of the library.
const Version = "0.1.0"
