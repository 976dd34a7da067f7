package boxblur

import (
	"math"
	"math/rand"
	"testing"
)

// Test helper functions shared across boxblur tests.

// newImpulse returns a zeroed buffer with a single pixel set to v in all channels.
func newImpulse(w, h, x, y int, v uint8) *PixelBuffer {
	pb := NewPixelBuffer(w, h)
	pb.SetPixel(x, y, [4]uint8{v, v, v, v})
	return pb
}

// newRandomBuffer returns a buffer with the given stride filled with
// pseudo-random bytes, padding included.
func newRandomBuffer(rng *rand.Rand, w, h, stride int) *PixelBuffer {
	data := make([]byte, stride*h)
	rng.Read(data)
	pb, err := FromRaw(data, w, h, stride)
	if err != nil {
		panic(err)
	}
	return pb
}

// bruteBoxPass is the textbook definition of one edge-extended box pass:
// every output channel is the rounded mean of the full k×k window.
func bruteBoxPass(src *PixelBuffer, k KernelSize) *PixelBuffer {
	w, h := src.Width(), src.Height()
	r := k.Radius()
	area := k.Area()
	dst := NewPixelBuffer(w, h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum [4]uint64
			for j := -r; j <= r; j++ {
				for i := -r; i <= r; i++ {
					p := src.Pixel(clampIndex(x+i, w), clampIndex(y+j, h))
					for c := 0; c < 4; c++ {
						sum[c] += uint64(p[c])
					}
				}
			}
			var out [4]uint8
			for c := 0; c < 4; c++ {
				out[c] = uint8((sum[c] + area/2) / area)
			}
			dst.SetPixel(x, y, out)
		}
	}
	return dst
}

// gaussianReference convolves channel 0 of src with a separable Gaussian of
// the given sigma, using edge extension, and returns float results.
func gaussianReference(src *PixelBuffer, sigma float64) [][]float64 {
	w, h := src.Width(), src.Height()
	half := int(math.Ceil(sigma * 4))

	kernel := make([]float64, 2*half+1)
	var sum float64
	for i := range kernel {
		x := float64(i - half)
		kernel[i] = math.Exp(-(x * x) / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	tmp := make([][]float64, h)
	for y := 0; y < h; y++ {
		tmp[y] = make([]float64, w)
		for x := 0; x < w; x++ {
			for i := -half; i <= half; i++ {
				tmp[y][x] += kernel[i+half] * float64(src.Pixel(clampIndex(x+i, w), y)[0])
			}
		}
	}

	out := make([][]float64, h)
	for y := 0; y < h; y++ {
		out[y] = make([]float64, w)
		for x := 0; x < w; x++ {
			for j := -half; j <= half; j++ {
				out[y][x] += kernel[j+half] * tmp[clampIndex(y+j, h)][x]
			}
		}
	}
	return out
}

// assertSamePixels fails the test at the first differing pixel.
func assertSamePixels(t *testing.T, got, want *PixelBuffer) {
	t.Helper()
	if !got.SameSize(want) {
		t.Fatalf("size = %dx%d, want %dx%d", got.Width(), got.Height(), want.Width(), want.Height())
	}
	for y := 0; y < want.Height(); y++ {
		for x := 0; x < want.Width(); x++ {
			if g, w := got.Pixel(x, y), want.Pixel(x, y); g != w {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, g, w)
			}
		}
	}
}

// nonZeroCount counts pixels whose first channel is non-zero.
func nonZeroCount(pb *PixelBuffer) int {
	n := 0
	for y := 0; y < pb.Height(); y++ {
		for x := 0; x < pb.Width(); x++ {
			if pb.Pixel(x, y)[0] != 0 {
				n++
			}
		}
	}
	return n
}

// mustPanic fails the test unless fn panics.
func mustPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Error("expected panic, got none")
		}
	}()
	fn()
}
