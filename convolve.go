package boxblur

import (
	"fmt"
	"sync"
)

// BoxConvolve applies one k×k box filter from src to dst.
//
// Every destination channel is the rounded mean of the k*k source samples
// centered on it. Samples outside the buffer take the value of the nearest
// edge pixel. The filter is computed as a horizontal then a vertical running
// sum, which gives the same result as summing the full square window.
//
// BoxConvolve panics if k is invalid, either buffer is nil or empty, the
// buffers differ in size, or src and dst share memory.
func BoxConvolve(src, dst *PixelBuffer, k KernelSize) {
	sequential.BoxConvolve(src, dst, k)
}

// ApplyBoxBlur approximates a Gaussian blur with three box passes that
// alternate between input and scratch:
//
//	input -> scratch -> input -> scratch
//
// The result is returned and is always scratch. input is overwritten by the
// second pass. Both buffers must have identical dimensions.
func ApplyBoxBlur(input, scratch *PixelBuffer, k KernelSize) *PixelBuffer {
	return sequential.ApplyBoxBlur(input, scratch, k)
}

// checkPass enforces the pass contract. Violations are programming errors.
func checkPass(src, dst *PixelBuffer, k KernelSize) {
	if !k.Valid() {
		panic(fmt.Sprintf("boxblur: invalid kernel size %d", k))
	}
	if src == nil || dst == nil {
		panic("boxblur: nil pixel buffer")
	}
	if !src.SameSize(dst) {
		panic(fmt.Sprintf("boxblur: buffer size mismatch %dx%d vs %dx%d",
			src.width, src.height, dst.width, dst.height))
	}
	if src.Empty() {
		panic("boxblur: zero-area pixel buffer")
	}
	if &src.data[0] == &dst.data[0] {
		panic("boxblur: source and destination share memory")
	}
}

// clampIndex clamps i to [0, n-1]. This is the edge-extension rule.
func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// windowWeights returns how many times the first and last elements of a
// line of length n are sampled by the window centered on index 0, and the
// last interior index that is sampled exactly once.
//
// For a window [-r, r] the first element is repeated r+1 times; indices
// 1..min(r, n-1) appear once; any remaining r-(n-1) samples repeat the
// last element.
func windowWeights(r, n int) (first, last uint64, inner int) {
	first = uint64(r) + 1
	inner = r
	if inner > n-1 {
		last = uint64(inner - (n - 1))
		inner = n - 1
	}
	return first, last, inner
}

// horizontalSums writes, for rows [y0, y1), the per-channel sum of the 1×k
// window around every pixel into sums, which is packed at width*4 per row.
func horizontalSums(src *PixelBuffer, sums []uint32, r, y0, y1 int) {
	w := src.width
	lastOff := (w - 1) * BytesPerPixel
	first, last, inner := windowWeights(r, w)

	var acc [BytesPerPixel]uint32
	for y := y0; y < y1; y++ {
		row := src.Row(y)
		out := sums[y*w*BytesPerPixel : (y+1)*w*BytesPerPixel]

		for c := 0; c < BytesPerPixel; c++ {
			acc[c] = uint32(first)*uint32(row[c]) + uint32(last)*uint32(row[lastOff+c])
			for i := 1; i <= inner; i++ {
				acc[c] += uint32(row[i*BytesPerPixel+c])
			}
		}

		for x := 0; x < w; x++ {
			o := x * BytesPerPixel
			add := clampIndex(x+r+1, w) * BytesPerPixel
			sub := clampIndex(x-r, w) * BytesPerPixel
			for c := 0; c < BytesPerPixel; c++ {
				out[o+c] = acc[c]
				acc[c] += uint32(row[add+c])
				acc[c] -= uint32(row[sub+c])
			}
		}
	}
}

// verticalAverage sums the k×1 window of horizontal sums for columns
// [x0, x1) and writes the rounded k×k mean into dst.
func verticalAverage(sums []uint32, dst *PixelBuffer, r int, area uint64, x0, x1 int) {
	w, h := dst.width, dst.height
	rowLen := w * BytesPerPixel
	first, last, inner := windowWeights(r, h)
	half := area / 2

	lo, hi := x0*BytesPerPixel, x1*BytesPerPixel
	acc := make([]uint64, hi-lo)

	top := sums[0:rowLen]
	bottom := sums[(h-1)*rowLen : h*rowLen]
	for i := lo; i < hi; i++ {
		acc[i-lo] = first*uint64(top[i]) + last*uint64(bottom[i])
	}
	for j := 1; j <= inner; j++ {
		row := sums[j*rowLen : (j+1)*rowLen]
		for i := lo; i < hi; i++ {
			acc[i-lo] += uint64(row[i])
		}
	}

	for y := 0; y < h; y++ {
		out := dst.data[y*dst.stride : y*dst.stride+rowLen]
		for i := lo; i < hi; i++ {
			out[i] = uint8((acc[i-lo] + half) / area)
		}

		add := sums[clampIndex(y+r+1, h)*rowLen:]
		sub := sums[clampIndex(y-r, h)*rowLen:]
		for i := lo; i < hi; i++ {
			acc[i-lo] += uint64(add[i])
			acc[i-lo] -= uint64(sub[i])
		}
	}
}

// sumBuffer wraps a slice for sync.Pool to avoid allocation warnings.
type sumBuffer struct {
	data []uint32
}

var sumBufferPool = sync.Pool{
	New: func() interface{} {
		return &sumBuffer{}
	},
}

// getSumBuffer returns a buffer of exactly n elements. Contents are
// unspecified; every element is written before it is read.
func getSumBuffer(n int) *sumBuffer {
	b := sumBufferPool.Get().(*sumBuffer)
	if cap(b.data) < n {
		b.data = make([]uint32, n)
	}
	b.data = b.data[:n]
	return b
}

// putSumBuffer returns b to the pool unless it is unreasonably large.
func putSumBuffer(b *sumBuffer) {
	if cap(b.data) <= 64*1024*1024 {
		sumBufferPool.Put(b)
	}
}
