package boxblur

import "math"

// KernelSize is the side length, in pixels, of the square box-averaging window.
// Valid sizes are odd and at least 1, so every window has a center pixel.
// Use ComputeKernelSize to derive one from a blur radius.
type KernelSize int

// MaxKernelSize bounds the window so per-channel sums of 255*k*k fit in a
// uint64 and horizontal sums of 255*k fit in a uint32.
const MaxKernelSize KernelSize = 1<<20 + 1

// boxScale converts a Gaussian radius to the width of an equivalent box for a
// three-pass approximation: 3*sqrt(2*pi)/4.
var boxScale = 3 * math.Sqrt(2*math.Pi) / 4

// ComputeKernelSize converts a blur radius into an odd box-kernel size.
//
// The size is floor(radius*3*sqrt(2*pi)/4 + 0.5), bumped to the next odd
// number when even. Radii at or below zero (and NaN) yield the identity
// kernel of size 1. Sizes are capped at MaxKernelSize.
func ComputeKernelSize(radius float64) KernelSize {
	if !(radius > 0) {
		return 1
	}

	size := math.Floor(radius*boxScale + 0.5)
	if size >= float64(MaxKernelSize) {
		return MaxKernelSize
	}

	k := KernelSize(size)
	if k%2 == 0 {
		k++
	}
	if k < 1 {
		k = 1
	}
	return k
}

// Valid reports whether k is odd and within [1, MaxKernelSize].
func (k KernelSize) Valid() bool {
	return k >= 1 && k <= MaxKernelSize && k%2 == 1
}

// Radius returns the number of pixels the window extends on each side of its center.
func (k KernelSize) Radius() int {
	return int(k) / 2
}

// Area returns the number of samples in one k×k window.
func (k KernelSize) Area() uint64 {
	return uint64(k) * uint64(k)
}

// Sigma returns the standard deviation of the Gaussian approximated by three
// successive box passes of size k: sqrt(3*(k*k-1)/12).
func Sigma(k KernelSize) float64 {
	n := float64(k)
	return math.Sqrt(3 * (n*n - 1) / 12)
}
