package boxblur

import (
	"math/rand"
	"runtime"
	"sync"
	"testing"
)

func TestNewEngineWorkers(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want int
	}{
		{"default", nil, runtime.GOMAXPROCS(0)},
		{"sequential", []Option{WithWorkers(1)}, 1},
		{"explicit", []Option{WithWorkers(3)}, 3},
		{"negative", []Option{WithWorkers(-2)}, runtime.GOMAXPROCS(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(tt.opts...)
			defer e.Close()
			if got := e.Workers(); got != tt.want {
				t.Errorf("Workers() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEngineMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(10))

	e := NewEngine(WithWorkers(4), WithMinParallelPixels(0))
	defer e.Close()

	sizes := []struct{ w, h, padding int }{
		{1, 1, 0},
		{2, 9, 0},
		{9, 2, 4},
		{64, 48, 0},
		{101, 37, 16},
	}

	for _, s := range sizes {
		for _, k := range []KernelSize{1, 3, 7, 15} {
			src := newRandomBuffer(rng, s.w, s.h, s.w*4+s.padding)

			want := ApplyBoxBlur(src.Clone(), NewPixelBuffer(s.w, s.h), k)
			got := e.ApplyBoxBlur(src.Clone(), NewPixelBuffer(s.w, s.h), k)

			assertSamePixels(t, got, want)
		}
	}
}

func TestEngineSinglePassMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	src := newRandomBuffer(rng, 50, 40, 50*4)

	e := NewEngine(WithWorkers(3), WithMinParallelPixels(0))
	defer e.Close()

	want := NewPixelBuffer(50, 40)
	BoxConvolve(src, want, 9)

	got := NewPixelBuffer(50, 40)
	e.BoxConvolve(src, got, 9)

	assertSamePixels(t, got, want)
}

func TestEngineAfterClose(t *testing.T) {
	e := NewEngine(WithWorkers(2), WithMinParallelPixels(0))
	e.Close()
	e.Close() // idempotent

	src := newImpulse(6, 6, 3, 3, 255)
	want := ApplyBoxBlur(src.Clone(), NewPixelBuffer(6, 6), 3)
	got := e.ApplyBoxBlur(src.Clone(), NewPixelBuffer(6, 6), 3)

	assertSamePixels(t, got, want)
}

func TestEngineConcurrentCalls(t *testing.T) {
	e := NewEngine(WithWorkers(4), WithMinParallelPixels(0))
	defer e.Close()

	src := newImpulse(32, 32, 16, 16, 255)
	want := ApplyBoxBlur(src.Clone(), NewPixelBuffer(32, 32), 5)

	var wg sync.WaitGroup
	results := make([]*PixelBuffer, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.ApplyBoxBlur(src.Clone(), NewPixelBuffer(32, 32), 5)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assertSamePixels(t, got, want)
	}
}

func TestEngineContractViolations(t *testing.T) {
	e := NewEngine(WithWorkers(2))
	defer e.Close()

	mustPanic(t, func() { e.ApplyBoxBlur(NewPixelBuffer(2, 2), NewPixelBuffer(3, 2), 3) })
	mustPanic(t, func() { e.BoxConvolve(NewPixelBuffer(2, 2), NewPixelBuffer(2, 2), 2) })
}
