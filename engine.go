package boxblur

import (
	"time"

	"github.com/gogpu/boxblur/internal/parallel"
)

// DefaultMinParallelPixels is the buffer area below which an Engine runs
// passes on the calling goroutine.
const DefaultMinParallelPixels = 64 * 1024

// Engine runs box passes, optionally spreading each pass over a worker pool.
//
// Rows of the horizontal half and columns of the vertical half of a pass are
// split into bands. The three passes stay strictly sequential, and the output
// is byte-identical to the sequential BoxConvolve and ApplyBoxBlur.
//
// An Engine holds no per-image state and is safe for concurrent use, as long
// as concurrent calls use distinct buffers.
type Engine struct {
	pool        *parallel.WorkerPool
	minParallel int
}

// sequential is the engine behind the package-level functions.
var sequential = &Engine{}

// NewEngine creates an engine. Without options it uses GOMAXPROCS workers.
func NewEngine(opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{minParallel: o.minParallelPixels}
	if o.workers != 1 {
		e.pool = parallel.NewWorkerPool(o.workers)
	}
	return e
}

// Workers returns the number of goroutines a pass may use.
func (e *Engine) Workers() int {
	if e.pool == nil {
		return 1
	}
	return e.pool.Workers()
}

// Close releases the worker pool. The engine keeps working afterwards, on the
// calling goroutine only.
func (e *Engine) Close() {
	if e.pool != nil {
		e.pool.Close()
	}
}

// forBands runs fn over [0, n) either inline or across the pool.
func (e *Engine) forBands(pixels, n int, fn func(lo, hi int)) {
	if e.pool == nil || !e.pool.IsRunning() || pixels < e.minParallel {
		fn(0, n)
		return
	}
	e.pool.ForBands(n, fn)
}

// BoxConvolve is the engine variant of the package-level BoxConvolve.
func (e *Engine) BoxConvolve(src, dst *PixelBuffer, k KernelSize) {
	checkPass(src, dst, k)
	e.boxPass(src, dst, k)
}

func (e *Engine) boxPass(src, dst *PixelBuffer, k KernelSize) {
	w, h := src.width, src.height
	r := k.Radius()

	sums := getSumBuffer(w * h * BytesPerPixel)
	defer putSumBuffer(sums)

	e.forBands(w*h, h, func(y0, y1 int) {
		horizontalSums(src, sums.data, r, y0, y1)
	})
	e.forBands(w*h, w, func(x0, x1 int) {
		verticalAverage(sums.data, dst, r, k.Area(), x0, x1)
	})
}

// ApplyBoxBlur is the engine variant of the package-level ApplyBoxBlur.
func (e *Engine) ApplyBoxBlur(input, scratch *PixelBuffer, k KernelSize) *PixelBuffer {
	checkPass(input, scratch, k)

	start := time.Now()
	e.boxPass(input, scratch, k)
	e.boxPass(scratch, input, k)
	e.boxPass(input, scratch, k)

	Logger().Debug("boxblur: three-pass box blur",
		"width", input.width,
		"height", input.height,
		"kernel", int(k),
		"workers", e.Workers(),
		"elapsed", time.Since(start))

	return scratch
}
