package boxblur

// Option configures an Engine during creation.
//
// Example:
//
//	// Sequential engine
//	e := boxblur.NewEngine(boxblur.WithWorkers(1))
//
//	// Parallel engine that kicks in for buffers of 256x256 and up
//	e := boxblur.NewEngine(boxblur.WithWorkers(8), boxblur.WithMinParallelPixels(256*256))
type Option func(*engineOptions)

// engineOptions holds optional configuration for Engine creation.
type engineOptions struct {
	workers           int
	minParallelPixels int
}

// defaultOptions returns the default engine options.
func defaultOptions() engineOptions {
	return engineOptions{
		workers:           0, // GOMAXPROCS
		minParallelPixels: DefaultMinParallelPixels,
	}
}

// WithWorkers sets the number of worker goroutines.
// 0 or a negative value means GOMAXPROCS; 1 disables the pool entirely.
func WithWorkers(n int) Option {
	return func(o *engineOptions) {
		o.workers = n
	}
}

// WithMinParallelPixels sets the buffer area below which passes run
// sequentially. Set it to 0 to parallelize every pass.
func WithMinParallelPixels(n int) Option {
	return func(o *engineOptions) {
		if n < 0 {
			n = 0
		}
		o.minParallelPixels = n
	}
}
