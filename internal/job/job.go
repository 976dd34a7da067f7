// Package job describes a single blur request and runs it against files.
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/boxblur"
	"github.com/gogpu/boxblur/internal/imageio"
)

// ErrInvalidJob is returned for jobs that cannot be processed as described.
var ErrInvalidJob = errors.New("job: invalid job")

// Job is one file to blur.
type Job struct {
	ID        string    `json:"id"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	Radius    float64   `json:"radius"`
	Scale     float64   `json:"scale"`
	CreatedAt time.Time `json:"created_at"`
}

// Result describes a finished job.
type Result struct {
	JobID      string        `json:"job_id"`
	Output     string        `json:"output"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	Kernel     int           `json:"kernel"`
	Duration   time.Duration `json:"duration"`
	FinishedAt time.Time     `json:"finished_at"`
}

// NewJob creates a job for input whose output lands in outputDir (or next
// to the input when outputDir is empty) with suffix added to the base name.
// A scale at or below zero is stored as 1.
func NewJob(input, outputDir, suffix string, radius, scale float64) Job {
	if !(scale > 0) {
		scale = 1
	}
	return Job{
		ID:        uuid.NewString(),
		Input:     input,
		Output:    imageio.OutputPath(input, outputDir, suffix),
		Radius:    radius,
		Scale:     scale,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate reports whether j can be processed.
func (j Job) Validate() error {
	switch {
	case j.Input == "":
		return fmt.Errorf("%w: empty input path", ErrInvalidJob)
	case j.Output == "":
		return fmt.Errorf("%w: empty output path", ErrInvalidJob)
	case filepath.Clean(j.Input) == filepath.Clean(j.Output):
		return fmt.Errorf("%w: output would overwrite input %q", ErrInvalidJob, j.Input)
	case j.Radius < 0:
		return fmt.Errorf("%w: negative radius %v", ErrInvalidJob, j.Radius)
	}
	return nil
}

// Kernel returns the box size the job blurs with.
func (j Job) Kernel() boxblur.KernelSize {
	scale := j.Scale
	if !(scale > 0) {
		scale = 1
	}
	return boxblur.ComputeKernelSize(j.Radius * scale)
}

// Processor runs jobs on a shared engine.
type Processor struct {
	engine *boxblur.Engine
	encode imageio.EncodeOptions
	logger *slog.Logger
}

// NewProcessor creates a Processor. A nil logger discards output.
func NewProcessor(engine *boxblur.Engine, encode imageio.EncodeOptions, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Processor{engine: engine, encode: encode, logger: logger}
}

// Process loads the job's input, blurs it and writes the output file.
func (p *Processor) Process(ctx context.Context, j Job) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := j.Validate(); err != nil {
		return Result{}, err
	}

	start := time.Now()

	img, format, err := imageio.Load(j.Input)
	if err != nil {
		return Result{}, fmt.Errorf("job %s: %w", j.ID, err)
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	out := p.engine.BlurScaled(img, j.Radius, j.Scale)

	if err := os.MkdirAll(filepath.Dir(j.Output), 0o750); err != nil {
		return Result{}, fmt.Errorf("job %s: create output dir: %w", j.ID, err)
	}
	if err := imageio.Save(j.Output, out, p.encode); err != nil {
		return Result{}, fmt.Errorf("job %s: %w", j.ID, err)
	}

	res := Result{
		JobID:      j.ID,
		Output:     j.Output,
		Width:      out.Rect.Dx(),
		Height:     out.Rect.Dy(),
		Kernel:     int(j.Kernel()),
		Duration:   time.Since(start),
		FinishedAt: time.Now().UTC(),
	}

	p.logger.Info("job finished",
		"id", j.ID,
		"input", j.Input,
		"output", j.Output,
		"format", format,
		"width", res.Width,
		"height", res.Height,
		"kernel", res.Kernel,
		"duration", res.Duration)

	return res, nil
}

// ProcessAll runs jobs with at most limit in flight (limit <= 0 means no
// limit). Results are in job order. The first error cancels jobs that have
// not started yet.
func (p *Processor) ProcessAll(ctx context.Context, jobs []Job, limit int) ([]Result, error) {
	results := make([]Result, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := range jobs {
		g.Go(func() error {
			res, err := p.Process(ctx, jobs[i])
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
