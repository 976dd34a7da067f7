package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/boxblur/internal/job"
)

// Source is the part of Client a Worker consumes from.
type Source interface {
	Read(ctx context.Context, consumer string, block time.Duration) (string, *job.Job, error)
	Ack(ctx context.Context, id string) error
	ClaimStale(ctx context.Context, consumer string, minIdle time.Duration, count int) ([]Message, error)
	MarkDone(ctx context.Context, jobID string, res job.Result) error
	MarkFailed(ctx context.Context, jobID string, cause error) error
}

// Processor runs one job.
type Processor interface {
	Process(ctx context.Context, j job.Job) (job.Result, error)
}

// WorkerOptions configures a Worker. Zero fields take defaults.
type WorkerOptions struct {
	// Name prefixes consumer names within the group.
	Name string
	// Consumers is the number of concurrent read loops.
	Consumers int
	// Block is how long a read waits for a new message.
	Block time.Duration
	// ClaimIdle is how long a message stays pending before it is reclaimed.
	ClaimIdle time.Duration
	// ClaimInterval is how often stale messages are looked for.
	ClaimInterval time.Duration
	// ClaimCount caps messages reclaimed per interval.
	ClaimCount int
	// MaxDeliveries drops a message once it has been delivered this often.
	MaxDeliveries int64
	// RetryDelay is the pause after a failed read.
	RetryDelay time.Duration
}

func (o WorkerOptions) withDefaults() WorkerOptions {
	if o.Name == "" {
		o.Name = "boxblur"
	}
	if o.Consumers <= 0 {
		o.Consumers = 1
	}
	if o.Block <= 0 {
		o.Block = 5 * time.Second
	}
	if o.ClaimIdle <= 0 {
		o.ClaimIdle = 30 * time.Second
	}
	if o.ClaimInterval <= 0 {
		o.ClaimInterval = o.ClaimIdle
	}
	if o.ClaimCount <= 0 {
		o.ClaimCount = 50
	}
	if o.MaxDeliveries <= 0 {
		o.MaxDeliveries = 5
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	return o
}

// Worker consumes jobs from a Source and runs them.
type Worker struct {
	src    Source
	proc   Processor
	opts   WorkerOptions
	logger *slog.Logger

	processed atomic.Int64
	failed    atomic.Int64
}

// NewWorker creates a Worker. A nil logger discards output.
func NewWorker(src Source, proc Processor, opts WorkerOptions, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Worker{src: src, proc: proc, opts: opts.withDefaults(), logger: logger}
}

// Processed returns how many jobs finished successfully.
func (w *Worker) Processed() int64 { return w.processed.Load() }

// Failed returns how many job attempts failed.
func (w *Worker) Failed() int64 { return w.failed.Load() }

// Run consumes until ctx is cancelled. It returns nil on cancellation.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < w.opts.Consumers; i++ {
		consumer := fmt.Sprintf("%s-%d", w.opts.Name, i)
		g.Go(func() error { return w.consume(ctx, consumer) })
	}
	g.Go(func() error { return w.reclaim(ctx, w.opts.Name+"-reclaim") })

	w.logger.Info("worker started", "name", w.opts.Name, "consumers", w.opts.Consumers)
	err := g.Wait()
	w.logger.Info("worker stopped",
		"name", w.opts.Name,
		"processed", w.Processed(),
		"failed", w.Failed())

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Worker) consume(ctx context.Context, consumer string) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		id, j, err := w.src.Read(ctx, consumer, w.opts.Block)
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, ErrBadMessage):
			w.logger.Warn("dropping malformed message", "consumer", consumer, "id", id, "error", err)
			w.ack(ctx, id)
			continue
		case err != nil:
			w.logger.Warn("read failed", "consumer", consumer, "error", err)
			if !sleep(ctx, w.opts.RetryDelay) {
				return nil
			}
			continue
		case j == nil:
			continue
		}

		w.handle(ctx, consumer, id, *j)
	}
}

func (w *Worker) reclaim(ctx context.Context, consumer string) error {
	ticker := time.NewTicker(w.opts.ClaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		msgs, err := w.src.ClaimStale(ctx, consumer, w.opts.ClaimIdle, w.opts.ClaimCount)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Warn("claiming stale messages failed", "error", err)
			continue
		}
		if len(msgs) > 0 {
			w.logger.Info("claimed stale messages", "count", len(msgs))
		}

		for _, m := range msgs {
			if ctx.Err() != nil {
				return nil
			}
			switch {
			case m.Job == nil:
				w.logger.Warn("dropping malformed message", "id", m.ID)
				w.ack(ctx, m.ID)
			case m.Deliveries > w.opts.MaxDeliveries:
				w.logger.Error("giving up on job",
					"id", m.Job.ID,
					"deliveries", m.Deliveries)
				w.ack(ctx, m.ID)
			default:
				w.handle(ctx, consumer, m.ID, *m.Job)
			}
		}
	}
}

// handle processes one job. Failures leave the message pending so it can be
// reclaimed later.
func (w *Worker) handle(ctx context.Context, consumer, msgID string, j job.Job) {
	res, err := w.proc.Process(ctx, j)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.failed.Add(1)
		w.logger.Warn("job failed",
			"consumer", consumer,
			"id", j.ID,
			"input", j.Input,
			"error", err)
		if merr := w.src.MarkFailed(ctx, j.ID, err); merr != nil {
			w.logger.Warn("recording failure", "id", j.ID, "error", merr)
		}
		return
	}

	if err := w.src.MarkDone(ctx, j.ID, res); err != nil {
		w.logger.Warn("recording result", "id", j.ID, "error", err)
	}
	w.ack(ctx, msgID)
	w.processed.Add(1)
}

func (w *Worker) ack(ctx context.Context, id string) {
	if err := w.src.Ack(ctx, id); err != nil {
		w.logger.Warn("ack failed", "id", id, "error", err)
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
