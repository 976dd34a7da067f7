// Command boxblur blurs images with a three-pass box filter, either directly,
// by watching a directory, or through a Redis job queue.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gogpu/boxblur"
	"github.com/gogpu/boxblur/internal/config"
	"github.com/gogpu/boxblur/internal/imageio"
	"github.com/gogpu/boxblur/internal/job"
	"github.com/gogpu/boxblur/internal/logging"
)

const usage = `usage: boxblur <command> [flags] [args]

commands:
  blur     blur image files
  watch    blur images as they appear in a directory
  enqueue  add image files to the Redis job queue
  worker   process jobs from the Redis job queue
  status   show the state of queued jobs
  version  print the version

Run "boxblur <command> -h" for command flags.
`

var commands = map[string]func(ctx context.Context, args []string) error{
	"blur":    runBlur,
	"watch":   runWatch,
	"enqueue": runEnqueue,
	"worker":  runWorker,
	"status":  runStatus,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	name := os.Args[1]
	switch name {
	case "version", "-version", "--version":
		fmt.Println("boxblur", boxblur.Version)
		return
	case "help", "-h", "-help", "--help":
		fmt.Print(usage)
		return
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "boxblur: unknown command %q\n\n%s", name, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cmd(ctx, os.Args[2:])
	stop()

	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "boxblur %s: %v\n", name, err)
		os.Exit(1)
	}
}

// blurFlags are the blur settings shared by every command that blurs.
type blurFlags struct {
	radius  *float64
	scale   *float64
	workers *int
	dir     *string
	suffix  *string
	quality *int
}

func addBlurFlags(fs *flag.FlagSet) blurFlags {
	return blurFlags{
		radius:  fs.Float64("radius", 0, "blur radius in pixels (default from config)"),
		scale:   fs.Float64("scale", 0, "display scale multiplied into the radius"),
		workers: fs.Int("workers", 0, "goroutines per blur pass, 0 for GOMAXPROCS"),
		dir:     fs.String("out", "", "output directory (default: next to the input)"),
		suffix:  fs.String("suffix", "", "suffix added to output file names"),
		quality: fs.Int("quality", 0, "JPEG output quality 1-100"),
	}
}

// apply copies explicitly set flags over cfg.
func (b blurFlags) apply(cfg *config.Config, set map[string]bool) {
	if set["radius"] {
		cfg.Blur.Radius = *b.radius
	}
	if set["scale"] {
		cfg.Blur.Scale = *b.scale
	}
	if set["workers"] {
		cfg.Blur.Workers = *b.workers
	}
	if set["out"] {
		cfg.Output.Dir = *b.dir
	}
	if set["suffix"] {
		cfg.Output.Suffix = *b.suffix
	}
	if set["quality"] {
		cfg.Output.JPEGQuality = *b.quality
	}
}

// setFlags returns the names of flags given on the command line.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// loadConfig loads the file at path, lets override adjust it, and validates
// the result.
func loadConfig(path string, override func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating flags: %w", err)
	}
	return cfg, nil
}

// setupLogging builds the command logger and installs it for the blur core.
func setupLogging(cfg *config.Config) (*slog.Logger, io.Closer) {
	logger, closer := logging.New(logging.Config{
		Level:          cfg.Logging.Level,
		Format:         cfg.Logging.Format,
		FilePath:       cfg.Logging.FilePath,
		FileMaxSizeMB:  cfg.Logging.FileMaxSizeMB,
		FileMaxFiles:   cfg.Logging.FileMaxFiles,
		FileMaxAgeDays: cfg.Logging.FileMaxAgeDays,
	})
	boxblur.SetLogger(logger)
	return logger, closer
}

func newEngine(cfg *config.Config) *boxblur.Engine {
	return boxblur.NewEngine(
		boxblur.WithWorkers(cfg.Blur.Workers),
		boxblur.WithMinParallelPixels(cfg.Blur.MinParallelPixels),
	)
}

func newProcessor(cfg *config.Config, engine *boxblur.Engine, logger *slog.Logger) *job.Processor {
	return job.NewProcessor(engine, imageio.EncodeOptions{JPEGQuality: cfg.Output.JPEGQuality}, logger)
}
