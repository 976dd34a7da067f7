package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gogpu/boxblur/internal/config"
	"github.com/gogpu/boxblur/internal/job"
	"github.com/gogpu/boxblur/internal/queue"
	"github.com/gogpu/boxblur/internal/watch"
)

func runBlur(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("blur", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "YAML config file")
	output := fs.String("o", "", "output file (single input only)")
	parallel := fs.Int("jobs", 2, "files blurred concurrently")
	bf := addBlurFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	inputs := fs.Args()
	if len(inputs) == 0 {
		return errors.New("no input files")
	}
	if *output != "" && len(inputs) != 1 {
		return errors.New("-o needs exactly one input")
	}

	set := setFlags(fs)
	cfg, err := loadConfig(*cfgPath, func(c *config.Config) { bf.apply(c, set) })
	if err != nil {
		return err
	}

	logger, closer := setupLogging(cfg)
	defer closer.Close() //nolint:errcheck

	engine := newEngine(cfg)
	defer engine.Close()

	jobs := make([]job.Job, 0, len(inputs))
	for _, in := range inputs {
		j := job.NewJob(in, cfg.Output.Dir, cfg.Output.Suffix, cfg.Blur.Radius, cfg.Blur.Scale)
		if *output != "" {
			j.Output = *output
		}
		jobs = append(jobs, j)
	}

	results, err := newProcessor(cfg, engine, logger).ProcessAll(ctx, jobs, *parallel)
	if err != nil {
		return err
	}
	for _, res := range results {
		fmt.Printf("%s (%dx%d, kernel %d, %s)\n",
			res.Output, res.Width, res.Height, res.Kernel, res.Duration.Round(time.Millisecond))
	}
	return nil
}

func runWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "YAML config file")
	dir := fs.String("dir", "", "directory to watch")
	debounce := fs.Duration("debounce", 0, "quiet period before a file is blurred")
	bf := addBlurFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	set := setFlags(fs)
	cfg, err := loadConfig(*cfgPath, func(c *config.Config) {
		bf.apply(c, set)
		if set["dir"] {
			c.Watch.Dir = *dir
		}
		if set["debounce"] {
			c.Watch.Debounce = *debounce
		}
	})
	if err != nil {
		return err
	}
	if cfg.Watch.Dir == "" {
		return errors.New("no directory to watch: set -dir or watch.dir")
	}

	logger, closer := setupLogging(cfg)
	defer closer.Close() //nolint:errcheck

	engine := newEngine(cfg)
	defer engine.Close()
	proc := newProcessor(cfg, engine, logger)

	handler := func(ctx context.Context, path string) error {
		j := job.NewJob(path, cfg.Output.Dir, cfg.Output.Suffix, cfg.Blur.Radius, cfg.Blur.Scale)
		_, err := proc.Process(ctx, j)
		return err
	}

	svc := watch.NewService(cfg.Watch.Dir, cfg.Output.Suffix, handler, logger)
	svc.SetDebounce(cfg.Watch.Debounce)
	return svc.Start(ctx)
}

// redisFlags are the queue settings shared by the queue commands.
type redisFlags struct {
	addr   *string
	stream *string
	group  *string
}

func addRedisFlags(fs *flag.FlagSet) redisFlags {
	return redisFlags{
		addr:   fs.String("redis", "", "Redis address (default from config)"),
		stream: fs.String("stream", "", "job stream name"),
		group:  fs.String("group", "", "consumer group name"),
	}
}

func (r redisFlags) apply(cfg *config.Config, set map[string]bool) {
	if set["redis"] {
		cfg.Redis.Addr = *r.addr
	}
	if set["stream"] {
		cfg.Redis.Stream = *r.stream
	}
	if set["group"] {
		cfg.Redis.Group = *r.group
	}
}

func connect(ctx context.Context, cfg *config.Config) (*queue.Client, error) {
	client, err := queue.NewClient(ctx, queue.Options{
		Addr:   cfg.Redis.Addr,
		Stream: cfg.Redis.Stream,
		Group:  cfg.Redis.Group,
	})
	if err != nil {
		return nil, err
	}
	if err := client.EnsureGroup(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func runEnqueue(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("enqueue", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "YAML config file")
	rf := addRedisFlags(fs)
	bf := addBlurFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	inputs := fs.Args()
	if len(inputs) == 0 {
		return errors.New("no input files")
	}

	set := setFlags(fs)
	cfg, err := loadConfig(*cfgPath, func(c *config.Config) {
		bf.apply(c, set)
		rf.apply(c, set)
	})
	if err != nil {
		return err
	}

	client, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck

	outDir := cfg.Output.Dir
	if outDir != "" {
		if outDir, err = filepath.Abs(outDir); err != nil {
			return err
		}
	}

	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return err
		}
		j := job.NewJob(abs, outDir, cfg.Output.Suffix, cfg.Blur.Radius, cfg.Blur.Scale)
		if err := j.Validate(); err != nil {
			return err
		}
		msgID, err := client.Enqueue(ctx, j)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s %s\n", j.ID, msgID, j.Input)
	}
	return nil
}

func runWorker(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("worker", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "YAML config file")
	consumers := fs.Int("consumers", 2, "concurrent jobs")
	name := fs.String("name", "", "consumer name prefix (default: host name)")
	maxDeliveries := fs.Int64("max-deliveries", 5, "attempts before a job is dropped")
	rf := addRedisFlags(fs)
	bf := addBlurFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	set := setFlags(fs)
	cfg, err := loadConfig(*cfgPath, func(c *config.Config) {
		bf.apply(c, set)
		rf.apply(c, set)
	})
	if err != nil {
		return err
	}

	logger, closer := setupLogging(cfg)
	defer closer.Close() //nolint:errcheck

	client, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck

	engine := newEngine(cfg)
	defer engine.Close()

	if *name == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "boxblur"
		}
		*name = fmt.Sprintf("%s-%d", host, os.Getpid())
	}

	w := queue.NewWorker(client, newProcessor(cfg, engine, logger), queue.WorkerOptions{
		Name:          *name,
		Consumers:     *consumers,
		Block:         cfg.Redis.BlockTimeout,
		ClaimIdle:     cfg.Redis.ClaimIdle,
		MaxDeliveries: *maxDeliveries,
	}, logger)
	return w.Run(ctx)
}

func runStatus(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "YAML config file")
	rf := addRedisFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("no job IDs")
	}

	set := setFlags(fs)
	cfg, err := loadConfig(*cfgPath, func(c *config.Config) { rf.apply(c, set) })
	if err != nil {
		return err
	}

	client, err := queue.NewClient(ctx, queue.Options{
		Addr:   cfg.Redis.Addr,
		Stream: cfg.Redis.Stream,
		Group:  cfg.Redis.Group,
	})
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck

	enc := json.NewEncoder(os.Stdout)
	for _, id := range fs.Args() {
		st, err := client.Status(ctx, id)
		if err != nil {
			return err
		}
		if err := enc.Encode(struct {
			ID string `json:"id"`
			queue.Status
		}{id, st}); err != nil {
			return err
		}
	}
	return nil
}
