// Package config loads settings for the boxblur command-line tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Blur    BlurConfig    `yaml:"blur"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
	Redis   RedisConfig   `yaml:"redis"`
	Watch   WatchConfig   `yaml:"watch"`
}

// BlurConfig holds blur parameters.
type BlurConfig struct {
	Radius            float64 `yaml:"radius"`
	Scale             float64 `yaml:"scale"`
	Workers           int     `yaml:"workers"`
	MinParallelPixels int     `yaml:"min_parallel_pixels"`
}

// OutputConfig controls where and how results are written.
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	Suffix      string `yaml:"suffix"`
	JPEGQuality int    `yaml:"jpeg_quality"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level          string `yaml:"level"`
	Format         string `yaml:"format"`
	FilePath       string `yaml:"file_path"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxFiles   int    `yaml:"file_max_files"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

// RedisConfig holds job queue settings.
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Stream       string        `yaml:"stream"`
	Group        string        `yaml:"group"`
	BlockTimeout time.Duration `yaml:"block_timeout"`
	ClaimIdle    time.Duration `yaml:"claim_idle"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Dir      string        `yaml:"dir"`
	Debounce time.Duration `yaml:"debounce"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Blur: BlurConfig{
			Radius:            8,
			Scale:             1,
			Workers:           0,
			MinParallelPixels: 64 * 1024,
		},
		Output: OutputConfig{
			Dir:         "",
			Suffix:      "_blurred",
			JPEGQuality: 90,
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			FileMaxSizeMB:  100,
			FileMaxFiles:   3,
			FileMaxAgeDays: 30,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			Stream:       "boxblur:jobs",
			Group:        "blur-workers",
			BlockTimeout: 5 * time.Second,
			ClaimIdle:    30 * time.Second,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() error {
	var errs []error

	floatVar := func(name string, dst *float64) {
		if v := os.Getenv(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = f
		}
	}
	intVar := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	durationVar := func(name string, dst *time.Duration) {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = d
		}
	}
	stringVar := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	floatVar("BOXBLUR_RADIUS", &c.Blur.Radius)
	floatVar("BOXBLUR_SCALE", &c.Blur.Scale)
	intVar("BOXBLUR_WORKERS", &c.Blur.Workers)
	stringVar("BOXBLUR_OUTPUT_DIR", &c.Output.Dir)
	stringVar("BOXBLUR_OUTPUT_SUFFIX", &c.Output.Suffix)
	intVar("BOXBLUR_JPEG_QUALITY", &c.Output.JPEGQuality)
	stringVar("BOXBLUR_LOG_LEVEL", &c.Logging.Level)
	stringVar("BOXBLUR_LOG_FORMAT", &c.Logging.Format)
	stringVar("BOXBLUR_LOG_FILE", &c.Logging.FilePath)
	stringVar("BOXBLUR_REDIS_ADDR", &c.Redis.Addr)
	stringVar("BOXBLUR_REDIS_STREAM", &c.Redis.Stream)
	stringVar("BOXBLUR_WATCH_DIR", &c.Watch.Dir)
	durationVar("BOXBLUR_WATCH_DEBOUNCE", &c.Watch.Debounce)

	return errors.Join(errs...)
}

// Validate checks value ranges and reports every problem it finds.
func (c *Config) Validate() error {
	var errs []error

	if c.Blur.Radius < 0 {
		errs = append(errs, fmt.Errorf("blur.radius must be >= 0, got %v", c.Blur.Radius))
	}
	if c.Blur.Scale <= 0 {
		errs = append(errs, fmt.Errorf("blur.scale must be > 0, got %v", c.Blur.Scale))
	}
	if c.Blur.Workers < 0 {
		errs = append(errs, fmt.Errorf("blur.workers must be >= 0, got %d", c.Blur.Workers))
	}
	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("output.jpeg_quality must be in [1, 100], got %d", c.Output.JPEGQuality))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format))
	}
	if c.Redis.BlockTimeout <= 0 {
		errs = append(errs, errors.New("redis.block_timeout must be positive"))
	}
	if c.Redis.ClaimIdle <= 0 {
		errs = append(errs, errors.New("redis.claim_idle must be positive"))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, errors.New("watch.debounce must not be negative"))
	}

	return errors.Join(errs...)
}
