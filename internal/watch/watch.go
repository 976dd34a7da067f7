// Package watch blurs images as they appear in a directory.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/boxblur/internal/imageio"
)

// Handler processes one settled image file.
type Handler func(ctx context.Context, path string) error

// Service watches a directory and hands new or rewritten images to a Handler
// once writes to them have settled.
type Service struct {
	dir      string
	suffix   string
	handler  Handler
	logger   *slog.Logger
	debounce time.Duration

	mu       sync.Mutex
	pending  map[string]time.Time // path -> last event
	inflight map[string]bool
	wg       sync.WaitGroup
}

// NewService creates a watcher for dir. Files whose base name already ends
// in suffix are outputs and are ignored. A nil logger discards output.
func NewService(dir, suffix string, handler Handler, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		dir:      dir,
		suffix:   suffix,
		handler:  handler,
		logger:   logger.With("component", "fs-watcher"),
		debounce: 500 * time.Millisecond,
		pending:  make(map[string]time.Time),
		inflight: make(map[string]bool),
	}
}

// SetDebounce overrides the quiet period a file needs before it is handled.
func (s *Service) SetDebounce(d time.Duration) {
	if d > 0 {
		s.debounce = d
	}
}

// Start blocks until ctx is cancelled and in-flight handlers have returned.
func (s *Service) Start(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	defer w.Close() //nolint:errcheck

	if err := w.Add(s.dir); err != nil {
		return fmt.Errorf("watch: add %s: %w", s.dir, err)
	}
	s.logger.Info("watching directory", "dir", s.dir, "debounce", s.debounce)

	tick := s.debounce / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	defer s.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("watcher stopping", "dir", s.dir)
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			s.handleEvent(ev)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("fsnotify error", "error", err)

		case now := <-ticker.C:
			s.flush(ctx, now)
		}
	}
}

func (s *Service) handleEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	if !s.Wants(ev.Name) {
		return
	}

	s.mu.Lock()
	s.pending[ev.Name] = time.Now()
	s.mu.Unlock()
}

// Wants reports whether path is an input the service would handle.
func (s *Service) Wants(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if !imageio.IsImagePath(base) {
		return false
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if s.suffix != "" && strings.HasSuffix(stem, s.suffix) {
		return false
	}
	return true
}

// flush starts handlers for paths that have been quiet for the debounce
// period. A path already being handled waits for the next tick.
func (s *Service) flush(ctx context.Context, now time.Time) {
	s.mu.Lock()
	var ready []string
	for path, last := range s.pending {
		if now.Sub(last) < s.debounce || s.inflight[path] {
			continue
		}
		delete(s.pending, path)
		s.inflight[path] = true
		ready = append(ready, path)
	}
	s.mu.Unlock()

	for _, path := range ready {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				s.mu.Lock()
				delete(s.inflight, path)
				s.mu.Unlock()
			}()
			s.run(ctx, path)
		}()
	}
}

func (s *Service) run(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}

	start := time.Now()
	if err := s.handler(ctx, path); err != nil {
		s.logger.Error("handling file failed", "path", path, "error", err)
		return
	}
	s.logger.Info("handled file", "path", path, "duration", time.Since(start))
}
