// Package watch re-renders a project whenever its Specification file changes.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/forge/errors"
	"github.com/teranos/forge/logger"
)

const (
	// DefaultDebounce collapses the burst of events a single editor save produces
	DefaultDebounce = 300 * time.Millisecond

	// DefaultMaxRendersPerMinute caps re-renders when the file changes continuously
	DefaultMaxRendersPerMinute = 30
)

// RenderFunc performs one render pass. Errors are logged and watching continues.
type RenderFunc func(ctx context.Context) error

// Watcher serializes re-renders of one Specification file.
type Watcher struct {
	specPath string
	render   RenderFunc
	debounce time.Duration
	limiter  *rate.Limiter
	initial  bool
	logger   *zap.SugaredLogger

	mu            sync.Mutex
	debounceTimer *time.Timer
	trigger       chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period after the last change before rendering.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithMaxRendersPerMinute caps re-renders. Zero means unlimited.
func WithMaxRendersPerMinute(n int) Option {
	return func(w *Watcher) { w.limiter = newLimiter(n) }
}

// WithInitialRender renders once before waiting for changes.
func WithInitialRender(enabled bool) Option {
	return func(w *Watcher) { w.initial = enabled }
}

// WithLogger sets the watcher logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New creates a Watcher for specPath that calls render on every settled change.
func New(specPath string, render RenderFunc, opts ...Option) *Watcher {
	w := &Watcher{
		specPath: specPath,
		render:   render,
		debounce: DefaultDebounce,
		limiter:  newLimiter(DefaultMaxRendersPerMinute),
		initial:  true,
		logger:   logger.ComponentLogger("watch"),
		trigger:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// Run watches until ctx is cancelled. It returns nil on cancellation and an
// error only when the watch itself cannot be established or breaks.
func (w *Watcher) Run(ctx context.Context) error {
	abs, err := filepath.Abs(w.specPath)
	if err != nil {
		return errors.Wrapf(err, "failed to resolve %s", w.specPath)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create fsnotify watcher")
	}
	defer fsw.Close()

	// editors often save by rename, which drops a watch on the file itself
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		return errors.Wrapf(err, "failed to watch %s", filepath.Dir(abs))
	}
	log := logger.ChildLogger(w.logger, logger.FieldFile, abs)
	log.Infow("Watching specification")

	if w.initial {
		w.renderOnce(ctx, log)
	}

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			log.Infow("Watcher stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("fsnotify event channel closed")
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.Debugw("Specification changed", "op", event.Op.String())
			w.scheduleRender()

		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("fsnotify error channel closed")
			}
			log.Warnw("Watcher error", logger.FieldError, err)

		case <-w.trigger:
			if err := w.limiter.Wait(ctx); err != nil {
				// only cancellation gets here
				continue
			}
			w.renderOnce(ctx, log)
		}
	}
}

// scheduleRender restarts the debounce timer; when it fires a render is queued.
// Pending renders coalesce into one.
func (w *Watcher) scheduleRender() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, func() {
		select {
		case w.trigger <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
}

func (w *Watcher) renderOnce(ctx context.Context, log *zap.SugaredLogger) {
	start := time.Now()
	if err := w.render(ctx); err != nil {
		log.Errorw("Re-render failed", logger.FieldError, err)
		return
	}
	log.Infow("Re-rendered", logger.FieldDurationMS, time.Since(start).Milliseconds())
}
