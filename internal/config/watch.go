//go:build !tinygo

package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const DefaultDebounce = 300 * time.Millisecond

// Watcher reloads a config file after it changes and hands the fresh Config
// to its handler. Bursts of events (editors write, rename, chmod) are
// collapsed by a debounce timer. The parent directory is watched so that
// atomic replace-by-rename is seen.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(Config)
	onError  func(error)
	log      *zap.SugaredLogger
}

type WatcherOption func(*Watcher)

func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithErrorHandler sets a callback for reload failures. They are logged
// either way.
func WithErrorHandler(fn func(error)) WatcherOption {
	return func(w *Watcher) { w.onError = fn }
}

func NewWatcher(path string, log *zap.SugaredLogger, onChange func(Config), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
		onChange: onChange,
		log:      log,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Start begins watching. The watch is in place when Start returns; events
// are handled on a goroutine until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return err
	}
	w.log.Infow("config watcher started", "path", w.path, "debounce", w.debounce)
	go w.loop(ctx, fw)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	defer fw.Close()
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.log.Debug("config watcher stopped")
			return

		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			w.log.Debugw("config change", "op", ev.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.log.Warnw("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Warnw("config reload failed", "path", w.path, "error", err)
		if w.onError != nil {
			w.onError(err)
		}
		return
	}
	w.log.Infow("config reloaded", "durations", cfg.Timing.Durations)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
