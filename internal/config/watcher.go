package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the configuration file and invokes a reload callback
// when it changes. Only runtime-tunable settings (logging levels) are
// reloaded; device and socket configuration is fixed at startup by
// design.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(path string)
	logger   *slog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
}

// NewWatcher creates a watcher for path. onChange is called, debounced,
// after each change.
func NewWatcher(path string, onChange func(path string), logger *slog.Logger) *Watcher {
	return &Watcher{
		path:     path,
		debounce: 1500 * time.Millisecond,
		onChange: onChange,
		logger:   logger,
	}
}

// Start begins watching. Watching the parent directory rather than the
// file itself survives the rename-and-replace pattern editors and
// provisioning tools use.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())

	w.mu.Lock()
	w.watcher = fw
	w.cancel = cancel
	w.mu.Unlock()

	go w.run(ctx, fw)
	w.logger.Debug("Watching config file", "path", w.path)
	return nil
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	base := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				w.logger.Info("Config file changed, reloading", "path", w.path)
				w.onChange(w.path)
			})
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Config watcher error", "error", err)
		}
	}
}

// Stop stops watching.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
	}
	if w.watcher != nil {
		w.watcher.Close()
	}
}
