package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher debounces file-change notifications for one config file. Editors
// that replace the file via rename are handled by watching the directory.
type Watcher struct {
	logger   *zap.Logger
	path     string
	onChange func()
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	done    chan struct{}
	running bool
}

// NewWatcher creates a watcher for path. Start must be called to begin
// delivery.
func NewWatcher(logger *zap.Logger, path string, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		logger:   logger,
		path:     path,
		onChange: onChange,
		watcher:  fsw,
		debounce: time.Second,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching the file and its directory.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("watcher already running")
	}
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}
	w.running = true
	go w.loop()
	return nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watch error", zap.Error(err))
		case <-w.done:
			return
		}
	}
}

// schedule arms the debounce timer; rapid successive writes collapse into
// one reload.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.logger.Info("config file changed", zap.String("path", w.path))
		w.onChange()
	})
}

// Stop ends delivery and releases the underlying watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return nil
	}
	w.running = false
	close(w.done)
	if w.timer != nil {
		w.timer.Stop()
	}
	return w.watcher.Close()
}
