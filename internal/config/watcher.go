package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"sysconfigd/pkg/logging"
)

// DefaultReloadDebounce is the time to wait after the last detected write
// before reloading, so an editor's several writes to the same file (common
// with atomic-rename saves) trigger one reload instead of several.
const DefaultReloadDebounce = 500 * time.Millisecond

// Watcher watches a config file for changes and reloads it, calling OnReload
// with the freshly loaded Config. A reload failure (malformed YAML) is
// logged and the previous Config keeps serving; it is never passed to
// OnReload.
type Watcher struct {
	mu sync.Mutex

	path     string
	onReload func(Config)

	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
	running   bool

	debounceTimer *time.Timer
	debounceMu    sync.Mutex
}

// NewWatcher creates a Watcher for the config file at path. onReload is
// called on a background goroutine each time the file is rewritten and
// reparses successfully.
func NewWatcher(path string, onReload func(Config)) *Watcher {
	return &Watcher{path: path, onReload: onReload}
}

// Start begins watching. It watches the file's parent directory rather than
// the file itself, since editors frequently replace a file via rename
// rather than in-place write, which would otherwise orphan a direct watch.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(w.path)
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return err
	}

	w.fsWatcher = fsWatcher
	w.stopCh = make(chan struct{})
	w.running = true

	eventsCh := fsWatcher.Events
	errorsCh := fsWatcher.Errors
	go w.processEvents(eventsCh, errorsCh)

	logging.Info("Config", "watching %s for changes", w.path)
	return nil
}

func (w *Watcher) processEvents(eventsCh <-chan fsnotify.Event, errorsCh <-chan error) {
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.triggerReloadDebounced()

		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			logging.Error("Config", err, "fsnotify error")
		}
	}
}

func (w *Watcher) triggerReloadDebounced() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(DefaultReloadDebounce, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := LoadConfig(w.path)
	if err != nil {
		logging.Warn("Config", "reload of %s failed, keeping previous config: %v", w.path, err)
		return
	}
	if w.onReload != nil {
		w.onReload(cfg)
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false
	close(w.stopCh)

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMu.Unlock()

	err := w.fsWatcher.Close()
	w.fsWatcher = nil
	return err
}
