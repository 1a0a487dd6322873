package store

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// PrefsWatcher reloads a FilePrefs when another process rewrites its file.
type PrefsWatcher struct {
	watcher *fsnotify.Watcher
	prefs   *FilePrefs
	done    chan struct{}
	mu      sync.Mutex
	running bool
	logger  *slog.Logger
}

// NewPrefsWatcher creates a watcher for the preferences file.
func NewPrefsWatcher(prefs *FilePrefs, logger *slog.Logger) (*PrefsWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PrefsWatcher{
		watcher: watcher,
		prefs:   prefs,
		done:    make(chan struct{}),
		logger:  logger,
	}, nil
}

// Start begins watching the file for changes.
func (w *PrefsWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	// Watch the directory containing the file; the atomic rename replaces
	// the inode, so a watch on the file itself would be lost.
	dir := filepath.Dir(w.prefs.Path())
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	if err := w.watcher.Add(dir); err != nil {
		return err
	}

	w.running = true
	go w.watch()
	return nil
}

func (w *PrefsWatcher) watch() {
	filename := filepath.Base(w.prefs.Path())

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filename {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.logger.Debug("preferences changed, reloading", "file", event.Name)
				if err := w.prefs.Reload(); err != nil {
					w.logger.Warn("failed to reload preferences", "error", err)
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("preferences watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

// Stop stops the watcher.
func (w *PrefsWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return w.watcher.Close()
	}

	w.running = false
	close(w.done)
	return w.watcher.Close()
}
