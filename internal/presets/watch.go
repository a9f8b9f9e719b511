package presets

import (
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/amdu/internal/shared"
	"github.com/fsnotify/fsnotify"
)

// Watcher reports changes to loaded preset files.
//
// Parent directories are watched rather than the files themselves so that editors which replace a
// file on save are still noticed.
type Watcher struct {
	fs      *fsnotify.Watcher
	logger  *log.Logger
	changes chan string
	done    chan struct{}

	mu    sync.Mutex
	files map[string]struct{}
	dirs  map[string]int
}

// NewWatcher starts a Watcher with nothing tracked.
func NewWatcher(logger *log.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	w := &Watcher{
		fs:      fs,
		logger:  shared.WithLogger(logger, "component", "preset-watcher"),
		changes: make(chan string, 16),
		done:    make(chan struct{}),
		files:   make(map[string]struct{}),
		dirs:    make(map[string]int),
	}
	go w.loop()
	return w, nil
}

// Add starts tracking path.
func (w *Watcher) Add(path string) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[path]; ok {
		return nil
	}

	dir := filepath.Dir(path)
	if w.dirs[dir] == 0 {
		if err := w.fs.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.files[path] = struct{}{}
	return nil
}

// Remove stops tracking path.
func (w *Watcher) Remove(path string) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[path]; !ok {
		return nil
	}
	delete(w.files, path)

	dir := filepath.Dir(path)
	w.dirs[dir]--
	if w.dirs[dir] == 0 {
		delete(w.dirs, dir)
		return w.fs.Remove(dir)
	}
	return nil
}

// Changes delivers the absolute path of each tracked file that was written, created, renamed or removed.
// It is closed by Close.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

// Close stops watching and closes Changes.
func (w *Watcher) Close() error {
	err := w.fs.Close()
	<-w.done
	return err
}

func (w *Watcher) tracked(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.files[filepath.Clean(path)]
	return ok
}

func (w *Watcher) loop() {
	defer close(w.done)
	defer close(w.changes)

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !w.tracked(ev.Name) {
				continue
			}
			w.logger.Debug("preset changed", "path", ev.Name, "op", ev.Op.String())
			select {
			case w.changes <- filepath.Clean(ev.Name):
			default:
				w.logger.Warn("dropping preset change event", "path", ev.Name)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("preset watcher error", "error", err)
		}
	}
}
