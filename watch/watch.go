// Package watch notifies about changed stylesheets, coalescing bursts of file
// system events into single notification.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 100 * time.Millisecond

// Options control what is watched.
type Options struct {
	// Recursive adds every subdirectory, including ones created later.
	Recursive bool
	// Debounce is quiet period after last event before notification.
	Debounce time.Duration
	// Filter selects files of interest, IsStylesheet by default.
	Filter func(name string) bool
}

// IsStylesheet reports whether name has .scss or .css extension.
func IsStylesheet(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".scss", ".css":
		return true
	}
	return false
}

// Watcher wraps fsnotify watcher.
type Watcher struct {
	log  *zap.Logger
	fsw  *fsnotify.Watcher
	opts Options

	mu sync.Mutex
	// files limits events in directories added for single file paths
	files map[string]bool
	dirs  map[string]bool
}

// New starts watching paths. Directory paths are watched entirely, for file
// paths only the file itself is reported.
func New(paths []string, opts Options, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Filter == nil {
		opts.Filter = IsStylesheet
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("unable to create file system watcher: %w", err)
	}
	w := &Watcher{
		log:   log.Named("watch"),
		fsw:   fsw,
		opts:  opts,
		files: make(map[string]bool),
		dirs:  make(map[string]bool),
	}
	for _, p := range paths {
		if err := w.add(p); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Add starts watching one more path, it is safe to call while Run is active.
func (w *Watcher) Add(p string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.add(p)
}

func (w *Watcher) add(p string) error {
	p, err := filepath.Abs(p)
	if err != nil {
		return fmt.Errorf("unable to resolve %s: %w", p, err)
	}
	fi, err := os.Stat(p)
	if err != nil {
		return fmt.Errorf("unable to watch %s: %w", p, err)
	}
	if !fi.IsDir() {
		w.files[p] = true
		return w.addDir(filepath.Dir(p), false)
	}
	if !w.opts.Recursive {
		return w.addDir(p, true)
	}
	return filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.addDir(path, true)
		}
		return nil
	})
}

func (w *Watcher) addDir(dir string, whole bool) error {
	if whole {
		w.dirs[dir] = true
	}
	if slices.Contains(w.fsw.WatchList(), dir) {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("unable to watch %s: %w", dir, err)
	}
	w.log.Debug("Watching directory", zap.String("dir", dir))
	return nil
}

// Paths returns directories being watched.
func (w *Watcher) Paths() []string {
	list := w.fsw.WatchList()
	slices.Sort(list)
	return list
}

func (w *Watcher) interesting(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.files[name] {
		return true
	}
	return w.dirs[filepath.Dir(name)] && w.opts.Filter(name)
}

func (w *Watcher) watchesDir(dir string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dirs[dir]
}

// Run delivers sorted list of changed files to onChange until ctx is done or
// watcher is closed. Watcher errors are logged.
func (w *Watcher) Run(ctx context.Context, onChange func(changed []string)) error {
	var (
		pending = make(map[string]bool)
		timer   = time.NewTimer(time.Hour)
		armed   bool
	)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			name := filepath.Clean(ev.Name)
			if ev.Has(fsnotify.Create) && w.opts.Recursive && w.watchesDir(filepath.Dir(name)) {
				if fi, err := os.Stat(name); err == nil && fi.IsDir() {
					if err := w.Add(name); err != nil {
						w.log.Warn("Unable to watch new directory", zap.String("dir", name), zap.Error(err))
					}
					continue
				}
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			if !w.interesting(name) {
				continue
			}
			w.log.Debug("Change detected", zap.String("file", name), zap.Stringer("op", ev.Op))
			pending[name] = true
			timer.Reset(w.opts.Debounce)
			armed = true

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("Watcher error", zap.Error(err))

		case <-timer.C:
			if !armed {
				continue
			}
			armed = false
			changed := make([]string, 0, len(pending))
			for name := range pending {
				changed = append(changed, name)
			}
			clear(pending)
			slices.Sort(changed)
			onChange(changed)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	if err := w.fsw.Close(); err != nil && !errors.Is(err, fsnotify.ErrClosed) {
		return err
	}
	return nil
}
