// Package watch re-runs arith source files when they change on disk.
//
// Parent directories are watched rather than the files themselves, because
// many editors save by writing a temporary file and renaming it over the
// original, which drops a direct file watch.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/orizon-lang/arith/internal/cli"
)

// DefaultDebounce coalesces the burst of events a single save produces.
const DefaultDebounce = 50 * time.Millisecond

// Handler receives the new content of a changed file.
type Handler func(ctx context.Context, path, source string)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long a file must stay quiet before the handler runs.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger routes watcher logging to logger.
func WithLogger(logger *cli.Logger) Option {
	return func(w *Watcher) { w.logger = logger }
}

// Watcher watches a fixed set of files.
type Watcher struct {
	fsw      *fsnotify.Watcher
	files    map[string]struct{} // cleaned absolute paths
	debounce time.Duration
	logger   *cli.Logger
}

// New starts watching paths. Every path must name an existing file.
func New(paths []string, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		files:    make(map[string]struct{}, len(paths)),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = cli.NewLogger(false, false)
	}

	dirs := make(map[string]struct{})
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		if info, err := os.Stat(abs); err != nil {
			fsw.Close()
			return nil, err
		} else if info.IsDir() {
			fsw.Close()
			return nil, fmt.Errorf("%s is a directory", path)
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}

	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// Files returns the watched paths.
func (w *Watcher) Files() []string {
	files := make([]string, 0, len(w.files))
	for f := range w.files {
		files = append(files, f)
	}
	return files
}

// Run delivers changes to handler until ctx is done or the underlying
// watcher fails. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context, handler Handler) error {
	d := newDebouncer(w.debounce)
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			path := filepath.Clean(ev.Name)
			if _, watched := w.files[path]; !watched {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("watch: %s %s", ev.Op, path)
			d.touch(path)

		case f := <-d.ready:
			if !d.accept(f) {
				continue
			}
			data, err := os.ReadFile(f.path)
			if err != nil {
				// the file may be mid-rename; the next event retries
				w.logger.Warn("watch: %v", err)
				continue
			}
			handler(ctx, f.path, string(data))

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		}
	}
}

// fired is a debounce timer expiring for one generation of a path.
type fired struct {
	path string
	gen  uint64
}

// debouncer holds one timer per path. Every touch starts a new generation;
// a timer from an older generation that already fired is dropped by accept,
// so one quiet period yields exactly one delivery.
type debouncer struct {
	delay time.Duration
	ready chan fired
	done  chan struct{}

	gen     uint64
	pending map[string]fired
	timers  map[string]*time.Timer
	wg      sync.WaitGroup // timer callbacks not yet returned
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		ready:   make(chan fired),
		done:    make(chan struct{}),
		pending: make(map[string]fired),
		timers:  make(map[string]*time.Timer),
	}
}

// touch (re)starts the quiet period of path.
func (d *debouncer) touch(path string) {
	if t, ok := d.timers[path]; ok && t.Stop() {
		d.wg.Done()
	}
	d.gen++
	f := fired{path: path, gen: d.gen}
	d.pending[path] = f
	d.wg.Add(1)
	d.timers[path] = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		select {
		case d.ready <- f:
		case <-d.done:
		}
	})
}

// accept reports whether f is the current generation of its path and, if
// so, retires it.
func (d *debouncer) accept(f fired) bool {
	if d.pending[f.path] != f {
		return false
	}
	delete(d.pending, f.path)
	delete(d.timers, f.path)
	return true
}

// stop cancels every timer and waits for callbacks that already fired.
func (d *debouncer) stop() {
	for _, t := range d.timers {
		if t.Stop() {
			d.wg.Done()
		}
	}
	close(d.done)
	d.wg.Wait()
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
