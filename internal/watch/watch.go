// Package watch uploads PDFs as they appear in a directory.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pdfqa-dev/pdfqa/internal/backend"
	"github.com/pdfqa-dev/pdfqa/internal/log"
)

// DefaultSettle is how long a file must go without writes before upload.
const DefaultSettle = 500 * time.Millisecond

// Uploader sends one file. *session.Controller satisfies it.
type Uploader interface {
	UploadPath(ctx context.Context, path string) (*backend.UploadResponse, error)
}

// Options configure a Watcher.
type Options struct {
	Extensions []string // defaults to .pdf
	Settle     time.Duration
	Existing   bool // also upload matching files already in the directory
	Logger     *log.Logger
	// OnResult, when set, is called after each upload attempt.
	OnResult func(path string, err error)
}

// Watcher feeds new or rewritten files to an Uploader, one at a time.
type Watcher struct {
	uploader   Uploader
	extensions []string
	settle     time.Duration
	existing   bool
	logger     *log.Logger
	onResult   func(string, error)
}

// New creates a Watcher.
func New(u Uploader, opts Options) *Watcher {
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".pdf"}
	}
	if opts.Settle <= 0 {
		opts.Settle = DefaultSettle
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	return &Watcher{
		uploader:   u,
		extensions: opts.Extensions,
		settle:     opts.Settle,
		existing:   opts.Existing,
		logger:     opts.Logger,
		onResult:   opts.OnResult,
	}
}

// Run watches dir until ctx is cancelled. Upload failures are logged and
// reported through OnResult; they do not stop the watch.
func (w *Watcher) Run(ctx context.Context, dir string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Info().Str("dir", dir).Msg("watching for documents")

	if w.existing {
		paths, err := w.scan(dir)
		if err != nil {
			return err
		}
		for _, p := range paths {
			if ctx.Err() != nil {
				return nil
			}
			w.upload(ctx, p)
		}
	}

	ready := make(chan string, 64)
	d := newDebouncer(w.settle, func(path string) {
		select {
		case ready <- path:
		case <-ctx.Done():
		}
	})
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.wanted(event) {
				continue
			}
			d.touch(event.Name)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("watch error")

		case path := <-ready:
			w.upload(ctx, path)
		}
	}
}

func (w *Watcher) wanted(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return false
	}
	return w.matches(event.Name)
}

func (w *Watcher) matches(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// scan lists matching regular files in dir, sorted by name.
func (w *Watcher) scan(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && w.matches(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (w *Watcher) upload(ctx context.Context, path string) {
	// The file may have been removed while settling.
	if _, err := os.Stat(path); err != nil {
		return
	}

	_, err := w.uploader.UploadPath(ctx, path)
	if err != nil {
		w.logger.Warn().Err(err).Str("path", path).Msg("upload failed")
	} else {
		w.logger.Info().Str("path", path).Msg("uploaded")
	}
	if w.onResult != nil {
		w.onResult(path, err)
	}
}

// debouncer fires fn for a key once no touch has arrived for delay.
type debouncer struct {
	mu     sync.Mutex
	delay  time.Duration
	fn     func(string)
	timers map[string]*time.Timer
}

func newDebouncer(delay time.Duration, fn func(string)) *debouncer {
	return &debouncer{delay: delay, fn: fn, timers: make(map[string]*time.Timer)}
}

func (d *debouncer) touch(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.timers[key] != t {
			// Superseded by a later touch.
			d.mu.Unlock()
			return
		}
		delete(d.timers, key)
		d.mu.Unlock()
		d.fn(key)
	})
	d.timers[key] = t
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, t := range d.timers {
		t.Stop()
		delete(d.timers, k)
	}
}
