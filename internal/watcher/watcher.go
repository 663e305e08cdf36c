// Package watcher keeps the local store in sync with watched directories:
// created or modified files are re-indexed, removed files are deleted.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/indexer"
	"github.com/hyperjump/kensaku/internal/metrics"
	"github.com/hyperjump/kensaku/internal/models"
)

const defaultDebounce = 400 * time.Millisecond

// Sink receives file changes. Implemented by *indexer.Indexer.
type Sink interface {
	IndexFile(ctx context.Context, path, sourceID string) (bool, error)
	IndexDirectory(ctx context.Context, dir, sourceID string) (*indexer.DirectoryStats, error)
	DeleteFile(ctx context.Context, path string) error
}

// Root is a watched directory and the source id of its documents.
type Root struct {
	Path     string
	SourceID string
}

// Watcher watches root directories recursively.
type Watcher struct {
	sink       Sink
	roots      []Root
	extensions []string
	debounce   time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	pending map[string]*time.Timer
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce sets how long a file must stay quiet before it is re-indexed.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher. Only files whose extension is in extensions are
// handled; empty extensions means every file.
func New(sink Sink, roots []Root, extensions []string, opts ...Option) *Watcher {
	w := &Watcher{
		sink:       sink,
		extensions: extensions,
		debounce:   defaultDebounce,
		logger:     zap.NewNop(),
		pending:    make(map[string]*time.Timer),
	}
	for _, r := range roots {
		if abs, err := filepath.Abs(r.Path); err == nil {
			w.roots = append(w.roots, Root{Path: filepath.Clean(abs), SourceID: r.SourceID})
		}
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Roots returns the watched directories.
func (w *Watcher) Roots() []Root {
	return append([]Root(nil), w.roots...)
}

// Start adds every root to the watch list, indexes what is already there and
// then follows changes until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, root := range w.roots {
		if err := addTree(fsw, root.Path); err != nil {
			_ = fsw.Close()
			return err
		}
	}
	w.fsw = fsw
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(2)
	go func() {
		defer w.wg.Done()
		w.sync(w.ctx)
	}()
	go func() {
		defer w.wg.Done()
		w.run(w.ctx, fsw)
	}()
	w.logger.Info("watching directories", zap.Int("roots", len(w.roots)), zap.Strings("extensions", w.extensions))
	return nil
}

// sync indexes existing files; unchanged files are skipped by the indexer.
func (w *Watcher) sync(ctx context.Context) {
	for _, root := range w.roots {
		if _, err := w.sink.IndexDirectory(ctx, root.Path, root.SourceID); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Warn("initial sync failed", zap.String("root", root.Path), zap.Error(err))
		}
	}
}

// addTree watches dir and all its non-hidden subdirectories.
func addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(ctx, fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, fsw *fsnotify.Watcher, ev fsnotify.Event) {
	root, ok := w.rootOf(ev.Name)
	if !ok || hidden(root.Path, ev.Name) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))

	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(ev.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			metrics.WatchEventsTotal.WithLabelValues("directory").Inc()
			if err := addTree(fsw, ev.Name); err != nil {
				w.logger.Warn("failed to watch directory", zap.String("path", ev.Name), zap.Error(err))
			}
			if _, err := w.sink.IndexDirectory(ctx, ev.Name, root.SourceID); err != nil {
				w.logger.Warn("failed to index directory", zap.String("path", ev.Name), zap.Error(err))
			}
			return
		}
		if w.matches(ev.Name) {
			w.schedule(ctx, ev.Name, root.SourceID)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancelPending(ev.Name)
		if !w.matches(ev.Name) {
			return
		}
		metrics.WatchEventsTotal.WithLabelValues("remove").Inc()
		if err := w.sink.DeleteFile(ctx, ev.Name); err != nil && !errors.Is(err, models.ErrNotFound) {
			w.logger.Warn("failed to delete file document", zap.String("path", ev.Name), zap.Error(err))
		}
	}
}

// schedule re-indexes path once it has been quiet for the debounce interval.
func (w *Watcher) schedule(ctx context.Context, path, sourceID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		metrics.WatchEventsTotal.WithLabelValues("index").Inc()
		if _, err := w.sink.IndexFile(ctx, path, sourceID); err != nil {
			w.logger.Warn("failed to index file", zap.String("path", path), zap.Error(err))
		}
	})
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

// rootOf returns the innermost root containing path.
func (w *Watcher) rootOf(path string) (Root, bool) {
	clean := filepath.Clean(path)
	var best Root
	found := false
	for _, r := range w.roots {
		if (r.Path == clean || inDir(r.Path, clean)) && len(r.Path) >= len(best.Path) {
			best, found = r, true
		}
	}
	return best, found
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// hidden reports whether any element of path below root starts with a dot.
func hidden(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

func (w *Watcher) matches(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	for _, e := range w.extensions {
		if strings.EqualFold(strings.TrimPrefix(e, "."), ext) {
			return true
		}
	}
	return false
}

// Stop stops watching and waits for in-flight work started by Start.
// Pending debounced re-indexes are dropped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.fsw == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.cancel()
	fsw := w.fsw
	w.fsw = nil
	w.mu.Unlock()

	w.wg.Wait()
	_ = fsw.Close()
}
