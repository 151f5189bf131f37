// Package reload keeps the query service on the newest index file. A
// Reloader answers queries from an immutable snapshot and swaps in a fresh
// one whenever the file on disk is replaced.
package reload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/metrics"
)

const defaultDebounce = 250 * time.Millisecond

// Loader reads the index from disk.
type Loader func() (*index.InvertedIndex, error)

type snapshot struct {
	exec       *executor.Executor
	stats      index.Stats
	generation string
}

type Reloader struct {
	path     string
	load     Loader
	metrics  *metrics.Metrics
	debounce time.Duration
	current  atomic.Pointer[snapshot]
	logger   *slog.Logger

	mu     sync.Mutex
	onSwap []func(index.Stats)
}

// New performs the initial load; it fails if the index cannot be read.
func New(path string, load Loader, m *metrics.Metrics) (*Reloader, error) {
	r := &Reloader{
		path:     path,
		load:     load,
		metrics:  m,
		debounce: defaultDebounce,
		logger:   slog.Default().With("component", "index-reloader"),
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// OnSwap registers fn to run after every successful reload.
func (r *Reloader) OnSwap(fn func(index.Stats)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onSwap = append(r.onSwap, fn)
}

func (r *Reloader) Query(terms []string) []int {
	return r.current.Load().exec.Query(terms)
}

func (r *Reloader) Stats() index.Stats {
	return r.current.Load().stats
}

// Generation identifies the snapshot currently answering queries. It changes
// in the same atomic swap as the index itself.
func (r *Reloader) Generation() string {
	return r.current.Load().generation
}

// Reload loads the index and swaps it in. On failure the previous snapshot
// keeps serving.
func (r *Reloader) Reload() error {
	// Stat before loading: if the file is replaced mid-load, the watcher
	// fires again and the next generation carries the newer mtime.
	var modTime int64
	if info, err := os.Stat(r.path); err == nil {
		modTime = info.ModTime().UnixNano()
	}
	ix, err := r.load()
	if err != nil {
		return fmt.Errorf("reloading %s: %w", r.path, err)
	}
	stats := ix.Stats()
	snap := &snapshot{
		exec:       executor.New(ix, r.metrics),
		stats:      stats,
		generation: Generation(r.path, modTime, stats),
	}
	previous := r.current.Swap(snap)
	if previous != nil {
		r.logger.Info("index reloaded", "path", r.path, "terms", snap.stats.Terms, "documents", snap.stats.Documents)
	}

	r.mu.Lock()
	hooks := append([]func(index.Stats){}, r.onSwap...)
	r.mu.Unlock()
	for _, fn := range hooks {
		fn(snap.stats)
	}
	return nil
}

// Generation names one build of the index file so cached results can be
// scoped to it across processes sharing a cache.
func Generation(path string, modTime int64, stats index.Stats) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return fmt.Sprintf("%s|%d|%d|%d", abs, modTime, stats.Terms, stats.Postings)
}

// Watch reloads whenever the index file is created or written, coalescing
// bursts of events. It blocks until ctx is done.
func (r *Reloader) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating index watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory: replacing the file by rename drops a watch on the
	// file itself.
	dir := filepath.Dir(r.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	target := filepath.Clean(r.path)
	r.logger.Info("watching index for changes", "path", r.path)

	timer := time.NewTimer(r.debounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			timer.Reset(r.debounce)
		case <-timer.C:
			if err := r.Reload(); err != nil {
				r.logger.Warn("index reload failed, keeping previous index", "error", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Error("index watcher error", "error", err)
		}
	}
}
