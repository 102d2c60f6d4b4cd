// Package watch rebuilds statutes when their source files change on disk.
//
// Events are collected per statute and a rebuild runs once its file has been
// quiet for the debounce interval. Rebuilds run one at a time.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/fsnotify.v1"
)

// RebuildFunc re-renders the named statute.
type RebuildFunc func(ctx context.Context, name string) error

// Status indicates the state of the last rebuild of a statute.
type Status string

const (
	// StatusPending means no rebuild has run yet.
	StatusPending Status = "pending"

	// StatusOK means the last rebuild succeeded.
	StatusOK Status = "ok"

	// StatusError means the last rebuild failed.
	StatusError Status = "error"
)

// State describes one watched statute.
type State struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Status    Status    `json:"status"`
	Builds    int       `json:"builds"`
	LastBuild time.Time `json:"last_build,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// Watcher maps source files to statutes and rebuilds them on change.
type Watcher struct {
	debounce time.Duration
	rebuild  RebuildFunc
	log      *slog.Logger

	byPath map[string]string // cleaned absolute path -> statute name

	mu     sync.Mutex
	states map[string]*State
}

// New creates a watcher for files, a map from statute name to source path.
func New(files map[string]string, debounce time.Duration, rebuild RebuildFunc, log *slog.Logger) (*Watcher, error) {
	if rebuild == nil {
		return nil, fmt.Errorf("rebuild function is required")
	}
	if log == nil {
		log = slog.Default()
	}
	w := &Watcher{
		debounce: debounce,
		rebuild:  rebuild,
		log:      log,
		byPath:   make(map[string]string, len(files)),
		states:   make(map[string]*State, len(files)),
	}
	for name, path := range files {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", path, err)
		}
		abs = filepath.Clean(abs)
		if other, dup := w.byPath[abs]; dup {
			return nil, fmt.Errorf("statutes %s and %s share the file %s", other, name, path)
		}
		w.byPath[abs] = name
		w.states[name] = &State{Name: name, Path: path, Status: StatusPending}
	}
	return w, nil
}

// Run watches until ctx is done. Directories are watched rather than files
// so that editors which replace a file by renaming are still seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	dirs := make(map[string]bool)
	for path := range w.byPath {
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watching directory %s: %w", dir, err)
		}
	}
	w.log.Info("watching statutes", "files", len(w.byPath), "directories", len(dirs))

	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			name, relevant := w.match(event)
			if !relevant {
				continue
			}
			w.log.Debug("source changed", "statute", name, "op", event.Op.String())
			pending[name] = true
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)

		case <-timer.C:
			w.flush(ctx, pending)
			pending = make(map[string]bool)
		}
	}
}

// match reports the statute a file event concerns. Removals are ignored
// because a rename-into-place is followed by a create.
func (w *Watcher) match(event fsnotify.Event) (string, bool) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return "", false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return "", false
	}
	name, ok := w.byPath[filepath.Clean(abs)]
	return name, ok
}

// flush rebuilds the pending statutes in name order.
func (w *Watcher) flush(ctx context.Context, pending map[string]bool) {
	names := make([]string, 0, len(pending))
	for name := range pending {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if ctx.Err() != nil {
			return
		}
		w.Rebuild(ctx, name)
	}
}

// Rebuild runs the rebuild for name now and records the outcome.
func (w *Watcher) Rebuild(ctx context.Context, name string) error {
	start := time.Now()
	err := w.rebuild(ctx, name)

	w.mu.Lock()
	st, ok := w.states[name]
	if !ok {
		st = &State{Name: name}
		w.states[name] = st
	}
	st.Builds++
	st.LastBuild = start
	if err != nil {
		st.Status = StatusError
		st.LastError = err.Error()
	} else {
		st.Status = StatusOK
		st.LastError = ""
	}
	w.mu.Unlock()

	if err != nil {
		w.log.Error("rebuild failed", "statute", name, "error", err)
		return err
	}
	w.log.Info("rebuilt statute", "statute", name, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// States returns the state of every watched statute, sorted by name.
func (w *Watcher) States() []State {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]State, 0, len(w.states))
	for _, st := range w.states {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
