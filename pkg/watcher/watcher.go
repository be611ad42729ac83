// Package watcher reports changes to the push data files: the job stream a
// collector appends to, and the pushes document or database it rewrites.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is the stat interval in polling mode.
const DefaultPollInterval = 2 * time.Second

// ForcePollEnvVar forces polling mode when set to a true value.
const ForcePollEnvVar = "PUSHBOARD_FORCE_POLL"

var (
	ErrNoPaths        = errors.New("no paths to watch")
	ErrFileRemoved    = errors.New("watched file was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// Change reports that a watched file was written, created or removed.
type Change struct {
	Path    string
	Removed bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period applied per file.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithPollInterval sets the polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithForcePoll skips fsnotify.
func WithForcePoll(force bool) Option {
	return func(w *Watcher) { w.forcePoll = force }
}

// WithOnError sets the callback for watch errors.
func WithOnError(fn func(error)) Option {
	return func(w *Watcher) {
		if fn != nil {
			w.onError = fn
		}
	}
}

type fileState struct {
	mtime  time.Time
	size   int64
	exists bool
}

// Watcher monitors a set of files with fsnotify, falling back to polling
// when fsnotify is unavailable or disabled.
type Watcher struct {
	paths        []string
	debounce     time.Duration
	pollInterval time.Duration
	forcePoll    bool
	onError      func(error)

	mu         sync.RWMutex
	started    bool
	polling    bool
	cancel     context.CancelFunc
	fsw        *fsnotify.Watcher
	debouncers map[string]*Debouncer
	state      map[string]fileState
	changes    chan Change
}

// New creates a watcher over paths. Empty paths are ignored.
func New(paths []string, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		debounce:     DefaultDebounceDuration,
		pollInterval: DefaultPollInterval,
		onError:      func(error) {},
		debouncers:   make(map[string]*Debouncer),
		state:        make(map[string]fileState),
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		w.paths = append(w.paths, abs)
	}
	if len(w.paths) == 0 {
		return nil, ErrNoPaths
	}
	for _, opt := range opts {
		opt(w)
	}
	w.changes = make(chan Change, len(w.paths))
	return w, nil
}

// Start begins watching until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return ErrAlreadyStarted
	}

	for _, p := range w.paths {
		st, err := stat(p)
		if err != nil && os.IsPermission(err) {
			return ErrPermission
		}
		w.state[p] = st
		w.debouncers[p] = NewDebouncer(w.debounce)
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.polling = w.forcePoll || envBool(ForcePollEnvVar)
	if !w.polling {
		fsw, err := w.newFsnotify()
		if err != nil {
			w.polling = true
		} else {
			w.fsw = fsw
			go w.watchEvents(ctx, fsw)
		}
	}
	if w.polling {
		go w.watchPolling(ctx)
	}
	w.started = true
	return nil
}

// newFsnotify watches each file's directory so atomic renames are seen.
func (w *Watcher) newFsnotify() (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dirs := make(map[string]bool)
	for _, p := range w.paths {
		dir := filepath.Dir(p)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return fsw, nil
}

// Stop ends watching. The Changes channel stays open.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	w.cancel()
	if w.fsw != nil {
		w.fsw.Close()
		w.fsw = nil
	}
	for _, d := range w.debouncers {
		d.Cancel()
	}
	w.started = false
}

// Changes delivers debounced change reports.
func (w *Watcher) Changes() <-chan Change { return w.changes }

// Paths returns the absolute watched paths.
func (w *Watcher) Paths() []string { return append([]string(nil), w.paths...) }

// IsPolling reports whether the watcher fell back to polling.
func (w *Watcher) IsPolling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.polling
}

// IsStarted reports whether the watcher is running.
func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// watched maps an event name to a watched path. Event names may carry a
// symlinked form of the directory, so the base name is the fallback.
func (w *Watcher) watched(name string) (string, bool) {
	if abs, err := filepath.Abs(name); err == nil {
		for _, p := range w.paths {
			if p == abs {
				return p, true
			}
		}
	}
	base := filepath.Base(name)
	for _, p := range w.paths {
		if filepath.Base(p) == base {
			return p, true
		}
	}
	return "", false
}

func (w *Watcher) watchEvents(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			path, ok := w.watched(ev.Name)
			if !ok {
				continue
			}
			switch {
			case ev.Op&fsnotify.Remove != 0:
				w.onError(ErrFileRemoved)
				w.trigger(ctx, Change{Path: path, Removed: true})
			case ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0:
				w.trigger(ctx, Change{Path: path})
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

func (w *Watcher) watchPolling(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, p := range w.paths {
				w.poll(ctx, p)
			}
		}
	}
}

func (w *Watcher) poll(ctx context.Context, path string) {
	st, err := stat(path)
	if err != nil {
		if os.IsPermission(err) {
			w.onError(ErrPermission)
		} else {
			w.onError(err)
		}
		return
	}

	w.mu.Lock()
	prev := w.state[path]
	w.state[path] = st
	w.mu.Unlock()

	switch {
	case prev.exists && !st.exists:
		w.onError(ErrFileRemoved)
		w.trigger(ctx, Change{Path: path, Removed: true})
	case st.exists && (!prev.exists || st.mtime.After(prev.mtime) || st.size != prev.size):
		w.trigger(ctx, Change{Path: path})
	}
}

func (w *Watcher) trigger(ctx context.Context, c Change) {
	w.mu.RLock()
	d := w.debouncers[c.Path]
	w.mu.RUnlock()
	if d == nil {
		return
	}
	d.Trigger(func() {
		select {
		case w.changes <- c:
		case <-ctx.Done():
		}
	})
}

// stat reports a missing file as a zero state, not an error.
func stat(path string) (fileState, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fileState{}, nil
		}
		return fileState{}, err
	}
	return fileState{mtime: info.ModTime(), size: info.Size(), exists: true}, nil
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
