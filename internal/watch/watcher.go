// SPDX-License-Identifier: MPL-2.0

// Package watch observes link inputs and fires a debounced callback when
// any of them changes.
//
// An input is either a module root directory, watched recursively, or a
// single jmod archive, watched through its parent directory. Events that
// arrive within the debounce window are coalesced so the callback runs once
// with the full set of changed paths.
package watch

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when Config.Debounce is unset.
const DefaultDebounce = 300 * time.Millisecond

// defaultIgnores are matched against paths relative to a module root.
var defaultIgnores = []string{
	"**/.git/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

// ErrNoInputs is returned by New when Config.Inputs is empty.
var ErrNoInputs = errors.New("watch: no inputs")

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Inputs are module root directories or jmod archives.
		Inputs []string

		// Ignore are doublestar patterns, relative to a module root, merged
		// with the built-in ignores.
		Ignore []string

		// Exclude are paths whose subtree never triggers the callback,
		// typically the image being written.
		Exclude []string

		// Debounce defaults to DefaultDebounce when zero or negative.
		Debounce time.Duration

		// OnChange receives the deduplicated absolute paths that changed.
		OnChange func(ctx context.Context, changed []string) error

		// Logger defaults to log.Default().
		Logger *log.Logger
	}

	// Watcher monitors link inputs. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		roots    []string
		files    map[string]bool
		exclude  []string
		ignores  []string
		debounce time.Duration
		logger   *log.Logger
		started  atomic.Bool
	}
)

// New resolves the inputs, validates the ignore patterns and registers the
// directories to watch.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Inputs) == 0 {
		return nil, ErrNoInputs
	}
	if err := validatePatterns(cfg.Ignore); err != nil {
		return nil, err
	}

	w := &Watcher{
		cfg:      cfg,
		files:    make(map[string]bool),
		ignores:  append(slices.Clone(defaultIgnores), cfg.Ignore...),
		debounce: cfg.Debounce,
		logger:   cfg.Logger,
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = log.Default()
	}
	for _, p := range cfg.Exclude {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve %q: %w", p, err)
		}
		w.exclude = append(w.exclude, abs)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	w.fsw = fsw

	for _, in := range cfg.Inputs {
		if err := w.addInput(in); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addInput(in string) error {
	abs, err := filepath.Abs(in)
	if err != nil {
		return fmt.Errorf("watch: resolve %q: %w", in, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		w.files[abs] = true
		if err := w.fsw.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("watch: add %q: %w", filepath.Dir(abs), err)
		}
		return nil
	}
	w.roots = append(w.roots, abs)
	return w.addTree(abs, abs)
}

// addTree registers dir and every non-ignored directory below it.
func (w *Watcher) addTree(root, dir string) error {
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "err", walkErr)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		// A directory is skipped when any file inside it would be ignored.
		if w.excluded(path) || w.ignored(root, filepath.Join(path, "_")) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk %q: %w", dir, err)
	}
	return nil
}

// Run processes events until ctx is cancelled. It returns nil on
// cancellation and an error when the underlying watcher breaks. Either way
// it returns only after an in-flight callback has finished.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return fmt.Errorf("watch: Run called more than once")
	}

	var (
		mu       sync.Mutex
		pending  = make(map[string]struct{})
		timer    *time.Timer
		closed   bool
		running  atomic.Bool
		inflight sync.WaitGroup
	)

	// fire runs at most one callback at a time. A busy callback
	// reschedules so pending changes are not lost.
	fire := func() {
		mu.Lock()
		if closed || ctx.Err() != nil {
			mu.Unlock()
			return
		}
		if !running.CompareAndSwap(false, true) {
			timer.Reset(w.debounce)
			mu.Unlock()
			return
		}
		// Add under mu so it cannot race the Wait in shutdown.
		inflight.Add(1)
		defer inflight.Done()
		defer running.Store(false)

		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("relink failed", "err", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		closed = true
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		inflight.Wait()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("close watcher", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watch: event channel closed unexpectedly")
			}
			if !w.relevant(evt) {
				continue
			}
			w.logger.Debug("input changed", "path", evt.Name, "op", evt.Op.String())
			mu.Lock()
			pending[evt.Name] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watch: error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

// relevant reports whether evt touches a watched archive or a non-ignored
// path below a module root. New directories are added to the watch.
func (w *Watcher) relevant(evt fsnotify.Event) bool {
	if evt.Has(fsnotify.Chmod) && !evt.Has(fsnotify.Write) {
		return false
	}
	if w.files[evt.Name] {
		return true
	}
	if w.excluded(evt.Name) {
		return false
	}
	root := w.rootOf(evt.Name)
	if root == "" || w.ignored(root, evt.Name) {
		return false
	}
	if evt.Has(fsnotify.Create) {
		if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
			if err := w.addTree(root, evt.Name); err != nil {
				w.logger.Warn("watch new directory", "path", evt.Name, "err", err)
			}
		}
	}
	return true
}

func (w *Watcher) rootOf(path string) string {
	for _, r := range w.roots {
		if path == r || strings.HasPrefix(path, r+string(filepath.Separator)) {
			return r
		}
	}
	return ""
}

func (w *Watcher) excluded(path string) bool {
	for _, e := range w.exclude {
		if path == e || strings.HasPrefix(path, e+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// ignored matches path, relative to root, against the ignore patterns.
func (w *Watcher) ignored(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pat := range w.ignores {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

func validatePatterns(patterns []string) error {
	for _, pat := range patterns {
		if pat == "" {
			return fmt.Errorf("watch: empty ignore pattern")
		}
		if _, err := doublestar.Match(pat, "x"); err != nil {
			return fmt.Errorf("watch: invalid ignore pattern %q: %w", pat, err)
		}
	}
	return nil
}
