// Package watch notices edits made to the data file by other programs.
//
// It polls the file's modification time instead of relying on OS
// notifications, trading up to one interval of latency for portability.
package watch

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is how often Run polls.
const DefaultInterval = time.Second

// Target is what the watcher refreshes. *jsonstore.Store satisfies it.
type Target interface {
	Reload() error
	LastPersistModTime() time.Time
}

// Watcher compares the file's mtime against the last one it saw and against
// the one the target produced itself, and reloads only on outside changes.
// PollOnce is not safe for concurrent use; drive it from one loop.
type Watcher struct {
	path     string
	target   Target
	interval time.Duration
	log      *zap.Logger

	lastKnown time.Time

	onReload func()
	onError  func(error)
}

// Option configures a Watcher.
type Option func(*Watcher)

func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// OnReload is called after every successful reload.
func OnReload(fn func()) Option {
	return func(w *Watcher) { w.onReload = fn }
}

// OnError is called when a triggered reload fails.
func OnError(fn func(error)) Option {
	return func(w *Watcher) { w.onError = fn }
}

// New returns a watcher for path. Call Prime after the target's first load.
func New(path string, target Target, opts ...Option) *Watcher {
	w := &Watcher{
		path:     path,
		target:   target,
		interval: DefaultInterval,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Interval returns the polling period.
func (w *Watcher) Interval() time.Duration { return w.interval }

// Prime records the file's current mtime without reloading.
func (w *Watcher) Prime() {
	if mt, ok := modTime(w.path); ok {
		w.lastKnown = mt
	}
}

// PollOnce checks the file once and reloads the target if someone else
// changed it. A missing file counts as no change. When the reload fails the
// new mtime is still adopted, so a bad edit is reported once, not every tick.
func (w *Watcher) PollOnce() (bool, error) {
	mt, ok := modTime(w.path)
	if !ok || mt.Equal(w.lastKnown) {
		return false, nil
	}
	if mt.Equal(w.target.LastPersistModTime()) {
		w.lastKnown = mt
		return false, nil
	}

	w.lastKnown = mt
	if err := w.target.Reload(); err != nil {
		w.log.Warn("reload after external change failed", zap.String("path", w.path), zap.Error(err))
		if w.onError != nil {
			w.onError(err)
		}
		return false, err
	}
	w.log.Info("reloaded after external change", zap.String("path", w.path), zap.Time("mtime", mt))
	if w.onReload != nil {
		w.onReload()
	}
	return true, nil
}

// Run polls every interval until ctx is done. Errors are reported through
// OnError and the log; they never stop the loop.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = w.PollOnce()
		}
	}
}

func modTime(path string) (time.Time, bool) {
	st, err := os.Stat(path)
	if err != nil {
		return time.Time{}, false
	}
	return st.ModTime(), true
}
