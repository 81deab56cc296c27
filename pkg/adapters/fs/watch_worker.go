package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/nbform/pkg/core"
)

var errWatcherClosed = errors.New("fsnotify watcher closed unexpectedly")

// dirWatcher is the supervised worker that turns fsnotify events under the
// repository root into debounced notebook events.
type dirWatcher struct {
	*worker.BaseWorker
	repo  *Repository
	out   chan<- core.Event
	fsw   *fsnotify.Watcher
	queue *debouncer
	ready chan struct{} // closed once fsw watches the tree
	stop  context.CancelFunc
}

func newDirWatcher(repo *Repository, out chan<- core.Event) *dirWatcher {
	return &dirWatcher{
		BaseWorker: worker.NewBaseWorker("fs-watcher"),
		repo:       repo,
		out:        out,
		ready:      make(chan struct{}),
	}
}

func (w *dirWatcher) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch status := w.State().Status; status {
	case worker.StatusCreated, worker.StatusPending:
	default:
		return fmt.Errorf("notebook watcher cannot start from status %s", status)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.repo.recursiveAdd(fsw, w.repo.Path); err != nil {
		_ = fsw.Close()
		return err
	}
	w.fsw = fsw
	w.queue = newDebouncer(w.repo.config.Debounce)
	w.repo.setWatcherActive(true)
	close(w.ready)

	runCtx, stop := context.WithCancel(ctx)
	w.stop = stop
	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *dirWatcher) Stop(ctx context.Context) error {
	if w.stop != nil {
		w.StopRequested = true
		w.stop()
	}
	return w.BaseWorker.Stop(ctx)
}

func (w *dirWatcher) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
			"root":              w.repo.Path,
			"pattern":           w.repo.config.Pattern,
		}
	})
}

func (w *dirWatcher) run(ctx context.Context) (err error) {
	logger := w.repo.config.Logger
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err = fmt.Errorf("notebook watcher panic: %v", r)
		attrs := []any{"error", err}
		if logger.Enabled(ctx, slog.LevelDebug) {
			attrs = append(attrs, "stack", string(debug.Stack()))
		}
		logger.Error("notebook watcher crashed", attrs...)
	}()
	defer w.repo.setWatcherActive(false)
	defer w.fsw.Close()

	err = w.loop(ctx)

	// Timers still in flight must finish before the owner closes the out channel.
	w.queue.stopAndWait(stopTimeout)
	return err
}

func (w *dirWatcher) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return w.closed(ctx)
			}
			w.handle(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return w.closed(ctx)
			}
			w.reportError(err)
		}
	}
}

// closed decides whether a closed fsnotify channel is a clean shutdown or a
// failure the supervisor should restart.
func (w *dirWatcher) closed(ctx context.Context) error {
	if w.StopRequested || ctx.Err() != nil {
		return nil
	}
	return errWatcherClosed
}

// handle filters, maps and debounces one fsnotify event. It reports whether
// a notebook event was queued.
func (w *dirWatcher) handle(ctx context.Context, ev fsnotify.Event) bool {
	logger := w.repo.config.Logger
	logger.Debug("fs event", "name", ev.Name, "op", ev.Op.String())

	// Notebooks inside a new directory arrive as their own events once it is watched.
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.repo.recursiveAdd(w.fsw, ev.Name); err != nil {
				w.reportError(err)
			}
			return false
		}
	}

	if w.repo.shouldIgnore(ev.Name) {
		return false
	}
	kind := mapEventType(ev)
	if kind == "" {
		return false
	}
	id, err := w.repo.resolveID(ev.Name)
	if err != nil {
		logger.Debug("cannot map path to notebook id", "path", ev.Name, "error", err)
		return false
	}

	w.queue.add(core.Event{Type: kind, ID: id}, func(e core.Event) {
		// A late timer may fire after the owner closed out.
		defer func() { _ = recover() }()
		select {
		case w.out <- e:
			w.repo.recordEvent()
		case <-ctx.Done():
		}
	})
	return true
}

func (w *dirWatcher) reportError(err error) {
	if h := w.repo.config.ErrorHandler; h != nil {
		h(err)
		return
	}
	w.repo.config.Logger.Error("notebook watcher error", "error", err)
}
