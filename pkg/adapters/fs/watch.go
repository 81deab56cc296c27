package fs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/nbform/pkg/core"
)

const stopTimeout = 5 * time.Second

// Watch reports notebooks created, modified or deleted under the root until
// ctx is cancelled. The watcher runs under a supervisor and is restarted when
// it fails. The returned channel is closed once the watcher has stopped.
func (r *Repository) Watch(ctx context.Context) (<-chan core.Event, error) {
	info, err := os.Stat(r.Path)
	if err != nil {
		return nil, fmt.Errorf("cannot watch %s: %w", r.Path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("cannot watch %s: not a directory", r.Path)
	}

	events := make(chan core.Event)
	spec := watcherSpec(func() (worker.Worker, error) {
		return newDirWatcher(r, events), nil
	}, supervisor.Backoff{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2,
		ResetDuration:   time.Minute,
		MaxRestarts:     5,
		MaxDuration:     time.Minute,
	})

	sup := supervisor.New("nbform-watch", supervisor.StrategyOneForOne, spec)
	if err := sup.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start watcher: %w", err)
	}
	r.config.Logger.Debug("watching", "path", r.Path, "pattern", r.config.Pattern)

	lifecycle.Go(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		err := sup.Stop(stopCtx)
		close(events)
		return err
	}, lifecycle.WithErrorHandler(func(err error) {
		if r.config.ErrorHandler != nil {
			r.config.ErrorHandler(err)
			return
		}
		r.config.Logger.Error("watcher shutdown failed", "error", err)
	}))

	return events, nil
}

// watcherSpec describes the supervised fsnotify worker. Only failures are
// restarted; a worker stopped by its context stays down.
func watcherSpec(factory func() (worker.Worker, error), backoff supervisor.Backoff) supervisor.Spec {
	return supervisor.Spec{
		Name:          "fs-watcher",
		Type:          string(worker.TypeGoroutine),
		Factory:       factory,
		Backoff:       backoff,
		RestartPolicy: supervisor.RestartOnFailure,
	}
}

// recursiveAdd watches dir and every non-hidden directory below it.
func (r *Repository) recursiveAdd(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Directories can vanish between the event and the walk.
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != r.Path && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// shouldIgnore filters out temp files, hidden paths, unknown extensions and
// files outside the pattern.
func (r *Repository) shouldIgnore(path string) bool {
	relPath, err := filepath.Rel(r.Path, path)
	if err != nil {
		return true
	}
	relPath = filepath.ToSlash(relPath)
	if relPath == "." || strings.HasPrefix(relPath, "../") {
		return true
	}
	return !r.matches(relPath)
}

func (r *Repository) resolveID(path string) (string, error) {
	relPath, err := filepath.Rel(r.Path, path)
	if err != nil {
		return "", err
	}
	relPath = filepath.ToSlash(relPath)
	if strings.HasPrefix(relPath, "../") {
		return "", fmt.Errorf("%s is outside %s", path, r.Path)
	}
	return idFromRel(relPath), nil
}

func mapEventType(event fsnotify.Event) core.EventType {
	switch {
	case event.Has(fsnotify.Create):
		return core.EventCreate
	case event.Has(fsnotify.Write):
		return core.EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return core.EventDelete
	default:
		return ""
	}
}

// debouncer coalesces bursts of events per notebook ID. An atomic save
// produces a create and several writes; consumers see one event.
type debouncer struct {
	interval time.Duration

	mu      sync.Mutex
	pending map[string]*pendingEvent
	stopped bool
	wg      sync.WaitGroup
}

type pendingEvent struct {
	event core.Event
	timer *time.Timer
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{
		interval: interval,
		pending:  make(map[string]*pendingEvent),
	}
}

// add schedules emit for e after the quiet period, replacing any pending
// event for the same ID.
func (d *debouncer) add(e core.Event, emit func(core.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if prev, ok := d.pending[e.ID]; ok {
		if prev.timer.Stop() {
			d.wg.Done()
		}
		e.Type = mergeEventTypes(prev.event.Type, e.Type)
	}

	p := &pendingEvent{event: e}
	d.wg.Add(1)
	p.timer = time.AfterFunc(d.interval, func() {
		defer d.wg.Done()

		d.mu.Lock()
		if d.pending[p.event.ID] == p {
			delete(d.pending, p.event.ID)
		}
		d.mu.Unlock()

		out := p.event
		out.Timestamp = time.Now().Unix()
		emit(out)
	})
	d.pending[e.ID] = p
}

// mergeEventTypes keeps a create visible when writes follow it.
func mergeEventTypes(prev, next core.EventType) core.EventType {
	if prev == core.EventCreate && next == core.EventModify {
		return core.EventCreate
	}
	return next
}

// stopAndWait drops pending events and waits for timers already firing.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	for id, p := range d.pending {
		if p.timer.Stop() {
			d.wg.Done()
		}
		delete(d.pending, id)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
