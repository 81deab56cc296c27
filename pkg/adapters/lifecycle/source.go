// Package lifecycle exposes notebook change events as a lifecycle.Source,
// so a lifecycle runtime can react to notebooks being edited on disk.
package lifecycle

import (
	"context"
	"errors"
	"sync"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/nbform/pkg/core"
)

type notebookSource struct {
	events <-chan core.Event
	out    chan lifecycle.Event
	types  map[core.EventType]bool
	once   sync.Once
}

// NewSource creates a lifecycle.Source that forwards notebook events.
// When types are given, only events of those types are forwarded.
func NewSource(events <-chan core.Event, types ...core.EventType) lifecycle.Source {
	s := &notebookSource{
		events: events,
		out:    make(chan lifecycle.Event),
	}
	if len(types) > 0 {
		s.types = make(map[core.EventType]bool, len(types))
		for _, t := range types {
			s.types[t] = true
		}
	}
	return s
}

func (s *notebookSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *notebookSource) accepts(e core.Event) bool {
	return s.types == nil || s.types[e.Type]
}

func (s *notebookSource) Start(ctx context.Context) error {
	first := false
	s.once.Do(func() { first = true })
	if !first {
		return errors.New("source already started")
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
				}
				if !s.accepts(e) {
					continue
				}
				// core.Event satisfies lifecycle.Event through String().
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
