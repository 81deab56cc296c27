package core

import (
	"github.com/aretw0/introspection"
)

// ServiceState is the snapshot returned by Service.State.
type ServiceState struct {
	EventBufferSize int      `json:"event_buffer_size"`
	ActiveWatchers  int      `json:"active_watchers"`
	RepositoryType  string   `json:"repository_type"`
	Capabilities    []string `json:"capabilities"`
	Repository      any      `json:"repository,omitempty"`
}

// State implements introspection.Introspectable. When the repository is
// introspectable too, its own state is nested under Repository.
func (s *Service) State() any {
	s.mu.RLock()
	state := ServiceState{
		EventBufferSize: s.eventBufferSize,
		ActiveWatchers:  s.watchers,
		RepositoryType:  "unknown",
		Capabilities:    []string{},
	}
	s.mu.RUnlock()

	if s.repo == nil {
		return state
	}

	state.RepositoryType = "repository"
	if comp, ok := s.repo.(introspection.Component); ok {
		state.RepositoryType = comp.ComponentType()
	}
	if in, ok := s.repo.(introspection.Introspectable); ok {
		state.Repository = in.State()
	}

	if _, ok := s.repo.(Watchable); ok {
		state.Capabilities = append(state.Capabilities, "watch")
	}
	if _, ok := s.repo.(Transactional); ok {
		state.Capabilities = append(state.Capabilities, "transactions")
	}
	if _, ok := s.repo.(Summarizer); ok {
		state.Capabilities = append(state.Capabilities, "summaries")
	}
	return state
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string { return "service" }

var (
	_ introspection.Introspectable = (*Service)(nil)
	_ introspection.Component      = (*Service)(nil)
)
