package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aretw0/lifecycle"
)

// DefaultEventBufferSize is the number of watch events buffered for slow consumers.
const DefaultEventBufferSize = 100

// Service handles the business rules around notebooks.
type Service struct {
	repo            Repository
	logger          *slog.Logger
	mu              sync.RWMutex
	eventBufferSize int
	watchers        int
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithEventBufferSize sets the size of the buffer between the repository and watch consumers.
func WithEventBufferSize(size int) ServiceOption {
	return func(s *Service) {
		if size > 0 {
			s.eventBufferSize = size
		}
	}
}

// WithServiceLogger sets the service logger.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a new Service.
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{
		repo:            repo,
		logger:          slog.New(slog.DiscardHandler),
		eventBufferSize: DefaultEventBufferSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: notebook ID cannot be empty", ErrInvalidID)
	}
	return nil
}

// SaveNotebook persists nb under id.
func (s *Service) SaveNotebook(ctx context.Context, id string, nb *Notebook) error {
	if err := validateID(id); err != nil {
		return err
	}
	if nb == nil {
		return errors.New("notebook cannot be nil")
	}
	return s.repo.Save(ctx, id, nb)
}

// GetNotebook retrieves a notebook in model form.
func (s *Service) GetNotebook(ctx context.Context, id string) (*Notebook, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// CreateNotebook saves a fresh NewNotebook under id. It refuses to overwrite.
func (s *Service) CreateNotebook(ctx context.Context, id string) (*Notebook, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	_, err := s.repo.Get(ctx, id)
	if err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, id)
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	nb := NewNotebook()
	if err := s.repo.Save(ctx, id, nb); err != nil {
		return nil, err
	}
	s.logger.Info("notebook created", "id", id)
	return nb, nil
}

// ListNotebooks returns the IDs of all notebooks.
func (s *Service) ListNotebooks(ctx context.Context) ([]string, error) {
	return s.repo.List(ctx)
}

// Summaries describes every stored notebook. Repositories without an index
// are served by reading each notebook.
func (s *Service) Summaries(ctx context.Context) ([]Summary, error) {
	if sum, ok := s.repo.(Summarizer); ok {
		return sum.Summaries(ctx)
	}

	ids, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		nb, err := s.repo.Get(ctx, id)
		if err != nil {
			s.logger.Warn("skipping unreadable notebook", "id", id, "error", err)
			continue
		}
		out = append(out, SummaryOf(id, nb))
	}
	return out, nil
}

// DeleteNotebook removes a notebook.
func (s *Service) DeleteNotebook(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// WithTransaction runs fn inside a transaction, committing when fn succeeds
// and rolling back when it fails.
func (s *Service) WithTransaction(ctx context.Context, fn func(tx Transaction) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logger.Warn("rollback failed", "error", rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

// Begin initiates a transaction manually.
func (s *Service) Begin(ctx context.Context) (Transaction, error) {
	tr, ok := s.repo.(Transactional)
	if !ok {
		return nil, errors.New("repository does not support transactions")
	}
	return tr.Begin(ctx)
}

// Watch observes changes in the repository if supported.
// Events are buffered so a slow consumer does not stall the repository.
func (s *Service) Watch(ctx context.Context) (<-chan Event, error) {
	w, ok := s.repo.(Watchable)
	if !ok {
		return nil, errors.New("repository does not support watching")
	}

	upstream, err := w.Watch(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	size := s.eventBufferSize
	s.watchers++
	s.mu.Unlock()

	out := make(chan Event, size)
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(out)
		defer func() {
			s.mu.Lock()
			s.watchers--
			s.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-upstream:
				if !ok {
					return nil
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return out, nil
}
