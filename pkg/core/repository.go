package core

import "context"

// Repository defines the contract for storing and retrieving notebooks.
// Notebooks cross this boundary in model form; adapters own the file form.
type Repository interface {
	// Save persists a notebook, creating or replacing it.
	Save(ctx context.Context, id string, nb *Notebook) error

	// Get retrieves a notebook by its ID. Missing notebooks yield ErrNotFound.
	Get(ctx context.Context, id string) (*Notebook, error)

	// List returns the IDs of all available notebooks, sorted.
	List(ctx context.Context) ([]string, error)

	// Delete removes a notebook by its ID.
	Delete(ctx context.Context, id string) error

	// Initialize ensures the underlying storage is ready (e.g. create directories).
	Initialize(ctx context.Context) error
}

// Watchable is implemented by repositories that can report changes.
type Watchable interface {
	// Watch emits an Event for every notebook created, modified or deleted
	// until ctx is cancelled. The channel is closed when watching stops.
	Watch(ctx context.Context) (<-chan Event, error)
}

// Transaction defines the contract for a unit of work.
// Nothing reaches storage until Commit; Rollback discards the staged changes.
type Transaction interface {
	// Save stages a notebook for persistence.
	Save(ctx context.Context, id string, nb *Notebook) error

	// Get retrieves a notebook, preferring the staged version if there is one.
	Get(ctx context.Context, id string) (*Notebook, error)

	// Delete stages a notebook for removal.
	Delete(ctx context.Context, id string) error

	// Commit applies all staged changes.
	Commit(ctx context.Context) error

	// Rollback discards all staged changes.
	Rollback(ctx context.Context) error
}

// Transactional is implemented by repositories that support transactions.
type Transactional interface {
	// Begin starts a new transaction.
	Begin(ctx context.Context) (Transaction, error)
}

// Summarizer is implemented by repositories that can describe their notebooks cheaply.
type Summarizer interface {
	Summaries(ctx context.Context) ([]Summary, error)
}
