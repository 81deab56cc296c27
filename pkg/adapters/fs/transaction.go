package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/aretw0/nbform/pkg/core"
)

var errTxClosed = errors.New("transaction closed")

// Transaction implements core.Transaction for the filesystem.
// Every staged notebook is serialized before the first file is touched, so
// an encoding failure leaves the directory unchanged.
//
// Staged changes are keyed by relative file path, so "a" and "a.ipynb" name
// the same notebook.
type Transaction struct {
	repo    *Repository
	staged  map[string]*core.Notebook // by relPath
	deleted map[string]bool           // by relPath
	mu      sync.Mutex
	closed  bool
}

// NewTransaction creates a new transaction.
func NewTransaction(repo *Repository) *Transaction {
	return &Transaction{
		repo:    repo,
		staged:  make(map[string]*core.Notebook),
		deleted: make(map[string]bool),
	}
}

// Begin starts a new transaction.
func (r *Repository) Begin(ctx context.Context) (core.Transaction, error) {
	if r.config.ReadOnly {
		return nil, fmt.Errorf("%w: cannot begin a transaction", core.ErrReadOnly)
	}
	return NewTransaction(r), nil
}

// Save stages a copy of nb.
func (t *Transaction) Save(ctx context.Context, id string, nb *core.Notebook) error {
	if nb == nil {
		return errors.New("notebook cannot be nil")
	}
	_, relPath, _, err := t.repo.resolve(id)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errTxClosed
	}

	t.staged[relPath] = nb.Clone()
	delete(t.deleted, relPath)
	return nil
}

// Get retrieves a notebook, favoring staged changes.
func (t *Transaction) Get(ctx context.Context, id string) (*core.Notebook, error) {
	_, relPath, _, err := t.repo.resolve(id)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, errTxClosed
	}
	if t.deleted[relPath] {
		t.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	if nb, ok := t.staged[relPath]; ok {
		t.mu.Unlock()
		return nb.Clone(), nil
	}
	t.mu.Unlock()

	return t.repo.Get(ctx, id)
}

// Delete stages a notebook for removal.
func (t *Transaction) Delete(ctx context.Context, id string) error {
	_, relPath, _, err := t.repo.resolve(id)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errTxClosed
	}

	t.deleted[relPath] = true
	delete(t.staged, relPath)
	return nil
}

type stagedWrite struct {
	id, fullPath, relPath string
	nb                    *core.Notebook
	data                  []byte
}

// Commit applies all staged changes.
func (t *Transaction) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errTxClosed
	}

	rels := make([]string, 0, len(t.staged))
	for rel := range t.staged {
		rels = append(rels, rel)
	}
	sort.Strings(rels)

	// 1. Encode everything up front.
	writes := make([]stagedWrite, 0, len(rels))
	for _, rel := range rels {
		fullPath, relPath, ext, err := t.repo.resolve(rel)
		if err != nil {
			return err
		}
		id := idFromRel(relPath)
		nb := t.staged[rel]
		data, err := t.repo.serializers[ext].Serialize(nb)
		if err != nil {
			return fmt.Errorf("failed to serialize %s: %w", id, err)
		}
		writes = append(writes, stagedWrite{id: id, fullPath: fullPath, relPath: relPath, nb: nb, data: data})
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// 2. Apply writes.
	for _, w := range writes {
		if err := t.repo.write(w.fullPath, w.data); err != nil {
			return fmt.Errorf("failed to write %s: %w", w.id, err)
		}
		t.repo.index(w.fullPath, w.relPath, w.nb)
	}

	// 3. Apply deletes.
	for rel := range t.deleted {
		fullPath, relPath, _, err := t.repo.resolve(rel)
		if err != nil {
			return err
		}
		if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", idFromRel(relPath), err)
		}
		t.repo.cache.Delete(relPath)
	}

	if err := t.repo.cache.Save(); err != nil {
		t.repo.config.Logger.Warn("failed to save summary index", "error", err)
	}

	t.repo.config.Logger.Info("transaction committed", "saved", len(writes), "deleted", len(t.deleted))
	t.closed = true
	return nil
}

// Rollback discards all staged changes.
func (t *Transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.staged = nil
	t.deleted = nil
	t.closed = true
	return nil
}

var _ core.Transaction = (*Transaction)(nil)
