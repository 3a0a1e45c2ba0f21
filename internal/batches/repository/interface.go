// Package repository persists batches as whole documents keyed by batch id.
package repository

import (
	"context"

	"outreach_backend/internal/batches/domain"
)

// Store is the persistence contract for batches. Identities are generated by
// the caller, never by the store. Implementations return apperr typed errors:
// KindNotFound for absent batches, KindConflict for duplicate creation, and
// KindInternal for I/O failures.
type Store interface {
	// Create persists a new batch. Fails with a conflict if the id exists.
	Create(ctx context.Context, batch *domain.Batch) error
	// Get returns the batch with the given id.
	Get(ctx context.Context, id string) (*domain.Batch, error)
	// Put overwrites an existing batch. Fails with not found if absent, so a
	// write racing a delete degrades to a no-op for the caller.
	Put(ctx context.Context, batch *domain.Batch) error
	// List returns all batches.
	List(ctx context.Context) ([]domain.Batch, error)
	// Delete removes the batch with the given id. Fails with not found if
	// absent.
	Delete(ctx context.Context, id string) error
	// Lock acquires an exclusive cross-process lock for the batch id and
	// returns the release function. The api and worker processes share one
	// store; read-modify-write cycles must hold this lock or concurrent
	// reconciliations race and the later full-document write discards the
	// earlier one's lead updates.
	Lock(ctx context.Context, id string) (func(), error)
}
