package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"outreach_backend/internal/batches/domain"
	"outreach_backend/platform/apperr"
)

// uniqueViolation is the PostgreSQL error code for duplicate keys.
const uniqueViolation = "23505"

// PostgresStore persists batches as jsonb documents in the call_batches
// table. The document column mirrors what FileStore writes to disk, so the
// two stores are interchangeable behind the Store interface.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a store backed by the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Create persists a new batch. Fails with a conflict if the id exists.
func (s *PostgresStore) Create(ctx context.Context, batch *domain.Batch) error {
	doc, err := json.Marshal(batch)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "encode batch", err).WithOp("postgres.create")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO call_batches (id, created_at, document) VALUES ($1, $2, $3)`,
		batch.ID, batch.CreatedAt, doc,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperr.Conflict("batch already exists").WithOp("postgres.create")
		}
		return apperr.Wrap(apperr.KindInternal, "insert batch", err).WithOp("postgres.create")
	}
	return nil
}

// Get returns the batch with the given id.
func (s *PostgresStore) Get(ctx context.Context, id string) (*domain.Batch, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT document FROM call_batches WHERE id = $1`, id,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("batch not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "query batch", err).WithOp("postgres.get")
	}

	var batch domain.Batch
	if err := json.Unmarshal(doc, &batch); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "decode batch", err).WithOp("postgres.get")
	}
	return &batch, nil
}

// Put overwrites an existing batch. Fails with not found if absent.
func (s *PostgresStore) Put(ctx context.Context, batch *domain.Batch) error {
	doc, err := json.Marshal(batch)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "encode batch", err).WithOp("postgres.put")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE call_batches SET document = $2, updated_at = now() WHERE id = $1`,
		batch.ID, doc,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "update batch", err).WithOp("postgres.put")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("batch not found")
	}
	return nil
}

// List returns all batches, newest first.
func (s *PostgresStore) List(ctx context.Context) ([]domain.Batch, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT document FROM call_batches ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "query batches", err).WithOp("postgres.list")
	}
	defer rows.Close()

	var batches []domain.Batch
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan batch", err).WithOp("postgres.list")
		}
		var batch domain.Batch
		if err := json.Unmarshal(doc, &batch); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "decode batch", err).WithOp("postgres.list")
		}
		batches = append(batches, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "iterate batches", err).WithOp("postgres.list")
	}
	if batches == nil {
		batches = []domain.Batch{}
	}
	return batches, nil
}

// Lock takes a session-level advisory lock keyed by the batch id on a
// dedicated pooled connection, serializing read-modify-write cycles across
// the api and worker processes.
func (s *PostgresStore) Lock(ctx context.Context, id string) (func(), error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "acquire lock connection", err).WithOp("postgres.lock")
	}
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtext($1))`, id); err != nil {
		conn.Release()
		return nil, apperr.Wrap(apperr.KindInternal, "lock batch", err).WithOp("postgres.lock")
	}
	return func() {
		// Releasing the connection without unlocking would leak the lock for
		// the lifetime of the pooled session.
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock(hashtext($1))`, id)
		conn.Release()
	}, nil
}

// Delete removes the batch with the given id. Fails with not found if absent.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM call_batches WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "delete batch", err).WithOp("postgres.delete")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("batch not found")
	}
	return nil
}
