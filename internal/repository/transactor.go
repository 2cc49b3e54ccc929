// Package repository owns database access for the pipeline: the hand-written
// pgx query layer in db, the transaction runner shared by services and
// workers, and the Querier mock in mock.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	db "github.com/docflow-io/docflow/internal/repository/db"
)

// Transactor executes fn inside a single database transaction, committing
// when fn returns nil and rolling back otherwise. The business row and the
// outbox event that announces it always travel through one Transactor call.
type Transactor interface {
	InTx(ctx context.Context, fn func(q db.Querier) error) error
}

// PgxTransactor is the production Transactor over a pgxpool.Pool.
type PgxTransactor struct {
	pool *pgxpool.Pool
}

// NewTransactor wraps the pool.
func NewTransactor(pool *pgxpool.Pool) *PgxTransactor {
	return &PgxTransactor{pool: pool}
}

// InTx implements Transactor.
func (t *PgxTransactor) InTx(ctx context.Context, fn func(q db.Querier) error) error {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(db.New(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
