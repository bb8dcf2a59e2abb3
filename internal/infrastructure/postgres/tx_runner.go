package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/custodia-api/internal/application/ledger"
)

var _ ledger.TxRunner = (*TxRunner)(nil)

// TxBeginner lo implementan *pgxpool.Pool y el pool de pgxmock.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	db          TxBeginner
	lockTimeout time.Duration
}

// NewTxRunner construye el runner. lockTimeout > 0 limita la espera por bloqueos
// (al vencer, la operación falla con domain.ErrConcurrencyConflict).
func NewTxRunner(db TxBeginner, lockTimeout time.Duration) *TxRunner {
	return &TxRunner{db: db, lockTimeout: lockTimeout}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(ctx context.Context, repos ledger.Repos) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if r.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return mapError(err, "transaction", "lock_timeout")
		}
	}

	if err := fn(ctx, NewRepos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError(err, "transaction", "commit")
	}
	return nil
}

// NewRepos ata todos los repositorios del libro al mismo Querier.
func NewRepos(q Querier) ledger.Repos {
	return ledger.Repos{
		Catalog:   NewCatalogRepository(q),
		Documents: NewDocumentRepository(q),
		Movements: NewMovementRepository(q),
		Snapshots: NewSnapshotRepository(q),
		Sequences: NewSequenceRepository(q),
	}
}
