package ledger

import (
	"context"

	"github.com/jhoicas/custodia-api/internal/domain/repository"
)

// Repos agrupa los repositorios atados a una misma transacción.
type Repos struct {
	Catalog   repository.CatalogRepository
	Documents repository.DocumentRepository
	Movements repository.MovementRepository
	Snapshots repository.SnapshotRepository
	Sequences repository.SequenceRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Commit si fn no devuelve error; Rollback en cualquier otro caso.
// Los conflictos de bloqueo o serialización deben devolverse envueltos en domain.ErrConcurrencyConflict.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}
