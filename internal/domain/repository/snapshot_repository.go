package repository

import (
	"context"

	"github.com/jhoicas/custodia-api/internal/domain/entity"
)

// SnapshotFilter filtros del listado de inventario.
type SnapshotFilter struct {
	State       entity.CustodyState
	CatalogCode string
	Location    string
	Limit       int
	Offset      int
}

// SnapshotRepository define el puerto de la proyección de inventario.
// Usado dentro de transacciones para garantizar consistencia.
type SnapshotRepository interface {
	// LockPair serializa el acceso al equipo hasta el fin de la transacción.
	LockPair(ctx context.Context, pair entity.PairKey) error
	Get(ctx context.Context, pair entity.PairKey) (*entity.Snapshot, error)
	Upsert(ctx context.Context, s *entity.Snapshot) error
	Delete(ctx context.Context, pair entity.PairKey) error
	List(ctx context.Context, f SnapshotFilter) ([]*entity.Snapshot, error)
	// CountByCatalogEntry instantáneas de cualquier serie del código, tengan o no movimientos.
	CountByCatalogEntry(ctx context.Context, catalogEntryID string) (int, error)
}
