package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/custodia-api/internal/domain/entity"
)

// MovementRepository define el puerto de persistencia de movimientos de custodia.
type MovementRepository interface {
	// Create inserta el movimiento. Devuelve domain.ErrDuplicate si el equipo ya
	// tiene movimiento en ese albarán; en ese caso no altera la transacción.
	Create(ctx context.Context, m *entity.Movement) error
	GetByID(ctx context.Context, id string) (*entity.Movement, error)
	// UpdateCorrection corrige cantidad y notas; los estados no se tocan.
	UpdateCorrection(ctx context.Context, id string, quantity decimal.Decimal, notes string) error
	// ListByDocument en orden de creación.
	ListByDocument(ctx context.Context, documentID string) ([]*entity.Movement, error)
	// ListByPair historial del equipo, del más antiguo al más reciente.
	ListByPair(ctx context.Context, pair entity.PairKey) ([]*entity.Movement, error)
	// ListRemaining historial del equipo fuera de excludeDocumentID, del más reciente al más antiguo.
	ListRemaining(ctx context.Context, pair entity.PairKey, excludeDocumentID string) ([]*entity.Movement, error)
	DeleteByDocument(ctx context.Context, documentID string) (int64, error)
	CountByCatalogEntry(ctx context.Context, catalogEntryID string) (int, error)
}
