package repository

import (
	"context"
	"time"

	"github.com/jhoicas/custodia-api/internal/domain/entity"
)

// DocumentFilter filtros de listado de albaranes.
type DocumentFilter struct {
	Type         entity.DocumentType
	Direction    entity.TransferDirection
	NumberPrefix string
	From, To     *time.Time
	Limit        int
	Offset       int
}

// DocumentRepository define el puerto de persistencia de albaranes.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, id string) (*entity.Document, error)
	// GetForUpdate obtiene el albarán y bloquea la fila (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.Document, error)
	ExistsNumber(ctx context.Context, number string) (bool, error)
	// ListGroup devuelve principal y continuaciones ordenados por página.
	ListGroup(ctx context.Context, principalID string) ([]*entity.Document, error)
	// SetTotalPages fija total_pages en todas las páginas del grupo.
	SetTotalPages(ctx context.Context, principalID string, total int) error
	// ListOutboundNumbers devuelve los números de traslados de salida del año.
	ListOutboundNumbers(ctx context.Context, year int) ([]string, error)
	List(ctx context.Context, f DocumentFilter) ([]*entity.Document, error)
	Delete(ctx context.Context, id string) error
}
