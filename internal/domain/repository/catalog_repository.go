package repository

import (
	"context"

	"github.com/jhoicas/custodia-api/internal/domain/entity"
)

// CatalogRepository define el puerto de persistencia del catálogo de productos.
// Los Get devuelven (nil, nil) si no existe.
type CatalogRepository interface {
	GetByID(ctx context.Context, id string) (*entity.CatalogEntry, error)
	GetByCode(ctx context.Context, code string) (*entity.CatalogEntry, error)
	// GetOrCreate devuelve la entrada con ese código, creándola sin tipo si no existe.
	GetOrCreate(ctx context.Context, code, description string) (*entity.CatalogEntry, error)
	UpdateType(ctx context.Context, id, typ string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*entity.CatalogEntry, error)
}
