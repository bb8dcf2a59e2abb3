package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/custodia-api/internal/domain"
	"github.com/jhoicas/custodia-api/internal/domain/entity"
	"github.com/jhoicas/custodia-api/internal/domain/repository"
)

var _ repository.CatalogRepository = (*CatalogRepo)(nil)

// psql constructor de consultas dinámicas con placeholders $n.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

const catalogColumns = `id, code, description, type, created_at, updated_at`

// CatalogRepo implementación de CatalogRepository sobre PostgreSQL (usable con pool o tx).
type CatalogRepo struct {
	q Querier
}

// NewCatalogRepository construye el adaptador de catálogo. Pasar pool o tx (Querier).
func NewCatalogRepository(q Querier) *CatalogRepo {
	return &CatalogRepo{q: q}
}

func scanCatalog(row pgx.Row) (*entity.CatalogEntry, error) {
	var c entity.CatalogEntry
	if err := row.Scan(&c.ID, &c.Code, &c.Description, &c.Type, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByID obtiene una entrada por ID; (nil, nil) si no existe.
func (r *CatalogRepo) GetByID(ctx context.Context, id string) (*entity.CatalogEntry, error) {
	if !validID(id) {
		return nil, nil
	}
	c, err := scanCatalog(r.q.QueryRow(ctx, `SELECT `+catalogColumns+` FROM catalog_entry WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err, "catalog_entry", id)
	}
	return c, nil
}

// GetByCode obtiene una entrada por código; (nil, nil) si no existe.
func (r *CatalogRepo) GetByCode(ctx context.Context, code string) (*entity.CatalogEntry, error) {
	c, err := scanCatalog(r.q.QueryRow(ctx, `SELECT `+catalogColumns+` FROM catalog_entry WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err, "catalog_entry", code)
	}
	return c, nil
}

// GetOrCreate inserta la entrada sin tipo si el código no existe y la devuelve.
// ON CONFLICT DO NOTHING espera a la transacción concurrente que inserte el mismo código.
func (r *CatalogRepo) GetOrCreate(ctx context.Context, code, description string) (*entity.CatalogEntry, error) {
	query := `
		INSERT INTO catalog_entry (id, code, description, type, created_at, updated_at)
		VALUES ($1, $2, $3, '', now(), now())
		ON CONFLICT (code) DO NOTHING`
	if _, err := r.q.Exec(ctx, query, uuid.New().String(), code, description); err != nil {
		return nil, mapError(err, "catalog_entry", code)
	}
	c, err := r.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("catalog_entry %s: %w", code, domain.ErrConcurrencyConflict)
	}
	return c, nil
}

// UpdateType asigna la clasificación.
func (r *CatalogRepo) UpdateType(ctx context.Context, id, typ string) error {
	tag, err := r.q.Exec(ctx, `UPDATE catalog_entry SET type = $2, updated_at = now() WHERE id = $1`, id, typ)
	if err != nil {
		return mapError(err, "catalog_entry", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("catalog_entry %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete borra la entrada. Las FK de movement y snapshot impiden borrar entradas referenciadas.
func (r *CatalogRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM catalog_entry WHERE id = $1`, id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation {
			return fmt.Errorf("catalog_entry %s referenciada por movimientos o instantáneas: %w", id, domain.ErrInvalidInput)
		}
		return mapError(err, "catalog_entry", id)
	}
	return nil
}

// List devuelve el catálogo ordenado por código.
func (r *CatalogRepo) List(ctx context.Context, limit, offset int) ([]*entity.CatalogEntry, error) {
	sql, args, err := psql.Select(catalogColumns).
		From("catalog_entry").
		OrderBy("code").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list catalog: %w", err)
	}
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "catalog_entry", "list")
	}
	defer rows.Close()

	out := make([]*entity.CatalogEntry, 0)
	for rows.Next() {
		c, err := scanCatalog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan catalog_entry: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
