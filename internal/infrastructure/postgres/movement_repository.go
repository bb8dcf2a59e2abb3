package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/custodia-api/internal/domain"
	"github.com/jhoicas/custodia-api/internal/domain/entity"
	"github.com/jhoicas/custodia-api/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementSelect = `
	SELECT m.id, m.seq, m.catalog_entry_id, c.code, m.serial_number, m.document_id, m.occurred_at,
	       m.movement_type, m.transfer_direction, m.state_before, m.state_after, m.quantity, m.location, m.notes
	FROM movement m
	JOIN catalog_entry c ON c.id = m.catalog_entry_id`

// MovementRepo implementación de MovementRepository sobre PostgreSQL (usable con pool o tx).
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador de movimientos. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var (
		m         entity.Movement
		direction *string
	)
	err := row.Scan(
		&m.ID, &m.Seq, &m.CatalogEntryID, &m.CatalogCode, &m.SerialNumber, &m.DocumentID, &m.OccurredAt,
		&m.Type, &direction, &m.StateBefore, &m.StateAfter, &m.Quantity, &m.Location, &m.Notes,
	)
	if err != nil {
		return nil, err
	}
	m.Direction = entity.TransferDirection(derefString(direction))
	return &m, nil
}

func (r *MovementRepo) list(ctx context.Context, what, query string, args ...any) ([]*entity.Movement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "movement", what)
	}
	defer rows.Close()
	out := make([]*entity.Movement, 0)
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Create inserta el movimiento y asigna Seq. ON CONFLICT DO NOTHING permite informar
// el duplicado sin abortar la transacción.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	query := `
		INSERT INTO movement (id, catalog_entry_id, serial_number, document_id, occurred_at, movement_type,
		                      transfer_direction, state_before, state_after, quantity, location, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (catalog_entry_id, serial_number, document_id) DO NOTHING
		RETURNING seq`
	err := r.q.QueryRow(ctx, query,
		m.ID, m.CatalogEntryID, m.SerialNumber, m.DocumentID, m.OccurredAt, m.Type,
		nullString(string(m.Direction)), m.StateBefore, m.StateAfter, m.Quantity, m.Location, m.Notes,
	).Scan(&m.Seq)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrDuplicate
	}
	if err != nil {
		return mapError(err, "movement", m.ID)
	}
	return nil
}

// GetByID obtiene un movimiento; (nil, nil) si no existe.
func (r *MovementRepo) GetByID(ctx context.Context, id string) (*entity.Movement, error) {
	if !validID(id) {
		return nil, nil
	}
	m, err := scanMovement(r.q.QueryRow(ctx, movementSelect+` WHERE m.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err, "movement", id)
	}
	return m, nil
}

// UpdateCorrection corrige cantidad y notas.
func (r *MovementRepo) UpdateCorrection(ctx context.Context, id string, quantity decimal.Decimal, notes string) error {
	tag, err := r.q.Exec(ctx, `UPDATE movement SET quantity = $2, notes = $3 WHERE id = $1`, id, quantity, notes)
	if err != nil {
		return mapError(err, "movement", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("movement %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListByDocument movimientos del albarán en orden de creación.
func (r *MovementRepo) ListByDocument(ctx context.Context, documentID string) ([]*entity.Movement, error) {
	return r.list(ctx, documentID, movementSelect+` WHERE m.document_id = $1 ORDER BY m.seq`, documentID)
}

// ListByPair historial del equipo, del más antiguo al más reciente.
func (r *MovementRepo) ListByPair(ctx context.Context, pair entity.PairKey) ([]*entity.Movement, error) {
	return r.list(ctx, pair.CatalogEntryID, movementSelect+`
		WHERE m.catalog_entry_id = $1 AND m.serial_number = $2
		ORDER BY m.occurred_at, m.seq`, pair.CatalogEntryID, pair.SerialNumber)
}

// ListRemaining historial del equipo en otros albaranes, del más reciente al más antiguo.
func (r *MovementRepo) ListRemaining(ctx context.Context, pair entity.PairKey, excludeDocumentID string) ([]*entity.Movement, error) {
	return r.list(ctx, pair.CatalogEntryID, movementSelect+`
		WHERE m.catalog_entry_id = $1 AND m.serial_number = $2 AND m.document_id <> $3
		ORDER BY m.occurred_at DESC, m.seq DESC`, pair.CatalogEntryID, pair.SerialNumber, excludeDocumentID)
}

// DeleteByDocument borra los movimientos del albarán y devuelve cuántos eran.
func (r *MovementRepo) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM movement WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, mapError(err, "movement", documentID)
	}
	return tag.RowsAffected(), nil
}

// CountByCatalogEntry movimientos que referencian la entrada de catálogo.
func (r *MovementRepo) CountByCatalogEntry(ctx context.Context, catalogEntryID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM movement WHERE catalog_entry_id = $1`, catalogEntryID).Scan(&n)
	if err != nil {
		return 0, mapError(err, "movement", catalogEntryID)
	}
	return n, nil
}
