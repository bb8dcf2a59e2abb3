package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/custodia-api/internal/domain/entity"
	"github.com/jhoicas/custodia-api/internal/domain/repository"
)

var _ repository.SnapshotRepository = (*SnapshotRepo)(nil)

const snapshotColumns = `s.catalog_entry_id, c.code, s.serial_number, s.state, s.location, s.last_movement_id, s.last_updated`

// SnapshotRepo implementación de SnapshotRepository sobre PostgreSQL (usable con pool o tx).
type SnapshotRepo struct {
	q Querier
}

// NewSnapshotRepository construye el adaptador de la proyección. Pasar pool o tx (Querier).
func NewSnapshotRepository(q Querier) *SnapshotRepo {
	return &SnapshotRepo{q: q}
}

func scanSnapshot(row pgx.Row) (*entity.Snapshot, error) {
	var (
		s    entity.Snapshot
		last *string
	)
	if err := row.Scan(&s.CatalogEntryID, &s.CatalogCode, &s.SerialNumber, &s.State, &s.Location, &last, &s.LastUpdated); err != nil {
		return nil, err
	}
	s.LastMovementID = derefString(last)
	return &s, nil
}

// LockPair toma un advisory lock de transacción sobre el equipo.
// Funciona aunque la instantánea aún no exista.
func (r *SnapshotRepo) LockPair(ctx context.Context, pair entity.PairKey) error {
	_, err := r.q.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1::text || ':' || $2::text, 0))`,
		pair.CatalogEntryID, pair.SerialNumber)
	if err != nil {
		return mapError(err, "snapshot lock", pair.CatalogEntryID+"/"+pair.SerialNumber)
	}
	return nil
}

// Get obtiene la instantánea del equipo; (nil, nil) si no existe.
func (r *SnapshotRepo) Get(ctx context.Context, pair entity.PairKey) (*entity.Snapshot, error) {
	s, err := scanSnapshot(r.q.QueryRow(ctx, `
		SELECT `+snapshotColumns+`
		FROM snapshot s JOIN catalog_entry c ON c.id = s.catalog_entry_id
		WHERE s.catalog_entry_id = $1 AND s.serial_number = $2`, pair.CatalogEntryID, pair.SerialNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err, "snapshot", pair.CatalogEntryID+"/"+pair.SerialNumber)
	}
	return s, nil
}

// Upsert inserta o reemplaza la instantánea del equipo.
func (r *SnapshotRepo) Upsert(ctx context.Context, s *entity.Snapshot) error {
	query := `
		INSERT INTO snapshot (catalog_entry_id, serial_number, state, location, last_movement_id, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (catalog_entry_id, serial_number)
		DO UPDATE SET state = EXCLUDED.state, location = EXCLUDED.location,
		              last_movement_id = EXCLUDED.last_movement_id, last_updated = EXCLUDED.last_updated`
	_, err := r.q.Exec(ctx, query,
		s.CatalogEntryID, s.SerialNumber, s.State, s.Location, nullString(s.LastMovementID), s.LastUpdated)
	if err != nil {
		return mapError(err, "snapshot", s.CatalogEntryID+"/"+s.SerialNumber)
	}
	return nil
}

// Delete elimina la instantánea del equipo.
func (r *SnapshotRepo) Delete(ctx context.Context, pair entity.PairKey) error {
	_, err := r.q.Exec(ctx, `DELETE FROM snapshot WHERE catalog_entry_id = $1 AND serial_number = $2`,
		pair.CatalogEntryID, pair.SerialNumber)
	if err != nil {
		return mapError(err, "snapshot", pair.CatalogEntryID+"/"+pair.SerialNumber)
	}
	return nil
}

// CountByCatalogEntry instantáneas que referencian la entrada de catálogo.
func (r *SnapshotRepo) CountByCatalogEntry(ctx context.Context, catalogEntryID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM snapshot WHERE catalog_entry_id = $1`, catalogEntryID).Scan(&n)
	if err != nil {
		return 0, mapError(err, "snapshot", catalogEntryID)
	}
	return n, nil
}

// List inventario filtrado, ordenado por código y serie.
func (r *SnapshotRepo) List(ctx context.Context, f repository.SnapshotFilter) ([]*entity.Snapshot, error) {
	q := psql.Select(snapshotColumns).
		From("snapshot s").
		Join("catalog_entry c ON c.id = s.catalog_entry_id")
	if f.State != "" {
		q = q.Where(squirrel.Eq{"s.state": f.State})
	}
	if f.CatalogCode != "" {
		q = q.Where(squirrel.Eq{"c.code": f.CatalogCode})
	}
	if f.Location != "" {
		q = q.Where(squirrel.Eq{"s.location": f.Location})
	}
	sql, args, err := q.OrderBy("c.code", "s.serial_number").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list snapshots: %w", err)
	}
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "snapshot", "list")
	}
	defer rows.Close()
	out := make([]*entity.Snapshot, 0)
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
