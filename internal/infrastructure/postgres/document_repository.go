package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/custodia-api/internal/domain"
	"github.com/jhoicas/custodia-api/internal/domain/entity"
	"github.com/jhoicas/custodia-api/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

const documentColumns = `id, number, document_type, transfer_direction, document_date, principal_document_id,
	page_number, total_pages, origin, destination, notes, metadata, created_by, created_at, updated_at`

// DocumentRepo implementación de DocumentRepository sobre PostgreSQL (usable con pool o tx).
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador de albaranes. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

func scanDocument(row pgx.Row) (*entity.Document, error) {
	var (
		d         entity.Document
		direction *string
		principal *string
		metadata  []byte
	)
	err := row.Scan(
		&d.ID, &d.Number, &d.Type, &direction, &d.Date, &principal,
		&d.PageNumber, &d.TotalPages, &d.Origin, &d.Destination, &d.Notes, &metadata,
		&d.CreatedBy, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Direction = entity.TransferDirection(derefString(direction))
	d.PrincipalID = derefString(principal)
	if len(metadata) > 0 {
		d.Metadata = json.RawMessage(metadata)
	}
	return &d, nil
}

func collectDocuments(rows pgx.Rows) ([]*entity.Document, error) {
	defer rows.Close()
	out := make([]*entity.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Create persiste un albarán. Una colisión de número con otra transacción se
// informa como conflicto para que el motor reintente y la valide.
func (r *DocumentRepo) Create(ctx context.Context, doc *entity.Document) error {
	query := `
		INSERT INTO document (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	var metadata []byte
	if len(doc.Metadata) > 0 {
		metadata = doc.Metadata
	}
	_, err := r.q.Exec(ctx, query,
		doc.ID, doc.Number, doc.Type, nullString(string(doc.Direction)), doc.Date, nullString(doc.PrincipalID),
		doc.PageNumber, doc.TotalPages, doc.Origin, doc.Destination, doc.Notes, metadata,
		doc.CreatedBy, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("document number %s: %w", doc.Number, domain.ErrConcurrencyConflict)
		}
		return mapError(err, "document", doc.ID)
	}
	return nil
}

func (r *DocumentRepo) get(ctx context.Context, id, suffix string) (*entity.Document, error) {
	if !validID(id) {
		return nil, nil
	}
	d, err := scanDocument(r.q.QueryRow(ctx, `SELECT `+documentColumns+` FROM document WHERE id = $1`+suffix, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err, "document", id)
	}
	return d, nil
}

// GetByID obtiene un albarán; (nil, nil) si no existe.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate obtiene el albarán y bloquea la fila (SELECT FOR UPDATE).
func (r *DocumentRepo) GetForUpdate(ctx context.Context, id string) (*entity.Document, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

// ExistsNumber indica si algún albarán usa ya ese número.
func (r *DocumentRepo) ExistsNumber(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM document WHERE number = $1)`, number).Scan(&exists)
	if err != nil {
		return false, mapError(err, "document", number)
	}
	return exists, nil
}

// ListGroup principal y continuaciones por página.
func (r *DocumentRepo) ListGroup(ctx context.Context, principalID string) ([]*entity.Document, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+documentColumns+` FROM document
		WHERE id = $1 OR principal_document_id = $1
		ORDER BY page_number`, principalID)
	if err != nil {
		return nil, mapError(err, "document group", principalID)
	}
	return collectDocuments(rows)
}

// SetTotalPages fija total_pages en todas las páginas del grupo.
func (r *DocumentRepo) SetTotalPages(ctx context.Context, principalID string, total int) error {
	_, err := r.q.Exec(ctx, `
		UPDATE document SET total_pages = $2, updated_at = now()
		WHERE id = $1 OR principal_document_id = $1`, principalID, total)
	if err != nil {
		return mapError(err, "document group", principalID)
	}
	return nil
}

// ListOutboundNumbers números con forma de registro de salida del año.
func (r *DocumentRepo) ListOutboundNumbers(ctx context.Context, year int) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT number FROM document WHERE number LIKE $1`, fmt.Sprintf("S%04d-%%", year))
	if err != nil {
		return nil, mapError(err, "document", "outbound numbers")
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan number: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// List albaranes filtrados, del más reciente al más antiguo.
func (r *DocumentRepo) List(ctx context.Context, f repository.DocumentFilter) ([]*entity.Document, error) {
	q := psql.Select(documentColumns).From("document")
	if f.Type != "" {
		q = q.Where(squirrel.Eq{"document_type": f.Type})
	}
	if f.Direction != "" {
		q = q.Where(squirrel.Eq{"transfer_direction": f.Direction})
	}
	if f.NumberPrefix != "" {
		q = q.Where(squirrel.ILike{"number": f.NumberPrefix + "%"})
	}
	if f.From != nil {
		q = q.Where(squirrel.GtOrEq{"document_date": *f.From})
	}
	if f.To != nil {
		q = q.Where(squirrel.LtOrEq{"document_date": *f.To})
	}
	sql, args, err := q.OrderBy("document_date DESC", "number").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list documents: %w", err)
	}
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "document", "list")
	}
	return collectDocuments(rows)
}

// Delete borra el albarán; sus movimientos caen por ON DELETE CASCADE.
func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM document WHERE id = $1`, id); err != nil {
		return mapError(err, "document", id)
	}
	return nil
}
