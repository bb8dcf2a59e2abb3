package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/custodia-api/internal/domain"
	"github.com/jhoicas/custodia-api/internal/domain/custody"
	"github.com/jhoicas/custodia-api/internal/domain/entity"
	"github.com/jhoicas/custodia-api/internal/domain/repository"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// DocumentDetail albarán con sus movimientos y las páginas de su grupo.
type DocumentDetail struct {
	Document  *entity.Document
	Movements []*entity.Movement
	Pages     []*entity.Document
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// GetDocument devuelve el albarán con sus movimientos (solo lectura).
func (e *Engine) GetDocument(ctx context.Context, documentID string) (*DocumentDetail, error) {
	var out *DocumentDetail
	err := e.tx.Run(ctx, func(ctx context.Context, r Repos) error {
		doc, err := r.Documents.GetByID(ctx, documentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("albarán %s: %w", documentID, domain.ErrNotFound)
		}
		movs, err := r.Movements.ListByDocument(ctx, doc.ID)
		if err != nil {
			return err
		}
		pages, err := r.Documents.ListGroup(ctx, doc.GroupID())
		if err != nil {
			return err
		}
		out = &DocumentDetail{Document: doc, Movements: movs, Pages: pages}
		return nil
	})
	return out, err
}

// ListDocuments lista albaranes filtrados.
func (e *Engine) ListDocuments(ctx context.Context, f repository.DocumentFilter) ([]*entity.Document, error) {
	f.Limit, f.Offset = clampPage(f.Limit, f.Offset)
	f.NumberPrefix = strings.TrimSpace(f.NumberPrefix)
	var out []*entity.Document
	err := e.tx.Run(ctx, func(ctx context.Context, r Repos) error {
		list, err := r.Documents.List(ctx, f)
		out = list
		return err
	})
	return out, err
}

// GetSnapshot estado actual de un equipo.
func (e *Engine) GetSnapshot(ctx context.Context, code, serial string) (*entity.Snapshot, error) {
	code, serial = custody.NormalizeCode(code), custody.NormalizeSerial(serial)
	var out *entity.Snapshot
	err := e.tx.Run(ctx, func(ctx context.Context, r Repos) error {
		ce, err := lookupCatalog(ctx, r, code)
		if err != nil {
			return err
		}
		s, err := r.Snapshots.Get(ctx, entity.PairKey{CatalogEntryID: ce.ID, SerialNumber: serial})
		if err != nil {
			return err
		}
		if s == nil {
			return fmt.Errorf("instantánea %s/%s: %w", code, serial, domain.ErrNotFound)
		}
		s.CatalogCode = ce.Code
		out = s
		return nil
	})
	return out, err
}

// GetMovementHistory historial de un equipo del más antiguo al más reciente.
func (e *Engine) GetMovementHistory(ctx context.Context, code, serial string) ([]*entity.Movement, error) {
	code, serial = custody.NormalizeCode(code), custody.NormalizeSerial(serial)
	var out []*entity.Movement
	err := e.tx.Run(ctx, func(ctx context.Context, r Repos) error {
		ce, err := lookupCatalog(ctx, r, code)
		if err != nil {
			return err
		}
		movs, err := r.Movements.ListByPair(ctx, entity.PairKey{CatalogEntryID: ce.ID, SerialNumber: serial})
		if err != nil {
			return err
		}
		custody.Chronological(movs)
		for _, m := range movs {
			m.CatalogCode = ce.Code
		}
		out = movs
		return nil
	})
	return out, err
}

// ListSnapshots lista el inventario actual.
func (e *Engine) ListSnapshots(ctx context.Context, f repository.SnapshotFilter) ([]*entity.Snapshot, error) {
	f.Limit, f.Offset = clampPage(f.Limit, f.Offset)
	if f.CatalogCode != "" {
		f.CatalogCode = custody.NormalizeCode(f.CatalogCode)
	}
	if f.State != "" && !f.State.Valid() {
		return nil, domain.NewValidationError("state", "estado desconocido")
	}
	var out []*entity.Snapshot
	err := e.tx.Run(ctx, func(ctx context.Context, r Repos) error {
		list, err := r.Snapshots.List(ctx, f)
		out = list
		return err
	})
	return out, err
}

// ListCatalog lista el catálogo por código.
func (e *Engine) ListCatalog(ctx context.Context, limit, offset int) ([]*entity.CatalogEntry, error) {
	limit, offset = clampPage(limit, offset)
	var out []*entity.CatalogEntry
	err := e.tx.Run(ctx, func(ctx context.Context, r Repos) error {
		list, err := r.Catalog.List(ctx, limit, offset)
		out = list
		return err
	})
	return out, err
}

// AssignCatalogType clasifica una entrada de catálogo auto-creada.
func (e *Engine) AssignCatalogType(ctx context.Context, code, typ string) (*entity.CatalogEntry, error) {
	code, typ = custody.NormalizeCode(code), strings.TrimSpace(typ)
	if typ == "" {
		return nil, domain.NewValidationError("type", "obligatorio")
	}
	var out *entity.CatalogEntry
	err := e.run(ctx, "assign_catalog_type", func(ctx context.Context, r Repos) error {
		ce, err := lookupCatalog(ctx, r, code)
		if err != nil {
			return err
		}
		if err := r.Catalog.UpdateType(ctx, ce.ID, typ); err != nil {
			return err
		}
		ce.Type = typ
		out = ce
		return nil
	})
	return out, err
}

// ImportCatalog da de alta entradas de catálogo (código → descripción). Las existentes no se tocan.
// Devuelve cuántas entradas quedan resueltas.
func (e *Engine) ImportCatalog(ctx context.Context, entries map[string]string) (int, error) {
	n := 0
	err := e.run(ctx, "import_catalog", func(ctx context.Context, r Repos) error {
		n = 0
		for code, desc := range entries {
			code = custody.NormalizeCode(code)
			if code == "" {
				continue
			}
			if _, err := r.Catalog.GetOrCreate(ctx, code, strings.TrimSpace(desc)); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

func lookupCatalog(ctx context.Context, r Repos, code string) (*entity.CatalogEntry, error) {
	if code == "" {
		return nil, domain.NewValidationError("code", "obligatorio")
	}
	ce, err := r.Catalog.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if ce == nil {
		return nil, fmt.Errorf("catálogo %s: %w", code, domain.ErrNotFound)
	}
	return ce, nil
}
