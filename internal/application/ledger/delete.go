package ledger

import (
	"context"
	"fmt"

	"github.com/jhoicas/custodia-api/internal/domain"
	"github.com/jhoicas/custodia-api/internal/domain/custody"
	"github.com/jhoicas/custodia-api/internal/domain/entity"
)

// DeleteDocument elimina un albarán y deja la proyección como si nunca hubiera existido.
// Borrar un principal elimina el grupo completo; borrar una continuación recalcula total_pages.
func (e *Engine) DeleteDocument(ctx context.Context, documentID string) error {
	var deleted []*entity.Document
	err := e.run(ctx, "delete_document", func(ctx context.Context, r Repos) error {
		deleted = deleted[:0]
		doc, err := r.Documents.GetByID(ctx, documentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("albarán %s: %w", documentID, domain.ErrNotFound)
		}

		// El principal se bloquea primero en cualquier operación sobre el grupo.
		principal, err := r.Documents.GetForUpdate(ctx, doc.GroupID())
		if err != nil {
			return err
		}
		if principal == nil {
			return fmt.Errorf("albarán principal %s: %w", doc.GroupID(), domain.ErrNotFound)
		}

		if doc.IsPrincipal() {
			group, err := r.Documents.ListGroup(ctx, principal.ID)
			if err != nil {
				return err
			}
			// todas las páginas bloqueadas antes de leer movimientos
			pages := make([]*entity.Document, 0, len(group))
			for _, g := range group {
				if g.ID == principal.ID {
					continue
				}
				locked, err := r.Documents.GetForUpdate(ctx, g.ID)
				if err != nil {
					return err
				}
				if locked != nil {
					pages = append(pages, locked)
				}
			}
			// continuaciones primero, de la última página a la primera
			for i := len(pages) - 1; i >= 0; i-- {
				if err := e.deleteOne(ctx, r, pages[i]); err != nil {
					return err
				}
				deleted = append(deleted, pages[i])
			}
			if err := e.deleteOne(ctx, r, principal); err != nil {
				return err
			}
			deleted = append(deleted, principal)
			return nil
		}

		doc, err = r.Documents.GetForUpdate(ctx, documentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("albarán %s: %w", documentID, domain.ErrNotFound)
		}
		if err := e.deleteOne(ctx, r, doc); err != nil {
			return err
		}
		deleted = append(deleted, doc)
		group, err := r.Documents.ListGroup(ctx, principal.ID)
		if err != nil {
			return err
		}
		return r.Documents.SetTotalPages(ctx, principal.ID, len(group))
	})
	if err != nil {
		return err
	}
	for _, d := range deleted {
		e.log.Info().
			Str("document_id", d.ID).
			Str("number", d.Number).
			Str("type", string(d.Type)).
			Msg("albarán eliminado")
	}
	return nil
}

// deleteOne deshace el efecto de un único albarán sobre cada equipo que tocó y lo borra.
func (e *Engine) deleteOne(ctx context.Context, r Repos, doc *entity.Document) error {
	kind, _, err := custody.Classify(doc.Type, doc.Direction)
	if err != nil {
		return fmt.Errorf("albarán %s: %w", doc.ID, err)
	}
	rule := custody.RuleFor(kind, doc.Direction)

	movs, err := r.Movements.ListByDocument(ctx, doc.ID)
	if err != nil {
		return err
	}
	seen := make(map[entity.PairKey]struct{}, len(movs))
	pairs := make([]entity.PairKey, 0, len(movs))
	catalogIDs := make([]string, 0, len(movs))
	seenCatalog := make(map[string]struct{}, len(movs))
	for _, m := range movs {
		k := m.Pair()
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			pairs = append(pairs, k)
		}
		if _, ok := seenCatalog[m.CatalogEntryID]; !ok {
			seenCatalog[m.CatalogEntryID] = struct{}{}
			catalogIDs = append(catalogIDs, m.CatalogEntryID)
		}
	}
	custody.SortPairs(pairs)

	// 1. Recalcular cada equipo con el historial que sobrevive
	now := e.now()
	for _, k := range pairs {
		if err := r.Snapshots.LockPair(ctx, k); err != nil {
			return err
		}
		remaining, err := r.Movements.ListRemaining(ctx, k, doc.ID)
		if err != nil {
			return err
		}
		custody.LatestFirst(remaining)
		fallback := doc.Origin
		if fallback == "" {
			current, err := r.Snapshots.Get(ctx, k)
			if err != nil {
				return err
			}
			if current != nil {
				fallback = current.Location
			}
		}
		out := rule.ResolveAfterDelete(remaining, fallback)
		if out.Drop {
			if err := r.Snapshots.Delete(ctx, k); err != nil {
				return err
			}
		} else if err := r.Snapshots.Upsert(ctx, &entity.Snapshot{
			CatalogEntryID: k.CatalogEntryID,
			SerialNumber:   k.SerialNumber,
			State:          out.State,
			Location:       out.Location,
			LastMovementID: out.LastMovementID,
			LastUpdated:    now,
		}); err != nil {
			return err
		}
		e.log.Debug().
			Str("catalog_entry_id", k.CatalogEntryID).
			Str("serial", k.SerialNumber).
			Int("remaining", len(remaining)).
			Bool("dropped", out.Drop).
			Str("state", string(out.State)).
			Msg("instantánea recalculada")
	}

	// 2. Movimientos y albarán
	if _, err := r.Movements.DeleteByDocument(ctx, doc.ID); err != nil {
		return err
	}
	if err := r.Documents.Delete(ctx, doc.ID); err != nil {
		return err
	}

	// 3. Solo inventario: catálogo que queda sin movimientos ni instantáneas.
	// Una serie deshecha sin historial conserva su instantánea y con ella el código.
	if !rule.ReleasesCatalog {
		return nil
	}
	for _, id := range catalogIDs {
		n, err := r.Movements.CountByCatalogEntry(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		n, err = r.Snapshots.CountByCatalogEntry(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		if err := r.Catalog.Delete(ctx, id); err != nil {
			return err
		}
		e.log.Debug().Str("catalog_entry_id", id).Msg("entrada de catálogo huérfana eliminada")
	}
	return nil
}
