package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/custodia-api/internal/domain"
	"github.com/jhoicas/custodia-api/internal/domain/custody"
	"github.com/jhoicas/custodia-api/internal/domain/entity"
	"github.com/jhoicas/custodia-api/internal/domain/repository"
)

var (
	_ repository.CatalogRepository  = (*catalogRepo)(nil)
	_ repository.DocumentRepository = (*documentRepo)(nil)
	_ repository.MovementRepository = (*movementRepo)(nil)
	_ repository.SnapshotRepository = (*snapshotRepo)(nil)
	_ repository.SequenceRepository = (*sequenceRepo)(nil)
)

// --- catálogo ---

type catalogRepo struct{ st *state }

func (r *catalogRepo) GetByID(_ context.Context, id string) (*entity.CatalogEntry, error) {
	ce, ok := r.st.catalog[id]
	if !ok {
		return nil, nil
	}
	return &ce, nil
}

func (r *catalogRepo) GetByCode(ctx context.Context, code string) (*entity.CatalogEntry, error) {
	id, ok := r.st.codes[code]
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *catalogRepo) GetOrCreate(ctx context.Context, code, description string) (*entity.CatalogEntry, error) {
	if ce, _ := r.GetByCode(ctx, code); ce != nil {
		return ce, nil
	}
	t := now()
	ce := entity.CatalogEntry{ID: newID(), Code: code, Description: description, CreatedAt: t, UpdatedAt: t}
	r.st.catalog[ce.ID] = ce
	r.st.codes[code] = ce.ID
	return &ce, nil
}

func (r *catalogRepo) UpdateType(_ context.Context, id, typ string) error {
	ce, ok := r.st.catalog[id]
	if !ok {
		return fmt.Errorf("catálogo %s: %w", id, domain.ErrNotFound)
	}
	ce.Type = typ
	ce.UpdatedAt = now()
	r.st.catalog[id] = ce
	return nil
}

// Delete respeta las restricciones de movimientos e instantáneas.
func (r *catalogRepo) Delete(_ context.Context, id string) error {
	ce, ok := r.st.catalog[id]
	if !ok {
		return nil
	}
	for _, m := range r.st.movements {
		if m.CatalogEntryID == id {
			return fmt.Errorf("catálogo %s referenciado por movimientos: %w", ce.Code, domain.ErrInvalidInput)
		}
	}
	for k := range r.st.snapshots {
		if k.CatalogEntryID == id {
			return fmt.Errorf("catálogo %s referenciado por instantáneas: %w", ce.Code, domain.ErrInvalidInput)
		}
	}
	delete(r.st.codes, ce.Code)
	delete(r.st.catalog, id)
	return nil
}

func (r *catalogRepo) List(_ context.Context, limit, offset int) ([]*entity.CatalogEntry, error) {
	out := make([]*entity.CatalogEntry, 0, len(r.st.catalog))
	for _, ce := range r.st.catalog {
		out = append(out, &ce)
	}
	sortedByCode(out)
	return page(out, limit, offset), nil
}

// --- albaranes ---

type documentRepo struct{ st *state }

func (r *documentRepo) Create(_ context.Context, doc *entity.Document) error {
	for _, d := range r.st.documents {
		if d.Number == doc.Number {
			return fmt.Errorf("albarán %s: %w", doc.Number, domain.ErrDuplicate)
		}
	}
	if doc.PrincipalID != "" {
		if _, ok := r.st.documents[doc.PrincipalID]; !ok {
			return fmt.Errorf("albarán principal %s: %w", doc.PrincipalID, domain.ErrNotFound)
		}
	}
	d := *doc
	d.Metadata = cloneRaw(doc.Metadata)
	r.st.documents[doc.ID] = d
	return nil
}

func (r *documentRepo) GetByID(_ context.Context, id string) (*entity.Document, error) {
	d, ok := r.st.documents[id]
	if !ok {
		return nil, nil
	}
	d.Metadata = cloneRaw(d.Metadata)
	return &d, nil
}

// GetForUpdate no necesita bloqueo: la transacción ya es exclusiva.
func (r *documentRepo) GetForUpdate(ctx context.Context, id string) (*entity.Document, error) {
	return r.GetByID(ctx, id)
}

func (r *documentRepo) ExistsNumber(_ context.Context, number string) (bool, error) {
	for _, d := range r.st.documents {
		if d.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (r *documentRepo) ListGroup(_ context.Context, principalID string) ([]*entity.Document, error) {
	var out []*entity.Document
	for _, d := range r.st.documents {
		if d.ID == principalID || d.PrincipalID == principalID {
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PageNumber < out[j].PageNumber })
	return out, nil
}

func (r *documentRepo) SetTotalPages(_ context.Context, principalID string, total int) error {
	t := now()
	for id, d := range r.st.documents {
		if d.ID == principalID || d.PrincipalID == principalID {
			d.TotalPages = total
			d.UpdatedAt = t
			r.st.documents[id] = d
		}
	}
	return nil
}

func (r *documentRepo) ListOutboundNumbers(_ context.Context, year int) ([]string, error) {
	prefix := fmt.Sprintf("S%04d-", year)
	var out []string
	for _, d := range r.st.documents {
		if hasPrefixFold(d.Number, prefix) {
			out = append(out, d.Number)
		}
	}
	return out, nil
}

func (r *documentRepo) List(_ context.Context, f repository.DocumentFilter) ([]*entity.Document, error) {
	out := make([]*entity.Document, 0)
	for _, d := range r.st.documents {
		if f.Type != "" && d.Type != f.Type {
			continue
		}
		if f.Direction != "" && d.Direction != f.Direction {
			continue
		}
		if f.NumberPrefix != "" && !hasPrefixFold(d.Number, f.NumberPrefix) {
			continue
		}
		if f.From != nil && d.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && d.Date.After(*f.To) {
			continue
		}
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Number < out[j].Number
	})
	return page(out, f.Limit, f.Offset), nil
}

func (r *documentRepo) Delete(_ context.Context, id string) error {
	for _, d := range r.st.documents {
		if d.PrincipalID == id {
			return fmt.Errorf("albarán %s tiene continuaciones: %w", id, domain.ErrInvalidInput)
		}
	}
	for mid, m := range r.st.movements {
		if m.DocumentID == id {
			delete(r.st.movements, mid)
		}
	}
	delete(r.st.documents, id)
	return nil
}

// --- movimientos ---

type movementRepo struct{ st *state }

func (r *movementRepo) Create(_ context.Context, m *entity.Movement) error {
	for _, o := range r.st.movements {
		if o.CatalogEntryID == m.CatalogEntryID && o.SerialNumber == m.SerialNumber && o.DocumentID == m.DocumentID {
			return domain.ErrDuplicate
		}
	}
	if _, ok := r.st.catalog[m.CatalogEntryID]; !ok {
		return fmt.Errorf("catálogo %s: %w", m.CatalogEntryID, domain.ErrNotFound)
	}
	if _, ok := r.st.documents[m.DocumentID]; !ok {
		return fmt.Errorf("albarán %s: %w", m.DocumentID, domain.ErrNotFound)
	}
	r.st.seq++
	m.Seq = r.st.seq
	r.st.movements[m.ID] = *m
	return nil
}

func (r *movementRepo) withCode(m entity.Movement) *entity.Movement {
	if ce, ok := r.st.catalog[m.CatalogEntryID]; ok {
		m.CatalogCode = ce.Code
	}
	return &m
}

func (r *movementRepo) GetByID(_ context.Context, id string) (*entity.Movement, error) {
	m, ok := r.st.movements[id]
	if !ok {
		return nil, nil
	}
	return r.withCode(m), nil
}

func (r *movementRepo) UpdateCorrection(_ context.Context, id string, quantity decimal.Decimal, notes string) error {
	m, ok := r.st.movements[id]
	if !ok {
		return fmt.Errorf("movimiento %s: %w", id, domain.ErrNotFound)
	}
	m.Quantity = quantity
	m.Notes = notes
	r.st.movements[id] = m
	return nil
}

func (r *movementRepo) ListByDocument(_ context.Context, documentID string) ([]*entity.Movement, error) {
	out := make([]*entity.Movement, 0)
	for _, m := range r.st.movements {
		if m.DocumentID == documentID {
			out = append(out, r.withCode(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (r *movementRepo) ListByPair(_ context.Context, pair entity.PairKey) ([]*entity.Movement, error) {
	out := make([]*entity.Movement, 0)
	for _, m := range r.st.movements {
		if m.Pair() == pair {
			out = append(out, r.withCode(m))
		}
	}
	custody.Chronological(out)
	return out, nil
}

func (r *movementRepo) ListRemaining(_ context.Context, pair entity.PairKey, excludeDocumentID string) ([]*entity.Movement, error) {
	out := make([]*entity.Movement, 0)
	for _, m := range r.st.movements {
		if m.Pair() == pair && m.DocumentID != excludeDocumentID {
			out = append(out, r.withCode(m))
		}
	}
	custody.LatestFirst(out)
	return out, nil
}

func (r *movementRepo) DeleteByDocument(_ context.Context, documentID string) (int64, error) {
	var n int64
	for id, m := range r.st.movements {
		if m.DocumentID == documentID {
			delete(r.st.movements, id)
			n++
		}
	}
	// referencia débil: la instantánea pierde el enlace
	for k, s := range r.st.snapshots {
		if _, ok := r.st.movements[s.LastMovementID]; s.LastMovementID != "" && !ok {
			s.LastMovementID = ""
			r.st.snapshots[k] = s
		}
	}
	return n, nil
}

func (r *movementRepo) CountByCatalogEntry(_ context.Context, catalogEntryID string) (int, error) {
	n := 0
	for _, m := range r.st.movements {
		if m.CatalogEntryID == catalogEntryID {
			n++
		}
	}
	return n, nil
}

// --- instantáneas ---

type snapshotRepo struct{ st *state }

// LockPair no hace nada: Store.Run ya serializa las transacciones.
func (r *snapshotRepo) LockPair(context.Context, entity.PairKey) error { return nil }

func (r *snapshotRepo) withCode(s entity.Snapshot) *entity.Snapshot {
	if ce, ok := r.st.catalog[s.CatalogEntryID]; ok {
		s.CatalogCode = ce.Code
	}
	return &s
}

func (r *snapshotRepo) Get(_ context.Context, pair entity.PairKey) (*entity.Snapshot, error) {
	s, ok := r.st.snapshots[pair]
	if !ok {
		return nil, nil
	}
	return r.withCode(s), nil
}

func (r *snapshotRepo) Upsert(_ context.Context, s *entity.Snapshot) error {
	if _, ok := r.st.catalog[s.CatalogEntryID]; !ok {
		return fmt.Errorf("catálogo %s: %w", s.CatalogEntryID, domain.ErrNotFound)
	}
	r.st.snapshots[s.Pair()] = *s
	return nil
}

func (r *snapshotRepo) CountByCatalogEntry(_ context.Context, catalogEntryID string) (int, error) {
	n := 0
	for k := range r.st.snapshots {
		if k.CatalogEntryID == catalogEntryID {
			n++
		}
	}
	return n, nil
}

func (r *snapshotRepo) Delete(_ context.Context, pair entity.PairKey) error {
	delete(r.st.snapshots, pair)
	return nil
}

func (r *snapshotRepo) List(_ context.Context, f repository.SnapshotFilter) ([]*entity.Snapshot, error) {
	out := make([]*entity.Snapshot, 0)
	for _, s := range r.st.snapshots {
		sc := r.withCode(s)
		if f.State != "" && sc.State != f.State {
			continue
		}
		if f.CatalogCode != "" && sc.CatalogCode != f.CatalogCode {
			continue
		}
		if f.Location != "" && sc.Location != f.Location {
			continue
		}
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CatalogCode != out[j].CatalogCode {
			return out[i].CatalogCode < out[j].CatalogCode
		}
		return out[i].SerialNumber < out[j].SerialNumber
	})
	return page(out, f.Limit, f.Offset), nil
}

// --- numeración ---

type sequenceRepo struct{ st *state }

func (r *sequenceRepo) NextOutbound(_ context.Context, year, floor int) (int, error) {
	last := r.st.sequences[year]
	if floor > last {
		last = floor
	}
	last++
	r.st.sequences[year] = last
	return last, nil
}
