// Package ledger implementa el motor del libro de custodia: registra albaranes y
// sus movimientos, mantiene la proyección de inventario y la deshace al borrar.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/custodia-api/internal/domain"
	"github.com/jhoicas/custodia-api/internal/domain/custody"
	"github.com/jhoicas/custodia-api/internal/domain/entity"
)

// DefaultConflictRetries reintentos ante domain.ErrConcurrencyConflict.
const DefaultConflictRetries = 3

// Engine coordina catálogo, albaranes, movimientos e instantáneas en una transacción por llamada.
type Engine struct {
	tx      TxRunner
	log     zerolog.Logger
	now     func() time.Time
	retries int
}

// Option configura el Engine.
type Option func(*Engine)

// WithClock sustituye el reloj (tests).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithConflictRetries fija cuántas veces se reintenta una operación en conflicto.
func WithConflictRetries(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.retries = n
		}
	}
}

// NewEngine construye el motor.
func NewEngine(tx TxRunner, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		tx:      tx,
		log:     log.With().Str("component", "ledger").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
		retries: DefaultConflictRetries,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// LineItem una línea del albarán: un equipo (código de catálogo + número de serie).
type LineItem struct {
	CatalogCode  string
	SerialNumber string
	Quantity     decimal.Decimal // 0 equivale a 1
	Description  string          // solo para auto-crear la entrada de catálogo
	Location     string          // si vacío, destino del albarán
	Notes        string
}

// CreateDocumentInput cabecera y líneas de un albarán nuevo.
// PrincipalID indica que es una página de continuación.
type CreateDocumentInput struct {
	Number      string
	Type        entity.DocumentType
	Direction   entity.TransferDirection
	Date        time.Time
	PrincipalID string
	Origin      string
	Destination string
	Notes       string
	Metadata    json.RawMessage
	CreatedBy   string
	Items       []LineItem
}

// Result resultado de registrar líneas: movimientos creados y duplicados omitidos.
type Result struct {
	Document   *entity.Document
	Movements  []*entity.Movement
	Duplicates []*domain.DuplicateMovementError
}

// MovementCorrection campos corregibles de un movimiento. nil = sin cambio.
type MovementCorrection struct {
	Quantity *decimal.Decimal
	Notes    *string
}

// run ejecuta fn en una transacción y la repite si falla por conflicto de concurrencia.
func (e *Engine) run(ctx context.Context, op string, fn func(ctx context.Context, r Repos) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = e.tx.Run(ctx, fn)
		if err == nil || !errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}
		if attempt >= e.retries || ctx.Err() != nil {
			break
		}
		e.log.Warn().Err(err).Str("op", op).Int("attempt", attempt+1).Msg("conflicto de concurrencia, reintentando")
	}
	return err
}

// CreateDocument registra un albarán con sus líneas en una única transacción.
// Los errores de validación no persisten nada; los duplicados se informan por línea.
func (e *Engine) CreateDocument(ctx context.Context, in CreateDocumentInput) (*Result, error) {
	v := &domain.ValidationError{}
	var dir entity.TransferDirection
	if in.PrincipalID == "" || in.Type != "" {
		if in.Type == "" {
			v.Add("type", "obligatorio")
		} else if _, d, err := custody.Classify(in.Type, in.Direction); err != nil {
			v.Add("type", err.Error())
		} else {
			dir = d
		}
	}
	number := strings.TrimSpace(in.Number)
	if in.PrincipalID == "" && number != "" && custody.IsContinuationNumber(number) {
		v.Add("number", "el sufijo -P{n} está reservado para páginas de continuación")
	}
	items := normalizeItems(in.Items, v)
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	var res *Result
	err := e.run(ctx, "create_document", func(ctx context.Context, r Repos) error {
		now := e.now()
		doc := &entity.Document{
			ID:          uuid.New().String(),
			Number:      number,
			Type:        in.Type,
			Direction:   dir,
			Date:        in.Date,
			PageNumber:  1,
			TotalPages:  1,
			Origin:      strings.TrimSpace(in.Origin),
			Destination: strings.TrimSpace(in.Destination),
			Notes:       in.Notes,
			Metadata:    in.Metadata,
			CreatedBy:   in.CreatedBy,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if doc.Date.IsZero() {
			doc.Date = now
		}

		// 1. Numeración: continuación, registro de salida o número del usuario
		var groupSize int
		if in.PrincipalID != "" {
			n, err := e.linkContinuation(ctx, r, doc, in)
			if err != nil {
				return err
			}
			groupSize = n
		} else if err := e.assignNumber(ctx, r, doc); err != nil {
			return err
		}

		// 2. Albarán y recálculo de páginas del grupo
		if err := r.Documents.Create(ctx, doc); err != nil {
			return err
		}
		if !doc.IsPrincipal() {
			if err := r.Documents.SetTotalPages(ctx, doc.PrincipalID, groupSize+1); err != nil {
				return err
			}
			doc.TotalPages = groupSize + 1
		}

		// 3. Movimientos e instantáneas
		out, err := e.applyItems(ctx, r, doc, items, now)
		if err != nil {
			return err
		}
		res = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info().
		Str("document_id", res.Document.ID).
		Str("number", res.Document.Number).
		Str("type", string(res.Document.Type)).
		Str("direction", string(res.Document.Direction)).
		Int("movements", len(res.Movements)).
		Int("duplicates", len(res.Duplicates)).
		Msg("albarán registrado")
	return res, nil
}

// AppendLineItems añade líneas a un albarán existente con su mismo tipo y sentido.
func (e *Engine) AppendLineItems(ctx context.Context, documentID string, lines []LineItem) (*Result, error) {
	v := &domain.ValidationError{}
	if len(lines) == 0 {
		v.Add("items", "al menos una línea")
	}
	items := normalizeItems(lines, v)
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	var res *Result
	err := e.run(ctx, "append_items", func(ctx context.Context, r Repos) error {
		doc, err := lockGroupMember(ctx, r, documentID)
		if err != nil {
			return err
		}
		out, err := e.applyItems(ctx, r, doc, items, e.now())
		if err != nil {
			return err
		}
		res = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info().
		Str("document_id", documentID).
		Int("movements", len(res.Movements)).
		Int("duplicates", len(res.Duplicates)).
		Msg("líneas añadidas al albarán")
	return res, nil
}

// UpdateMovement corrige cantidad o notas de un movimiento. Los estados no cambian.
func (e *Engine) UpdateMovement(ctx context.Context, movementID string, c MovementCorrection) (*entity.Movement, error) {
	v := &domain.ValidationError{}
	if c.Quantity == nil && c.Notes == nil {
		v.Add("movement", "nada que corregir")
	}
	if c.Quantity != nil && !c.Quantity.IsPositive() {
		v.Add("quantity", "debe ser mayor que cero")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	var out *entity.Movement
	err := e.run(ctx, "update_movement", func(ctx context.Context, r Repos) error {
		m, err := r.Movements.GetByID(ctx, movementID)
		if err != nil {
			return err
		}
		if m == nil {
			return fmt.Errorf("movimiento %s: %w", movementID, domain.ErrNotFound)
		}
		if c.Quantity != nil {
			m.Quantity = *c.Quantity
		}
		if c.Notes != nil {
			m.Notes = *c.Notes
		}
		if err := r.Movements.UpdateCorrection(ctx, m.ID, m.Quantity, m.Notes); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeItems valida y normaliza las líneas; acumula errores en v.
func normalizeItems(lines []LineItem, v *domain.ValidationError) []LineItem {
	out := make([]LineItem, 0, len(lines))
	for i, it := range lines {
		it.CatalogCode = custody.NormalizeCode(it.CatalogCode)
		it.SerialNumber = custody.NormalizeSerial(it.SerialNumber)
		it.Location = strings.TrimSpace(it.Location)
		if it.CatalogCode == "" {
			v.Add(fmt.Sprintf("items[%d].catalog_code", i), "obligatorio")
		}
		if it.Quantity.IsNegative() {
			v.Add(fmt.Sprintf("items[%d].quantity", i), "no puede ser negativa")
		}
		if it.Quantity.IsZero() {
			it.Quantity = decimal.NewFromInt(1)
		}
		out = append(out, it)
	}
	return out
}

// assignNumber valida el número de un principal o reserva un registro de salida.
func (e *Engine) assignNumber(ctx context.Context, r Repos, doc *entity.Document) error {
	if doc.Number == "" {
		if !doc.IsOutboundTransfer() {
			return domain.NewValidationError("number", "obligatorio salvo en traslados de salida")
		}
		n, err := allocateOutbound(ctx, r, doc.Date.Year())
		if err != nil {
			return err
		}
		doc.Number = n
		return nil
	}
	exists, err := r.Documents.ExistsNumber(ctx, doc.Number)
	if err != nil {
		return err
	}
	if exists {
		return domain.NewValidationError("number", "ya existe un albarán con ese número")
	}
	return nil
}

// linkContinuation enlaza doc al principal y le asigna página y número.
// Devuelve el tamaño del grupo antes de añadir doc.
func (e *Engine) linkContinuation(ctx context.Context, r Repos, doc *entity.Document, in CreateDocumentInput) (int, error) {
	ref, err := r.Documents.GetByID(ctx, in.PrincipalID)
	if err != nil {
		return 0, err
	}
	if ref == nil {
		return 0, fmt.Errorf("albarán principal %s: %w", in.PrincipalID, domain.ErrNotFound)
	}
	principal, err := r.Documents.GetForUpdate(ctx, ref.GroupID())
	if err != nil {
		return 0, err
	}
	if principal == nil {
		return 0, fmt.Errorf("albarán principal %s: %w", in.PrincipalID, domain.ErrNotFound)
	}

	v := &domain.ValidationError{}
	if in.Type != "" && in.Type != principal.Type {
		v.Add("type", "una continuación debe tener el tipo del principal")
	}
	if in.Type != "" && doc.Direction != principal.Direction {
		v.Add("transfer_direction", "una continuación debe tener el sentido del principal")
	}
	if err := v.OrNil(); err != nil {
		return 0, err
	}

	group, err := r.Documents.ListGroup(ctx, principal.ID)
	if err != nil {
		return 0, err
	}
	maxPage := 0
	for _, g := range group {
		if g.PageNumber > maxPage {
			maxPage = g.PageNumber
		}
	}

	doc.Type = principal.Type
	doc.Direction = principal.Direction
	doc.PrincipalID = principal.ID
	doc.PageNumber = maxPage + 1
	doc.Number = custody.ContinuationNumber(principal.Number, doc.PageNumber)
	if in.Date.IsZero() {
		doc.Date = principal.Date
	}
	if doc.Origin == "" {
		doc.Origin = principal.Origin
	}
	if doc.Destination == "" {
		doc.Destination = principal.Destination
	}

	exists, err := r.Documents.ExistsNumber(ctx, doc.Number)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, fmt.Errorf("número de continuación %s ocupado: %w", doc.Number, domain.ErrConcurrencyConflict)
	}
	return len(group), nil
}

// lockGroupMember bloquea el principal del grupo y después el albarán pedido,
// el mismo orden que sigue DeleteDocument. Tras el bloqueo se vuelve a leer:
// si la página se borró mientras se esperaba, es NotFound.
func lockGroupMember(ctx context.Context, r Repos, documentID string) (*entity.Document, error) {
	doc, err := r.Documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("albarán %s: %w", documentID, domain.ErrNotFound)
	}
	principal, err := r.Documents.GetForUpdate(ctx, doc.GroupID())
	if err != nil {
		return nil, err
	}
	if principal == nil {
		return nil, fmt.Errorf("albarán principal %s: %w", doc.GroupID(), domain.ErrNotFound)
	}
	if doc.IsPrincipal() {
		return principal, nil
	}
	doc, err = r.Documents.GetForUpdate(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("albarán %s: %w", documentID, domain.ErrNotFound)
	}
	return doc, nil
}

// applyItems crea un movimiento por línea y actualiza la instantánea de cada equipo.
func (e *Engine) applyItems(ctx context.Context, r Repos, doc *entity.Document, items []LineItem, now time.Time) (*Result, error) {
	kind, _, err := custody.Classify(doc.Type, doc.Direction)
	if err != nil {
		return nil, fmt.Errorf("albarán %s: %w", doc.ID, err)
	}
	rule := custody.RuleFor(kind, doc.Direction)
	res := &Result{Document: doc, Movements: []*entity.Movement{}}

	// 1. Resolver o auto-crear entradas de catálogo
	entries := make([]*entity.CatalogEntry, len(items))
	seen := make(map[entity.PairKey]struct{}, len(items))
	pairs := make([]entity.PairKey, 0, len(items))
	for i, it := range items {
		ce, err := r.Catalog.GetOrCreate(ctx, it.CatalogCode, it.Description)
		if err != nil {
			return nil, err
		}
		entries[i] = ce
		k := entity.PairKey{CatalogEntryID: ce.ID, SerialNumber: it.SerialNumber}
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			pairs = append(pairs, k)
		}
	}

	// 2. Bloquear equipos siempre en el mismo orden
	custody.SortPairs(pairs)
	for _, k := range pairs {
		if err := r.Snapshots.LockPair(ctx, k); err != nil {
			return nil, err
		}
	}

	// 3. Movimiento + instantánea por línea
	for i, it := range items {
		ce := entries[i]
		pair := entity.PairKey{CatalogEntryID: ce.ID, SerialNumber: it.SerialNumber}
		current, err := r.Snapshots.Get(ctx, pair)
		if err != nil {
			return nil, err
		}
		location := it.Location
		if location == "" {
			location = doc.Destination
		}
		m := &entity.Movement{
			ID:             uuid.New().String(),
			CatalogEntryID: ce.ID,
			CatalogCode:    ce.Code,
			SerialNumber:   it.SerialNumber,
			DocumentID:     doc.ID,
			OccurredAt:     now,
			Type:           doc.Type,
			Direction:      doc.Direction,
			StateBefore:    rule.StateBefore(current),
			StateAfter:     rule.StateAfter,
			Quantity:       it.Quantity,
			Location:       location,
			Notes:          it.Notes,
		}
		if err := r.Movements.Create(ctx, m); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				res.Duplicates = append(res.Duplicates, &domain.DuplicateMovementError{
					CatalogCode:  ce.Code,
					SerialNumber: it.SerialNumber,
					DocumentID:   doc.ID,
				})
				continue
			}
			return nil, err
		}
		if err := r.Snapshots.Upsert(ctx, &entity.Snapshot{
			CatalogEntryID: ce.ID,
			CatalogCode:    ce.Code,
			SerialNumber:   it.SerialNumber,
			State:          m.StateAfter,
			Location:       location,
			LastMovementID: m.ID,
			LastUpdated:    now,
		}); err != nil {
			return nil, err
		}
		res.Movements = append(res.Movements, m)
	}
	return res, nil
}
