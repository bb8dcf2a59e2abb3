package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/custodia-api/internal/domain"
	"github.com/jhoicas/custodia-api/internal/domain/entity"
)

// DateLayout formato de fecha de albarán en la API.
const DateLayout = "2006-01-02"

// LineItemRequest una línea de material. quantity 0 u omitida equivale a 1.
type LineItemRequest struct {
	CatalogCode  string          `json:"catalog_code" validate:"required,max=100"`
	SerialNumber string          `json:"serial_number" validate:"max=100"`
	Quantity     decimal.Decimal `json:"quantity"`
	Description  string          `json:"description" validate:"max=500"`
	Location     string          `json:"location" validate:"max=200"`
	Notes        string          `json:"notes" validate:"max=1000"`
}

// CreateDocumentRequest alta de albarán. Con principal_id se crea una página de continuación.
type CreateDocumentRequest struct {
	Number      string            `json:"number" validate:"max=50"`
	Type        string            `json:"document_type" validate:"omitempty,oneof=INVENTORY TRANSFER DESTRUCTION HAND_DELIVERY OTHER"`
	Direction   string            `json:"transfer_direction" validate:"omitempty,oneof=INCOMING OUTGOING"`
	Date        string            `json:"date" validate:"omitempty,datetime=2006-01-02"`
	PrincipalID string            `json:"principal_document_id" validate:"omitempty,uuid"`
	Origin      string            `json:"origin" validate:"max=200"`
	Destination string            `json:"destination" validate:"max=200"`
	Notes       string            `json:"notes" validate:"max=2000"`
	Metadata    json.RawMessage   `json:"metadata"`
	Items       []LineItemRequest `json:"items" validate:"required,min=1,dive"`
}

// AppendItemsRequest líneas nuevas para un albarán existente.
type AppendItemsRequest struct {
	Items []LineItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateMovementRequest corrección posterior de un movimiento.
type UpdateMovementRequest struct {
	Quantity *decimal.Decimal `json:"quantity"`
	Notes    *string          `json:"notes" validate:"omitempty,max=1000"`
}

// AssignCatalogTypeRequest clasificación de una entrada de catálogo.
type AssignCatalogTypeRequest struct {
	Type string `json:"type" validate:"required,max=50"`
}

// DocumentListQuery filtros de GET /documents.
type DocumentListQuery struct {
	Type      string `query:"type" validate:"omitempty,oneof=INVENTORY TRANSFER DESTRUCTION HAND_DELIVERY OTHER"`
	Direction string `query:"direction" validate:"omitempty,oneof=INCOMING OUTGOING"`
	Number    string `query:"number" validate:"max=50"`
	From      string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To        string `query:"to" validate:"omitempty,datetime=2006-01-02"`
	Limit     int    `query:"limit" validate:"omitempty,min=1,max=500"`
	Offset    int    `query:"offset" validate:"omitempty,min=0"`
}

// SnapshotListQuery filtros de GET /inventory/snapshots.
type SnapshotListQuery struct {
	State    string `query:"state" validate:"omitempty,oneof=IN_CUSTODY OUT_OF_CUSTODY"`
	Code     string `query:"code" validate:"max=100"`
	Location string `query:"location" validate:"max=200"`
	Limit    int    `query:"limit" validate:"omitempty,min=1,max=500"`
	Offset   int    `query:"offset" validate:"omitempty,min=0"`
}

// PairQuery identifica un equipo.
type PairQuery struct {
	Code   string `query:"code" validate:"required,max=100"`
	Serial string `query:"serial" validate:"max=100"`
}

// DocumentResponse salida de un albarán.
type DocumentResponse struct {
	ID          string          `json:"id"`
	Number      string          `json:"number"`
	Type        string          `json:"document_type"`
	Direction   string          `json:"transfer_direction,omitempty"`
	Date        string          `json:"date"`
	PrincipalID string          `json:"principal_document_id,omitempty"`
	PageNumber  int             `json:"page_number"`
	TotalPages  int             `json:"total_pages"`
	Origin      string          `json:"origin,omitempty"`
	Destination string          `json:"destination,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedBy   string          `json:"created_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// MovementResponse salida de un movimiento.
type MovementResponse struct {
	ID           string          `json:"id"`
	CatalogCode  string          `json:"catalog_code"`
	SerialNumber string          `json:"serial_number"`
	DocumentID   string          `json:"document_id"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Type         string          `json:"movement_type"`
	Direction    string          `json:"transfer_direction,omitempty"`
	StateBefore  string          `json:"state_before"`
	StateAfter   string          `json:"state_after"`
	Quantity     decimal.Decimal `json:"quantity"`
	Location     string          `json:"location,omitempty"`
	Notes        string          `json:"notes,omitempty"`
}

// SnapshotResponse estado actual de un equipo.
type SnapshotResponse struct {
	CatalogCode    string    `json:"catalog_code"`
	SerialNumber   string    `json:"serial_number"`
	State          string    `json:"state"`
	Location       string    `json:"location,omitempty"`
	LastMovementID string    `json:"last_movement_id,omitempty"`
	LastUpdated    time.Time `json:"last_updated"`
}

// CatalogEntryResponse salida de una entrada de catálogo.
type CatalogEntryResponse struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LedgerResultResponse resultado de registrar líneas.
type LedgerResultResponse struct {
	Document   DocumentResponse                 `json:"document"`
	Movements  []MovementResponse               `json:"movements"`
	Duplicates []*domain.DuplicateMovementError `json:"duplicates"`
}

// DocumentDetailResponse albarán con movimientos y páginas del grupo.
type DocumentDetailResponse struct {
	Document  DocumentResponse   `json:"document"`
	Movements []MovementResponse `json:"movements"`
	Pages     []DocumentResponse `json:"pages"`
}

// ToDocumentResponse convierte la entidad.
func ToDocumentResponse(d *entity.Document) DocumentResponse {
	return DocumentResponse{
		ID:          d.ID,
		Number:      d.Number,
		Type:        string(d.Type),
		Direction:   string(d.Direction),
		Date:        d.Date.Format(DateLayout),
		PrincipalID: d.PrincipalID,
		PageNumber:  d.PageNumber,
		TotalPages:  d.TotalPages,
		Origin:      d.Origin,
		Destination: d.Destination,
		Notes:       d.Notes,
		Metadata:    d.Metadata,
		CreatedBy:   d.CreatedBy,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// ToDocumentResponses convierte una lista.
func ToDocumentResponses(list []*entity.Document) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(list))
	for _, d := range list {
		out = append(out, ToDocumentResponse(d))
	}
	return out
}

// ToMovementResponses convierte una lista.
func ToMovementResponses(list []*entity.Movement) []MovementResponse {
	out := make([]MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, ToMovementResponse(m))
	}
	return out
}

// ToMovementResponse convierte la entidad.
func ToMovementResponse(m *entity.Movement) MovementResponse {
	return MovementResponse{
		ID:           m.ID,
		CatalogCode:  m.CatalogCode,
		SerialNumber: m.SerialNumber,
		DocumentID:   m.DocumentID,
		OccurredAt:   m.OccurredAt,
		Type:         string(m.Type),
		Direction:    string(m.Direction),
		StateBefore:  string(m.StateBefore),
		StateAfter:   string(m.StateAfter),
		Quantity:     m.Quantity,
		Location:     m.Location,
		Notes:        m.Notes,
	}
}

// ToSnapshotResponse convierte la entidad.
func ToSnapshotResponse(s *entity.Snapshot) SnapshotResponse {
	return SnapshotResponse{
		CatalogCode:    s.CatalogCode,
		SerialNumber:   s.SerialNumber,
		State:          string(s.State),
		Location:       s.Location,
		LastMovementID: s.LastMovementID,
		LastUpdated:    s.LastUpdated,
	}
}

// ToCatalogEntryResponse convierte la entidad.
func ToCatalogEntryResponse(c *entity.CatalogEntry) CatalogEntryResponse {
	return CatalogEntryResponse{
		ID:          c.ID,
		Code:        c.Code,
		Description: c.Description,
		Type:        c.Type,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
