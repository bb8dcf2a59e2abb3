package entity

import (
	"encoding/json"
	"time"
)

// DocumentType tipo de albarán (AC-21).
type DocumentType string

const (
	DocumentTypeInventory    DocumentType = "INVENTORY"
	DocumentTypeTransfer     DocumentType = "TRANSFER"
	DocumentTypeDestruction  DocumentType = "DESTRUCTION"
	DocumentTypeHandDelivery DocumentType = "HAND_DELIVERY"
	DocumentTypeOther        DocumentType = "OTHER"
)

// TransferDirection sentido del traslado. Vacío para INVENTORY.
type TransferDirection string

const (
	DirectionIncoming TransferDirection = "INCOMING"
	DirectionOutgoing TransferDirection = "OUTGOING"
)

// Document representa un albarán: una transacción de custodia.
// Un albarán de varias páginas es un principal (PrincipalID vacío) más páginas de continuación.
type Document struct {
	ID          string
	Number      string
	Type        DocumentType
	Direction   TransferDirection
	Date        time.Time
	PrincipalID string // vacío si este es el principal
	PageNumber  int
	TotalPages  int
	Origin      string
	Destination string
	Notes       string
	Metadata    json.RawMessage // partes, firmas, accesorios: opaco para el libro
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsPrincipal indica si el albarán ancla su grupo de páginas.
func (d *Document) IsPrincipal() bool { return d.PrincipalID == "" }

// GroupID devuelve el ID del principal del grupo al que pertenece.
func (d *Document) GroupID() string {
	if d.IsPrincipal() {
		return d.ID
	}
	return d.PrincipalID
}

// IsOutboundTransfer indica un traslado de salida (consume numeración S{año}-NNNN).
func (d *Document) IsOutboundTransfer() bool {
	return d.Type == DocumentTypeTransfer && d.Direction == DirectionOutgoing
}
