package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Movement es un evento inmutable: el equipo (CatalogEntryID, SerialNumber) pasó de
// StateBefore a StateAfter bajo el albarán DocumentID.
// Solo Quantity y Notes admiten corrección posterior.
type Movement struct {
	ID             string
	Seq            int64 // desempate de orden cuando coincide OccurredAt
	CatalogEntryID string
	CatalogCode    string // desnormalizado en lecturas
	SerialNumber   string // vacío = sin número de serie
	DocumentID     string
	OccurredAt     time.Time
	Type           DocumentType // tipo del albarán al crearse
	Direction      TransferDirection
	StateBefore    CustodyState
	StateAfter     CustodyState
	Quantity       decimal.Decimal
	Location       string
	Notes          string
}

// Pair devuelve la clave del equipo afectado.
func (m *Movement) Pair() PairKey {
	return PairKey{CatalogEntryID: m.CatalogEntryID, SerialNumber: m.SerialNumber}
}

// After reporta si m es cronológicamente posterior a o.
func (m *Movement) After(o *Movement) bool {
	if !m.OccurredAt.Equal(o.OccurredAt) {
		return m.OccurredAt.After(o.OccurredAt)
	}
	return m.Seq > o.Seq
}
