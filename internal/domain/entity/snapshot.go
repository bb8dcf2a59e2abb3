package entity

import "time"

// PairKey identifica un equipo: entrada de catálogo más número de serie.
type PairKey struct {
	CatalogEntryID string
	SerialNumber   string
}

// Less ordena claves de forma estable (orden de bloqueo).
func (k PairKey) Less(o PairKey) bool {
	if k.CatalogEntryID != o.CatalogEntryID {
		return k.CatalogEntryID < o.CatalogEntryID
	}
	return k.SerialNumber < o.SerialNumber
}

// Snapshot es la proyección materializada del estado actual de un equipo (inventario).
// LastMovementID es una referencia débil: puede quedar vacía si no sobrevive ningún movimiento.
type Snapshot struct {
	CatalogEntryID string
	CatalogCode    string // desnormalizado en lecturas
	SerialNumber   string
	State          CustodyState
	Location       string
	LastMovementID string
	LastUpdated    time.Time
}

// Pair devuelve la clave del equipo.
func (s *Snapshot) Pair() PairKey {
	return PairKey{CatalogEntryID: s.CatalogEntryID, SerialNumber: s.SerialNumber}
}
