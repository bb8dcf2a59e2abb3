package entity

import "time"

// CatalogEntry es la definición de producto (código → descripción, tipo).
// Se auto-crea sin tipo la primera vez que un movimiento la referencia.
type CatalogEntry struct {
	ID          string
	Code        string // único
	Description string
	Type        string // clasificación opcional; vacío = sin tipo
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Typed indica si ya se le asignó una clasificación.
func (c *CatalogEntry) Typed() bool { return c.Type != "" }
