// Package migrations embebe el esquema SQL aplicado con goose.
package migrations

import "embed"

// FS contiene las migraciones goose del libro de custodia.
//
//go:embed *.sql
var FS embed.FS
