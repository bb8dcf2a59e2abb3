package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver "pgx" para database/sql (goose)
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/jhoicas/custodia-api/migrations"
)

// Migrator aplica el esquema embebido con goose.
type Migrator struct {
	db       *sql.DB
	provider *goose.Provider
	log      zerolog.Logger
}

// NewMigrator abre una conexión database/sql sobre dsn y prepara el proveedor goose.
func NewMigrator(dsn string, log zerolog.Logger) (*Migrator, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("goose new provider: %w", err)
	}
	return &Migrator{db: db, provider: provider, log: log}, nil
}

// Close libera la conexión.
func (m *Migrator) Close() error { return m.db.Close() }

// Up aplica todas las migraciones pendientes.
func (m *Migrator) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	for _, r := range results {
		m.log.Info().Int64("version", r.Source.Version).Dur("duration", r.Duration).Msg("migración aplicada")
	}
	return nil
}

// Down revierte la última migración.
func (m *Migrator) Down(ctx context.Context) error {
	r, err := m.provider.Down(ctx)
	if err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	if r != nil {
		m.log.Info().Int64("version", r.Source.Version).Msg("migración revertida")
	}
	return nil
}

// MigrationState estado de una migración.
type MigrationState struct {
	Version int64
	Path    string
	Applied bool
}

// Status lista las migraciones conocidas y si están aplicadas.
func (m *Migrator) Status(ctx context.Context) ([]MigrationState, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	out := make([]MigrationState, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, MigrationState{
			Version: s.Source.Version,
			Path:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return out, nil
}
