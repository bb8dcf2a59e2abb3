// Package bootstrap arma el motor del libro según la configuración (postgres o memoria).
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jhoicas/custodia-api/internal/application/ledger"
	"github.com/jhoicas/custodia-api/internal/infrastructure/memory"
	"github.com/jhoicas/custodia-api/internal/infrastructure/postgres"
	"github.com/jhoicas/custodia-api/pkg/config"
	"github.com/jhoicas/custodia-api/pkg/logger"
)

// OpenLedger construye el Engine y devuelve la función que libera sus recursos.
func OpenLedger(ctx context.Context, cfg *config.Config, log *logger.Logger) (*ledger.Engine, func(), error) {
	opts := []ledger.Option{ledger.WithConflictRetries(cfg.Ledger.ConflictRetries)}

	if cfg.Ledger.Store == "memory" {
		log.Warn().Msg("LEDGER_STORE=memory: los datos no sobreviven al reinicio")
		return ledger.NewEngine(memory.NewStore(), log.Zerolog(), opts...), func() {}, nil
	}

	if cfg.DB.AutoMigrate {
		if err := Migrate(ctx, cfg, log); err != nil {
			return nil, nil, err
		}
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	tx := postgres.NewTxRunner(pool, cfg.DB.LockTimeout)
	return ledger.NewEngine(tx, log.Zerolog(), opts...), pool.Close, nil
}

// Migrate aplica las migraciones pendientes.
func Migrate(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	m, err := postgres.NewMigrator(cfg.DB.ConnectionString(), log.Component("migrate"))
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up(ctx)
}
