// ledgerctl administra el libro de custodia desde la línea de comandos:
// migraciones, importación de catálogo, numeración de salidas y consultas de inventario.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhoicas/custodia-api/internal/application/ledger"
	"github.com/jhoicas/custodia-api/internal/bootstrap"
	"github.com/jhoicas/custodia-api/pkg/config"
	"github.com/jhoicas/custodia-api/pkg/logger"
)

var logLevel string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Administración del libro de custodia",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "nivel de log (por defecto LOG_LEVEL)")
	root.AddCommand(
		newMigrateCmd(),
		newSeedCatalogCmd(),
		newReserveNumberCmd(),
		newSnapshotCmd(),
		newHistoryCmd(),
		newHashPasswordCmd(),
	)
	return root
}

// loadEnv lee la configuración y crea el logger (consola, stderr).
func loadEnv() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("cargar configuración: %w", err)
	}
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	log := logger.New(logger.Config{Env: "development", Level: level, Out: os.Stderr})
	return cfg, log, nil
}

// withLedger abre el motor, ejecuta fn y libera los recursos.
func withLedger(ctx context.Context, fn func(e *ledger.Engine) error) error {
	cfg, log, err := loadEnv()
	if err != nil {
		return err
	}
	engine, closeStore, err := bootstrap.OpenLedger(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(engine)
}
