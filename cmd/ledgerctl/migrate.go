package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jhoicas/custodia-api/internal/infrastructure/postgres"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Aplica, revierte o lista las migraciones del esquema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}
			cfg, log, err := loadEnv()
			if err != nil {
				return err
			}
			m, err := postgres.NewMigrator(cfg.DB.ConnectionString(), log.Component("migrate"))
			if err != nil {
				return err
			}
			defer m.Close()

			ctx := cmd.Context()
			switch action {
			case "up":
				return m.Up(ctx)
			case "down":
				return m.Down(ctx)
			case "status":
				states, err := m.Status(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "VERSIÓN\tARCHIVO\tAPLICADA")
				for _, s := range states {
					fmt.Fprintf(w, "%d\t%s\t%t\n", s.Version, s.Path, s.Applied)
				}
				return w.Flush()
			default:
				return fmt.Errorf("acción desconocida %q (up|down|status)", action)
			}
		},
	}
}
