package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/custodia-api/internal/application/ledger"
)

func newReserveNumberCmd() *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "reserve-number",
		Short: "Reserva el siguiente registro de salida S{año}-NNNN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLedger(cmd.Context(), func(e *ledger.Engine) error {
				n, err := e.NextOutboundNumber(cmd.Context(), year)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "año (por defecto el actual)")
	return cmd
}

func newSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <código> [serie]",
		Short: "Muestra el estado actual de un equipo",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, serial := pairArgs(args)
			return withLedger(cmd.Context(), func(e *ledger.Engine) error {
				s, err := e.GetSnapshot(cmd.Context(), code, serial)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintf(w, "código\t%s\n", s.CatalogCode)
				fmt.Fprintf(w, "serie\t%s\n", s.SerialNumber)
				fmt.Fprintf(w, "estado\t%s\n", s.State)
				fmt.Fprintf(w, "ubicación\t%s\n", s.Location)
				fmt.Fprintf(w, "último movimiento\t%s\n", s.LastMovementID)
				fmt.Fprintf(w, "actualizado\t%s\n", s.LastUpdated.Format(time.RFC3339))
				return w.Flush()
			})
		},
	}
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <código> [serie]",
		Short: "Lista los movimientos de un equipo en orden cronológico",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, serial := pairArgs(args)
			return withLedger(cmd.Context(), func(e *ledger.Engine) error {
				movs, err := e.GetMovementHistory(cmd.Context(), code, serial)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "FECHA\tTIPO\tSENTIDO\tANTES\tDESPUÉS\tCANT.\tUBICACIÓN\tALBARÁN")
				for _, m := range movs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						m.OccurredAt.Format(time.RFC3339), m.Type, m.Direction,
						m.StateBefore, m.StateAfter, m.Quantity, m.Location, m.DocumentID)
				}
				return w.Flush()
			})
		},
	}
}

func pairArgs(args []string) (code, serial string) {
	code = args[0]
	if len(args) > 1 {
		serial = args[1]
	}
	return code, serial
}
