package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/custodia-api/internal/application/ledger"
)

func newSeedCatalogCmd() *cobra.Command {
	var (
		latin1 bool
		sep    string
	)
	cmd := &cobra.Command{
		Use:   "seed-catalog <archivo.csv>",
		Short: "Importa el catálogo (código;descripción) desde el export del sistema anterior",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("abrir CSV: %w", err)
			}
			defer f.Close()

			entries, err := parseCatalogCSV(f, latin1, sep)
			if err != nil {
				return err
			}
			return withLedger(cmd.Context(), func(e *ledger.Engine) error {
				n, err := e.ImportCatalog(cmd.Context(), entries)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d entradas leídas, %d nuevas\n", len(entries), n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&latin1, "latin1", false, "el archivo está en ISO-8859-1")
	cmd.Flags().StringVar(&sep, "sep", ";", "separador de columnas")
	return cmd
}

// parseCatalogCSV lee pares código/descripción. Omite la cabecera si la hay y las filas sin código.
// Un código repetido conserva la primera descripción no vacía.
func parseCatalogCSV(r io.Reader, latin1 bool, sep string) (map[string]string, error) {
	if latin1 {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	if len([]rune(sep)) != 1 {
		return nil, fmt.Errorf("separador inválido %q", sep)
	}
	cr := csv.NewReader(r)
	cr.Comma = []rune(sep)[0]
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	out := make(map[string]string)
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("CSV línea %d: %w", line, err)
		}
		code := strings.TrimSpace(rec[0])
		if line == 1 && isHeader(code) {
			continue
		}
		if code == "" {
			continue
		}
		desc := ""
		if len(rec) > 1 {
			desc = strings.TrimSpace(rec[1])
		}
		if prev, ok := out[code]; ok && prev != "" {
			continue
		}
		out[code] = desc
	}
	return out, nil
}

func isHeader(cell string) bool {
	switch strings.ToLower(cell) {
	case "code", "codigo", "código":
		return true
	}
	return false
}
