package ledger

import (
	"context"
	"fmt"

	"github.com/jhoicas/custodia-api/internal/domain"
	"github.com/jhoicas/custodia-api/internal/domain/custody"
)

// NextOutboundNumber reserva el siguiente registro de salida S{año}-NNNN en su propia transacción.
// year 0 usa el año en curso.
func (e *Engine) NextOutboundNumber(ctx context.Context, year int) (string, error) {
	if year == 0 {
		year = e.now().Year()
	}
	if year < 1000 || year > 9999 {
		return "", domain.NewValidationError("year", fmt.Sprintf("año fuera de rango: %d", year))
	}
	var number string
	err := e.run(ctx, "next_outbound_number", func(ctx context.Context, r Repos) error {
		n, err := allocateOutbound(ctx, r, year)
		number = n
		return err
	})
	if err != nil {
		return "", err
	}
	e.log.Info().Int("year", year).Str("number", number).Msg("registro de salida reservado")
	return number, nil
}

// allocateOutbound avanza el contador anual en la transacción del llamador.
// El suelo es el mayor número ya usado por albaranes del año, por si se registraron a mano.
func allocateOutbound(ctx context.Context, r Repos, year int) (string, error) {
	existing, err := r.Documents.ListOutboundNumbers(ctx, year)
	if err != nil {
		return "", err
	}
	floor := custody.HighestOutbound(year, existing)
	n, err := r.Sequences.NextOutbound(ctx, year, floor)
	if err != nil {
		return "", err
	}
	return custody.FormatOutboundNumber(year, n)
}
