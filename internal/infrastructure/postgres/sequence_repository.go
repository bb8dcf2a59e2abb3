package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/custodia-api/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// SequenceRepo contador anual de registros de salida (tabla outbound_sequence).
type SequenceRepo struct {
	q Querier
}

// NewSequenceRepository construye el adaptador. Pasar tx: el bloqueo de fila dura hasta el commit.
func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

// NextOutbound avanza el contador del año a max(actual, floor)+1 y lo devuelve.
func (r *SequenceRepo) NextOutbound(ctx context.Context, year, floor int) (int, error) {
	query := `
		INSERT INTO outbound_sequence (year, last_value) VALUES ($1, $2::int + 1)
		ON CONFLICT (year)
		DO UPDATE SET last_value = GREATEST(outbound_sequence.last_value, $2::int) + 1
		RETURNING last_value`
	var n int
	if err := r.q.QueryRow(ctx, query, year, floor).Scan(&n); err != nil {
		return 0, mapError(err, "outbound_sequence", fmt.Sprint(year))
	}
	return n, nil
}
