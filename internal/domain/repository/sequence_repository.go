package repository

import "context"

// SequenceRepository contador anual de registros de salida.
type SequenceRepository interface {
	// NextOutbound avanza el contador de year a max(actual, floor)+1 bajo bloqueo de fila y lo devuelve.
	NextOutbound(ctx context.Context, year, floor int) (int, error)
}
