// Package custody contiene las reglas puras del libro de custodia: cómo cada tipo
// de albarán transforma el estado de un equipo y cómo se recalcula la proyección
// cuando se elimina un albarán.
package custody

import (
	"fmt"
	"sort"

	"github.com/jhoicas/custodia-api/internal/domain/entity"
)

// Kind es la variante de albarán según su efecto sobre la custodia.
// HAND_DELIVERY se comporta como un traslado.
type Kind int

const (
	KindInventory Kind = iota + 1
	KindTransferIn
	KindTransferOut
	KindDestruction
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindInventory:
		return "inventory"
	case KindTransferIn:
		return "transfer_in"
	case KindTransferOut:
		return "transfer_out"
	case KindDestruction:
		return "destruction"
	case KindOther:
		return "other"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// DefaultDirection devuelve el sentido que se asume cuando el albarán no lo indica.
func DefaultDirection(t entity.DocumentType) entity.TransferDirection {
	switch t {
	case entity.DocumentTypeTransfer, entity.DocumentTypeHandDelivery, entity.DocumentTypeOther:
		return entity.DirectionIncoming
	case entity.DocumentTypeDestruction:
		return entity.DirectionOutgoing
	}
	return ""
}

// Classify resuelve la variante y el sentido efectivo de un albarán.
// Para INVENTORY el sentido se ignora y se devuelve vacío.
func Classify(t entity.DocumentType, dir entity.TransferDirection) (Kind, entity.TransferDirection, error) {
	if t == entity.DocumentTypeInventory {
		return KindInventory, "", nil
	}
	if dir == "" {
		dir = DefaultDirection(t)
	}
	if dir != entity.DirectionIncoming && dir != entity.DirectionOutgoing {
		return 0, "", fmt.Errorf("sentido de traslado desconocido %q", dir)
	}
	switch t {
	case entity.DocumentTypeTransfer, entity.DocumentTypeHandDelivery:
		if dir == entity.DirectionOutgoing {
			return KindTransferOut, dir, nil
		}
		return KindTransferIn, dir, nil
	case entity.DocumentTypeDestruction:
		return KindDestruction, dir, nil
	case entity.DocumentTypeOther:
		return KindOther, dir, nil
	}
	return 0, "", fmt.Errorf("tipo de albarán desconocido %q", t)
}

// Rule describe el efecto de una variante sobre un equipo.
type Rule struct {
	// StateAfter estado que produce cada línea del albarán.
	StateAfter entity.CustodyState
	// FixedStateBefore fuerza StateBefore (inventario = primer avistamiento).
	FixedStateBefore entity.CustodyState
	// DropWhenNoHistory elimina la instantánea si no queda historial al borrar.
	DropWhenNoHistory bool
	// ResetState estado que queda al borrar sin historial restante (si no se elimina).
	ResetState entity.CustodyState
	// ReleasesCatalog permite borrar entradas de catálogo huérfanas al eliminar.
	ReleasesCatalog bool
}

// RuleFor devuelve la regla de la variante. dir solo se consulta para
// destrucción y otros, donde el sentido decide el resultado.
func RuleFor(k Kind, dir entity.TransferDirection) Rule {
	switch k {
	case KindInventory:
		return Rule{
			StateAfter:        entity.StateInCustody,
			FixedStateBefore:  entity.StateOutOfCustody,
			DropWhenNoHistory: true,
			ReleasesCatalog:   true,
		}
	case KindTransferIn:
		return incoming()
	case KindTransferOut:
		return outgoing()
	case KindDestruction, KindOther:
		if dir == entity.DirectionOutgoing {
			return outgoing()
		}
		return incoming()
	}
	panic(fmt.Sprintf("custody: variante sin regla: %v", k))
}

func incoming() Rule {
	return Rule{StateAfter: entity.StateInCustody, ResetState: entity.StateOutOfCustody}
}

// Una salida deshecha sin historial previo vuelve a custodia: el envío nunca salió.
func outgoing() Rule {
	return Rule{StateAfter: entity.StateOutOfCustody, ResetState: entity.StateInCustody}
}

// StateBefore calcula el estado previo de una línea a partir de la instantánea actual (puede ser nil).
func (r Rule) StateBefore(current *entity.Snapshot) entity.CustodyState {
	if r.FixedStateBefore != "" {
		return r.FixedStateBefore
	}
	if current != nil && current.State.Valid() {
		return current.State
	}
	return entity.StateOutOfCustody
}

// Outcome es la decisión sobre la instantánea de un equipo tras borrar un albarán.
type Outcome struct {
	Drop           bool
	State          entity.CustodyState
	Location       string
	LastMovementID string
}

// ResolveAfterDelete decide el nuevo estado de un equipo a partir del historial que
// sobrevive al borrado. remaining debe venir del más reciente al más antiguo (LatestFirst).
// fallbackLocation se usa cuando no queda historial y la instantánea se conserva.
func (r Rule) ResolveAfterDelete(remaining []*entity.Movement, fallbackLocation string) Outcome {
	if len(remaining) > 0 {
		latest := remaining[0]
		return Outcome{
			State:          latest.StateAfter,
			Location:       latest.Location,
			LastMovementID: latest.ID,
		}
	}
	if r.DropWhenNoHistory {
		return Outcome{Drop: true}
	}
	return Outcome{State: r.ResetState, Location: fallbackLocation}
}

// LatestFirst ordena movimientos del más reciente al más antiguo (OccurredAt, Seq).
func LatestFirst(movs []*entity.Movement) {
	sort.SliceStable(movs, func(i, j int) bool { return movs[i].After(movs[j]) })
}

// Chronological ordena movimientos del más antiguo al más reciente.
func Chronological(movs []*entity.Movement) {
	sort.SliceStable(movs, func(i, j int) bool { return movs[j].After(movs[i]) })
}

// SortPairs ordena claves de equipo para bloquearlas siempre en el mismo orden.
func SortPairs(pairs []entity.PairKey) {
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Less(pairs[j]) })
}
