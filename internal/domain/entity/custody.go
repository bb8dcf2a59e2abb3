package entity

// CustodyState indica si un equipo está bajo custodia de la organización.
type CustodyState string

const (
	StateInCustody    CustodyState = "IN_CUSTODY"
	StateOutOfCustody CustodyState = "OUT_OF_CUSTODY"
)

// Valid reporta si el estado es uno de los conocidos.
func (s CustodyState) Valid() bool {
	return s == StateInCustody || s == StateOutOfCustody
}
