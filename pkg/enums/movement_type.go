package enums

import "fmt"

// MovementType classifies an on-hand ledger entry. Reservation holds are kept
// in the stock_reservations table and never enter the on-hand stream, so the
// running balance invariant holds for every entry without carve-outs.
type MovementType string

const (
	MovementTypeReceipt  MovementType = "receipt"
	MovementTypeIssue    MovementType = "issue"
	MovementTypeAdjust   MovementType = "adjust"
	MovementTypeShip     MovementType = "ship"
	MovementTypeReturnIn MovementType = "return_in"
)

var validMovementTypes = []MovementType{
	MovementTypeReceipt,
	MovementTypeIssue,
	MovementTypeAdjust,
	MovementTypeShip,
	MovementTypeReturnIn,
}

// String implements fmt.Stringer.
func (m MovementType) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MovementType.
func (m MovementType) IsValid() bool {
	for _, candidate := range validMovementTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// RemovesStock reports whether the movement represents physical stock leaving
// the warehouse and therefore must not drive availability negative.
func (m MovementType) RemovesStock() bool {
	return m == MovementTypeIssue || m == MovementTypeShip
}

// ParseMovementType converts raw input into a MovementType.
func ParseMovementType(value string) (MovementType, error) {
	for _, candidate := range validMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement type %q", value)
}
