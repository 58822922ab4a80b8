package enums

import "fmt"

// ItemDirection fixes the sign applied to a voucher item at posting time.
// Receipt vouchers are always "in", issue vouchers always "out"; adjust
// vouchers honor the per-item value.
type ItemDirection string

const (
	ItemDirectionIn  ItemDirection = "in"
	ItemDirectionOut ItemDirection = "out"
)

var validItemDirections = []ItemDirection{
	ItemDirectionIn,
	ItemDirectionOut,
}

// Sign returns the multiplier applied to the item quantity.
func (d ItemDirection) Sign() int {
	if d == ItemDirectionOut {
		return -1
	}
	return 1
}

// IsValid reports whether the value is a known ItemDirection.
func (d ItemDirection) IsValid() bool {
	for _, candidate := range validItemDirections {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseItemDirection converts raw input into an ItemDirection.
func ParseItemDirection(value string) (ItemDirection, error) {
	for _, candidate := range validItemDirections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item direction %q", value)
}
