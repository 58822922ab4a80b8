package enums

import "fmt"

// RefType names the document that originated a ledger entry. Together with
// the ref id it forms the idempotency key that absorbs duplicate appends.
type RefType string

const (
	RefTypeVoucher RefType = "voucher"
	RefTypeOrder   RefType = "order"
)

var validRefTypes = []RefType{
	RefTypeVoucher,
	RefTypeOrder,
}

// IsValid reports whether the value is a known RefType.
func (r RefType) IsValid() bool {
	for _, candidate := range validRefTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRefType converts raw input into a RefType.
func ParseRefType(value string) (RefType, error) {
	for _, candidate := range validRefTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ref type %q", value)
}
