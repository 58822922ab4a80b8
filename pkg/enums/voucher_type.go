package enums

import "fmt"

// VoucherType identifies the kind of stock movement a voucher stages.
type VoucherType string

const (
	VoucherTypeReceipt VoucherType = "receipt"
	VoucherTypeIssue   VoucherType = "issue"
	VoucherTypeAdjust  VoucherType = "adjust"
)

var validVoucherTypes = []VoucherType{
	VoucherTypeReceipt,
	VoucherTypeIssue,
	VoucherTypeAdjust,
}

// String implements fmt.Stringer.
func (v VoucherType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VoucherType.
func (v VoucherType) IsValid() bool {
	for _, candidate := range validVoucherTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// CodePrefix returns the prefix used when generating voucher codes.
func (v VoucherType) CodePrefix() string {
	switch v {
	case VoucherTypeReceipt:
		return "RCV"
	case VoucherTypeIssue:
		return "ISS"
	case VoucherTypeAdjust:
		return "ADJ"
	}
	return "VCH"
}

// ParseVoucherType converts raw input into a VoucherType.
func ParseVoucherType(value string) (VoucherType, error) {
	for _, candidate := range validVoucherTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid voucher type %q", value)
}
