package enums

import "fmt"

// VoucherStatus tracks the approval lifecycle of an inventory voucher.
type VoucherStatus string

const (
	VoucherStatusDraft     VoucherStatus = "draft"
	VoucherStatusSubmitted VoucherStatus = "submitted"
	VoucherStatusApproved  VoucherStatus = "approved"
	VoucherStatusPosted    VoucherStatus = "posted"
	VoucherStatusCancelled VoucherStatus = "cancelled"
)

var validVoucherStatuses = []VoucherStatus{
	VoucherStatusDraft,
	VoucherStatusSubmitted,
	VoucherStatusApproved,
	VoucherStatusPosted,
	VoucherStatusCancelled,
}

// String implements fmt.Stringer.
func (v VoucherStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VoucherStatus.
func (v VoucherStatus) IsValid() bool {
	for _, candidate := range validVoucherStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (v VoucherStatus) IsTerminal() bool {
	return v == VoucherStatusPosted || v == VoucherStatusCancelled
}

// ParseVoucherStatus converts raw input into a VoucherStatus.
func ParseVoucherStatus(value string) (VoucherStatus, error) {
	for _, candidate := range validVoucherStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid voucher status %q", value)
}
