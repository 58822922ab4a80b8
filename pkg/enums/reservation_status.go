package enums

import "fmt"

// ReservationStatus tracks a provisional stock hold created by order placement.
type ReservationStatus string

const (
	ReservationStatusOpen     ReservationStatus = "open"
	ReservationStatusReleased ReservationStatus = "released"
	ReservationStatusShipped  ReservationStatus = "shipped"
)

var validReservationStatuses = []ReservationStatus{
	ReservationStatusOpen,
	ReservationStatusReleased,
	ReservationStatusShipped,
}

// IsValid reports whether the value is a known ReservationStatus.
func (r ReservationStatus) IsValid() bool {
	for _, candidate := range validReservationStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReservationStatus converts raw input into a ReservationStatus.
func ParseReservationStatus(value string) (ReservationStatus, error) {
	for _, candidate := range validReservationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reservation status %q", value)
}
