package enums

import "fmt"

// StockEventType is the order-flow collaborator surface: reservation holds and
// the fulfillment movements that resolve them.
type StockEventType string

const (
	StockEventReserve  StockEventType = "reserve"
	StockEventRelease  StockEventType = "release"
	StockEventShip     StockEventType = "ship"
	StockEventReturnIn StockEventType = "return_in"
)

var validStockEventTypes = []StockEventType{
	StockEventReserve,
	StockEventRelease,
	StockEventShip,
	StockEventReturnIn,
}

// IsValid reports whether the value is a known StockEventType.
func (s StockEventType) IsValid() bool {
	for _, candidate := range validStockEventTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStockEventType converts raw input into a StockEventType.
func ParseStockEventType(value string) (StockEventType, error) {
	for _, candidate := range validStockEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock event type %q", value)
}
