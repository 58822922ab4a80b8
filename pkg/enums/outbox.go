package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateVoucher     OutboxAggregateType = "voucher"
	AggregateLedgerEntry OutboxAggregateType = "ledger_entry"
	AggregateStockItem   OutboxAggregateType = "stock_item"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateVoucher,
	AggregateLedgerEntry,
	AggregateStockItem,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventVoucherPosted OutboxEventType = "voucher_posted"
	EventStockShipped  OutboxEventType = "stock_shipped"
	EventStockReturned OutboxEventType = "stock_returned"
	EventLowStock      OutboxEventType = "low_stock"
)

var validOutboxEventTypes = []OutboxEventType{
	EventVoucherPosted,
	EventStockShipped,
	EventStockReturned,
	EventLowStock,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
