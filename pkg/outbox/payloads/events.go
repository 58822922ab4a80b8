package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/stockroomhq/stockroom-backend/pkg/enums"
)

// PostedLineItem is one ledger movement produced by posting a voucher.
type PostedLineItem struct {
	VariantID  uuid.UUID           `json:"variantId"`
	Qty        int64               `json:"qty"`
	Direction  enums.ItemDirection `json:"direction"`
	NewBalance int64               `json:"newBalance"`
}

// VoucherPostedEvent is emitted once when an approved voucher hits the ledger.
type VoucherPostedEvent struct {
	VoucherID   uuid.UUID         `json:"voucherId"`
	VoucherCode string            `json:"voucherCode"`
	VoucherType enums.VoucherType `json:"voucherType"`
	WarehouseID uuid.UUID         `json:"warehouseId"`
	Items       []PostedLineItem  `json:"items"`
	PostedAt    time.Time         `json:"postedAt"`
}

// StockShippedEvent reports that a reservation left the warehouse.
type StockShippedEvent struct {
	OrderRef    string    `json:"orderRef"`
	VariantID   uuid.UUID `json:"variantId"`
	WarehouseID uuid.UUID `json:"warehouseId"`
	Qty         int64     `json:"qty"`
	NewBalance  int64     `json:"newBalance"`
	ShippedAt   time.Time `json:"shippedAt"`
}

// StockReturnedEvent reports that shipped goods came back into stock.
type StockReturnedEvent struct {
	OrderRef    string    `json:"orderRef"`
	VariantID   uuid.UUID `json:"variantId"`
	WarehouseID uuid.UUID `json:"warehouseId"`
	Qty         int64     `json:"qty"`
	NewBalance  int64     `json:"newBalance"`
	ReturnedAt  time.Time `json:"returnedAt"`
}

// LowStockEvent warns that available stock dropped to or below the threshold.
type LowStockEvent struct {
	VariantID   uuid.UUID `json:"variantId"`
	WarehouseID uuid.UUID `json:"warehouseId"`
	Available   int64     `json:"available"`
	Threshold   int64     `json:"threshold"`
	Critical    bool      `json:"critical"`
	DetectedAt  time.Time `json:"detectedAt"`
}
