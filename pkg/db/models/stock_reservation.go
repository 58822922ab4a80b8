package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/stockroomhq/stockroom-backend/pkg/enums"
)

// StockReservation is a provisional hold created by order placement. It never
// changes the on-hand balance; availability subtracts open holds from the
// latest ledger balance. One reservation exists per order ref and key.
type StockReservation struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	VariantID   uuid.UUID               `gorm:"column:variant_id;type:uuid;not null;uniqueIndex:ux_stock_reservations_ref,priority:2" json:"variant_id"`
	WarehouseID uuid.UUID               `gorm:"column:warehouse_id;type:uuid;not null;uniqueIndex:ux_stock_reservations_ref,priority:3" json:"warehouse_id"`
	OrderRef    string                  `gorm:"column:order_ref;size:64;not null;uniqueIndex:ux_stock_reservations_ref,priority:1" json:"order_ref"`
	Qty         int                     `gorm:"column:qty;not null" json:"qty"`
	Status      enums.ReservationStatus `gorm:"column:status;size:16;not null" json:"status"`
	CreatedBy   uuid.UUID               `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time               `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
