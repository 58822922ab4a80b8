package models

import (
	"time"

	"github.com/google/uuid"
)

// StockThreshold configures the low-stock alert level for a SKU in a
// warehouse. Availability at or below the threshold flags the SKU for
// restocking; at or below half the threshold the flag is critical.
type StockThreshold struct {
	VariantID   uuid.UUID `gorm:"column:variant_id;type:uuid;primaryKey" json:"variant_id"`
	WarehouseID uuid.UUID `gorm:"column:warehouse_id;type:uuid;primaryKey" json:"warehouse_id"`
	Threshold   int       `gorm:"column:threshold;not null" json:"threshold"`
	UpdatedBy   uuid.UUID `gorm:"column:updated_by;type:uuid;not null" json:"updated_by"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
