package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/stockroomhq/stockroom-backend/pkg/enums"
)

// InventoryVoucher is a staged batch of stock movements for one warehouse.
// Version backs optimistic concurrency on the lightweight transitions.
type InventoryVoucher struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Code        string              `gorm:"column:code;size:32;not null;uniqueIndex:ux_inventory_vouchers_code" json:"code"`
	Type        enums.VoucherType   `gorm:"column:type;size:16;not null" json:"type"`
	Status      enums.VoucherStatus `gorm:"column:status;size:16;not null" json:"status"`
	WarehouseID uuid.UUID           `gorm:"column:warehouse_id;type:uuid;not null;index" json:"warehouse_id"`
	Note        string              `gorm:"column:note;not null" json:"note"`
	CreatedBy   uuid.UUID           `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
	ApprovedBy  *uuid.UUID          `gorm:"column:approved_by;type:uuid" json:"approved_by,omitempty"`
	PostedAt    *time.Time          `gorm:"column:posted_at" json:"posted_at,omitempty"`
	Version     int                 `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Items []VoucherItem `gorm:"foreignKey:VoucherID;references:ID" json:"items"`
}
