package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/stockroomhq/stockroom-backend/pkg/enums"
)

// VoucherItem is one line of a voucher. Quantities are positive magnitudes;
// the direction carries the sign and is only meaningful for adjust vouchers.
type VoucherItem struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	VoucherID uuid.UUID           `gorm:"column:voucher_id;type:uuid;not null;index" json:"voucher_id"`
	VariantID uuid.UUID           `gorm:"column:variant_id;type:uuid;not null" json:"variant_id"`
	Qty       int                 `gorm:"column:qty;not null" json:"qty"`
	Direction enums.ItemDirection `gorm:"column:direction;size:8;not null;default:in" json:"direction"`
	Note      *string             `gorm:"column:note" json:"note,omitempty"`
	Position  int                 `gorm:"column:position;not null;default:0" json:"position"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
