package models

import (
	"time"

	"github.com/google/uuid"
)

// Warehouse is a static stock location. Once any ledger entry references it
// the row can only be deactivated, never deleted.
type Warehouse struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Code               string    `gorm:"column:code;size:32;not null;uniqueIndex:ux_warehouses_code" json:"code"`
	Name               string    `gorm:"column:name;size:255;not null" json:"name"`
	IsActive           bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	AllowNegativeStock bool      `gorm:"column:allow_negative_stock;not null;default:false" json:"allow_negative_stock"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
