package models

import "github.com/stockroomhq/stockroom-backend/pkg/enums"

// VoucherSequence hands out sequential per-type voucher numbers. The row is
// updated inside the voucher create transaction so codes never collide.
type VoucherSequence struct {
	Type    enums.VoucherType `gorm:"column:type;size:16;primaryKey" json:"type"`
	NextSeq int64             `gorm:"column:next_seq;not null;default:1" json:"next_seq"`
}
