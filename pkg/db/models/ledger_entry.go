package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/stockroomhq/stockroom-backend/pkg/enums"
)

// LedgerEntry is one immutable signed stock movement together with the
// running on-hand balance for its (variant, warehouse) key immediately after
// the movement. Entries are append-only; corrections happen by appending a
// compensating entry, never by editing.
//
// (variant, warehouse, type, ref_type, ref_id) is unique when the ref is set,
// which lets retried appends be absorbed silently instead of double-counting.
type LedgerEntry struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	VariantID   uuid.UUID          `gorm:"column:variant_id;type:uuid;not null;index:idx_ledger_entries_key,priority:1;uniqueIndex:ux_ledger_entries_key_seq,priority:1;uniqueIndex:ux_ledger_entries_ref,priority:1,where:ref_id IS NOT NULL" json:"variant_id"`
	WarehouseID uuid.UUID          `gorm:"column:warehouse_id;type:uuid;not null;index:idx_ledger_entries_key,priority:2;uniqueIndex:ux_ledger_entries_key_seq,priority:2;uniqueIndex:ux_ledger_entries_ref,priority:2" json:"warehouse_id"`
	Type        enums.MovementType `gorm:"column:type;size:16;not null;uniqueIndex:ux_ledger_entries_ref,priority:3" json:"type"`
	Qty         int                `gorm:"column:qty;not null" json:"qty"`
	Balance     int                `gorm:"column:balance;not null" json:"balance"`
	RefType     *enums.RefType     `gorm:"column:ref_type;size:16;uniqueIndex:ux_ledger_entries_ref,priority:4" json:"ref_type,omitempty"`
	RefID       *string            `gorm:"column:ref_id;size:64;uniqueIndex:ux_ledger_entries_ref,priority:5" json:"ref_id,omitempty"`
	Note        *string            `gorm:"column:note" json:"note,omitempty"`
	CreatedBy   uuid.UUID          `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	// Seq is a per-key sequence assigned inside the append transaction. It
	// orders entries deterministically even when created_at collides.
	Seq int64 `gorm:"column:seq;not null;uniqueIndex:ux_ledger_entries_key_seq,priority:3;index:idx_ledger_entries_key,priority:3" json:"-"`
}
