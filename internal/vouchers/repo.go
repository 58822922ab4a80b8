package vouchers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
	"github.com/stockroomhq/stockroom-backend/pkg/pagination"
)

// ListFilter narrows voucher listings for the admin console.
type ListFilter struct {
	Status      *enums.VoucherStatus
	Type        *enums.VoucherType
	WarehouseID *uuid.UUID
}

// StatusTransition is one compare-and-swap against a voucher row. The update
// only lands when both the expected status and version still hold.
type StatusTransition struct {
	FromStatus enums.VoucherStatus
	Version    int
	ToStatus   enums.VoucherStatus
	ApprovedBy *uuid.UUID
	PostedAt   *time.Time
}

// Repository manages persistence for vouchers and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, voucher *models.InventoryVoucher) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryVoucher, error)
	List(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.InventoryVoucher, error)
	ReplaceItems(ctx context.Context, voucherID uuid.UUID, version int, items []models.VoucherItem) (bool, error)
	Transition(ctx context.Context, id uuid.UUID, change StatusTransition) (bool, error)
	NextCode(ctx context.Context, voucherType enums.VoucherType) (string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a voucher repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, voucher *models.InventoryVoucher) error {
	return r.db.WithContext(ctx).Create(voucher).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryVoucher, error) {
	var voucher models.InventoryVoucher
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&voucher, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &voucher, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.InventoryVoucher, error) {
	query := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit)
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *filter.WarehouseID)
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.InventoryVoucher
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ReplaceItems swaps the item set while the voucher is still a draft, bumping
// the version. Returns false when the draft guard or version CAS missed.
func (r *repository) ReplaceItems(ctx context.Context, voucherID uuid.UUID, version int, items []models.VoucherItem) (bool, error) {
	swapped := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.InventoryVoucher{}).
			Where("id = ? AND status = ? AND version = ?", voucherID, enums.VoucherStatusDraft, version).
			Update("version", gorm.Expr("version + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := tx.Where("voucher_id = ?", voucherID).Delete(&models.VoucherItem{}).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].VoucherID = voucherID
			if items[i].ID == uuid.Nil {
				items[i].ID = uuid.New()
			}
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		swapped = true
		return nil
	})
	return swapped, err
}

// Transition applies a status compare-and-swap. Returns false when another
// writer already moved the row.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, change StatusTransition) (bool, error) {
	updates := map[string]any{
		"status":  change.ToStatus,
		"version": gorm.Expr("version + 1"),
	}
	if change.ApprovedBy != nil {
		updates["approved_by"] = *change.ApprovedBy
	}
	if change.PostedAt != nil {
		updates["posted_at"] = *change.PostedAt
	}
	res := r.db.WithContext(ctx).Model(&models.InventoryVoucher{}).
		Where("id = ? AND status = ? AND version = ?", id, change.FromStatus, change.Version).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// NextCode claims the next sequential code for the voucher type. Must run
// inside the create transaction: the sequence row update serializes
// concurrent creates of the same type.
func (r *repository) NextCode(ctx context.Context, voucherType enums.VoucherType) (string, error) {
	db := r.db.WithContext(ctx)

	seed := models.VoucherSequence{Type: voucherType, NextSeq: 1}
	if err := db.Where("type = ?", voucherType).FirstOrCreate(&seed).Error; err != nil {
		return "", err
	}

	if err := db.Model(&models.VoucherSequence{}).
		Where("type = ?", voucherType).
		UpdateColumn("next_seq", gorm.Expr("next_seq + 1")).Error; err != nil {
		return "", err
	}

	var seq models.VoucherSequence
	if err := db.First(&seq, "type = ?", voucherType).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%06d", voucherType.CodePrefix(), seq.NextSeq-1), nil
}
