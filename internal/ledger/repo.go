package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/stockroomhq/stockroom-backend/pkg/db"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
)

// Repository manages persistence for ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, entry *models.LedgerEntry) error
	Latest(ctx context.Context, variantID, warehouseID uuid.UUID) (*models.LedgerEntry, error)
	ExistsRef(ctx context.Context, variantID, warehouseID uuid.UUID, movement enums.MovementType, refType enums.RefType, refID string) (bool, error)
	History(ctx context.Context, variantID, warehouseID uuid.UUID, limit int, beforeSeq *int64) ([]models.LedgerEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// Latest returns the newest entry for the key, or nil when the key has no
// history yet.
func (r *repository) Latest(ctx context.Context, variantID, warehouseID uuid.UUID) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("variant_id = ? AND warehouse_id = ?", variantID, warehouseID).
		Order("seq DESC").
		First(&entry).Error
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ExistsRef(ctx context.Context, variantID, warehouseID uuid.UUID, movement enums.MovementType, refType enums.RefType, refID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.LedgerEntry{}).
		Where("variant_id = ? AND warehouse_id = ? AND type = ? AND ref_type = ? AND ref_id = ?",
			variantID, warehouseID, movement, refType, refID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) History(ctx context.Context, variantID, warehouseID uuid.UUID, limit int, beforeSeq *int64) ([]models.LedgerEntry, error) {
	query := r.db.WithContext(ctx).
		Where("variant_id = ? AND warehouse_id = ?", variantID, warehouseID).
		Order("seq DESC").
		Limit(limit)
	if beforeSeq != nil {
		query = query.Where("seq < ?", *beforeSeq)
	}
	var rows []models.LedgerEntry
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
