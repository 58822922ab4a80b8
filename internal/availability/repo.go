package availability

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/stockroomhq/stockroom-backend/pkg/db"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
)

// Repository manages the low-stock threshold rows.
type Repository interface {
	UpsertThreshold(ctx context.Context, threshold *models.StockThreshold) error
	GetThreshold(ctx context.Context, variantID, warehouseID uuid.UUID) (*models.StockThreshold, error)
	ListThresholds(ctx context.Context) ([]models.StockThreshold, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a threshold repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) UpsertThreshold(ctx context.Context, threshold *models.StockThreshold) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "variant_id"}, {Name: "warehouse_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"threshold", "updated_by", "updated_at"}),
	}).Create(threshold).Error
}

// GetThreshold returns nil when no threshold is configured for the key.
func (r *repository) GetThreshold(ctx context.Context, variantID, warehouseID uuid.UUID) (*models.StockThreshold, error) {
	var threshold models.StockThreshold
	err := r.db.WithContext(ctx).
		First(&threshold, "variant_id = ? AND warehouse_id = ?", variantID, warehouseID).Error
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &threshold, nil
}

func (r *repository) ListThresholds(ctx context.Context) ([]models.StockThreshold, error) {
	var rows []models.StockThreshold
	if err := r.db.WithContext(ctx).
		Order("warehouse_id ASC").
		Order("variant_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
