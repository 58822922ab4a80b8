package orderflow

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/stockroomhq/stockroom-backend/pkg/db"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
)

// Repository manages persistence for stock reservations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, reservation *models.StockReservation) error
	FindByRef(ctx context.Context, orderRef string, variantID, warehouseID uuid.UUID) (*models.StockReservation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.ReservationStatus) (bool, error)
	OpenReservedQty(ctx context.Context, variantID, warehouseID uuid.UUID) (int, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reservation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, reservation *models.StockReservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

// FindByRef returns the reservation for the order ref and key, or nil when
// none exists.
func (r *repository) FindByRef(ctx context.Context, orderRef string, variantID, warehouseID uuid.UUID) (*models.StockReservation, error) {
	var reservation models.StockReservation
	err := r.db.WithContext(ctx).
		First(&reservation, "order_ref = ? AND variant_id = ? AND warehouse_id = ?", orderRef, variantID, warehouseID).Error
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &reservation, nil
}

// UpdateStatus moves the reservation between states with a status guard.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.ReservationStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.StockReservation{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// OpenReservedQty sums the open holds against a stock key.
func (r *repository) OpenReservedQty(ctx context.Context, variantID, warehouseID uuid.UUID) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.StockReservation{}).
		Where("variant_id = ? AND warehouse_id = ? AND status = ?", variantID, warehouseID, enums.ReservationStatusOpen).
		Select("COALESCE(SUM(qty), 0)").
		Scan(&total).Error
	return int(total), err
}
