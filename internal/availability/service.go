package availability

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/stockroomhq/stockroom-backend/internal/ledger"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
)

type reservationReader interface {
	OpenReservedQty(ctx context.Context, variantID, warehouseID uuid.UUID) (int, error)
}

// Snapshot is the availability projection for one stock key, always derived
// from the ledger and open holds, never from a cached counter.
type Snapshot struct {
	VariantID   uuid.UUID `json:"variant_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
	OnHand      int       `json:"on_hand"`
	Reserved    int       `json:"reserved"`
	Available   int       `json:"available"`
}

// LowStockItem flags a watched key whose availability fell to or below its
// threshold. Critical means it fell to or below half the threshold.
type LowStockItem struct {
	Snapshot
	Threshold int  `json:"threshold"`
	Critical  bool `json:"critical"`
}

// ThresholdInput captures a low-stock watch level for a key.
type ThresholdInput struct {
	VariantID   uuid.UUID
	WarehouseID uuid.UUID
	Threshold   int
	ActorID     uuid.UUID
}

// Service projects availability from the ledger and reservation tables.
type Service interface {
	Snapshot(ctx context.Context, variantID, warehouseID uuid.UUID) (*Snapshot, error)
	LowStock(ctx context.Context) ([]LowStockItem, error)
	SetThreshold(ctx context.Context, input ThresholdInput) (*models.StockThreshold, error)
	ListThresholds(ctx context.Context) ([]models.StockThreshold, error)
}

type service struct {
	repo         Repository
	ledger       ledger.Service
	reservations reservationReader
}

// NewService wires an availability service.
func NewService(repo Repository, ledgerSvc ledger.Service, reservations reservationReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("threshold repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if reservations == nil {
		return nil, fmt.Errorf("reservation reader required")
	}
	return &service{repo: repo, ledger: ledgerSvc, reservations: reservations}, nil
}

func (s *service) Snapshot(ctx context.Context, variantID, warehouseID uuid.UUID) (*Snapshot, error) {
	if variantID == uuid.Nil || warehouseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id and warehouse id are required")
	}
	onHand, err := s.ledger.CurrentBalance(ctx, variantID, warehouseID)
	if err != nil {
		return nil, err
	}
	reserved, err := s.reservations.OpenReservedQty(ctx, variantID, warehouseID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum open reservations")
	}
	return &Snapshot{
		VariantID:   variantID,
		WarehouseID: warehouseID,
		OnHand:      onHand,
		Reserved:    reserved,
		Available:   onHand - reserved,
	}, nil
}

// LowStock scans every watched key and returns the ones at or below their
// threshold, ordered as the thresholds are stored.
func (s *service) LowStock(ctx context.Context) ([]LowStockItem, error) {
	thresholds, err := s.repo.ListThresholds(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list thresholds")
	}

	flagged := []LowStockItem{}
	for _, threshold := range thresholds {
		snapshot, err := s.Snapshot(ctx, threshold.VariantID, threshold.WarehouseID)
		if err != nil {
			return nil, err
		}
		if snapshot.Available > threshold.Threshold {
			continue
		}
		flagged = append(flagged, LowStockItem{
			Snapshot:  *snapshot,
			Threshold: threshold.Threshold,
			Critical:  snapshot.Available <= threshold.Threshold/2,
		})
	}
	return flagged, nil
}

func (s *service) SetThreshold(ctx context.Context, input ThresholdInput) (*models.StockThreshold, error) {
	if input.VariantID == uuid.Nil || input.WarehouseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id and warehouse id are required")
	}
	if input.Threshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "threshold cannot be negative")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	threshold := &models.StockThreshold{
		VariantID:   input.VariantID,
		WarehouseID: input.WarehouseID,
		Threshold:   input.Threshold,
		UpdatedBy:   input.ActorID,
	}
	if err := s.repo.UpsertThreshold(ctx, threshold); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upsert threshold")
	}
	return threshold, nil
}

func (s *service) ListThresholds(ctx context.Context) ([]models.StockThreshold, error) {
	rows, err := s.repo.ListThresholds(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list thresholds")
	}
	return rows, nil
}
