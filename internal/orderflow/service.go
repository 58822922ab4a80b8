package orderflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/internal/ledger"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
	"github.com/stockroomhq/stockroom-backend/pkg/logger"
	"github.com/stockroomhq/stockroom-backend/pkg/outbox"
	"github.com/stockroomhq/stockroom-backend/pkg/outbox/payloads"
)

const maxOrderRefLength = 64

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// StockEventInput identifies one order-flow action against a stock key.
type StockEventInput struct {
	OrderRef    string
	VariantID   uuid.UUID
	WarehouseID uuid.UUID
	Qty         int
	ActorID     uuid.UUID
}

// Service is the collaborator surface for the checkout/orders system.
// Reservations hold stock without moving it; Ship converts a hold into a
// ledger movement; ReturnIn brings shipped goods back.
type Service interface {
	Reserve(ctx context.Context, input StockEventInput) (*models.StockReservation, error)
	Release(ctx context.Context, orderRef string, variantID, warehouseID uuid.UUID) (*models.StockReservation, error)
	Ship(ctx context.Context, orderRef string, variantID, warehouseID, actor uuid.UUID) (*models.StockReservation, error)
	ReturnIn(ctx context.Context, input StockEventInput) error
}

type service struct {
	repo   Repository
	ledger ledger.Service
	events *outbox.Service
	runner txRunner
	logg   *logger.Logger
}

// NewService wires the order-flow service. Logger may be nil.
func NewService(repo Repository, ledgerSvc ledger.Service, events *outbox.Service, runner txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if runner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, ledger: ledgerSvc, events: events, runner: runner, logg: logg}, nil
}

// Reserve opens a hold when enough stock is available. A repeated call with
// the same order ref returns the existing reservation untouched.
func (s *service) Reserve(ctx context.Context, input StockEventInput) (*models.StockReservation, error) {
	orderRef, err := normalizeRef(input.OrderRef)
	if err != nil {
		return nil, err
	}
	if err := validateKey(input.VariantID, input.WarehouseID); err != nil {
		return nil, err
	}
	if input.Qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reserve qty must be positive")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}

	key := ledger.Key{VariantID: input.VariantID, WarehouseID: input.WarehouseID}
	release := s.ledger.LockKeys([]ledger.Key{key})
	defer release()

	var reservation *models.StockReservation
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByRef(ctx, orderRef, input.VariantID, input.WarehouseID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup reservation")
		}
		if existing != nil {
			reservation = existing
			return nil
		}

		onHand, err := s.ledger.CurrentBalance(ctx, input.VariantID, input.WarehouseID)
		if err != nil {
			return err
		}
		reserved, err := repo.OpenReservedQty(ctx, input.VariantID, input.WarehouseID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum open reservations")
		}
		available := onHand - reserved
		if available < input.Qty {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock,
				fmt.Sprintf("requested %d but only %d available", input.Qty, available)).
				WithDetails(map[string]any{
					"variant_id":   input.VariantID.String(),
					"warehouse_id": input.WarehouseID.String(),
					"available":    available,
					"requested":    input.Qty,
				})
		}

		reservation = &models.StockReservation{
			ID:          uuid.New(),
			VariantID:   input.VariantID,
			WarehouseID: input.WarehouseID,
			OrderRef:    orderRef,
			Qty:         input.Qty,
			Status:      enums.ReservationStatusOpen,
			CreatedBy:   input.ActorID,
		}
		if err := repo.Create(ctx, reservation); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create reservation")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

// Release drops an open hold. Releasing twice is a no-op; a shipped
// reservation can no longer be released.
func (s *service) Release(ctx context.Context, orderRef string, variantID, warehouseID uuid.UUID) (*models.StockReservation, error) {
	orderRef, err := normalizeRef(orderRef)
	if err != nil {
		return nil, err
	}
	if err := validateKey(variantID, warehouseID); err != nil {
		return nil, err
	}

	reservation, err := s.repo.FindByRef(ctx, orderRef, variantID, warehouseID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup reservation")
	}
	if reservation == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
	}
	switch reservation.Status {
	case enums.ReservationStatusReleased:
		return reservation, nil
	case enums.ReservationStatusShipped:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "reservation already shipped")
	}

	moved, err := s.repo.UpdateStatus(ctx, reservation.ID, enums.ReservationStatusOpen, enums.ReservationStatusReleased)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "release reservation")
	}
	if !moved {
		// Lost a race; surface whatever state won.
		return s.Release(ctx, orderRef, variantID, warehouseID)
	}
	reservation.Status = enums.ReservationStatusReleased
	return reservation, nil
}

// Ship converts the open hold into a ledger movement. The status flip, the
// SHIP entry and the outbox event commit together.
func (s *service) Ship(ctx context.Context, orderRef string, variantID, warehouseID, actor uuid.UUID) (*models.StockReservation, error) {
	orderRef, err := normalizeRef(orderRef)
	if err != nil {
		return nil, err
	}
	if err := validateKey(variantID, warehouseID); err != nil {
		return nil, err
	}
	if actor == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}

	reservation, err := s.repo.FindByRef(ctx, orderRef, variantID, warehouseID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup reservation")
	}
	if reservation == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
	}
	switch reservation.Status {
	case enums.ReservationStatusShipped:
		return reservation, nil
	case enums.ReservationStatusReleased:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "reservation was released")
	}

	key := ledger.Key{VariantID: variantID, WarehouseID: warehouseID}
	lockRelease := s.ledger.LockKeys([]ledger.Key{key})
	defer lockRelease()

	refType := enums.RefTypeOrder
	shippedAt := time.Now().UTC()
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.WithTx(tx).UpdateStatus(ctx, reservation.ID, enums.ReservationStatusOpen, enums.ReservationStatusShipped)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark reservation shipped")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeConflict, "reservation changed concurrently")
		}

		appended, err := s.ledger.AppendTx(ctx, tx, []ledger.AppendEntry{{
			VariantID:   variantID,
			WarehouseID: warehouseID,
			Type:        enums.MovementTypeShip,
			Qty:         -reservation.Qty,
			RefType:     &refType,
			RefID:       &orderRef,
			ActorID:     actor,
		}})
		if err != nil {
			return err
		}
		if len(appended) == 0 {
			// Ledger already carries this shipment; nothing to announce.
			return nil
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockShipped,
			AggregateType: enums.AggregateStockItem,
			AggregateID:   variantID,
			Actor:         &outbox.ActorRef{ActorID: actor},
			Data: payloads.StockShippedEvent{
				OrderRef:    orderRef,
				VariantID:   variantID,
				WarehouseID: warehouseID,
				Qty:         int64(reservation.Qty),
				NewBalance:  int64(appended[0].Balance),
				ShippedAt:   shippedAt,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	reservation.Status = enums.ReservationStatusShipped
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "order_ref", orderRef), "reservation shipped")
	}
	return reservation, nil
}

// ReturnIn books returned goods back into stock. The ledger ref rule makes a
// repeated call for the same order a silent no-op.
func (s *service) ReturnIn(ctx context.Context, input StockEventInput) error {
	orderRef, err := normalizeRef(input.OrderRef)
	if err != nil {
		return err
	}
	if err := validateKey(input.VariantID, input.WarehouseID); err != nil {
		return err
	}
	if input.Qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "return qty must be positive")
	}
	if input.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}

	key := ledger.Key{VariantID: input.VariantID, WarehouseID: input.WarehouseID}
	release := s.ledger.LockKeys([]ledger.Key{key})
	defer release()

	refType := enums.RefTypeOrder
	returnedAt := time.Now().UTC()
	return s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		appended, err := s.ledger.AppendTx(ctx, tx, []ledger.AppendEntry{{
			VariantID:   input.VariantID,
			WarehouseID: input.WarehouseID,
			Type:        enums.MovementTypeReturnIn,
			Qty:         input.Qty,
			RefType:     &refType,
			RefID:       &orderRef,
			ActorID:     input.ActorID,
		}})
		if err != nil {
			return err
		}
		if len(appended) == 0 {
			return nil
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockReturned,
			AggregateType: enums.AggregateStockItem,
			AggregateID:   input.VariantID,
			Actor:         &outbox.ActorRef{ActorID: input.ActorID},
			Data: payloads.StockReturnedEvent{
				OrderRef:    orderRef,
				VariantID:   input.VariantID,
				WarehouseID: input.WarehouseID,
				Qty:         int64(input.Qty),
				NewBalance:  int64(appended[0].Balance),
				ReturnedAt:  returnedAt,
			},
			Version: 1,
		})
	})
}

func normalizeRef(orderRef string) (string, error) {
	ref := strings.TrimSpace(orderRef)
	if ref == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order ref is required")
	}
	if len(ref) > maxOrderRefLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("order ref exceeds %d characters", maxOrderRefLength))
	}
	return ref, nil
}

func validateKey(variantID, warehouseID uuid.UUID) error {
	if variantID == uuid.Nil || warehouseID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant id and warehouse id are required")
	}
	return nil
}
