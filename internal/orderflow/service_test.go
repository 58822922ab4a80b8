package orderflow

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/internal/ledger"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
	"github.com/stockroomhq/stockroom-backend/pkg/outbox"
)

type gormRunner struct {
	db *gorm.DB
}

func (g gormRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

type warehouseRepo struct {
	db *gorm.DB
}

func (w warehouseRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Warehouse, error) {
	var warehouse models.Warehouse
	if err := w.db.WithContext(ctx).First(&warehouse, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &warehouse, nil
}

type testEnv struct {
	db     *gorm.DB
	flow   Service
	ledger ledger.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Warehouse{},
		&models.LedgerEntry{},
		&models.StockReservation{},
		&models.OutboxEvent{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	runner := gormRunner{db: db}
	reservations := NewRepository(db)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(db), warehouseRepo{db: db}, reservations, runner, nil)
	if err != nil {
		t.Fatalf("ledger.NewService: %v", err)
	}
	flow, err := NewService(reservations, ledgerSvc, outbox.NewService(outbox.NewRepository(db), nil), runner, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &testEnv{db: db, flow: flow, ledger: ledgerSvc}
}

func (e *testEnv) seedStock(t *testing.T, qty int) (variantID, warehouseID uuid.UUID) {
	t.Helper()
	warehouse := models.Warehouse{
		ID:       uuid.New(),
		Code:     "WH-" + uuid.NewString()[:8],
		Name:     "Test warehouse",
		IsActive: true,
	}
	if err := e.db.Create(&warehouse).Error; err != nil {
		t.Fatalf("seed warehouse: %v", err)
	}
	variantID = uuid.New()
	if qty > 0 {
		if _, err := e.ledger.Append(context.Background(), []ledger.AppendEntry{{
			VariantID:   variantID,
			WarehouseID: warehouse.ID,
			Type:        enums.MovementTypeReceipt,
			Qty:         qty,
			ActorID:     uuid.New(),
		}}); err != nil {
			t.Fatalf("seed stock: %v", err)
		}
	}
	return variantID, warehouse.ID
}

func TestReserveChecksAvailability(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	variantID, warehouseID := env.seedStock(t, 10)
	actor := uuid.New()

	first, err := env.flow.Reserve(ctx, StockEventInput{
		OrderRef: "ord-1", VariantID: variantID, WarehouseID: warehouseID, Qty: 6, ActorID: actor,
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if first.Status != enums.ReservationStatusOpen || first.Qty != 6 {
		t.Fatalf("unexpected reservation: %+v", first)
	}

	// On-hand stays 10; only 4 remain available.
	if _, err := env.flow.Reserve(ctx, StockEventInput{
		OrderRef: "ord-2", VariantID: variantID, WarehouseID: warehouseID, Qty: 5, ActorID: actor,
	}); !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected INSUFFICIENT_STOCK, got %v", err)
	}

	balance, _ := env.ledger.CurrentBalance(ctx, variantID, warehouseID)
	if balance != 10 {
		t.Fatalf("reserve must not touch the ledger, balance = %d", balance)
	}
}

func TestReserveDuplicateRefIsNoOp(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	variantID, warehouseID := env.seedStock(t, 5)
	actor := uuid.New()

	input := StockEventInput{OrderRef: "ord-dup", VariantID: variantID, WarehouseID: warehouseID, Qty: 2, ActorID: actor}
	first, err := env.flow.Reserve(ctx, input)
	if err != nil {
		t.Fatalf("first reserve: %v", err)
	}

	input.Qty = 4
	again, err := env.flow.Reserve(ctx, input)
	if err != nil {
		t.Fatalf("repeat reserve: %v", err)
	}
	if again.ID != first.ID || again.Qty != 2 {
		t.Fatalf("duplicate ref must return the original hold: %+v", again)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	variantID, warehouseID := env.seedStock(t, 5)

	if _, err := env.flow.Reserve(ctx, StockEventInput{
		OrderRef: "ord-rel", VariantID: variantID, WarehouseID: warehouseID, Qty: 3, ActorID: uuid.New(),
	}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	for i := 0; i < 2; i++ {
		reservation, err := env.flow.Release(ctx, "ord-rel", variantID, warehouseID)
		if err != nil {
			t.Fatalf("release #%d: %v", i+1, err)
		}
		if reservation.Status != enums.ReservationStatusReleased {
			t.Fatalf("status = %s", reservation.Status)
		}
	}

	// The hold is gone, the full balance is available again.
	if _, err := env.flow.Reserve(ctx, StockEventInput{
		OrderRef: "ord-rel2", VariantID: variantID, WarehouseID: warehouseID, Qty: 5, ActorID: uuid.New(),
	}); err != nil {
		t.Fatalf("reserve after release: %v", err)
	}
}

func TestReleaseMissingReservation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	variantID, warehouseID := env.seedStock(t, 1)
	if _, err := env.flow.Release(context.Background(), "ord-nope", variantID, warehouseID); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestShipConvertsHoldToLedgerEntry(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	variantID, warehouseID := env.seedStock(t, 8)
	actor := uuid.New()

	if _, err := env.flow.Reserve(ctx, StockEventInput{
		OrderRef: "ord-ship", VariantID: variantID, WarehouseID: warehouseID, Qty: 3, ActorID: actor,
	}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	shipped, err := env.flow.Ship(ctx, "ord-ship", variantID, warehouseID, actor)
	if err != nil {
		t.Fatalf("ship: %v", err)
	}
	if shipped.Status != enums.ReservationStatusShipped {
		t.Fatalf("status = %s", shipped.Status)
	}

	balance, _ := env.ledger.CurrentBalance(ctx, variantID, warehouseID)
	if balance != 5 {
		t.Fatalf("balance = %d, want 5", balance)
	}

	// Idempotent retry: no second entry, no balance change.
	if _, err := env.flow.Ship(ctx, "ord-ship", variantID, warehouseID, actor); err != nil {
		t.Fatalf("retry ship: %v", err)
	}
	balance, _ = env.ledger.CurrentBalance(ctx, variantID, warehouseID)
	if balance != 5 {
		t.Fatalf("retry changed balance to %d", balance)
	}

	var events []models.OutboxEvent
	if err := env.db.Where("event_type = ?", enums.EventStockShipped).Find(&events).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected exactly one stock_shipped event, got %d", len(events))
	}
}

func TestShipReleasedReservationConflicts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	variantID, warehouseID := env.seedStock(t, 4)
	actor := uuid.New()

	if _, err := env.flow.Reserve(ctx, StockEventInput{
		OrderRef: "ord-x", VariantID: variantID, WarehouseID: warehouseID, Qty: 2, ActorID: actor,
	}); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := env.flow.Release(ctx, "ord-x", variantID, warehouseID); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := env.flow.Ship(ctx, "ord-x", variantID, warehouseID, actor); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}

func TestReturnInIsIdempotent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	variantID, warehouseID := env.seedStock(t, 2)
	actor := uuid.New()

	input := StockEventInput{OrderRef: "ord-ret", VariantID: variantID, WarehouseID: warehouseID, Qty: 3, ActorID: actor}
	if err := env.flow.ReturnIn(ctx, input); err != nil {
		t.Fatalf("return: %v", err)
	}
	if err := env.flow.ReturnIn(ctx, input); err != nil {
		t.Fatalf("retry return: %v", err)
	}

	balance, _ := env.ledger.CurrentBalance(ctx, variantID, warehouseID)
	if balance != 5 {
		t.Fatalf("balance = %d, want 5", balance)
	}

	var count int64
	if err := env.db.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventStockReturned).Count(&count).Error; err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one stock_returned event, got %d", count)
	}
}

func TestStockEventValidation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	variantID, warehouseID := env.seedStock(t, 1)

	cases := []struct {
		name  string
		input StockEventInput
	}{
		{"empty ref", StockEventInput{VariantID: variantID, WarehouseID: warehouseID, Qty: 1, ActorID: uuid.New()}},
		{"zero qty", StockEventInput{OrderRef: "r", VariantID: variantID, WarehouseID: warehouseID, Qty: 0, ActorID: uuid.New()}},
		{"missing variant", StockEventInput{OrderRef: "r", WarehouseID: warehouseID, Qty: 1, ActorID: uuid.New()}},
		{"missing actor", StockEventInput{OrderRef: "r", VariantID: variantID, WarehouseID: warehouseID, Qty: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.flow.Reserve(ctx, tc.input); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}
}
