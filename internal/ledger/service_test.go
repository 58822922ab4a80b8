package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
)

type gormRunner struct {
	db *gorm.DB
}

func (g gormRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

type stubReservations struct {
	qty int
}

func (s stubReservations) OpenReservedQty(context.Context, uuid.UUID, uuid.UUID) (int, error) {
	return s.qty, nil
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

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Warehouse{}, &models.LedgerEntry{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return conn
}

func seedWarehouse(t *testing.T, db *gorm.DB, allowNegative bool) uuid.UUID {
	t.Helper()
	warehouse := models.Warehouse{
		ID:                 uuid.New(),
		Code:               "WH-" + uuid.NewString()[:8],
		Name:               "Test warehouse",
		IsActive:           true,
		AllowNegativeStock: allowNegative,
	}
	if err := db.Create(&warehouse).Error; err != nil {
		t.Fatalf("seed warehouse: %v", err)
	}
	return warehouse.ID
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	return newTestServiceWithHolds(t, db, 0)
}

func newTestServiceWithHolds(t *testing.T, db *gorm.DB, reserved int) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), warehouseRepo{db: db}, stubReservations{qty: reserved}, gormRunner{db: db}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestAppendTracksRunningBalance(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	warehouseID := seedWarehouse(t, db, false)
	variantID := uuid.New()
	actor := uuid.New()

	first, err := svc.Append(ctx, []AppendEntry{
		{VariantID: variantID, WarehouseID: warehouseID, Type: enums.MovementTypeReceipt, Qty: 10, ActorID: actor},
	})
	if err != nil {
		t.Fatalf("append receipt: %v", err)
	}
	if first[0].Balance != 10 || first[0].Seq != 1 {
		t.Fatalf("first entry balance=%d seq=%d", first[0].Balance, first[0].Seq)
	}

	second, err := svc.Append(ctx, []AppendEntry{
		{VariantID: variantID, WarehouseID: warehouseID, Type: enums.MovementTypeIssue, Qty: -4, ActorID: actor},
	})
	if err != nil {
		t.Fatalf("append issue: %v", err)
	}
	if second[0].Balance != 6 || second[0].Seq != 2 {
		t.Fatalf("second entry balance=%d seq=%d", second[0].Balance, second[0].Seq)
	}

	balance, err := svc.CurrentBalance(ctx, variantID, warehouseID)
	if err != nil {
		t.Fatalf("current balance: %v", err)
	}
	if balance != 6 {
		t.Fatalf("balance = %d, want 6", balance)
	}
}

func TestAppendRejectsNegativeBalance(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	warehouseID := seedWarehouse(t, db, false)
	variantID := uuid.New()
	actor := uuid.New()

	if _, err := svc.Append(ctx, []AppendEntry{
		{VariantID: variantID, WarehouseID: warehouseID, Type: enums.MovementTypeReceipt, Qty: 3, ActorID: actor},
	}); err != nil {
		t.Fatalf("seed receipt: %v", err)
	}

	_, err := svc.Append(ctx, []AppendEntry{
		{VariantID: variantID, WarehouseID: warehouseID, Type: enums.MovementTypeIssue, Qty: -5, ActorID: actor},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected INSUFFICIENT_STOCK, got %v", err)
	}

	balance, err := svc.CurrentBalance(ctx, variantID, warehouseID)
	if err != nil {
		t.Fatalf("current balance: %v", err)
	}
	if balance != 3 {
		t.Fatalf("failed append must not change balance, got %d", balance)
	}
}

func TestAppendIssueFloorsAtOpenReservations(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestServiceWithHolds(t, db, 30)
	ctx := context.Background()
	warehouseID := seedWarehouse(t, db, false)
	variantID := uuid.New()
	actor := uuid.New()

	if _, err := svc.Append(ctx, []AppendEntry{
		{VariantID: variantID, WarehouseID: warehouseID, Type: enums.MovementTypeReceipt, Qty: 50, ActorID: actor},
	}); err != nil {
		t.Fatalf("seed receipt: %v", err)
	}

	// On hand 50, reserved 30: issuing 40 would leave 10 on hand but -20
	// available.
	_, err := svc.Append(ctx, []AppendEntry{
		{VariantID: variantID, WarehouseID: warehouseID, Type: enums.MovementTypeIssue, Qty: -40, ActorID: actor},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected INSUFFICIENT_STOCK, got %v", err)
	}

	rows, err := svc.Append(ctx, []AppendEntry{
		{VariantID: variantID, WarehouseID: warehouseID, Type: enums.MovementTypeIssue, Qty: -20, ActorID: actor},
	})
	if err != nil {
		t.Fatalf("issue within available: %v", err)
	}
	if rows[0].Balance != 30 {
		t.Fatalf("balance = %d, want 30", rows[0].Balance)
	}
}

func TestAppendShipIgnoresOwnReservation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestServiceWithHolds(t, db, 30)
	ctx := context.Background()
	warehouseID := seedWarehouse(t, db, false)
	variantID := uuid.New()
	actor := uuid.New()

	if _, err := svc.Append(ctx, []AppendEntry{
		{VariantID: variantID, WarehouseID: warehouseID, Type: enums.MovementTypeReceipt, Qty: 30, ActorID: actor},
	}); err != nil {
		t.Fatalf("seed receipt: %v", err)
	}

	// Shipping settles the hold it draws from, so only the on-hand floor
	// applies even while the hold still reads as open.
	rows, err := svc.Append(ctx, []AppendEntry{
		{VariantID: variantID, WarehouseID: warehouseID, Type: enums.MovementTypeShip, Qty: -30, ActorID: actor},
	})
	if err != nil {
		t.Fatalf("ship reserved stock: %v", err)
	}
	if rows[0].Balance != 0 {
		t.Fatalf("balance = %d, want 0", rows[0].Balance)
	}

	_, err = svc.Append(ctx, []AppendEntry{
		{VariantID: variantID, WarehouseID: warehouseID, Type: enums.MovementTypeShip, Qty: -1, ActorID: actor},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected INSUFFICIENT_STOCK below zero on hand, got %v", err)
	}
}

func TestAppendAllowsNegativeWhenWarehousePermits(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	warehouseID := seedWarehouse(t, db, true)
	variantID := uuid.New()

	rows, err := svc.Append(ctx, []AppendEntry{
		{VariantID: variantID, WarehouseID: warehouseID, Type: enums.MovementTypeIssue, Qty: -2, ActorID: uuid.New()},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if rows[0].Balance != -2 {
		t.Fatalf("balance = %d, want -2", rows[0].Balance)
	}
}

func TestAppendIsIdempotentPerRef(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	warehouseID := seedWarehouse(t, db, false)
	variantID := uuid.New()
	actor := uuid.New()

	refType := enums.RefTypeVoucher
	refID := uuid.NewString()
	entry := AppendEntry{
		VariantID:   variantID,
		WarehouseID: warehouseID,
		Type:        enums.MovementTypeReceipt,
		Qty:         7,
		RefType:     &refType,
		RefID:       &refID,
		ActorID:     actor,
	}

	if _, err := svc.Append(ctx, []AppendEntry{entry}); err != nil {
		t.Fatalf("first append: %v", err)
	}
	skipped, err := svc.Append(ctx, []AppendEntry{entry})
	if err != nil {
		t.Fatalf("retried append: %v", err)
	}
	if len(skipped) != 0 {
		t.Fatalf("retried append should skip, appended %d entries", len(skipped))
	}

	balance, err := svc.CurrentBalance(ctx, variantID, warehouseID)
	if err != nil {
		t.Fatalf("current balance: %v", err)
	}
	if balance != 7 {
		t.Fatalf("balance = %d, want 7", balance)
	}
}

func TestAppendIsAllOrNothing(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	warehouseID := seedWarehouse(t, db, false)
	variantA := uuid.New()
	variantB := uuid.New()
	actor := uuid.New()

	_, err := svc.Append(ctx, []AppendEntry{
		{VariantID: variantA, WarehouseID: warehouseID, Type: enums.MovementTypeReceipt, Qty: 5, ActorID: actor},
		{VariantID: variantB, WarehouseID: warehouseID, Type: enums.MovementTypeIssue, Qty: -1, ActorID: actor},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected INSUFFICIENT_STOCK, got %v", err)
	}

	balance, err := svc.CurrentBalance(ctx, variantA, warehouseID)
	if err != nil {
		t.Fatalf("current balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("first entry must roll back with the batch, balance = %d", balance)
	}
}

func TestAppendValidation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	warehouseID := seedWarehouse(t, db, false)
	variantID := uuid.New()
	actor := uuid.New()
	refType := enums.RefTypeOrder

	cases := []struct {
		name  string
		entry AppendEntry
	}{
		{"zero qty", AppendEntry{VariantID: variantID, WarehouseID: warehouseID, Type: enums.MovementTypeReceipt, Qty: 0, ActorID: actor}},
		{"positive issue", AppendEntry{VariantID: variantID, WarehouseID: warehouseID, Type: enums.MovementTypeIssue, Qty: 2, ActorID: actor}},
		{"negative receipt", AppendEntry{VariantID: variantID, WarehouseID: warehouseID, Type: enums.MovementTypeReceipt, Qty: -2, ActorID: actor}},
		{"missing actor", AppendEntry{VariantID: variantID, WarehouseID: warehouseID, Type: enums.MovementTypeReceipt, Qty: 2}},
		{"bad movement", AppendEntry{VariantID: variantID, WarehouseID: warehouseID, Type: enums.MovementType("melt"), Qty: 2, ActorID: actor}},
		{"ref type without id", AppendEntry{VariantID: variantID, WarehouseID: warehouseID, Type: enums.MovementTypeReceipt, Qty: 2, RefType: &refType, ActorID: actor}},
		{"unknown warehouse", AppendEntry{VariantID: variantID, WarehouseID: uuid.New(), Type: enums.MovementTypeReceipt, Qty: 2, ActorID: actor}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Append(ctx, []AppendEntry{tc.entry}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}
}

func TestAppendSerializesPerKey(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	warehouseID := seedWarehouse(t, db, false)
	variantID := uuid.New()
	actor := uuid.New()

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Append(ctx, []AppendEntry{
				{VariantID: variantID, WarehouseID: warehouseID, Type: enums.MovementTypeReceipt, Qty: 1, ActorID: actor},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent append: %v", err)
		}
	}

	balance, err := svc.CurrentBalance(ctx, variantID, warehouseID)
	if err != nil {
		t.Fatalf("current balance: %v", err)
	}
	if balance != workers {
		t.Fatalf("balance = %d, want %d", balance, workers)
	}

	history, err := svc.History(ctx, variantID, warehouseID, workers+5, nil)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != workers {
		t.Fatalf("history length = %d, want %d", len(history), workers)
	}
	for i, entry := range history {
		wantSeq := int64(workers - i)
		if entry.Seq != wantSeq {
			t.Fatalf("history[%d].Seq = %d, want %d", i, entry.Seq, wantSeq)
		}
		if entry.Balance != int(wantSeq) {
			t.Fatalf("history[%d].Balance = %d, want %d", i, entry.Balance, wantSeq)
		}
	}
}

func TestHistoryPagination(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	warehouseID := seedWarehouse(t, db, false)
	variantID := uuid.New()
	actor := uuid.New()

	for i := 0; i < 5; i++ {
		if _, err := svc.Append(ctx, []AppendEntry{
			{VariantID: variantID, WarehouseID: warehouseID, Type: enums.MovementTypeReceipt, Qty: 1, ActorID: actor},
		}); err != nil {
			t.Fatalf("append #%d: %v", i+1, err)
		}
	}

	page, err := svc.History(ctx, variantID, warehouseID, 2, nil)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(page) != 2 || page[0].Seq != 5 || page[1].Seq != 4 {
		t.Fatalf("unexpected first page: %+v", page)
	}

	before := page[1].Seq
	next, err := svc.History(ctx, variantID, warehouseID, 2, &before)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(next) != 2 || next[0].Seq != 3 || next[1].Seq != 2 {
		t.Fatalf("unexpected second page: %+v", next)
	}
}
