package warehouses

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/pkg/config"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Warehouse{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(newTestDB(t)), config.InventoryConfig{DefaultLowStockThreshold: 10})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateNormalizesCode(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	warehouse, err := svc.Create(context.Background(), CreateWarehouseInput{Code: " main ", Name: "Main DC"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if warehouse.Code != "MAIN" {
		t.Fatalf("code = %q, want MAIN", warehouse.Code)
	}
	if !warehouse.IsActive {
		t.Fatal("new warehouse should be active")
	}
	if warehouse.AllowNegativeStock {
		t.Fatal("allow_negative_stock should default to false")
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	cases := []CreateWarehouseInput{
		{Code: "", Name: "No code"},
		{Code: "lower case!", Name: "Bad chars"},
		{Code: "OK-1", Name: "  "},
	}
	for _, input := range cases {
		if _, err := svc.Create(context.Background(), input); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("input %+v: expected VALIDATION_ERROR, got %v", input, err)
		}
	}
}

func TestCreateDuplicateCodeConflicts(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, CreateWarehouseInput{Code: "EAST-2", Name: "East"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Create(ctx, CreateWarehouseInput{Code: "east-2", Name: "Duplicate"}); !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected CONFLICT for duplicate code, got %v", err)
	}
}

func TestDeactivateIsIdempotentAndFiltersList(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	warehouse, err := svc.Create(ctx, CreateWarehouseInput{Code: "WEST", Name: "West"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < 2; i++ {
		got, err := svc.Deactivate(ctx, warehouse.ID)
		if err != nil {
			t.Fatalf("deactivate #%d: %v", i+1, err)
		}
		if got.IsActive {
			t.Fatal("warehouse should be inactive")
		}
	}

	active, err := svc.List(ctx, false)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active warehouses, got %d", len(active))
	}
	all, err := svc.List(ctx, true)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 warehouse total, got %d", len(all))
	}
}

func TestUpdateKeepsCodeImmutable(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	warehouse, err := svc.Create(ctx, CreateWarehouseInput{Code: "NORTH", Name: "North"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	name := "North Annex"
	allow := true
	updated, err := svc.Update(ctx, warehouse.ID, UpdateWarehouseInput{Name: &name, AllowNegativeStock: &allow})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Code != "NORTH" {
		t.Fatalf("code changed to %q", updated.Code)
	}
	if updated.Name != name || !updated.AllowNegativeStock {
		t.Fatalf("update not applied: %+v", updated)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	if _, err := svc.GetByID(context.Background(), uuid.New()); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
