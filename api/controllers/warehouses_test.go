package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/api/middleware"
	"github.com/stockroomhq/stockroom-backend/internal/warehouses"
	"github.com/stockroomhq/stockroom-backend/pkg/config"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
)

func newWarehouseService(t *testing.T) warehouses.Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Warehouse{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	svc, err := warehouses.NewService(warehouses.NewRepository(db), config.InventoryConfig{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func newWarehouseRouter(svc warehouses.Service) http.Handler {
	r := chi.NewRouter()
	r.Post("/warehouses", WarehouseCreate(svc, nil))
	r.Get("/warehouses/{warehouseId}", WarehouseDetail(svc, nil))
	r.Post("/warehouses/{warehouseId}/deactivate", WarehouseDeactivate(svc, nil))
	return r
}

func doJSON(t *testing.T, handler http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req = req.WithContext(middleware.WithActor(context.Background(), uuid.NewString(), "admin"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestWarehouseCreateAndFetch(t *testing.T) {
	t.Parallel()

	router := newWarehouseRouter(newWarehouseService(t))

	rec := doJSON(t, router, http.MethodPost, "/warehouses", map[string]any{
		"code": "main",
		"name": "Main warehouse",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var created struct {
		Data models.Warehouse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Data.Code != "MAIN" {
		t.Fatalf("code not normalized: %q", created.Data.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/warehouses/"+created.Data.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("detail status = %d", rec.Code)
	}
}

func TestWarehouseCreateValidation(t *testing.T) {
	t.Parallel()

	router := newWarehouseRouter(newWarehouseService(t))

	rec := doJSON(t, router, http.MethodPost, "/warehouses", map[string]any{"code": "x!"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "VALIDATION_ERROR") {
		t.Fatalf("expected VALIDATION_ERROR envelope, got %s", rec.Body.String())
	}
}

func TestWarehouseDuplicateCodeConflicts(t *testing.T) {
	t.Parallel()

	router := newWarehouseRouter(newWarehouseService(t))

	body := map[string]any{"code": "EAST-1", "name": "East"}
	if rec := doJSON(t, router, http.MethodPost, "/warehouses", body); rec.Code != http.StatusCreated {
		t.Fatalf("first create status = %d", rec.Code)
	}
	rec := doJSON(t, router, http.MethodPost, "/warehouses", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestWarehouseDeactivateIsIdempotent(t *testing.T) {
	t.Parallel()

	router := newWarehouseRouter(newWarehouseService(t))

	rec := doJSON(t, router, http.MethodPost, "/warehouses", map[string]any{"code": "WEST", "name": "West"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created struct {
		Data models.Warehouse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	target := "/warehouses/" + created.Data.ID.String() + "/deactivate"
	for i := 0; i < 2; i++ {
		rec = doJSON(t, router, http.MethodPost, target, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("deactivate #%d status = %d", i+1, rec.Code)
		}
	}

	var updated struct {
		Data models.Warehouse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Data.IsActive {
		t.Fatal("warehouse should be inactive")
	}
}
