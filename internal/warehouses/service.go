package warehouses

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/stockroomhq/stockroom-backend/pkg/config"
	dbpkg "github.com/stockroomhq/stockroom-backend/pkg/db"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
)

// codeRe matches warehouse codes like "MAIN" or "EAST-2".
var codeRe = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{1,31}$`)

// Service exposes warehouse registry operations. Warehouses are never
// deleted; deactivation hides them from new vouchers while history stays
// addressable.
type Service interface {
	Create(ctx context.Context, input CreateWarehouseInput) (*models.Warehouse, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateWarehouseInput) (*models.Warehouse, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*models.Warehouse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Warehouse, error)
	List(ctx context.Context, includeInactive bool) ([]models.Warehouse, error)
}

type service struct {
	repo      Repository
	inventory config.InventoryConfig
}

// NewService wires a warehouse service with the provided repository.
func NewService(repo Repository, inventory config.InventoryConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("warehouse repository required")
	}
	return &service{repo: repo, inventory: inventory}, nil
}

// CreateWarehouseInput captures the fields for registering a warehouse.
type CreateWarehouseInput struct {
	Code               string
	Name               string
	AllowNegativeStock *bool
}

// UpdateWarehouseInput captures the mutable warehouse fields. Code is
// immutable once assigned.
type UpdateWarehouseInput struct {
	Name               *string
	AllowNegativeStock *bool
}

func (s *service) Create(ctx context.Context, input CreateWarehouseInput) (*models.Warehouse, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if !codeRe.MatchString(code) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "warehouse code must be 2-32 chars of A-Z, 0-9 or dash")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "warehouse name is required")
	}

	allowNegative := s.inventory.AllowNegativeDefault
	if input.AllowNegativeStock != nil {
		allowNegative = *input.AllowNegativeStock
	}

	warehouse := &models.Warehouse{
		ID:                 uuid.New(),
		Code:               code,
		Name:               name,
		IsActive:           true,
		AllowNegativeStock: allowNegative,
	}
	if err := s.repo.Create(ctx, warehouse); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_warehouses_code") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("warehouse code %q already exists", code))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create warehouse")
	}
	return warehouse, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateWarehouseInput) (*models.Warehouse, error) {
	warehouse, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "warehouse name cannot be empty")
		}
		warehouse.Name = name
	}
	if input.AllowNegativeStock != nil {
		warehouse.AllowNegativeStock = *input.AllowNegativeStock
	}

	if err := s.repo.Update(ctx, warehouse); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update warehouse")
	}
	return warehouse, nil
}

func (s *service) Deactivate(ctx context.Context, id uuid.UUID) (*models.Warehouse, error) {
	warehouse, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !warehouse.IsActive {
		return warehouse, nil
	}
	warehouse.IsActive = false
	if err := s.repo.Update(ctx, warehouse); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate warehouse")
	}
	return warehouse, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Warehouse, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "warehouse id is required")
	}
	warehouse, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "warehouse not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find warehouse")
	}
	return warehouse, nil
}

func (s *service) List(ctx context.Context, includeInactive bool) ([]models.Warehouse, error) {
	rows, err := s.repo.List(ctx, includeInactive)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list warehouses")
	}
	return rows, nil
}
