package vouchers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/internal/ledger"
	dbpkg "github.com/stockroomhq/stockroom-backend/pkg/db"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
	"github.com/stockroomhq/stockroom-backend/pkg/logger"
	"github.com/stockroomhq/stockroom-backend/pkg/metrics"
	"github.com/stockroomhq/stockroom-backend/pkg/outbox"
	"github.com/stockroomhq/stockroom-backend/pkg/outbox/payloads"
	"github.com/stockroomhq/stockroom-backend/pkg/pagination"
)

const minNoteLength = 3

type warehouseReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Warehouse, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// VariantResolver is the catalog collaborator port. Resolve reports, per
// variant id, whether the catalog knows the SKU.
type VariantResolver interface {
	Resolve(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error)
}

type nopResolver struct{}

func (nopResolver) Resolve(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	known := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		known[id] = id != uuid.Nil
	}
	return known, nil
}

// NewNopResolver accepts every non-nil variant id. The storefront swaps in a
// catalog-backed resolver at wiring time.
func NewNopResolver() VariantResolver {
	return nopResolver{}
}

// ItemInput is one requested voucher line.
type ItemInput struct {
	VariantID uuid.UUID
	Qty       int
	Direction *enums.ItemDirection
	Note      *string
}

// CreateVoucherInput captures a new draft voucher.
type CreateVoucherInput struct {
	Type        enums.VoucherType
	WarehouseID uuid.UUID
	Note        string
	Items       []ItemInput
	ActorID     uuid.UUID
}

// Service drives the voucher lifecycle: draft → submitted → approved →
// posted, with cancel available any time before posting.
type Service interface {
	Create(ctx context.Context, input CreateVoucherInput) (*models.InventoryVoucher, error)
	UpdateItems(ctx context.Context, id uuid.UUID, version int, items []ItemInput) (*models.InventoryVoucher, error)
	Submit(ctx context.Context, id uuid.UUID, version int) (*models.InventoryVoucher, error)
	Approve(ctx context.Context, id uuid.UUID, version int, approver uuid.UUID) (*models.InventoryVoucher, error)
	Cancel(ctx context.Context, id uuid.UUID, version int) (*models.InventoryVoucher, error)
	Post(ctx context.Context, id uuid.UUID, actor uuid.UUID) (*models.InventoryVoucher, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryVoucher, error)
	List(ctx context.Context, filter ListFilter, page pagination.Params) (pagination.Page[models.InventoryVoucher], error)
}

type service struct {
	repo       Repository
	warehouses warehouseReader
	resolver   VariantResolver
	ledger     ledger.Service
	events     *outbox.Service
	runner     txRunner
	stock      *metrics.StockMetrics
	logg       *logger.Logger
}

// NewService wires the voucher service. Metrics and logger may be nil.
func NewService(
	repo Repository,
	warehouses warehouseReader,
	resolver VariantResolver,
	ledgerSvc ledger.Service,
	events *outbox.Service,
	runner txRunner,
	stock *metrics.StockMetrics,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("voucher repository required")
	}
	if warehouses == nil {
		return nil, fmt.Errorf("warehouse reader required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("variant resolver required")
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
	return &service{
		repo:       repo,
		warehouses: warehouses,
		resolver:   resolver,
		ledger:     ledgerSvc,
		events:     events,
		runner:     runner,
		stock:      stock,
		logg:       logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateVoucherInput) (*models.InventoryVoucher, error) {
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid voucher type %q", input.Type))
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	note := strings.TrimSpace(input.Note)
	if len(note) < minNoteLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("voucher note must be at least %d characters", minNoteLength))
	}

	items, err := buildItems(input.Type, input.Items)
	if err != nil {
		return nil, err
	}

	warehouse, err := s.warehouses.FindByID(ctx, input.WarehouseID)
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "warehouse does not exist")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load warehouse")
	}
	if !warehouse.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "warehouse is deactivated")
	}

	voucher := &models.InventoryVoucher{
		ID:          uuid.New(),
		Type:        input.Type,
		Status:      enums.VoucherStatusDraft,
		WarehouseID: input.WarehouseID,
		Note:        note,
		CreatedBy:   input.ActorID,
		Version:     1,
		Items:       items,
	}
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		code, err := repo.NextCode(ctx, input.Type)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "claim voucher code")
		}
		voucher.Code = code
		if err := repo.Create(ctx, voucher); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create voucher")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return voucher, nil
}

func buildItems(voucherType enums.VoucherType, inputs []ItemInput) ([]models.VoucherItem, error) {
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "voucher requires at least one item")
	}
	seen := map[uuid.UUID]struct{}{}
	items := make([]models.VoucherItem, 0, len(inputs))
	for i, in := range inputs {
		if in.VariantID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: variant id is required", i+1))
		}
		if _, dup := seen[in.VariantID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: variant appears more than once", i+1))
		}
		seen[in.VariantID] = struct{}{}
		if in.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: qty must be positive", i+1))
		}
		direction := enums.ItemDirectionIn
		if in.Direction != nil {
			direction = *in.Direction
		}
		if !direction.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: invalid direction %q", i+1, direction))
		}
		if voucherType != enums.VoucherTypeAdjust && direction != enums.ItemDirectionIn {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: direction is only configurable on adjust vouchers", i+1))
		}
		items = append(items, models.VoucherItem{
			ID:        uuid.New(),
			VariantID: in.VariantID,
			Qty:       in.Qty,
			Direction: direction,
			Note:      in.Note,
			Position:  i,
		})
	}
	return items, nil
}

func (s *service) UpdateItems(ctx context.Context, id uuid.UUID, version int, inputs []ItemInput) (*models.InventoryVoucher, error) {
	voucher, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if voucher.Status != enums.VoucherStatusDraft {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot edit items of a %s voucher", voucher.Status))
	}

	items, err := buildItems(voucher.Type, inputs)
	if err != nil {
		return nil, err
	}

	swapped, err := s.repo.ReplaceItems(ctx, id, version, items)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replace voucher items")
	}
	if !swapped {
		return nil, s.casMiss(ctx, id, enums.VoucherStatusDraft)
	}
	return s.GetByID(ctx, id)
}

// Submit validates the draft as a whole and reports every violation at once,
// so the clerk can fix the voucher in a single pass.
func (s *service) Submit(ctx context.Context, id uuid.UUID, version int) (*models.InventoryVoucher, error) {
	voucher, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if voucher.Status != enums.VoucherStatusDraft {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot submit a %s voucher", voucher.Status))
	}

	var violations []string
	if len(voucher.Items) == 0 {
		violations = append(violations, "voucher has no items")
	}
	if len(strings.TrimSpace(voucher.Note)) < minNoteLength {
		violations = append(violations, fmt.Sprintf("note must be at least %d characters", minNoteLength))
	}
	ids := make([]uuid.UUID, 0, len(voucher.Items))
	for i, item := range voucher.Items {
		if item.Qty <= 0 {
			violations = append(violations, fmt.Sprintf("item %d: qty must be positive", i+1))
		}
		ids = append(ids, item.VariantID)
	}
	if len(ids) > 0 {
		known, err := s.resolver.Resolve(ctx, ids)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve variants")
		}
		for i, item := range voucher.Items {
			if !known[item.VariantID] {
				violations = append(violations, fmt.Sprintf("item %d: unknown variant %s", i+1, item.VariantID))
			}
		}
	}
	if len(violations) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "voucher failed submit validation").
			WithDetails(violations)
	}

	return s.transition(ctx, id, StatusTransition{
		FromStatus: enums.VoucherStatusDraft,
		Version:    version,
		ToStatus:   enums.VoucherStatusSubmitted,
	})
}

func (s *service) Approve(ctx context.Context, id uuid.UUID, version int, approver uuid.UUID) (*models.InventoryVoucher, error) {
	if approver == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "approver id is required")
	}
	voucher, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if voucher.Status != enums.VoucherStatusSubmitted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot approve a %s voucher", voucher.Status))
	}
	return s.transition(ctx, id, StatusTransition{
		FromStatus: enums.VoucherStatusSubmitted,
		Version:    version,
		ToStatus:   enums.VoucherStatusApproved,
		ApprovedBy: &approver,
	})
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID, version int) (*models.InventoryVoucher, error) {
	voucher, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if voucher.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot cancel a %s voucher", voucher.Status))
	}
	return s.transition(ctx, id, StatusTransition{
		FromStatus: voucher.Status,
		Version:    version,
		ToStatus:   enums.VoucherStatusCancelled,
	})
}

// Post writes the approved voucher to the ledger. The status flip, the
// ledger entries and the outbox event share one transaction under the ledger
// key locks: any failure leaves the voucher approved and the ledger untouched.
func (s *service) Post(ctx context.Context, id uuid.UUID, actor uuid.UUID) (*models.InventoryVoucher, error) {
	if actor == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	voucher, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if voucher.Status != enums.VoucherStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot post a %s voucher", voucher.Status))
	}

	keys := make([]ledger.Key, 0, len(voucher.Items))
	for _, item := range voucher.Items {
		keys = append(keys, ledger.Key{VariantID: item.VariantID, WarehouseID: voucher.WarehouseID})
	}
	release := s.ledger.LockKeys(keys)
	defer release()

	started := time.Now()
	postedAt := time.Now().UTC()
	refType := enums.RefTypeVoucher
	refID := voucher.ID.String()

	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.WithTx(tx).Transition(ctx, id, StatusTransition{
			FromStatus: enums.VoucherStatusApproved,
			Version:    voucher.Version,
			ToStatus:   enums.VoucherStatusPosted,
			PostedAt:   &postedAt,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "transition voucher")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeConflict, "voucher changed concurrently, reload and retry")
		}

		entries := make([]ledger.AppendEntry, 0, len(voucher.Items))
		for _, item := range voucher.Items {
			entries = append(entries, ledger.AppendEntry{
				VariantID:   item.VariantID,
				WarehouseID: voucher.WarehouseID,
				Type:        movementFor(voucher.Type),
				Qty:         signedQty(voucher.Type, item),
				RefType:     &refType,
				RefID:       &refID,
				Note:        item.Note,
				ActorID:     actor,
			})
		}
		appended, err := s.ledger.AppendTx(ctx, tx, entries)
		if err != nil {
			return err
		}

		lines := make([]payloads.PostedLineItem, 0, len(appended))
		for _, row := range appended {
			lines = append(lines, payloads.PostedLineItem{
				VariantID:  row.VariantID,
				Qty:        int64(row.Qty),
				Direction:  directionOf(row.Qty),
				NewBalance: int64(row.Balance),
			})
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventVoucherPosted,
			AggregateType: enums.AggregateVoucher,
			AggregateID:   voucher.ID,
			Actor:         &outbox.ActorRef{ActorID: actor},
			Data: payloads.VoucherPostedEvent{
				VoucherID:   voucher.ID,
				VoucherCode: voucher.Code,
				VoucherType: voucher.Type,
				WarehouseID: voucher.WarehouseID,
				Items:       lines,
				PostedAt:    postedAt,
			},
			Version: 1,
		})
	})
	if err != nil {
		s.stock.IncPostFailure(string(pkgerrors.As(err).Code()))
		return nil, err
	}

	s.stock.ObservePostDuration(time.Since(started))
	s.stock.IncVoucherPosted(string(voucher.Type))
	if s.logg != nil {
		logCtx := s.logg.WithVoucherCode(ctx, voucher.Code)
		s.logg.Info(logCtx, "voucher posted")
	}
	return s.GetByID(ctx, id)
}

func movementFor(voucherType enums.VoucherType) enums.MovementType {
	switch voucherType {
	case enums.VoucherTypeReceipt:
		return enums.MovementTypeReceipt
	case enums.VoucherTypeIssue:
		return enums.MovementTypeIssue
	default:
		return enums.MovementTypeAdjust
	}
}

func signedQty(voucherType enums.VoucherType, item models.VoucherItem) int {
	switch voucherType {
	case enums.VoucherTypeIssue:
		return -item.Qty
	case enums.VoucherTypeAdjust:
		return item.Direction.Sign() * item.Qty
	default:
		return item.Qty
	}
}

func directionOf(qty int) enums.ItemDirection {
	if qty < 0 {
		return enums.ItemDirectionOut
	}
	return enums.ItemDirectionIn
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryVoucher, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "voucher id is required")
	}
	voucher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "voucher not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find voucher")
	}
	return voucher, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, page pagination.Params) (pagination.Page[models.InventoryVoucher], error) {
	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return pagination.Page[models.InventoryVoucher]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filter, pagination.LimitWithBuffer(page.Limit), cursor)
	if err != nil {
		return pagination.Page[models.InventoryVoucher]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list vouchers")
	}
	return pagination.NewPage(rows, page.Limit, func(v models.InventoryVoucher) pagination.Cursor {
		return pagination.Cursor{CreatedAt: v.CreatedAt, ID: v.ID}
	}), nil
}

func (s *service) transition(ctx context.Context, id uuid.UUID, change StatusTransition) (*models.InventoryVoucher, error) {
	moved, err := s.repo.Transition(ctx, id, change)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "transition voucher")
	}
	if !moved {
		return nil, s.casMiss(ctx, id, change.FromStatus)
	}
	return s.GetByID(ctx, id)
}

// casMiss distinguishes a stale version from a stale status after a failed
// compare-and-swap.
func (s *service) casMiss(ctx context.Context, id uuid.UUID, expected enums.VoucherStatus) error {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Status != expected {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("voucher is %s, expected %s", current.Status, expected))
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "voucher changed concurrently, reload and retry")
}
