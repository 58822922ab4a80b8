package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/stockroomhq/stockroom-backend/pkg/db"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
	"github.com/stockroomhq/stockroom-backend/pkg/metrics"
)

// DefaultHistoryLimit bounds history pages when the caller does not choose.
const DefaultHistoryLimit = 50

// MaxHistoryLimit caps history page sizes.
const MaxHistoryLimit = 200

type warehouseReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Warehouse, error)
}

type reservationReader interface {
	OpenReservedQty(ctx context.Context, variantID, warehouseID uuid.UUID) (int, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AppendEntry is one movement to record. Qty is signed: positive adds stock,
// negative removes it.
type AppendEntry struct {
	VariantID   uuid.UUID
	WarehouseID uuid.UUID
	Type        enums.MovementType
	Qty         int
	RefType     *enums.RefType
	RefID       *string
	Note        *string
	ActorID     uuid.UUID
}

// Service records immutable stock movements and serves balances. Appends are
// serialized per stock key so running balances never interleave.
type Service interface {
	Append(ctx context.Context, entries []AppendEntry) ([]models.LedgerEntry, error)
	AppendTx(ctx context.Context, tx *gorm.DB, entries []AppendEntry) ([]models.LedgerEntry, error)
	LockKeys(keys []Key) func()
	CurrentBalance(ctx context.Context, variantID, warehouseID uuid.UUID) (int, error)
	History(ctx context.Context, variantID, warehouseID uuid.UUID, limit int, beforeSeq *int64) ([]models.LedgerEntry, error)
}

type service struct {
	repo         Repository
	warehouses   warehouseReader
	reservations reservationReader
	runner       txRunner
	locks        *keyLock
	stock        *metrics.StockMetrics
}

// NewService wires a ledger service. The metrics argument may be nil.
func NewService(repo Repository, warehouses warehouseReader, reservations reservationReader, runner txRunner, stock *metrics.StockMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if warehouses == nil {
		return nil, fmt.Errorf("warehouse reader required")
	}
	if reservations == nil {
		return nil, fmt.Errorf("reservation reader required")
	}
	if runner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:         repo,
		warehouses:   warehouses,
		reservations: reservations,
		runner:       runner,
		locks:        newKeyLock(),
		stock:        stock,
	}, nil
}

// LockKeys takes the per-key append locks for callers that need to run their
// own transaction around AppendTx. The returned function releases them.
func (s *service) LockKeys(keys []Key) func() {
	return s.locks.acquire(keys)
}

// Append records the entries in a single transaction under the key locks.
func (s *service) Append(ctx context.Context, entries []AppendEntry) ([]models.LedgerEntry, error) {
	keys := make([]Key, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, Key{VariantID: e.VariantID, WarehouseID: e.WarehouseID})
	}
	release := s.locks.acquire(keys)
	defer release()

	var appended []models.LedgerEntry
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.AppendTx(ctx, tx, entries)
		if err != nil {
			return err
		}
		appended = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return appended, nil
}

// AppendTx records the entries inside the caller's transaction. The caller
// must hold the key locks (see LockKeys); voucher posting relies on this to
// combine the status transition, the entries and the outbox emit atomically.
//
// Entries whose (key, type, ref) already exists are skipped silently, so a
// retried append never double-counts. Skipped entries are not returned.
func (s *service) AppendTx(ctx context.Context, tx *gorm.DB, entries []AppendEntry) ([]models.LedgerEntry, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if len(entries) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one ledger entry is required")
	}

	policies := map[uuid.UUID]*models.Warehouse{}
	for _, e := range entries {
		if err := validateEntry(e); err != nil {
			return nil, err
		}
		if _, ok := policies[e.WarehouseID]; ok {
			continue
		}
		warehouse, err := s.warehouses.FindByID(ctx, e.WarehouseID)
		if err != nil {
			if dbpkg.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("warehouse %s does not exist", e.WarehouseID))
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load warehouse policy")
		}
		policies[e.WarehouseID] = warehouse
	}

	repo := s.repo.WithTx(tx)
	latest := map[Key]*models.LedgerEntry{}

	appended := make([]models.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		key := Key{VariantID: e.VariantID, WarehouseID: e.WarehouseID}

		if e.RefType != nil {
			exists, err := repo.ExistsRef(ctx, e.VariantID, e.WarehouseID, e.Type, *e.RefType, *e.RefID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check ledger ref")
			}
			if exists {
				continue
			}
		}

		prev, ok := latest[key]
		if !ok {
			row, err := repo.Latest(ctx, e.VariantID, e.WarehouseID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load latest ledger entry")
			}
			prev = row
		}

		balance, seq := 0, int64(0)
		if prev != nil {
			balance, seq = prev.Balance, prev.Seq
		}
		newBalance := balance + e.Qty
		if !policies[e.WarehouseID].AllowNegativeStock {
			// ISSUE draws from unreserved stock, so its floor is the sum of
			// open holds. SHIP settles its own hold in the same transaction
			// and only needs the on-hand floor.
			floor := 0
			if e.Type == enums.MovementTypeIssue {
				reserved, err := s.reservations.OpenReservedQty(ctx, e.VariantID, e.WarehouseID)
				if err != nil {
					return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum open reservations")
				}
				floor = reserved
			}
			if newBalance < floor {
				return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock,
					fmt.Sprintf("movement of %d would take available stock below zero", e.Qty)).
					WithDetails(map[string]any{
						"variant_id":   e.VariantID.String(),
						"warehouse_id": e.WarehouseID.String(),
						"on_hand":      balance,
						"reserved":     floor,
						"requested":    e.Qty,
					})
			}
		}

		entry := models.LedgerEntry{
			ID:          uuid.New(),
			VariantID:   e.VariantID,
			WarehouseID: e.WarehouseID,
			Type:        e.Type,
			Qty:         e.Qty,
			Balance:     newBalance,
			RefType:     e.RefType,
			RefID:       e.RefID,
			Note:        e.Note,
			CreatedBy:   e.ActorID,
			Seq:         seq + 1,
		}
		if err := repo.Insert(ctx, &entry); err != nil {
			if e.RefType != nil && dbpkg.IsUniqueViolation(err, "ux_ledger_entries_ref") {
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert ledger entry")
		}
		latest[key] = &entry
		appended = append(appended, entry)
		s.stock.IncLedgerAppend(string(e.Type))
	}
	return appended, nil
}

func validateEntry(e AppendEntry) error {
	if e.VariantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if e.WarehouseID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "warehouse id is required")
	}
	if e.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	if !e.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid movement type %q", e.Type))
	}
	if e.Qty == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "ledger qty cannot be zero")
	}
	if e.Type.RemovesStock() && e.Qty > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s movements must carry negative qty", e.Type))
	}
	if !e.Type.RemovesStock() && e.Type != enums.MovementTypeAdjust && e.Qty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s movements must carry positive qty", e.Type))
	}
	if (e.RefType == nil) != (e.RefID == nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "ref type and ref id must be set together")
	}
	if e.RefType != nil && !e.RefType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid ref type %q", *e.RefType))
	}
	return nil
}

// CurrentBalance returns the on-hand balance for a key, zero when the key has
// no history.
func (s *service) CurrentBalance(ctx context.Context, variantID, warehouseID uuid.UUID) (int, error) {
	if variantID == uuid.Nil || warehouseID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "variant id and warehouse id are required")
	}
	entry, err := s.repo.Latest(ctx, variantID, warehouseID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load latest ledger entry")
	}
	if entry == nil {
		return 0, nil
	}
	return entry.Balance, nil
}

// History lists entries newest first. beforeSeq pages backwards through time.
func (s *service) History(ctx context.Context, variantID, warehouseID uuid.UUID, limit int, beforeSeq *int64) ([]models.LedgerEntry, error) {
	if variantID == uuid.Nil || warehouseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id and warehouse id are required")
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	rows, err := s.repo.History(ctx, variantID, warehouseID, limit, beforeSeq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list ledger history")
	}
	return rows, nil
}
