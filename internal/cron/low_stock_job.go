package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/internal/availability"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
	"github.com/stockroomhq/stockroom-backend/pkg/logger"
	"github.com/stockroomhq/stockroom-backend/pkg/metrics"
	"github.com/stockroomhq/stockroom-backend/pkg/outbox"
	"github.com/stockroomhq/stockroom-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type lowStockScanner interface {
	LowStock(ctx context.Context) ([]availability.LowStockItem, error)
}

type outboxEmitter interface {
	EmitIfNotPending(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// LowStockJobParams configure the low stock alerting scan.
type LowStockJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Availability lowStockScanner
	Outbox       outboxEmitter
	Metrics      *metrics.StockMetrics
}

// NewLowStockJob builds the cron job that sweeps watched stock keys and
// queues an alert event for each one at or below its threshold.
func NewLowStockJob(params LowStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Availability == nil {
		return nil, fmt.Errorf("availability service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &lowStockJob{
		logg:         params.Logger,
		db:           params.DB,
		availability: params.Availability,
		outbox:       params.Outbox,
		metrics:      params.Metrics,
		now:          time.Now,
	}, nil
}

type lowStockJob struct {
	logg         *logger.Logger
	db           txRunner
	availability lowStockScanner
	outbox       outboxEmitter
	metrics      *metrics.StockMetrics
	now          func() time.Time
}

func (j *lowStockJob) Name() string { return "low-stock" }

func (j *lowStockJob) Run(ctx context.Context) error {
	flagged, err := j.availability.LowStock(ctx)
	if err != nil {
		return fmt.Errorf("low stock scan: %w", err)
	}

	var errs []error
	queued := 0
	for _, item := range flagged {
		if err := j.emitAlert(ctx, item); err != nil {
			errs = append(errs, fmt.Errorf("alert for variant %s warehouse %s: %w", item.VariantID, item.WarehouseID, err))
			continue
		}
		queued++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"flagged": len(flagged),
		"queued":  queued,
		"failed":  len(errs),
	})
	j.logg.Info(logCtx, "low stock sweep complete")
	return multierr.Combine(errs...)
}

func (j *lowStockJob) emitAlert(ctx context.Context, item availability.LowStockItem) error {
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		event := outbox.DomainEvent{
			EventType:     enums.EventLowStock,
			AggregateType: enums.AggregateStockItem,
			AggregateID:   alertAggregateID(item),
			Version:       1,
			OccurredAt:    j.now().UTC(),
			Data: payloads.LowStockEvent{
				VariantID:   item.VariantID,
				WarehouseID: item.WarehouseID,
				Available:   int64(item.Available),
				Threshold:   int64(item.Threshold),
				Critical:    item.Critical,
				DetectedAt:  j.now().UTC(),
			},
		}
		return j.outbox.EmitIfNotPending(ctx, tx, event)
	})
	if err != nil {
		return err
	}
	if j.metrics != nil {
		j.metrics.IncLowStockAlert()
	}
	return nil
}

// alertAggregateID derives a stable id per stock key and severity, so a key
// that escalates from low to critical raises a fresh alert while a repeat at
// the same severity stays deduplicated until the pending event publishes.
func alertAggregateID(item availability.LowStockItem) uuid.UUID {
	severity := "low"
	if item.Critical {
		severity = "critical"
	}
	seed := fmt.Sprintf("low_stock:%s:%s:%s", item.VariantID, item.WarehouseID, severity)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed))
}
