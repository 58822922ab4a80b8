package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/internal/availability"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
	"github.com/stockroomhq/stockroom-backend/pkg/logger"
	"github.com/stockroomhq/stockroom-backend/pkg/outbox"
	"github.com/stockroomhq/stockroom-backend/pkg/outbox/payloads"
)

type fakeScanner struct {
	items []availability.LowStockItem
	err   error
}

func (f *fakeScanner) LowStock(context.Context) ([]availability.LowStockItem, error) {
	return f.items, f.err
}

type fakeEmitter struct {
	events []outbox.DomainEvent
	err    error
}

func (f *fakeEmitter) EmitIfNotPending(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type passthroughTxRunner struct{}

func (passthroughTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func flaggedItem(available, threshold int, critical bool) availability.LowStockItem {
	return availability.LowStockItem{
		Snapshot: availability.Snapshot{
			VariantID:   uuid.New(),
			WarehouseID: uuid.New(),
			OnHand:      available,
			Available:   available,
		},
		Threshold: threshold,
		Critical:  critical,
	}
}

func newLowStockJob(t *testing.T, scanner *fakeScanner, emitter *fakeEmitter) *lowStockJob {
	t.Helper()
	jobIface, err := NewLowStockJob(LowStockJobParams{
		Logger:       logger.New(logger.Options{ServiceName: "test"}),
		DB:           passthroughTxRunner{},
		Availability: scanner,
		Outbox:       emitter,
	})
	if err != nil {
		t.Fatalf("NewLowStockJob: %v", err)
	}
	job, ok := jobIface.(*lowStockJob)
	if !ok {
		t.Fatalf("expected lowStockJob, got %T", jobIface)
	}
	return job
}

func TestLowStockJobEmitsOneEventPerFlaggedKey(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	scanner := &fakeScanner{items: []availability.LowStockItem{
		flaggedItem(9, 10, false),
		flaggedItem(2, 10, true),
	}}
	emitter := &fakeEmitter{}
	job := newLowStockJob(t, scanner, emitter)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(emitter.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(emitter.events))
	}
	for i, event := range emitter.events {
		if event.EventType != enums.EventLowStock {
			t.Fatalf("event %d type = %s", i, event.EventType)
		}
		if event.AggregateType != enums.AggregateStockItem {
			t.Fatalf("event %d aggregate type = %s", i, event.AggregateType)
		}
		payload, ok := event.Data.(payloads.LowStockEvent)
		if !ok {
			t.Fatalf("event %d payload type %T", i, event.Data)
		}
		if !payload.DetectedAt.Equal(now) {
			t.Fatalf("event %d detected at %s", i, payload.DetectedAt)
		}
		if payload.Critical != scanner.items[i].Critical {
			t.Fatalf("event %d critical = %v", i, payload.Critical)
		}
	}
}

func TestLowStockJobAggregateIDChangesWithSeverity(t *testing.T) {
	item := flaggedItem(9, 10, false)
	lowID := alertAggregateID(item)
	if again := alertAggregateID(item); again != lowID {
		t.Fatalf("aggregate id must be stable, got %s and %s", lowID, again)
	}
	item.Critical = true
	if criticalID := alertAggregateID(item); criticalID == lowID {
		t.Fatal("critical escalation must produce a new aggregate id")
	}
}

func TestLowStockJobContinuesPastEmitFailure(t *testing.T) {
	scanner := &fakeScanner{items: []availability.LowStockItem{
		flaggedItem(1, 5, true),
		flaggedItem(4, 5, false),
	}}
	emitter := &fakeEmitter{err: errors.New("boom")}
	job := newLowStockJob(t, scanner, emitter)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected combined error")
	}
}

func TestLowStockJobPropagatesScanError(t *testing.T) {
	scanner := &fakeScanner{err: errors.New("db down")}
	job := newLowStockJob(t, scanner, &fakeEmitter{})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
