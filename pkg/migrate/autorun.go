package migrate

import (
	"context"
	"fmt"

	"github.com/stockroomhq/stockroom-backend/pkg/config"
	"github.com/stockroomhq/stockroom-backend/pkg/db"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/logger"
)

// AllModels lists every table the schema owns, in dependency order.
func AllModels() []any {
	return []any{
		&models.Warehouse{},
		&models.InventoryVoucher{},
		&models.VoucherItem{},
		&models.VoucherSequence{},
		&models.LedgerEntry{},
		&models.StockReservation{},
		&models.StockThreshold{},
		&models.OutboxEvent{},
	}
}

// MaybeRunDev executes migrations automatically when the app is running in
// dev mode and the feature flag is enabled. The sqlite driver has no goose
// migrations; its schema comes straight from the GORM models.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if cfg.DB.Driver == "sqlite" {
		logg.Info(ctx, "auto-migrating sqlite schema from models")
		return client.DB().AutoMigrate(AllModels()...)
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	meta := map[string]any{"env": cfg.App.Env, "dir": DefaultDir}
	ctx = logg.WithFields(ctx, meta)
	logg.Info(ctx, "running Goose migrations (dev auto-run)")

	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "Goose migrations completed")
	return nil
}
