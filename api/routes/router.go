package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stockroomhq/stockroom-backend/api/controllers"
	"github.com/stockroomhq/stockroom-backend/api/middleware"
	"github.com/stockroomhq/stockroom-backend/internal/availability"
	"github.com/stockroomhq/stockroom-backend/internal/ledger"
	"github.com/stockroomhq/stockroom-backend/internal/orderflow"
	"github.com/stockroomhq/stockroom-backend/internal/vouchers"
	"github.com/stockroomhq/stockroom-backend/internal/warehouses"
	pkgauth "github.com/stockroomhq/stockroom-backend/pkg/auth"
	"github.com/stockroomhq/stockroom-backend/pkg/config"
	"github.com/stockroomhq/stockroom-backend/pkg/db"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
	"github.com/stockroomhq/stockroom-backend/pkg/logger"
	pkgredis "github.com/stockroomhq/stockroom-backend/pkg/redis"
)

// Services bundles everything the HTTP surface depends on.
type Services struct {
	Warehouses   warehouses.Service
	Vouchers     vouchers.Service
	Ledger       ledger.Service
	Availability availability.Service
	OrderFlow    orderflow.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	tokens *pkgauth.TokenManager,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	admin := middleware.RequireRole(string(enums.ActorRoleAdmin), logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(tokens, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.With(admin).Post("/warehouses", controllers.WarehouseCreate(svcs.Warehouses, logg))
		r.Get("/warehouses", controllers.WarehouseList(svcs.Warehouses, logg))
		r.Get("/warehouses/{warehouseId}", controllers.WarehouseDetail(svcs.Warehouses, logg))
		r.With(admin).Put("/warehouses/{warehouseId}", controllers.WarehouseUpdate(svcs.Warehouses, logg))
		r.With(admin).Post("/warehouses/{warehouseId}/deactivate", controllers.WarehouseDeactivate(svcs.Warehouses, logg))

		r.Post("/vouchers", controllers.VoucherCreate(svcs.Vouchers, logg))
		r.Get("/vouchers", controllers.VoucherList(svcs.Vouchers, logg))
		r.Get("/vouchers/{voucherId}", controllers.VoucherDetail(svcs.Vouchers, logg))
		r.Put("/vouchers/{voucherId}/items", controllers.VoucherUpdateItems(svcs.Vouchers, logg))
		r.Post("/vouchers/{voucherId}/submit", controllers.VoucherSubmit(svcs.Vouchers, logg))
		r.With(admin).Post("/vouchers/{voucherId}/approve", controllers.VoucherApprove(svcs.Vouchers, logg))
		r.With(admin).Post("/vouchers/{voucherId}/post", controllers.VoucherPost(svcs.Vouchers, logg))
		r.Post("/vouchers/{voucherId}/cancel", controllers.VoucherCancel(svcs.Vouchers, logg))

		r.Get("/availability", controllers.AvailabilitySnapshot(svcs.Availability, logg))
		r.Get("/availability/low-stock", controllers.AvailabilityLowStock(svcs.Availability, logg))
		r.Put("/availability/thresholds", controllers.ThresholdUpsert(svcs.Availability, logg))
		r.Get("/availability/thresholds", controllers.ThresholdList(svcs.Availability, logg))

		r.Get("/ledger", controllers.LedgerHistory(svcs.Ledger, logg))

		r.Post("/stock-events", controllers.StockEvent(svcs.OrderFlow, logg))
	})

	return r
}
