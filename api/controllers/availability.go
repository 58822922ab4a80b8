package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/stockroomhq/stockroom-backend/api/responses"
	"github.com/stockroomhq/stockroom-backend/api/validators"
	"github.com/stockroomhq/stockroom-backend/internal/availability"
	"github.com/stockroomhq/stockroom-backend/pkg/logger"
)

// AvailabilitySnapshot projects on-hand, reserved and available for one key.
func AvailabilitySnapshot(svc availability.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variantID, err := validators.ParseQueryUUID(r, "variant_id", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		warehouseID, err := validators.ParseQueryUUID(r, "warehouse_id", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.Snapshot(r.Context(), variantID, warehouseID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, snapshot)
	}
}

// AvailabilityLowStock lists every watched key at or below its threshold.
func AvailabilityLowStock(svc availability.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flagged, err := svc.LowStock(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, flagged)
	}
}

type thresholdRequest struct {
	VariantID   uuid.UUID `json:"variant_id" validate:"required"`
	WarehouseID uuid.UUID `json:"warehouse_id" validate:"required"`
	Threshold   int       `json:"threshold" validate:"min=0"`
}

// ThresholdUpsert sets the low-stock watch level for a key.
func ThresholdUpsert(svc availability.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload thresholdRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		threshold, err := svc.SetThreshold(r.Context(), availability.ThresholdInput{
			VariantID:   payload.VariantID,
			WarehouseID: payload.WarehouseID,
			Threshold:   payload.Threshold,
			ActorID:     actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, threshold)
	}
}

func ThresholdList(svc availability.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListThresholds(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}
