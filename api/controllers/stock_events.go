package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/stockroomhq/stockroom-backend/api/responses"
	"github.com/stockroomhq/stockroom-backend/api/validators"
	"github.com/stockroomhq/stockroom-backend/internal/orderflow"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
	"github.com/stockroomhq/stockroom-backend/pkg/logger"
)

type stockEventRequest struct {
	Type        string    `json:"type" validate:"required"`
	OrderRef    string    `json:"order_ref" validate:"required"`
	VariantID   uuid.UUID `json:"variant_id" validate:"required"`
	WarehouseID uuid.UUID `json:"warehouse_id" validate:"required"`
	Qty         int       `json:"qty,omitempty"`
}

// StockEvent is the single entry point for the order collaborator: reserve,
// release, ship and return_in all land here and dispatch on the event type.
func StockEvent(svc orderflow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload stockEventRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		eventType, err := enums.ParseStockEventType(payload.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stock event type"))
			return
		}

		input := orderflow.StockEventInput{
			OrderRef:    payload.OrderRef,
			VariantID:   payload.VariantID,
			WarehouseID: payload.WarehouseID,
			Qty:         payload.Qty,
			ActorID:     actor,
		}

		switch eventType {
		case enums.StockEventReserve:
			reservation, err := svc.Reserve(r.Context(), input)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccessStatus(w, http.StatusCreated, reservation)

		case enums.StockEventRelease:
			reservation, err := svc.Release(r.Context(), payload.OrderRef, payload.VariantID, payload.WarehouseID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, reservation)

		case enums.StockEventShip:
			reservation, err := svc.Ship(r.Context(), payload.OrderRef, payload.VariantID, payload.WarehouseID, actor)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, reservation)

		case enums.StockEventReturnIn:
			if err := svc.ReturnIn(r.Context(), input); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, map[string]string{"status": "returned"})

		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unsupported stock event type"))
		}
	}
}
