package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/stockroomhq/stockroom-backend/api/responses"
	"github.com/stockroomhq/stockroom-backend/api/validators"
	"github.com/stockroomhq/stockroom-backend/internal/ledger"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
	"github.com/stockroomhq/stockroom-backend/pkg/logger"
)

type ledgerHistoryResponse struct {
	Entries []models.LedgerEntry `json:"entries"`
	Balance int                  `json:"balance"`
}

// LedgerHistory pages through a key's movements, newest first. Pass the last
// seen seq as before_seq to continue.
func LedgerHistory(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
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
		limit, err := validators.ParseQueryInt(r, "limit", ledger.DefaultHistoryLimit, 1, ledger.MaxHistoryLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var beforeSeq *int64
		if raw := strings.TrimSpace(r.URL.Query().Get("before_seq")); raw != "" {
			seq, parseErr := strconv.ParseInt(raw, 10, 64)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "before_seq must be numeric"))
				return
			}
			beforeSeq = &seq
		}

		entries, err := svc.History(r.Context(), variantID, warehouseID, limit, beforeSeq)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		balance, err := svc.CurrentBalance(r.Context(), variantID, warehouseID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, ledgerHistoryResponse{Entries: entries, Balance: balance})
	}
}
