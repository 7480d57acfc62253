package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/username/clearinghouse/src/logger"
	"github.com/username/clearinghouse/src/models"
	"github.com/username/clearinghouse/src/store"
	"github.com/username/clearinghouse/src/utils"
)

type TradeHandler struct {
	tradeStore *store.TradeStore
}

func NewTradeHandler(tradeStore *store.TradeStore) *TradeHandler {
	return &TradeHandler{tradeStore: tradeStore}
}

// parseDateParam extracts and validates the required date query parameter.
func parseDateParam(r *http.Request) (time.Time, error) {
	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		return time.Time{}, fmt.Errorf("date parameter is required")
	}
	date, err := time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("Invalid date format. Use YYYY-MM-DD")
	}
	return date, nil
}

// HandleGetBlotter returns the raw trade records for the given date.
func (h *TradeHandler) HandleGetBlotter(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := h.tradeStore.ListByDate(r.Context(), date)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to query blotter", "date", date, "error", err)
		utils.SendJSONError(w, "Failed to retrieve blotter", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.TradeRecord{}
	}

	utils.SendJSON(w, map[string]interface{}{
		"date":    date.Format(models.DateLayout),
		"records": records,
		"count":   len(records),
	})
}
