package handlers

import (
	"net/http"

	"github.com/username/clearinghouse/src/logger"
	"github.com/username/clearinghouse/src/models"
	"github.com/username/clearinghouse/src/positions"
	"github.com/username/clearinghouse/src/utils"
)

type PositionHandler struct {
	positionService *positions.Service
}

func NewPositionHandler(positionService *positions.Service) *PositionHandler {
	return &PositionHandler{positionService: positionService}
}

// HandleGetPositions returns the percentage of holdings by ticker for each
// account on the given date.
func (h *PositionHandler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	pos, err := h.positionService.PositionsFor(r.Context(), date)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to compute positions", "date", date, "error", err)
		utils.SendJSONError(w, "Failed to retrieve positions", http.StatusInternalServerError)
		return
	}

	utils.SendJSON(w, map[string]interface{}{
		"date":      date.Format(models.DateLayout),
		"positions": pos,
	})
}

// HandleGetAlarms returns every position exceeding the concentration
// threshold on the given date.
func (h *PositionHandler) HandleGetAlarms(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	alarms, err := h.positionService.AlarmsFor(r.Context(), date)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to compute alarms", "date", date, "error", err)
		utils.SendJSONError(w, "Failed to retrieve alarms", http.StatusInternalServerError)
		return
	}

	utils.SendJSON(w, map[string]interface{}{
		"date":   date.Format(models.DateLayout),
		"alarms": alarms,
	})
}
