package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/username/clearinghouse/src/logger"
	"github.com/username/clearinghouse/src/models"
	"github.com/username/clearinghouse/src/store"
	"github.com/username/clearinghouse/src/utils"
)

// SystemHandler serves the unauthenticated observability endpoints.
type SystemHandler struct {
	db         *sql.DB
	tradeStore *store.TradeStore
}

func NewSystemHandler(db *sql.DB, tradeStore *store.TradeStore) *SystemHandler {
	return &SystemHandler{db: db, tradeStore: tradeStore}
}

// HandleRoot returns the service index.
func (h *SystemHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	utils.SendJSON(w, map[string]interface{}{
		"service": "Portfolio Data Clearinghouse",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"blotter":   "/api/blotter?date=YYYY-MM-DD",
			"positions": "/api/positions?date=YYYY-MM-DD",
			"alarms":    "/api/alarms?date=YYYY-MM-DD",
			"health":    "/health",
			"metrics":   "/metrics",
		},
	})
}

// HandleHealth reports service and database health.
func (h *SystemHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	dbStatus := "healthy"
	if err := h.db.Ping(); err != nil {
		status = "degraded"
		dbStatus = "unhealthy: " + err.Error()
	}

	utils.SendJSON(w, map[string]interface{}{
		"status":    status,
		"database":  dbStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleMetrics reports basic ingestion metrics.
func (h *SystemHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	total, err := h.tradeStore.CountAll(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to count trades", "error", err)
		utils.SendJSONError(w, "Failed to retrieve metrics", http.StatusInternalServerError)
		return
	}

	var latest interface{}
	latestDate, err := h.tradeStore.LatestTradeDate(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to query latest trade date", "error", err)
		utils.SendJSONError(w, "Failed to retrieve metrics", http.StatusInternalServerError)
		return
	}
	if latestDate != nil {
		latest = latestDate.Format(models.DateLayout)
	}

	utils.SendJSON(w, map[string]interface{}{
		"total_trades":      total,
		"latest_trade_date": latest,
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
	})
}
