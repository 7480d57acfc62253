// Package alerting posts violation and failure events to the external alert
// service. Delivery is best-effort: failures are logged, never propagated.
package alerting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/username/clearinghouse/src/logger"
)

const (
	AlertComplianceViolation = "compliance_violation"
	AlertIngestionFailure    = "ingestion_failure"
	AlertDataQuality         = "data_quality"
)

// Sink delivers alert events. Notify reports whether delivery succeeded.
type Sink interface {
	Notify(alertType string, data map[string]interface{}) bool
}

// Service is the HTTP implementation of Sink, posting JSON alert envelopes to
// the configured alert service with a short bounded timeout.
type Service struct {
	serviceURL string
	apiKey     string
	client     *http.Client
}

func NewService(serviceURL, apiKey string, timeout time.Duration) *Service {
	return &Service{
		serviceURL: serviceURL,
		apiKey:     apiKey,
		client:     &http.Client{Timeout: timeout},
	}
}

type alertPayload struct {
	AlertType string                 `json:"alert_type"`
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Notify posts a single alert. A non-2xx response counts as failure.
func (s *Service) Notify(alertType string, data map[string]interface{}) bool {
	payload := alertPayload{
		AlertType: alertType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		logger.L.Error("Failed to marshal alert payload", "alertType", alertType, "error", err)
		return false
	}

	req, err := http.NewRequest(http.MethodPost, s.serviceURL, bytes.NewReader(body))
	if err != nil {
		logger.L.Error("Failed to build alert request", "alertType", alertType, "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		logger.L.Error("Failed to send alert", "alertType", alertType, "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.L.Error("Alert service rejected alert", "alertType", alertType, "status", resp.StatusCode)
		return false
	}

	logger.L.Info("Alert sent successfully", "alertType", alertType)
	return true
}

// ComplianceViolation alerts on a position exceeding the concentration threshold.
func ComplianceViolation(sink Sink, accountID, ticker string, percentage, threshold float64, date string) bool {
	return sink.Notify(AlertComplianceViolation, map[string]interface{}{
		"account_id": accountID,
		"ticker":     ticker,
		"percentage": percentage,
		"date":       date,
		"threshold":  threshold,
		"severity":   "high",
		"message": fmt.Sprintf("Account %s has %v%% holding in %s, exceeding %v%% threshold",
			accountID, percentage, ticker, threshold),
	})
}

// IngestionFailure alerts on a file that could not be fetched, parsed,
// persisted or relocated.
func IngestionFailure(sink Sink, filename, errorMessage string) bool {
	return sink.Notify(AlertIngestionFailure, map[string]interface{}{
		"filename": filename,
		"error":    errorMessage,
		"severity": "medium",
		"message":  fmt.Sprintf("Failed to ingest file %s: %s", filename, errorMessage),
	})
}

// DataQuality alerts on rows that were skipped during an otherwise
// successful ingestion.
func DataQuality(sink Sink, filename string, issues []string) bool {
	return sink.Notify(AlertDataQuality, map[string]interface{}{
		"filename": filename,
		"issues":   issues,
		"severity": "low",
		"message":  fmt.Sprintf("Data quality issues detected in %s: %s", filename, strings.Join(issues, ", ")),
	})
}
