package parsers

import (
	"encoding/csv"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/username/clearinghouse/src/logger"
	"github.com/username/clearinghouse/src/models"
)

// parseHeaderCSV reads the comma-separated feed with header row:
// TradeDate,AccountID,Ticker,Quantity,Price,TradeType,SettlementDate
func parseHeaderCSV(content string) ([]models.TradeRecord, int) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1 // Allow variable number of fields per record

	header, err := reader.Read()
	if err != nil {
		logger.L.Error("Header CSV parser: failed to read header row", "error", err)
		return nil, 0
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	field := func(row []string, name string) (string, bool) {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[idx]), true
	}

	var records []models.TradeRecord
	skipped := 0

	for {
		row, err := reader.Read()
		if err != nil {
			break
		}

		rec, ok := parseHeaderCSVRow(row, field)
		if !ok {
			skipped++
			logger.L.Warn("Header CSV parser: skipping malformed row", "row", strings.Join(row, ","))
			continue
		}
		records = append(records, rec)
	}

	return records, skipped
}

func parseHeaderCSVRow(row []string, field func([]string, string) (string, bool)) (models.TradeRecord, bool) {
	var rec models.TradeRecord

	dateStr, ok := field(row, "TradeDate")
	if !ok {
		return rec, false
	}
	tradeDate, err := time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return rec, false
	}

	accountID, _ := field(row, "AccountID")
	ticker, _ := field(row, "Ticker")

	quantityStr, ok := field(row, "Quantity")
	if !ok {
		return rec, false
	}
	quantity, err := strconv.ParseInt(quantityStr, 10, 64)
	if err != nil {
		return rec, false
	}

	priceStr, ok := field(row, "Price")
	if !ok {
		return rec, false
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return rec, false
	}

	marketValue := float64(quantity) * price

	tradeType, _ := field(row, "TradeType")
	if tradeType == "" {
		tradeType = "BUY"
	}

	// SELL rows are forced negative. BUY rows keep the supplied sign as-is,
	// even when the source delivered a negative quantity for a nominal BUY.
	if strings.EqualFold(tradeType, "SELL") {
		quantity = -absInt64(quantity)
		marketValue = -math.Abs(marketValue)
	}

	var settlementDate *time.Time
	if s, ok := field(row, "SettlementDate"); ok && s != "" {
		d, err := time.Parse(models.DateLayout, s)
		if err != nil {
			return rec, false
		}
		settlementDate = &d
	}

	rec = models.TradeRecord{
		TradeDate:      tradeDate,
		AccountID:      accountID,
		Ticker:         ticker,
		Quantity:       quantity,
		Price:          &price,
		MarketValue:    &marketValue,
		TradeType:      tradeType,
		SettlementDate: settlementDate,
	}

	if err := rec.Validate(); err != nil {
		return rec, false
	}
	return rec, true
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
