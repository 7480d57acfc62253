package parsers

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/username/clearinghouse/src/logger"
	"github.com/username/clearinghouse/src/models"
)

const pipeDateLayout = "20060102"

// parsePipeDelimited reads the headerless pipe feed, six fields per line:
// REPORT_DATE|ACCOUNT_ID|SECURITY_TICKER|SHARES|MARKET_VALUE|SOURCE_SYSTEM
//
// This feed carries a signed market value straight from the source system and
// never an explicit per-share price, so the price is derived from the two
// numeric fields. The supplied market value is trusted as-is; no sign
// correction happens here.
func parsePipeDelimited(content string) ([]models.TradeRecord, int) {
	var records []models.TradeRecord
	skipped := 0

	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		rec, ok := parsePipeDelimitedLine(line)
		if !ok {
			skipped++
			logger.L.Warn("Pipe parser: skipping malformed line", "line", line)
			continue
		}
		records = append(records, rec)
	}

	return records, skipped
}

func parsePipeDelimitedLine(line string) (models.TradeRecord, bool) {
	var rec models.TradeRecord

	parts := strings.Split(line, "|")
	if len(parts) < 6 {
		return rec, false
	}

	tradeDate, err := time.Parse(pipeDateLayout, parts[0])
	if err != nil {
		return rec, false
	}

	shares, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return rec, false
	}

	marketValue, err := strconv.ParseFloat(parts[4], 64)
	if err != nil {
		return rec, false
	}

	var price *float64
	if shares != 0 {
		p := math.Abs(marketValue / float64(shares))
		price = &p
	}

	rec = models.TradeRecord{
		TradeDate:    tradeDate,
		AccountID:    parts[1],
		Ticker:       parts[2],
		Quantity:     shares,
		Price:        price,
		MarketValue:  &marketValue,
		SourceSystem: parts[5],
	}

	if err := rec.Validate(); err != nil {
		return rec, false
	}
	return rec, true
}
