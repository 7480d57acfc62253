package models

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the wire format for all calendar dates exposed by the API.
const DateLayout = "2006-01-02"

var validate = validator.New()

// TradeRecord is the single normalized record shape both custodial feed
// formats are parsed into. Parsers own sign normalization: quantity is
// positive for BUY and negative for SELL when the feed is self-describing;
// the pipe-delimited feed's signed market value is trusted as supplied.
type TradeRecord struct {
	ID             int64      `json:"id,omitempty"`
	TradeDate      time.Time  `json:"trade_date" validate:"required"`
	AccountID      string     `json:"account_id" validate:"required"`
	Ticker         string     `json:"ticker" validate:"required"`
	Quantity       int64      `json:"quantity"`
	Price          *float64   `json:"price"`
	MarketValue    *float64   `json:"market_value"`
	TradeType      string     `json:"trade_type"`
	SettlementDate *time.Time `json:"settlement_date"`
	SourceSystem   string     `json:"source_system"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Validate applies the struct-level data quality rules. Records failing
// validation are skipped at parse time, same as malformed rows.
func (t *TradeRecord) Validate() error {
	return validate.Struct(t)
}

// tradeRecordJSON mirrors the envelope the API has always produced: date-only
// strings for calendar dates, explicit nulls for absent optional fields.
type tradeRecordJSON struct {
	ID             int64    `json:"id,omitempty"`
	TradeDate      string   `json:"trade_date"`
	AccountID      string   `json:"account_id"`
	Ticker         string   `json:"ticker"`
	Quantity       int64    `json:"quantity"`
	Price          *float64 `json:"price"`
	MarketValue    *float64 `json:"market_value"`
	TradeType      *string  `json:"trade_type"`
	SettlementDate *string  `json:"settlement_date"`
	SourceSystem   *string  `json:"source_system"`
	CreatedAt      *string  `json:"created_at"`
}

func (t TradeRecord) MarshalJSON() ([]byte, error) {
	out := tradeRecordJSON{
		ID:          t.ID,
		TradeDate:   t.TradeDate.Format(DateLayout),
		AccountID:   t.AccountID,
		Ticker:      t.Ticker,
		Quantity:    t.Quantity,
		Price:       t.Price,
		MarketValue: t.MarketValue,
	}
	if t.TradeType != "" {
		out.TradeType = &t.TradeType
	}
	if t.SettlementDate != nil {
		s := t.SettlementDate.Format(DateLayout)
		out.SettlementDate = &s
	}
	if t.SourceSystem != "" {
		out.SourceSystem = &t.SourceSystem
	}
	if !t.CreatedAt.IsZero() {
		s := t.CreatedAt.UTC().Format(time.RFC3339)
		out.CreatedAt = &s
	}
	return json.Marshal(out)
}

// Position is one (account, ticker) slice of that account's gross exposure on
// a date. Percentage is of the account's total absolute market value.
type Position struct {
	AccountID   string  `json:"account_id"`
	Ticker      string  `json:"ticker"`
	MarketValue float64 `json:"market_value"`
	Percentage  float64 `json:"percentage"`
}

// Alarm flags a position exceeding the configured concentration threshold.
type Alarm struct {
	AccountID  string  `json:"account_id"`
	Ticker     string  `json:"ticker"`
	Percentage float64 `json:"percentage"`
	Violation  bool    `json:"violation"`
}
