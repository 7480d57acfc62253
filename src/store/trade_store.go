// Package store is the persistence layer for normalized trade records.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/username/clearinghouse/src/logger"
	"github.com/username/clearinghouse/src/models"
)

// TradeStore persists and queries trade records. Records are immutable once
// inserted; corrections arrive as new rows from reprocessed files.
type TradeStore struct {
	db *sql.DB
}

func NewTradeStore(db *sql.DB) *TradeStore {
	return &TradeStore{db: db}
}

// InsertBatch inserts all records from a single ingested file inside one
// transaction. Any insert failure rolls the whole batch back; there are no
// partial commits across the persistence boundary.
func (s *TradeStore) InsertBatch(ctx context.Context, records []models.TradeRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin batch insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades (trade_date, account_id, ticker, quantity, price, market_value,
		                    trade_type, settlement_date, source_system, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare batch insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.TradeDate.Format(models.DateLayout),
			rec.AccountID,
			rec.Ticker,
			rec.Quantity,
			nullFloat(rec.Price),
			nullFloat(rec.MarketValue),
			nullString(rec.TradeType),
			nullDate(rec.SettlementDate),
			nullString(rec.SourceSystem),
			now.Format(time.RFC3339),
		)
		if err != nil {
			return 0, fmt.Errorf("insert trade %s/%s: %w", rec.AccountID, rec.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch insert: %w", err)
	}

	logger.L.Info("Trade batch persisted", "count", len(records))
	return len(records), nil
}

// ListByDate returns every record with the given trade date, the raw blotter.
func (s *TradeStore) ListByDate(ctx context.Context, date time.Time) ([]models.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, trade_date, account_id, ticker, quantity, price, market_value,
		       trade_type, settlement_date, source_system, created_at
		FROM trades
		WHERE trade_date = ?
		ORDER BY id`, date.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("query blotter: %w", err)
	}
	defer rows.Close()

	var records []models.TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Exposure is one (account, ticker) pair's gross exposure on a date, paired
// with the account's total gross exposure for the percentage computation.
type Exposure struct {
	AccountID    string
	Ticker       string
	TickerValue  float64
	AccountTotal float64
}

// ExposuresByDate aggregates absolute market values per (account, ticker) and
// joins in each account's total. Absolute values are deliberate: a large SELL
// is still concentration risk, so exposure is gross, not net signed.
func (s *TradeStore) ExposuresByDate(ctx context.Context, date time.Time) ([]Exposure, error) {
	dateStr := date.Format(models.DateLayout)
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.account_id,
		       t.ticker,
		       SUM(ABS(COALESCE(t.market_value, 0))) AS ticker_value,
		       totals.total_value
		FROM trades t
		JOIN (
			SELECT account_id, SUM(ABS(COALESCE(market_value, 0))) AS total_value
			FROM trades
			WHERE trade_date = ?
			GROUP BY account_id
		) totals ON totals.account_id = t.account_id
		WHERE t.trade_date = ?
		GROUP BY t.account_id, t.ticker, totals.total_value
		ORDER BY t.account_id, t.ticker`, dateStr, dateStr)
	if err != nil {
		return nil, fmt.Errorf("query exposures: %w", err)
	}
	defer rows.Close()

	var exposures []Exposure
	for rows.Next() {
		var e Exposure
		if err := rows.Scan(&e.AccountID, &e.Ticker, &e.TickerValue, &e.AccountTotal); err != nil {
			return nil, fmt.Errorf("scan exposure: %w", err)
		}
		exposures = append(exposures, e)
	}
	return exposures, rows.Err()
}

// CountAll returns the total number of persisted trades.
func (s *TradeStore) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades`).Scan(&count)
	return count, err
}

// LatestTradeDate returns the most recent trade date, or nil when empty.
func (s *TradeStore) LatestTradeDate(ctx context.Context) (*time.Time, error) {
	var dateStr sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MAX(trade_date) FROM trades`).Scan(&dateStr)
	if err != nil {
		return nil, err
	}
	if !dateStr.Valid {
		return nil, nil
	}
	date, err := time.Parse(models.DateLayout, dateStr.String)
	if err != nil {
		return nil, fmt.Errorf("parse latest trade date %q: %w", dateStr.String, err)
	}
	return &date, nil
}

func scanTrade(rows *sql.Rows) (models.TradeRecord, error) {
	var (
		rec            models.TradeRecord
		tradeDate      string
		price          sql.NullFloat64
		marketValue    sql.NullFloat64
		tradeType      sql.NullString
		settlementDate sql.NullString
		sourceSystem   sql.NullString
		createdAt      string
	)

	err := rows.Scan(&rec.ID, &tradeDate, &rec.AccountID, &rec.Ticker, &rec.Quantity,
		&price, &marketValue, &tradeType, &settlementDate, &sourceSystem, &createdAt)
	if err != nil {
		return rec, fmt.Errorf("scan trade: %w", err)
	}

	if rec.TradeDate, err = time.Parse(models.DateLayout, tradeDate); err != nil {
		return rec, fmt.Errorf("parse trade_date %q: %w", tradeDate, err)
	}
	if price.Valid {
		rec.Price = &price.Float64
	}
	if marketValue.Valid {
		rec.MarketValue = &marketValue.Float64
	}
	if tradeType.Valid {
		rec.TradeType = tradeType.String
	}
	if settlementDate.Valid && settlementDate.String != "" {
		d, err := time.Parse(models.DateLayout, settlementDate.String)
		if err != nil {
			return rec, fmt.Errorf("parse settlement_date %q: %w", settlementDate.String, err)
		}
		rec.SettlementDate = &d
	}
	if sourceSystem.Valid {
		rec.SourceSystem = sourceSystem.String
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		rec.CreatedAt = t
	}

	return rec, nil
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

func nullDate(v *time.Time) interface{} {
	if v == nil {
		return nil
	}
	return v.Format(models.DateLayout)
}
