package ingestion

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/clearinghouse/src/alerting"
	"github.com/username/clearinghouse/src/logger"
	"github.com/username/clearinghouse/src/parsers"
	"github.com/username/clearinghouse/src/store"
	_ "modernc.org/sqlite"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

const testSchema = `
CREATE TABLE trades (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    trade_date TEXT NOT NULL,
    account_id TEXT NOT NULL,
    ticker TEXT NOT NULL,
    quantity INTEGER NOT NULL,
    price REAL,
    market_value REAL,
    trade_type TEXT,
    settlement_date TEXT,
    source_system TEXT,
    created_at TEXT NOT NULL DEFAULT (STRFTIME('%Y-%m-%dT%H:%M:%SZ', 'now'))
);`

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

type sinkCall struct {
	alertType string
	data      map[string]interface{}
}

type fakeSink struct {
	calls []sinkCall
}

func (f *fakeSink) Notify(alertType string, data map[string]interface{}) bool {
	f.calls = append(f.calls, sinkCall{alertType: alertType, data: data})
	return true
}

func TestIngest_HeaderCSVRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	sink := &fakeSink{}
	p := NewPipeline(store.NewTradeStore(db), sink)

	content := "TradeDate,AccountID,Ticker,Quantity,Price,TradeType,SettlementDate\n" +
		"2025-01-15,ACC001,AAPL,100,185.50,BUY,2025-01-17\n" +
		"2025-01-15,ACC001,MSFT,50,420.25,BUY,2025-01-17\n"

	result, err := p.Ingest(context.Background(), []byte(content), "trades.csv")
	require.NoError(t, err)
	assert.Equal(t, parsers.FormatHeaderCSV, result.Format)
	assert.Equal(t, 2, result.Ingested)
	assert.Equal(t, 0, result.Skipped)
	assert.Empty(t, sink.calls)

	var count int64
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM trades`).Scan(&count))
	assert.Equal(t, int64(2), count)
}

func TestIngest_MalformedRowIsIsolated(t *testing.T) {
	db := setupTestDB(t)
	sink := &fakeSink{}
	p := NewPipeline(store.NewTradeStore(db), sink)

	content := "TradeDate,AccountID,Ticker,Quantity,Price,TradeType,SettlementDate\n" +
		"2025-01-15,ACC001,AAPL,100,185.50,BUY,2025-01-17\n" +
		"not-a-date,ACC001,MSFT,50,420.25,BUY,2025-01-17\n" +
		"2025-01-15,ACC001,TSLA,10,100.00,BUY,2025-01-17\n"

	result, err := p.Ingest(context.Background(), []byte(content), "trades.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Ingested)
	assert.Equal(t, 1, result.Skipped)

	var count int64
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM trades`).Scan(&count))
	assert.Equal(t, int64(2), count)

	// Skipped rows trigger a best-effort data quality alert.
	require.Len(t, sink.calls, 1)
	assert.Equal(t, alerting.AlertDataQuality, sink.calls[0].alertType)
	assert.Equal(t, "trades.csv", sink.calls[0].data["filename"])
}

func TestIngest_ZeroParseableRowsIsSuccess(t *testing.T) {
	db := setupTestDB(t)
	p := NewPipeline(store.NewTradeStore(db), &fakeSink{})

	content := "TradeDate,AccountID,Ticker,Quantity,Price,TradeType,SettlementDate\n"

	result, err := p.Ingest(context.Background(), []byte(content), "empty.csv")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Ingested)
}

func TestIngest_UnknownFormatIsFatal(t *testing.T) {
	db := setupTestDB(t)
	p := NewPipeline(store.NewTradeStore(db), &fakeSink{})

	_, err := p.Ingest(context.Background(), []byte("no recognizable layout here"), "mystery.txt")
	require.Error(t, err)

	var ingErr *IngestionError
	require.ErrorAs(t, err, &ingErr)
	assert.Equal(t, "mystery.txt", ingErr.Filename)
	assert.Equal(t, "detect", ingErr.Stage)
	assert.ErrorIs(t, err, parsers.ErrUnknownFormat)
}

func TestIngest_PersistenceFailureRollsBackBatch(t *testing.T) {
	db := setupTestDB(t)
	p := NewPipeline(store.NewTradeStore(db), &fakeSink{})

	_, err := db.Exec(`CREATE UNIQUE INDEX uq_trades ON trades (trade_date, account_id, ticker)`)
	require.NoError(t, err)

	content := "TradeDate,AccountID,Ticker,Quantity,Price,TradeType,SettlementDate\n" +
		"2025-01-15,ACC001,AAPL,100,185.50,BUY,2025-01-17\n" +
		"2025-01-15,ACC001,AAPL,50,420.25,BUY,2025-01-17\n"

	_, err = p.Ingest(context.Background(), []byte(content), "dup.csv")
	require.Error(t, err)

	var ingErr *IngestionError
	require.ErrorAs(t, err, &ingErr)
	assert.Equal(t, "persist", ingErr.Stage)

	var count int64
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM trades`).Scan(&count))
	assert.Equal(t, int64(0), count)
}
