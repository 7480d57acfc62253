package parsers

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/clearinghouse/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

const headerCSVSample = `TradeDate,AccountID,Ticker,Quantity,Price,TradeType,SettlementDate
2025-01-15,ACC001,AAPL,100,185.50,BUY,2025-01-17
2025-01-15,ACC001,MSFT,50,420.25,SELL,2025-01-17
`

const pipeSample = `20250115|ACC001|AAPL|100|18550.00|CUSTODIAN_A
20250115|ACC002|MSFT|-50|-21012.50|CUSTODIAN_A
`

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Format
		wantErr bool
	}{
		{"header csv", headerCSVSample, FormatHeaderCSV, false},
		{"pipe delimited", pipeSample, FormatPipeDelimited, false},
		{"pipe wins over commas", "20250115|ACC001|AAPL, Inc|100|18550.00|SRC\n", FormatPipeDelimited, false},
		{"leading blank lines", "\n\n" + pipeSample, FormatPipeDelimited, false},
		{"csv without TradeDate header", "Date,Account,Symbol\n2025-01-15,A,B\n", "", true},
		{"empty", "", "", true},
		{"garbage", "hello world", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect(tt.content)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseHeaderCSV_BuyAndSell(t *testing.T) {
	records, skipped, err := Parse(headerCSVSample, FormatHeaderCSV)
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	require.Len(t, records, 2)

	buy := records[0]
	assert.Equal(t, "ACC001", buy.AccountID)
	assert.Equal(t, "AAPL", buy.Ticker)
	assert.Equal(t, int64(100), buy.Quantity)
	require.NotNil(t, buy.Price)
	assert.InDelta(t, 185.50, *buy.Price, 1e-9)
	require.NotNil(t, buy.MarketValue)
	assert.InDelta(t, 18550.0, *buy.MarketValue, 1e-9)
	assert.Equal(t, "BUY", buy.TradeType)
	require.NotNil(t, buy.SettlementDate)
	assert.Equal(t, "2025-01-17", buy.SettlementDate.Format("2006-01-02"))

	sell := records[1]
	assert.Equal(t, int64(-50), sell.Quantity)
	require.NotNil(t, sell.MarketValue)
	assert.InDelta(t, -21012.50, *sell.MarketValue, 1e-9)
}

func TestParseHeaderCSV_SellForcedNegativeRegardlessOfInputSign(t *testing.T) {
	content := "TradeDate,AccountID,Ticker,Quantity,Price,TradeType,SettlementDate\n" +
		"2025-01-15,ACC001,AAPL,-100,10.00,SELL,\n" +
		"2025-01-15,ACC001,MSFT,100,10.00,sell,\n"

	records, skipped, err := Parse(content, FormatHeaderCSV)
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	require.Len(t, records, 2)

	for _, rec := range records {
		assert.LessOrEqual(t, rec.Quantity, int64(0))
		require.NotNil(t, rec.MarketValue)
		assert.LessOrEqual(t, *rec.MarketValue, 0.0)
	}
}

// A nominal BUY with a negative supplied quantity keeps its sign: only SELL
// rows are sign-corrected. This pins down long-standing feed behavior.
func TestParseHeaderCSV_BuyKeepsSuppliedSign(t *testing.T) {
	content := "TradeDate,AccountID,Ticker,Quantity,Price,TradeType,SettlementDate\n" +
		"2025-01-15,ACC001,AAPL,-100,10.00,BUY,\n"

	records, skipped, err := Parse(content, FormatHeaderCSV)
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	require.Len(t, records, 1)

	assert.Equal(t, int64(-100), records[0].Quantity)
	assert.InDelta(t, -1000.0, *records[0].MarketValue, 1e-9)
}

func TestParseHeaderCSV_EmptyTradeTypeDefaultsToBuy(t *testing.T) {
	content := "TradeDate,AccountID,Ticker,Quantity,Price,TradeType,SettlementDate\n" +
		"2025-01-15,ACC001,AAPL,100,10.00,,\n"

	records, skipped, err := Parse(content, FormatHeaderCSV)
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	require.Len(t, records, 1)
	assert.Equal(t, "BUY", records[0].TradeType)
	assert.Nil(t, records[0].SettlementDate)
}

func TestParseHeaderCSV_MalformedRowsAreSkippedNotFatal(t *testing.T) {
	content := "TradeDate,AccountID,Ticker,Quantity,Price,TradeType,SettlementDate\n" +
		"2025-01-15,ACC001,AAPL,100,185.50,BUY,2025-01-17\n" +
		"not-a-date,ACC001,MSFT,50,420.25,BUY,2025-01-17\n" +
		"2025-01-15,ACC001,GOOG,ten,100.00,BUY,2025-01-17\n" +
		"2025-01-15,,NVDA,10,100.00,BUY,2025-01-17\n" +
		"2025-01-15,ACC001,TSLA,10,100.00,BUY,2025-01-17\n"

	records, skipped, err := Parse(content, FormatHeaderCSV)
	require.NoError(t, err)
	assert.Equal(t, 3, skipped)
	require.Len(t, records, 2)
	assert.Equal(t, "AAPL", records[0].Ticker)
	assert.Equal(t, "TSLA", records[1].Ticker)
}

func TestParsePipeDelimited(t *testing.T) {
	records, skipped, err := Parse(pipeSample, FormatPipeDelimited)
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), first.TradeDate)
	assert.Equal(t, "ACC001", first.AccountID)
	assert.Equal(t, int64(100), first.Quantity)
	require.NotNil(t, first.Price)
	assert.InDelta(t, 185.50, *first.Price, 1e-9)
	assert.Equal(t, "CUSTODIAN_A", first.SourceSystem)
	assert.Empty(t, first.TradeType)

	// Market value is trusted as supplied; derived price is always absolute.
	second := records[1]
	assert.Equal(t, int64(-50), second.Quantity)
	require.NotNil(t, second.MarketValue)
	assert.InDelta(t, -21012.50, *second.MarketValue, 1e-9)
	require.NotNil(t, second.Price)
	assert.InDelta(t, 420.25, *second.Price, 1e-9)
}

func TestParsePipeDelimited_ZeroSharesHasNoPrice(t *testing.T) {
	content := "20250115|ACC001|AAPL|0|18550.00|SRC\n"

	records, skipped, err := Parse(content, FormatPipeDelimited)
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Price)
}

func TestParsePipeDelimited_ShortAndMalformedLinesAreSkipped(t *testing.T) {
	content := "20250115|ACC001|AAPL|100|18550.00|SRC\n" +
		"20250115|ACC001|MSFT|100\n" +
		"20250145|ACC001|GOOG|100|100.00|SRC\n" +
		"\n" +
		"20250116|ACC002|TSLA|10|1000.00|SRC\n"

	records, skipped, err := Parse(content, FormatPipeDelimited)
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	require.Len(t, records, 2)
	assert.Equal(t, "AAPL", records[0].Ticker)
	assert.Equal(t, "TSLA", records[1].Ticker)
}
