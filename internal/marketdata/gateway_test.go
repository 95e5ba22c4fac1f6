package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"trading-journal-go/internal/questrade"
	"trading-journal-go/internal/questrade/questradetest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubResolver resolves from a fixed table.
type stubResolver map[string]int64

func (s stubResolver) Resolve(_ context.Context, symbol string) (int64, bool) {
	id, ok := s[symbol]
	return id, ok
}

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

var fixedNow = time.Date(2024, 1, 5, 16, 0, 0, 0, time.UTC)

func setupGateway() (*Gateway, *questradetest.MockClient) {
	client := new(questradetest.MockClient)
	g := NewGateway(client, stubResolver{"QS": 38738}, zap.NewNop())
	g.now = func() time.Time { return fixedNow }
	return g, client
}

func TestLastPrice_ReadsDistinctFields(t *testing.T) {
	g, client := setupGateway()
	client.On("Quote", mock.Anything, int64(38738)).Return(&questrade.QuotesResponse{
		Quotes: []questrade.Quote{{
			Symbol:              "QS",
			LastTradePriceTrHrs: price("25.10"),
			LastTradePrice:      price("25.65"),
		}},
	}, nil)

	regular, ok := g.LastPrice(context.Background(), "QS", true)
	require.True(t, ok)
	anySession, ok := g.LastPrice(context.Background(), "QS", false)
	require.True(t, ok)

	assert.Equal(t, "25.1", regular.String())
	assert.Equal(t, "25.65", anySession.String())
	assert.False(t, regular.Equal(anySession))
}

func TestLastPrice_Absent(t *testing.T) {
	t.Run("UnknownSymbol", func(t *testing.T) {
		g, client := setupGateway()
		_, ok := g.LastPrice(context.Background(), "NOPE", false)
		assert.False(t, ok)
		client.AssertNotCalled(t, "Quote", mock.Anything, mock.Anything)
	})

	t.Run("RemoteError", func(t *testing.T) {
		g, client := setupGateway()
		client.On("Quote", mock.Anything, int64(38738)).Return(nil, errors.New("503"))
		_, ok := g.LastPrice(context.Background(), "QS", false)
		assert.False(t, ok)
	})

	t.Run("EmptyQuotes", func(t *testing.T) {
		g, client := setupGateway()
		client.On("Quote", mock.Anything, int64(38738)).Return(&questrade.QuotesResponse{}, nil)
		_, ok := g.LastPrice(context.Background(), "QS", false)
		assert.False(t, ok)
	})

	t.Run("NullRegularHoursPrice", func(t *testing.T) {
		g, client := setupGateway()
		client.On("Quote", mock.Anything, int64(38738)).Return(&questrade.QuotesResponse{
			Quotes: []questrade.Quote{{LastTradePrice: price("1")}},
		}, nil)
		_, ok := g.LastPrice(context.Background(), "QS", true)
		assert.False(t, ok)
	})
}

func TestPreviousClose(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		g, client := setupGateway()
		client.On("Symbol", mock.Anything, int64(38738)).Return(&questrade.SymbolsResponse{
			Symbols: []questrade.SymbolDetail{{Symbol: "QS", PrevDayClosePrice: price("24.87")}},
		}, nil)

		got, ok := g.PreviousClose(context.Background(), "QS")
		assert.True(t, ok)
		assert.Equal(t, "24.87", got.String())
	})

	t.Run("MissingShape", func(t *testing.T) {
		g, client := setupGateway()
		client.On("Symbol", mock.Anything, int64(38738)).Return(&questrade.SymbolsResponse{}, nil)

		_, ok := g.PreviousClose(context.Background(), "QS")
		assert.False(t, ok)
	})

	t.Run("RemoteError", func(t *testing.T) {
		g, client := setupGateway()
		client.On("Symbol", mock.Anything, int64(38738)).Return(nil, errors.New("boom"))

		_, ok := g.PreviousClose(context.Background(), "QS")
		assert.False(t, ok)
	})
}

func TestCandles(t *testing.T) {
	t.Run("WindowAndInterval", func(t *testing.T) {
		g, client := setupGateway()
		wantStart := fixedNow.Add(-2000 * 5 * time.Minute)
		client.On("Candles", mock.Anything, int64(38738), wantStart, fixedNow, "FiveMinutes").
			Return([]questrade.Candle{{Close: decimal.NewFromInt(3)}}, nil)

		candles, ok := g.Candles(context.Background(), "QS", FiveMinutes)
		assert.True(t, ok)
		assert.Len(t, candles, 1)
		client.AssertExpectations(t)
	})

	t.Run("TrimsToMostRecent", func(t *testing.T) {
		g, client := setupGateway()
		bars := make([]questrade.Candle, questrade.MaxCandles+5)
		for i := range bars {
			bars[i].Volume = int64(i)
		}
		client.On("Candles", mock.Anything, int64(38738), mock.Anything, mock.Anything, "OneDay").Return(bars, nil)

		candles, ok := g.Candles(context.Background(), "QS", OneDay)
		require.True(t, ok)
		assert.Len(t, candles, questrade.MaxCandles)
		assert.Equal(t, int64(5), candles[0].Volume)
	})

	t.Run("InvalidTimeframe", func(t *testing.T) {
		g, client := setupGateway()
		_, ok := g.Candles(context.Background(), "QS", Timeframe("Fortnight"))
		assert.False(t, ok)
		client.AssertNotCalled(t, "Candles", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("RemoteError", func(t *testing.T) {
		g, client := setupGateway()
		client.On("Candles", mock.Anything, int64(38738), mock.Anything, mock.Anything, "OneMinute").
			Return(nil, errors.New("bad interval"))

		_, ok := g.Candles(context.Background(), "QS", OneMinute)
		assert.False(t, ok)
	})
}

func TestParseTimeframe(t *testing.T) {
	for _, tf := range Timeframes {
		got, err := ParseTimeframe(string(tf))
		assert.NoError(t, err)
		assert.Equal(t, tf, got)
	}

	_, err := ParseTimeframe("oneminute")
	assert.Error(t, err)
	assert.Len(t, Timeframes, 17)
}

func TestWindowStart(t *testing.T) {
	end := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, end.Add(-2000*time.Hour), OneHour.WindowStart(end, 2000))
	assert.Equal(t, time.Date(2014, 1, 5, 0, 0, 0, 0, time.UTC), OneMonth.WindowStart(end, 120))
	assert.Equal(t, time.Date(1024, 1, 5, 0, 0, 0, 0, time.UTC), OneYear.WindowStart(end, 1000))
}
