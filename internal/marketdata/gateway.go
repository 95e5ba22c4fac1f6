package marketdata

import (
	"context"
	"time"

	"trading-journal-go/internal/questrade"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Client is the part of the Questrade client the gateway needs.
type Client interface {
	Symbol(ctx context.Context, symbolID int64) (*questrade.SymbolsResponse, error)
	Quote(ctx context.Context, symbolID int64) (*questrade.QuotesResponse, error)
	Candles(ctx context.Context, symbolID int64, start, end time.Time, interval string) ([]questrade.Candle, error)
}

// IDResolver maps a ticker symbol to its Questrade id.
type IDResolver interface {
	Resolve(ctx context.Context, symbol string) (int64, bool)
}

// Gateway answers price lookups. Every failure is logged and reported as an
// absent value; nothing is retried.
type Gateway struct {
	client   Client
	resolver IDResolver
	logger   *zap.Logger
	now      func() time.Time
}

// NewGateway creates a market data gateway.
func NewGateway(client Client, resolver IDResolver, logger *zap.Logger) *Gateway {
	return &Gateway{
		client:   client,
		resolver: resolver,
		logger:   logger.Named("marketdata"),
		now:      time.Now,
	}
}

// Candles returns up to the most recent 2000 bars of symbol.
func (g *Gateway) Candles(ctx context.Context, symbol string, tf Timeframe) ([]questrade.Candle, bool) {
	if !tf.Valid() {
		g.logger.Error("Invalid timeframe", zap.String("symbol", symbol), zap.String("timeframe", string(tf)))
		return nil, false
	}
	id, ok := g.resolve(ctx, symbol)
	if !ok {
		return nil, false
	}

	end := g.now()
	start := tf.WindowStart(end, questrade.MaxCandles)

	candles, err := g.client.Candles(ctx, id, start, end, string(tf))
	if err != nil {
		g.logger.Error("Couldn't get candles", zap.String("symbol", symbol), zap.Error(err))
		return nil, false
	}
	if len(candles) > questrade.MaxCandles {
		candles = candles[len(candles)-questrade.MaxCandles:]
	}
	return candles, true
}

// PreviousClose returns the prior session's closing price of symbol.
func (g *Gateway) PreviousClose(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	id, ok := g.resolve(ctx, symbol)
	if !ok {
		return decimal.Decimal{}, false
	}

	res, err := g.client.Symbol(ctx, id)
	if err != nil {
		g.logger.Error("Couldn't get previous close", zap.String("symbol", symbol), zap.Error(err))
		return decimal.Decimal{}, false
	}
	if res == nil || len(res.Symbols) == 0 || !res.Symbols[0].PrevDayClosePrice.Valid {
		g.logger.Warn("No previous close in response", zap.String("symbol", symbol))
		return decimal.Decimal{}, false
	}
	return res.Symbols[0].PrevDayClosePrice.Decimal, true
}

// LastPrice returns the last traded price of symbol. With regularHoursOnly
// the regular-session price is used, otherwise the latest trade in any
// session.
func (g *Gateway) LastPrice(ctx context.Context, symbol string, regularHoursOnly bool) (decimal.Decimal, bool) {
	id, ok := g.resolve(ctx, symbol)
	if !ok {
		return decimal.Decimal{}, false
	}

	res, err := g.client.Quote(ctx, id)
	if err != nil {
		g.logger.Error("Couldn't get last price", zap.String("symbol", symbol), zap.Error(err))
		return decimal.Decimal{}, false
	}
	if res == nil || len(res.Quotes) == 0 {
		g.logger.Warn("No quote in response", zap.String("symbol", symbol))
		return decimal.Decimal{}, false
	}

	q := res.Quotes[0]
	price := q.LastTradePrice
	if regularHoursOnly {
		price = q.LastTradePriceTrHrs
	}
	if !price.Valid {
		g.logger.Warn("Quote has no last trade price",
			zap.String("symbol", symbol), zap.Bool("regular_hours_only", regularHoursOnly))
		return decimal.Decimal{}, false
	}
	return price.Decimal, true
}

func (g *Gateway) resolve(ctx context.Context, symbol string) (int64, bool) {
	id, ok := g.resolver.Resolve(ctx, symbol)
	if !ok || id <= 0 {
		g.logger.Warn("Unknown symbol", zap.String("symbol", symbol))
		return 0, false
	}
	return id, true
}
