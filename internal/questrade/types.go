package questrade

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Eastern is the fixed UTC-5 offset used for account time windows and
// wall-clock stamps. Daylight saving is not applied.
var Eastern = time.FixedZone("EST", -5*60*60)

// Side is the side of an order or execution as reported by Questrade.
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

const (
	// StateFilterAll asks for orders in every state.
	StateFilterAll = "All"

	// MaxCandles is the most bars Questrade returns for one candles request.
	MaxCandles = 2000
)

// ServerTime is the response of the /v1/time probe.
type ServerTime struct {
	Time string `json:"time"`
}

// SymbolSearchResult is one candidate returned by a symbol prefix search.
type SymbolSearchResult struct {
	Symbol          string `json:"symbol"`
	SymbolID        int64  `json:"symbolId"`
	Description     string `json:"description"`
	SecurityType    string `json:"securityType"`
	ListingExchange string `json:"listingExchange"`
	IsTradable      bool   `json:"isTradable"`
	IsQuotable      bool   `json:"isQuotable"`
	Currency        string `json:"currency"`
}

type symbolSearchResponse struct {
	Symbols []SymbolSearchResult `json:"symbols"`
}

// SymbolDetail holds the fields of /v1/symbols/{id} that we use.
type SymbolDetail struct {
	Symbol            string              `json:"symbol"`
	SymbolID          int64               `json:"symbolId"`
	Description       string              `json:"description"`
	Currency          string              `json:"currency"`
	PrevDayClosePrice decimal.NullDecimal `json:"prevDayClosePrice"`
	HighPrice52       decimal.NullDecimal `json:"highPrice52"`
	LowPrice52        decimal.NullDecimal `json:"lowPrice52"`
}

// SymbolsResponse is the response of /v1/symbols/{id}.
type SymbolsResponse struct {
	Symbols []SymbolDetail `json:"symbols"`
}

// Quote is a level 1 quote. Prices are null when no trade happened.
type Quote struct {
	Symbol              string              `json:"symbol"`
	SymbolID            int64               `json:"symbolId"`
	BidPrice            decimal.NullDecimal `json:"bidPrice"`
	AskPrice            decimal.NullDecimal `json:"askPrice"`
	LastTradePriceTrHrs decimal.NullDecimal `json:"lastTradePriceTrHrs"`
	LastTradePrice      decimal.NullDecimal `json:"lastTradePrice"`
	OpenPrice           decimal.NullDecimal `json:"openPrice"`
	HighPrice           decimal.NullDecimal `json:"highPrice"`
	LowPrice            decimal.NullDecimal `json:"lowPrice"`
	Volume              int64               `json:"volume"`
	Delay               int                 `json:"delay"`
	IsHalted            bool                `json:"isHalted"`
}

// QuotesResponse is the response of /v1/markets/quotes/{id}.
type QuotesResponse struct {
	Quotes []Quote `json:"quotes"`
}

// Candle is one OHLCV bar.
type Candle struct {
	Start  string          `json:"start"`
	End    string          `json:"end"`
	Low    decimal.Decimal `json:"low"`
	High   decimal.Decimal `json:"high"`
	Open   decimal.Decimal `json:"open"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

type candlesResponse struct {
	Candles []Candle `json:"candles"`
}

// Order is an account order. A decoded Order re-encodes to the exact bytes
// the broker sent, so snapshots keep fields this type does not model.
type Order struct {
	ID               int64               `json:"id"`
	Symbol           string              `json:"symbol"`
	SymbolID         int64               `json:"symbolId"`
	TotalQuantity    decimal.Decimal     `json:"totalQuantity"`
	OpenQuantity     decimal.Decimal     `json:"openQuantity"`
	FilledQuantity   decimal.Decimal     `json:"filledQuantity"`
	CanceledQuantity decimal.Decimal     `json:"canceledQuantity"`
	Side             Side                `json:"side"`
	OrderType        string              `json:"orderType"`
	LimitPrice       decimal.NullDecimal `json:"limitPrice"`
	StopPrice        decimal.NullDecimal `json:"stopPrice"`
	AvgExecPrice     decimal.NullDecimal `json:"avgExecPrice"`
	LastExecPrice    decimal.NullDecimal `json:"lastExecPrice"`
	TimeInForce      string              `json:"timeInForce"`
	State            string              `json:"state"`
	// Questrade spells this field with a single "m".
	CommissionCharged decimal.NullDecimal `json:"comissionCharged"`
	CreationTime      string              `json:"creationTime"`
	UpdateTime        string              `json:"updateTime"`
	ChainID           int64               `json:"chainId"`

	raw json.RawMessage
}

type orderAlias Order

func (o *Order) UnmarshalJSON(b []byte) error {
	var a orderAlias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*o = Order(a)
	o.raw = append(json.RawMessage(nil), b...)
	return nil
}

func (o Order) MarshalJSON() ([]byte, error) {
	if o.raw != nil {
		return o.raw, nil
	}
	return json.Marshal(orderAlias(o))
}

type ordersResponse struct {
	Orders []Order `json:"orders"`
}

// Execution is a broker-confirmed fill.
type Execution struct {
	ID           int64               `json:"id"`
	Symbol       string              `json:"symbol"`
	SymbolID     int64               `json:"symbolId"`
	Quantity     decimal.Decimal     `json:"quantity"`
	Side         Side                `json:"side"`
	Price        decimal.Decimal     `json:"price"`
	OrderID      int64               `json:"orderId"`
	Commission   decimal.NullDecimal `json:"commission"`
	ExecutionFee decimal.NullDecimal `json:"executionFee"`
	SecFee       decimal.NullDecimal `json:"secFee"`
	Venue        string              `json:"venue"`
	Timestamp    string              `json:"timestamp"`

	raw json.RawMessage
}

type executionAlias Execution

func (e *Execution) UnmarshalJSON(b []byte) error {
	var a executionAlias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*e = Execution(a)
	e.raw = append(json.RawMessage(nil), b...)
	return nil
}

func (e Execution) MarshalJSON() ([]byte, error) {
	if e.raw != nil {
		return e.raw, nil
	}
	return json.Marshal(executionAlias(e))
}

type executionsResponse struct {
	Executions []Execution `json:"executions"`
}
