package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Trade is a reconstructed round trip recorded in the journal.
// Times are stored in UTC.
type Trade struct {
	gorm.Model
	BatchID     string          `gorm:"index" json:"batch_id"`
	Symbol      string          `gorm:"index" json:"symbol"`
	BuyOrderID  int64           `gorm:"uniqueIndex:idx_trade_orders" json:"buy_order_id"`
	SellOrderID int64           `gorm:"uniqueIndex:idx_trade_orders" json:"sell_order_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	EnterTime   time.Time       `json:"enter_time"`
	EnterPrice  decimal.Decimal `json:"enter_price"`
	ExitTime    time.Time       `gorm:"index" json:"exit_time"`
	ExitPrice   decimal.Decimal `json:"exit_price"`
	BuyValue    decimal.Decimal `json:"buy_value"`
	SellValue   decimal.Decimal `json:"sell_value"`
	Commission  decimal.Decimal `json:"commission"`
	Profit      decimal.Decimal `json:"profit"`
}
