// Package trades turns a day's orders into round-trip trades and exports
// them as CSV.
package trades

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"trading-journal-go/internal/questrade"
	"trading-journal-go/internal/snapshot"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrReconciliation is matched by every error that stops an export because
// the orders do not reconcile into trades.
var ErrReconciliation = errors.New("orders do not reconcile")

// Header is the first row of the CSV export.
var Header = []string{
	"Date", "Symbol", "Quantity", "Enter Time", "Enter Price",
	"Exit Time", "Exit Price", "Buy Value", "Sell Value", "Commission",
}

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04:05"
)

// Trade is one buy followed by one sell.
type Trade struct {
	Symbol     string
	Quantity   decimal.Decimal
	EnterTime  time.Time
	EnterPrice decimal.Decimal
	ExitTime   time.Time
	ExitPrice  decimal.Decimal
	BuyValue   decimal.Decimal
	SellValue  decimal.Decimal
	Commission decimal.Decimal
	BuyID      int64
	SellID     int64
}

// Profit is the sell value less the buy value and commission.
func (t Trade) Profit() decimal.Decimal {
	return t.SellValue.Sub(t.BuyValue).Sub(t.Commission)
}

// PairingError reports a pair whose sides are not Buy then Sell.
type PairingError struct {
	Index    int
	FirstID  int64
	SecondID int64
	First    questrade.Side
	Second   questrade.Side
}

func (e *PairingError) Error() string {
	return fmt.Sprintf("pair %d: expected Buy then Sell, got %s (order %d) then %s (order %d)",
		e.Index, e.First, e.FirstID, e.Second, e.SecondID)
}

func (e *PairingError) Is(target error) bool {
	return target == ErrReconciliation
}

// Reconstructor pairs consecutive orders into trades.
type Reconstructor struct {
	logger *zap.Logger
}

// NewReconstructor creates a new Reconstructor.
func NewReconstructor(logger *zap.Logger) *Reconstructor {
	return &Reconstructor{logger: logger.Named("trades")}
}

// Reconstruct pairs orders (0,1), (2,3), ... The orders must already be sorted
// by id. Any invalid pair aborts the whole reconstruction.
func (r *Reconstructor) Reconstruct(orders []questrade.Order) ([]Trade, error) {
	if len(orders)%2 != 0 {
		last := orders[len(orders)-1]
		r.logger.Warn("Ignoring unpaired trailing order",
			zap.Int64("order_id", last.ID), zap.String("symbol", last.Symbol))
	}

	result := make([]Trade, 0, len(orders)/2)
	for i := 0; i+1 < len(orders); i += 2 {
		t, err := pair(i/2, orders[i], orders[i+1])
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, nil
}

func pair(index int, buy, sell questrade.Order) (Trade, error) {
	if buy.Side != questrade.SideBuy || sell.Side != questrade.SideSell {
		return Trade{}, &PairingError{
			Index:    index,
			FirstID:  buy.ID,
			SecondID: sell.ID,
			First:    buy.Side,
			Second:   sell.Side,
		}
	}

	if !buy.AvgExecPrice.Valid || !sell.AvgExecPrice.Valid {
		return Trade{}, fmt.Errorf("%w: pair %d: orders %d and %d need an average execution price",
			ErrReconciliation, index, buy.ID, sell.ID)
	}
	if !sell.CommissionCharged.Valid {
		return Trade{}, fmt.Errorf("%w: pair %d: sell order %d has no commission",
			ErrReconciliation, index, sell.ID)
	}

	enter, err := time.Parse(time.RFC3339Nano, buy.CreationTime)
	if err != nil {
		return Trade{}, fmt.Errorf("%w: pair %d: order %d creation time: %v", ErrReconciliation, index, buy.ID, err)
	}
	exit, err := time.Parse(time.RFC3339Nano, sell.CreationTime)
	if err != nil {
		return Trade{}, fmt.Errorf("%w: pair %d: order %d creation time: %v", ErrReconciliation, index, sell.ID, err)
	}

	qty := buy.FilledQuantity
	enterPrice := buy.AvgExecPrice.Decimal
	exitPrice := sell.AvgExecPrice.Decimal

	commission := sell.CommissionCharged.Decimal
	if buy.CommissionCharged.Valid {
		commission = commission.Add(buy.CommissionCharged.Decimal)
	}

	return Trade{
		Symbol:     buy.Symbol,
		Quantity:   qty,
		EnterTime:  enter,
		EnterPrice: enterPrice,
		ExitTime:   exit,
		ExitPrice:  exitPrice,
		BuyValue:   qty.Mul(enterPrice),
		SellValue:  qty.Mul(exitPrice),
		Commission: commission,
		BuyID:      buy.ID,
		SellID:     sell.ID,
	}, nil
}

// WriteCSV writes the header followed by one row per trade.
func WriteCSV(w io.Writer, trades []Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, t := range trades {
		row := []string{
			t.EnterTime.Format(dateLayout),
			t.Symbol,
			t.Quantity.String(),
			clock(t.EnterTime),
			t.EnterPrice.String(),
			clock(t.ExitTime),
			t.ExitPrice.String(),
			t.BuyValue.String(),
			t.SellValue.String(),
			t.Commission.String(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Export reconstructs orders and atomically writes the CSV to path. Nothing is
// written when reconstruction fails.
func (r *Reconstructor) Export(path string, orders []questrade.Order) ([]Trade, error) {
	result, err := r.Reconstruct(orders)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, result); err != nil {
		return nil, fmt.Errorf("failed to render trades: %w", err)
	}
	if err := snapshot.WriteAtomic(path, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}

	r.logger.Info("Exported trades", zap.String("path", path), zap.Int("trades", len(result)))
	return result, nil
}

// clock formats the wall time, adding microseconds only when present.
func clock(t time.Time) string {
	s := t.Format(clockLayout)
	if us := t.Nanosecond() / 1000; us != 0 {
		s += fmt.Sprintf(".%06d", us)
	}
	return s
}
