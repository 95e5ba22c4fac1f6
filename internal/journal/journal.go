// Package journal keeps exported trades in the SQLite journal and computes
// running statistics over them.
package journal

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"trading-journal-go/internal/models"
	"trading-journal-go/internal/trades"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatsDetail holds calculated statistics for a given period.
type StatsDetail struct {
	TotalTrades      int64           `json:"total_trades"`
	ProfitableTrades int64           `json:"profitable_trades"`
	WinRate          float64         `json:"win_rate"`
	TotalProfit      decimal.Decimal `json:"total_profit"`
}

// Statistics covers the last 24 hours and the whole journal.
type Statistics struct {
	Since24h StatsDetail `json:"since_24h"`
	AllTime  StatsDetail `json:"all_time"`
}

// Store records trades in the journal database.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger

	mu      sync.Mutex
	entropy io.Reader
}

// NewStore creates a Store over an already migrated database.
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	logger = logger.Named("journal")

	var seed int64
	if err := binary.Read(cryptorand.Reader, binary.LittleEndian, &seed); err != nil {
		logger.Debug("Falling back to time-based batch id seed", zap.Error(err))
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Store{
		db:      db,
		logger:  logger,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0),
	}
}

// Record stores a batch of trades in one transaction and returns the batch
// id and the number of new rows. Trades already journaled under the same
// buy and sell order ids are skipped.
func (s *Store) Record(batch []trades.Trade) (string, int64, error) {
	batchID, err := s.newBatchID()
	if err != nil {
		return "", 0, err
	}
	if len(batch) == 0 {
		return batchID, 0, nil
	}

	rows := make([]models.Trade, len(batch))
	for i, t := range batch {
		rows[i] = models.Trade{
			BatchID:     batchID,
			Symbol:      t.Symbol,
			BuyOrderID:  t.BuyID,
			SellOrderID: t.SellID,
			Quantity:    t.Quantity,
			EnterTime:   t.EnterTime.UTC(),
			EnterPrice:  t.EnterPrice,
			ExitTime:    t.ExitTime.UTC(),
			ExitPrice:   t.ExitPrice,
			BuyValue:    t.BuyValue,
			SellValue:   t.SellValue,
			Commission:  t.Commission,
			Profit:      t.Profit(),
		}
	}

	var inserted int64
	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
		if res.Error != nil {
			return res.Error
		}
		inserted = res.RowsAffected
		return nil
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to record trades: %w", err)
	}

	s.logger.Info("Recorded trades",
		zap.String("batch_id", batchID),
		zap.Int("trades", len(batch)),
		zap.Int64("inserted", inserted))
	return batchID, inserted, nil
}

// List returns every journaled trade, most recent exit first.
func (s *Store) List() ([]models.Trade, error) {
	var result []models.Trade
	if err := s.db.Order("exit_time desc").Order("id desc").Find(&result).Error; err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return result, nil
}

// Statistics computes win rate and profit for the 24 hours before now and
// for all time.
func (s *Store) Statistics(now time.Time) (*Statistics, error) {
	var all []models.Trade
	if err := s.db.Find(&all).Error; err != nil {
		return nil, fmt.Errorf("failed to get trades for statistics: %w", err)
	}

	since24h := now.Add(-24 * time.Hour)
	stats := &Statistics{}

	for _, t := range all {
		stats.AllTime.add(t.Profit)
		if t.ExitTime.After(since24h) && !t.ExitTime.After(now) {
			stats.Since24h.add(t.Profit)
		}
	}

	stats.AllTime.finish()
	stats.Since24h.finish()
	return stats, nil
}

func (d *StatsDetail) add(profit decimal.Decimal) {
	d.TotalTrades++
	if profit.IsPositive() {
		d.ProfitableTrades++
	}
	d.TotalProfit = d.TotalProfit.Add(profit)
}

func (d *StatsDetail) finish() {
	if d.TotalTrades > 0 {
		d.WinRate = float64(d.ProfitableTrades) / float64(d.TotalTrades)
	}
}

func (s *Store) newBatchID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), s.entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate batch id: %w", err)
	}
	return id.String(), nil
}
