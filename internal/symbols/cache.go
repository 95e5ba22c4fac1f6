package symbols

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"trading-journal-go/internal/credentials"
	"trading-journal-go/internal/questrade"
	"trading-journal-go/internal/snapshot"

	"go.uber.org/zap"
)

// retrievedLayout is the wall-clock format of date_retrieved_EST.
const retrievedLayout = "2006-01-02-15:04:05"

// Record is one cached symbol id, as stored in the mirror file.
type Record struct {
	SymID             int64  `json:"sym_id"`
	DateRetrievedEST  string `json:"date_retrieved_EST"`
	DateRetrievedUnix int64  `json:"date_retrieved_timestamp"`
}

// Searcher is the part of the Questrade client the cache needs.
type Searcher interface {
	SearchSymbols(ctx context.Context, prefix string) ([]questrade.SymbolSearchResult, error)
}

// Cache maps ticker symbols to Questrade symbol ids and mirrors the mapping
// to a JSON file. The mirror is rewritten in full on every addition.
type Cache struct {
	mu       sync.Mutex
	path     string
	records  map[string]Record
	searcher Searcher
	cred     credentials.Credential
	logger   *zap.Logger
	now      func() time.Time
}

// NewCache loads the mirror at path, if present. A malformed mirror is an error.
func NewCache(path string, cred credentials.Credential, searcher Searcher, logger *zap.Logger) (*Cache, error) {
	c := &Cache{
		path:     path,
		records:  make(map[string]Record),
		searcher: searcher,
		cred:     cred,
		logger:   logger.Named("symbols"),
		now:      time.Now,
	}

	if err := snapshot.Load(path, &c.records); err != nil && !errors.Is(err, snapshot.ErrNotExists) {
		return nil, fmt.Errorf("failed to load symbol cache: %w", err)
	}
	// A mirror holding the JSON literal null decodes to a nil map.
	if c.records == nil {
		c.records = make(map[string]Record)
	}
	c.logger.Debug("Symbol cache loaded", zap.String("path", path), zap.Int("count", len(c.records)))
	return c, nil
}

// Resolve returns the Questrade id of symbol. Cached symbols never hit the
// network; misses are searched once and cached only when an exact match
// exists.
func (c *Cache) Resolve(ctx context.Context, symbol string) (int64, bool) {
	if !c.cred.Validated || symbol == "" {
		return 0, false
	}
	symbol = strings.ToUpper(symbol)

	c.mu.Lock()
	defer c.mu.Unlock()

	if rec, ok := c.records[symbol]; ok && rec.SymID > 0 {
		return rec.SymID, true
	}

	results, err := c.searcher.SearchSymbols(ctx, symbol)
	if err != nil {
		c.logger.Error("Symbol search failed", zap.String("symbol", symbol), zap.Error(err))
		return 0, false
	}

	for _, r := range results {
		if strings.ToUpper(r.Symbol) != symbol || r.SymbolID <= 0 {
			continue
		}
		c.add(symbol, r.SymbolID)
		return r.SymbolID, true
	}

	c.logger.Warn("Symbol not found", zap.String("symbol", symbol), zap.Int("candidates", len(results)))
	return 0, false
}

// Len returns the number of cached symbols.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// add must be called with c.mu held.
func (c *Cache) add(symbol string, id int64) {
	if rec, ok := c.records[symbol]; ok && rec.SymID > 0 {
		return
	}

	now := c.now()
	c.records[symbol] = Record{
		SymID:             id,
		DateRetrievedEST:  now.In(questrade.Eastern).Format(retrievedLayout),
		DateRetrievedUnix: now.Round(time.Second).Unix(),
	}

	if err := snapshot.Save(c.path, c.records); err != nil {
		// The in-memory entry still serves this process.
		c.logger.Error("Failed to write symbol cache", zap.String("path", c.path), zap.Error(err))
		return
	}
	c.logger.Info("Cached symbol id", zap.String("symbol", symbol), zap.Int64("sym_id", id))
}
