package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"trading-journal-go/internal/credentials"
	"trading-journal-go/internal/questrade"
	"trading-journal-go/internal/snapshot"

	"go.uber.org/zap"
)

// DateLayout is the calendar date accepted by FetchOrders and FetchExecutions.
const DateLayout = "2006-01-02"

// ErrNoAccount is returned when no account id is configured.
var ErrNoAccount = errors.New("no questrade account id configured")

// Client is the part of the Questrade client the ledger needs.
type Client interface {
	Orders(ctx context.Context, accountID string, start, end time.Time, stateFilter string) ([]questrade.Order, error)
	Executions(ctx context.Context, accountID string, start, end time.Time) ([]questrade.Execution, error)
}

// Paths locates the snapshot files.
type Paths struct {
	Orders     string
	Executions string
}

// Ledger fetches one day of account activity and snapshots it to disk.
type Ledger struct {
	client    Client
	cred      credentials.Credential
	accountID string
	paths     Paths
	logger    *zap.Logger
}

// NewLedger creates a ledger for accountID.
func NewLedger(client Client, cred credentials.Credential, accountID string, paths Paths, logger *zap.Logger) *Ledger {
	return &Ledger{
		client:    client,
		cred:      cred,
		accountID: accountID,
		paths:     paths,
		logger:    logger.Named("ledger"),
	}
}

// Window returns the first and last second of date in the fixed UTC-5 zone.
func Window(date string) (start, end time.Time, err error) {
	start, err = time.ParseInLocation(DateLayout, date, questrade.Eastern)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD: %w", date, err)
	}
	end = start.Add(24*time.Hour - time.Second)
	return start, end, nil
}

// FetchOrders lists every order created on date, sorts them by id and
// overwrites the orders snapshot.
func (l *Ledger) FetchOrders(ctx context.Context, date string) ([]questrade.Order, error) {
	start, end, err := l.prepare(date)
	if err != nil {
		return nil, err
	}

	orders, err := l.client.Orders(ctx, l.accountID, start, end, questrade.StateFilterAll)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []questrade.Order{}
	}
	SortOrders(orders)

	if err := snapshot.Save(l.paths.Orders, orders); err != nil {
		return nil, fmt.Errorf("failed to save orders snapshot: %w", err)
	}
	l.logger.Info("Saved orders", zap.String("date", date), zap.Int("count", len(orders)), zap.String("path", l.paths.Orders))
	return orders, nil
}

// FetchExecutions lists every execution on date, sorts them by id and
// overwrites the executions snapshot.
func (l *Ledger) FetchExecutions(ctx context.Context, date string) ([]questrade.Execution, error) {
	start, end, err := l.prepare(date)
	if err != nil {
		return nil, err
	}

	execs, err := l.client.Executions(ctx, l.accountID, start, end)
	if err != nil {
		return nil, err
	}
	if execs == nil {
		execs = []questrade.Execution{}
	}
	sort.SliceStable(execs, func(i, j int) bool { return execs[i].ID < execs[j].ID })

	if err := snapshot.Save(l.paths.Executions, execs); err != nil {
		return nil, fmt.Errorf("failed to save executions snapshot: %w", err)
	}
	l.logger.Info("Saved executions", zap.String("date", date), zap.Int("count", len(execs)), zap.String("path", l.paths.Executions))
	return execs, nil
}

func (l *Ledger) prepare(date string) (time.Time, time.Time, error) {
	if !l.cred.Validated {
		return time.Time{}, time.Time{}, credentials.ErrNotValidated
	}
	if l.accountID == "" {
		return time.Time{}, time.Time{}, ErrNoAccount
	}
	return Window(date)
}

// SortOrders sorts orders ascending by broker id, keeping equal ids in order.
func SortOrders(orders []questrade.Order) {
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
}

// LoadOrders reads an orders snapshot. The result is sorted by id even if
// the file was edited by hand.
func LoadOrders(path string) ([]questrade.Order, error) {
	var orders []questrade.Order
	if err := snapshot.Load(path, &orders); err != nil {
		return nil, fmt.Errorf("failed to load orders snapshot: %w", err)
	}
	SortOrders(orders)
	return orders, nil
}
