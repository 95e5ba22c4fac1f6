// Package questradetest provides test doubles for the questrade package.
package questradetest

import (
	"context"
	"time"

	"trading-journal-go/internal/questrade"

	"github.com/stretchr/testify/mock"
)

// MockClient is a mock implementation of questrade.Client.
type MockClient struct {
	mock.Mock
}

var _ questrade.Client = (*MockClient)(nil)

func (m *MockClient) ServerTime(ctx context.Context) (*questrade.ServerTime, error) {
	args := m.Called(ctx)
	st, _ := args.Get(0).(*questrade.ServerTime)
	return st, args.Error(1)
}

func (m *MockClient) SearchSymbols(ctx context.Context, prefix string) ([]questrade.SymbolSearchResult, error) {
	args := m.Called(ctx, prefix)
	res, _ := args.Get(0).([]questrade.SymbolSearchResult)
	return res, args.Error(1)
}

func (m *MockClient) Symbol(ctx context.Context, symbolID int64) (*questrade.SymbolsResponse, error) {
	args := m.Called(ctx, symbolID)
	res, _ := args.Get(0).(*questrade.SymbolsResponse)
	return res, args.Error(1)
}

func (m *MockClient) Quote(ctx context.Context, symbolID int64) (*questrade.QuotesResponse, error) {
	args := m.Called(ctx, symbolID)
	res, _ := args.Get(0).(*questrade.QuotesResponse)
	return res, args.Error(1)
}

func (m *MockClient) Candles(ctx context.Context, symbolID int64, start, end time.Time, interval string) ([]questrade.Candle, error) {
	args := m.Called(ctx, symbolID, start, end, interval)
	res, _ := args.Get(0).([]questrade.Candle)
	return res, args.Error(1)
}

func (m *MockClient) Orders(ctx context.Context, accountID string, start, end time.Time, stateFilter string) ([]questrade.Order, error) {
	args := m.Called(ctx, accountID, start, end, stateFilter)
	res, _ := args.Get(0).([]questrade.Order)
	return res, args.Error(1)
}

func (m *MockClient) Executions(ctx context.Context, accountID string, start, end time.Time) ([]questrade.Execution, error) {
	args := m.Called(ctx, accountID, start, end)
	res, _ := args.Get(0).([]questrade.Execution)
	return res, args.Error(1)
}
