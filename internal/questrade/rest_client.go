package questrade

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client defines the Questrade API calls the journal relies on.
type Client interface {
	ServerTime(ctx context.Context) (*ServerTime, error)
	SearchSymbols(ctx context.Context, prefix string) ([]SymbolSearchResult, error)
	Symbol(ctx context.Context, symbolID int64) (*SymbolsResponse, error)
	Quote(ctx context.Context, symbolID int64) (*QuotesResponse, error)
	Candles(ctx context.Context, symbolID int64, start, end time.Time, interval string) ([]Candle, error)
	Orders(ctx context.Context, accountID string, start, end time.Time, stateFilter string) ([]Order, error)
	Executions(ctx context.Context, accountID string, start, end time.Time) ([]Execution, error)
}

// RestClient is a client for the Questrade REST API bound to one session.
// It implements the Client interface.
type RestClient struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure RestClient implements the interface
var _ Client = (*RestClient)(nil)

// NewRestClient creates a client for the given api_server and access token.
func NewRestClient(apiServer, accessToken string, limiter *rate.Limiter, logger *zap.Logger) *RestClient {
	client := resty.New().
		SetBaseURL(apiServer).
		SetAuthToken(accessToken)

	return &RestClient{
		client:  client,
		logger:  logger,
		limiter: limiter,
	}
}

// NewLimiter builds the request limiter. A non-positive rps disables throttling.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// doRequest executes a single request. There is no retry; a failed call is
// reported to the caller as is.
func (c *RestClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
	resp, err := req.SetContext(ctx).Execute(method, url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
	}
	return resp, nil
}

// ServerTime fetches the current server time. It is the cheapest
// authenticated call and is used to validate a session.
func (c *RestClient) ServerTime(ctx context.Context) (*ServerTime, error) {
	req := c.client.R().SetResult(&ServerTime{})

	resp, err := c.doRequest(ctx, "GET", "/v1/time", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get server time: %w", err)
	}
	return resp.Result().(*ServerTime), nil
}

// SearchSymbols returns the symbols matching prefix, in server order.
func (c *RestClient) SearchSymbols(ctx context.Context, prefix string) ([]SymbolSearchResult, error) {
	req := c.client.R().
		SetQueryParam("prefix", prefix).
		SetResult(&symbolSearchResponse{})

	resp, err := c.doRequest(ctx, "GET", "/v1/symbols/search", req)
	if err != nil {
		return nil, fmt.Errorf("failed to search symbols for %q: %w", prefix, err)
	}
	return resp.Result().(*symbolSearchResponse).Symbols, nil
}

// Symbol fetches the details of one symbol.
func (c *RestClient) Symbol(ctx context.Context, symbolID int64) (*SymbolsResponse, error) {
	req := c.client.R().
		SetPathParam("id", strconv.FormatInt(symbolID, 10)).
		SetResult(&SymbolsResponse{})

	resp, err := c.doRequest(ctx, "GET", "/v1/symbols/{id}", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get symbol %d: %w", symbolID, err)
	}
	return resp.Result().(*SymbolsResponse), nil
}

// Quote fetches the level 1 quote of one symbol.
func (c *RestClient) Quote(ctx context.Context, symbolID int64) (*QuotesResponse, error) {
	req := c.client.R().
		SetPathParam("id", strconv.FormatInt(symbolID, 10)).
		SetResult(&QuotesResponse{})

	resp, err := c.doRequest(ctx, "GET", "/v1/markets/quotes/{id}", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote for %d: %w", symbolID, err)
	}
	return resp.Result().(*QuotesResponse), nil
}

// Candles fetches bars of the given interval between start and end.
func (c *RestClient) Candles(ctx context.Context, symbolID int64, start, end time.Time, interval string) ([]Candle, error) {
	req := c.client.R().
		SetPathParam("id", strconv.FormatInt(symbolID, 10)).
		SetQueryParams(map[string]string{
			"startTime": start.Format(time.RFC3339),
			"endTime":   end.Format(time.RFC3339),
			"interval":  interval,
		}).
		SetResult(&candlesResponse{})

	resp, err := c.doRequest(ctx, "GET", "/v1/markets/candles/{id}", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get candles for %d: %w", symbolID, err)
	}
	return resp.Result().(*candlesResponse).Candles, nil
}

// Orders lists the orders of an account created within [start, end].
func (c *RestClient) Orders(ctx context.Context, accountID string, start, end time.Time, stateFilter string) ([]Order, error) {
	req := c.client.R().
		SetPathParam("account", accountID).
		SetQueryParams(map[string]string{
			"startTime":   start.Format(time.RFC3339),
			"endTime":     end.Format(time.RFC3339),
			"stateFilter": stateFilter,
		}).
		SetResult(&ordersResponse{})

	resp, err := c.doRequest(ctx, "GET", "/v1/accounts/{account}/orders", req)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return resp.Result().(*ordersResponse).Orders, nil
}

// Executions lists the executions of an account within [start, end].
func (c *RestClient) Executions(ctx context.Context, accountID string, start, end time.Time) ([]Execution, error) {
	req := c.client.R().
		SetPathParam("account", accountID).
		SetQueryParams(map[string]string{
			"startTime": start.Format(time.RFC3339),
			"endTime":   end.Format(time.RFC3339),
		}).
		SetResult(&executionsResponse{})

	resp, err := c.doRequest(ctx, "GET", "/v1/accounts/{account}/executions", req)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	return resp.Result().(*executionsResponse).Executions, nil
}
