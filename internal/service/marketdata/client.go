package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apphttp "BorrowDesk/pkg/http"
)

// Config holds the three provider endpoints and the shared API key.
type Config struct {
	RateURL       string
	VolatilityURL string
	EventRiskURL  string
	APIKey        string
	Timeout       time.Duration
}

// Client talks to the three upstream market-data providers over HTTP.
// Rates and volatility indices arrive as JSON strings and are parsed
// into decimals, never floats.
type Client struct {
	http *apphttp.Client
	cfg  Config
}

// NewClient creates the provider client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		http: apphttp.NewClient(apphttp.WithTimeout(timeout)),
		cfg:  cfg,
	}
}

type rateResponse struct {
	Ticker string `json:"ticker"`
	Rate   string `json:"rate"`
	AsOf   string `json:"as_of"`
}

type volatilityResponse struct {
	Ticker   string `json:"ticker"`
	VolIndex string `json:"vol_index"`
}

type eventRiskResponse struct {
	Ticker    string `json:"ticker"`
	EventRisk int    `json:"event_risk"`
}

// FetchRate fetches the quoted annualized borrow rate for ticker.
func (c *Client) FetchRate(ctx context.Context, ticker string) (decimal.Decimal, error) {
	var resp rateResponse
	if err := c.get(ctx, c.cfg.RateURL, ticker, &resp); err != nil {
		return decimal.Zero, err
	}

	rate, err := decimal.NewFromString(resp.Rate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse rate %q for %s: %w", resp.Rate, ticker, err)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative rate %s for %s", rate, ticker)
	}
	return rate, nil
}

// FetchVolatility fetches the volatility index for ticker.
func (c *Client) FetchVolatility(ctx context.Context, ticker string) (decimal.Decimal, error) {
	var resp volatilityResponse
	if err := c.get(ctx, c.cfg.VolatilityURL, ticker, &resp); err != nil {
		return decimal.Zero, err
	}

	vol, err := decimal.NewFromString(resp.VolIndex)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse vol_index %q for %s: %w", resp.VolIndex, ticker, err)
	}
	return vol, nil
}

// FetchEventRisk fetches the corporate-event risk level (0-10) for ticker.
func (c *Client) FetchEventRisk(ctx context.Context, ticker string) (int, error) {
	var resp eventRiskResponse
	if err := c.get(ctx, c.cfg.EventRiskURL, ticker, &resp); err != nil {
		return 0, err
	}
	if resp.EventRisk < 0 || resp.EventRisk > 10 {
		return 0, fmt.Errorf("event risk %d for %s out of range", resp.EventRisk, ticker)
	}
	return resp.EventRisk, nil
}

func (c *Client) get(ctx context.Context, baseURL, ticker string, dest any) error {
	headers := map[string]string{}
	if c.cfg.APIKey != "" {
		headers["X-API-Key"] = c.cfg.APIKey
	}
	return c.http.SendAndParse(ctx, &apphttp.RequestOptions{
		Method:  apphttp.MethodGet,
		URL:     baseURL,
		Headers: headers,
		QueryParams: map[string][]string{
			"ticker": {ticker},
		},
	}, dest)
}
