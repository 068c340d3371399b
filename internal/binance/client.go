package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/bl8ckfz/futures-alert-bot/internal/market"
)

const (
	// FuturesAPIBase is the base URL for Binance Futures API
	FuturesAPIBase = "https://fapi.binance.com"

	Ticker24hEndpoint   = "/fapi/v1/ticker/24hr"
	KlinesEndpoint      = "/fapi/v1/klines"
	FundingRateEndpoint = "/fapi/v1/fundingRate"
)

// Config tunes the REST client. Zero values fall back to defaults.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
	KlineLimit  int
}

// Client handles HTTP requests to Binance Futures API
type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxAttempts int
	retryDelay  time.Duration
	klineLimit  int
	cache       TickerCache
	logger      zerolog.Logger
}

// statusError is returned for non-200 responses.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

// NewClient creates a new Binance API client
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = FuturesAPIBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 800 * time.Millisecond
	}
	if cfg.KlineLimit <= 0 {
		cfg.KlineLimit = 200
	}

	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		klineLimit:  cfg.KlineLimit,
		logger:      logger.With().Str("component", "binance-client").Logger(),
	}
}

// UseTickerCache makes ListEligibleSymbols read the streamed tickers first.
func (c *Client) UseTickerCache(cache TickerCache) {
	c.cache = cache
}

// getJSON performs a GET and decodes the body into out. Network errors, 429
// and 5xx are retried with a linearly growing delay.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err := c.doGet(ctx, endpoint, out)
		if err == nil {
			return nil
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			return err
		}
		if ctx.Err() != nil || attempt == c.maxAttempts {
			break
		}

		c.logger.Debug().
			Err(err).
			Str("path", path).
			Int("attempt", attempt).
			Msg("retrying request")
		sleepWithContext(ctx, c.retryDelay*time.Duration(attempt))
	}
	return fmt.Errorf("GET %s after %d attempts: %w", path, c.maxAttempts, lastErr)
}

func (c *Client) doGet(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{code: resp.StatusCode, body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Tickers24h fetches 24h statistics for all USDT perpetuals.
func (c *Client) Tickers24h(ctx context.Context) ([]Ticker24h, error) {
	var all []Ticker24h
	if err := c.getJSON(ctx, Ticker24hEndpoint, nil, &all); err != nil {
		return nil, err
	}

	tickers := make([]Ticker24h, 0, len(all))
	for _, t := range all {
		if IsUSDTPerpetual(t.Symbol) {
			tickers = append(tickers, t)
		}
	}
	return tickers, nil
}

// ListEligibleSymbols returns USDT perpetuals with at least minQuoteVolume of
// 24h quote volume, sorted by name.
func (c *Client) ListEligibleSymbols(ctx context.Context, minQuoteVolume float64) ([]string, error) {
	tickers := c.cachedTickers(ctx)
	if len(tickers) == 0 {
		var err error
		tickers, err = c.Tickers24h(ctx)
		if err != nil {
			return nil, fmt.Errorf("list symbols: %w: %w", market.ErrDataUnavailable, err)
		}
	}

	symbols := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if IsUSDTPerpetual(t.Symbol) && t.QuoteVolumeFloat() >= minQuoteVolume {
			symbols = append(symbols, t.Symbol)
		}
	}
	sort.Strings(symbols)

	c.logger.Debug().
		Int("tickers", len(tickers)).
		Int("eligible", len(symbols)).
		Msg("listed eligible symbols")
	return symbols, nil
}

func (c *Client) cachedTickers(ctx context.Context) []Ticker24h {
	if c.cache == nil {
		return nil
	}
	tickers, err := c.cache.Load(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("ticker cache read failed, falling back to REST")
		return nil
	}
	return tickers
}

// TopGainers returns the n USDT perpetuals with the highest 24h change.
func (c *Client) TopGainers(ctx context.Context, n int) ([]market.Mover, error) {
	tickers, err := c.Tickers24h(ctx)
	if err != nil {
		return nil, fmt.Errorf("top gainers: %w: %w", market.ErrDataUnavailable, err)
	}

	sort.SliceStable(tickers, func(i, j int) bool {
		return tickers[i].ChangePercentFloat() > tickers[j].ChangePercentFloat()
	})
	if n > len(tickers) {
		n = len(tickers)
	}

	movers := make([]market.Mover, 0, n)
	for _, t := range tickers[:n] {
		movers = append(movers, market.Mover{
			Symbol:      t.Symbol,
			LastPrice:   t.LastPriceFloat(),
			ChangePct:   t.ChangePercentFloat(),
			QuoteVolume: t.QuoteVolumeFloat(),
		})
	}
	return movers, nil
}

// Klines fetches the most recent candles, oldest first.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", fmt.Sprint(limit))

	var rows [][]interface{}
	if err := c.getJSON(ctx, KlinesEndpoint, params, &rows); err != nil {
		return nil, err
	}

	candles := make([]Candle, 0, len(rows))
	for _, row := range rows {
		candle, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("parse kline for %s: %w", symbol, err)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// LatestFundingRate returns the most recent funding rate, 0 when none exists.
func (c *Client) LatestFundingRate(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("limit", "1")

	var rows []fundingRateRow
	if err := c.getJSON(ctx, FundingRateEndpoint, params, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return parseFloatOrZero(rows[len(rows)-1].FundingRate), nil
}
