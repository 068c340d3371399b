package binance

import (
	"context"
	"fmt"
	"time"

	"github.com/bl8ckfz/futures-alert-bot/internal/indicators"
	"github.com/bl8ckfz/futures-alert-bot/internal/market"
)

const (
	rsiPeriod         = 14
	emaFastPeriod     = 50
	emaSlowPeriod     = 200
	volumeRatioWindow = 20
)

// GetSnapshot builds an instrument snapshot from recent klines and the
// latest funding rate. A funding lookup failure leaves the rate at zero.
func (c *Client) GetSnapshot(ctx context.Context, symbol, interval string) (market.Snapshot, error) {
	candles, err := c.Klines(ctx, symbol, interval, c.klineLimit)
	if err != nil {
		return market.Snapshot{}, fmt.Errorf("snapshot %s: %w: %w", symbol, market.ErrDataUnavailable, err)
	}
	if len(candles) == 0 {
		return market.Snapshot{}, fmt.Errorf("snapshot %s: no klines: %w", symbol, market.ErrDataUnavailable)
	}

	closes := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, k := range candles {
		closes[i] = k.Close
		volumes[i] = k.Volume
	}

	funding, err := c.LatestFundingRate(ctx, symbol)
	if err != nil {
		c.logger.Debug().Err(err).Str("symbol", symbol).Msg("funding rate unavailable")
		funding = 0
	}

	return market.Snapshot{
		Symbol:      symbol,
		LastPrice:   closes[len(closes)-1],
		RSI:         indicators.RSI(closes, rsiPeriod),
		EMAFast:     indicators.EMA(closes, emaFastPeriod),
		EMASlow:     indicators.EMA(closes, indicators.SlowPeriod(len(closes), emaSlowPeriod)),
		FundingRate: funding,
		VolumeRatio: indicators.VolumeRatio(volumes, volumeRatioWindow),
		FetchedAt:   time.Now().UTC(),
	}, nil
}

var _ market.Provider = (*Client)(nil)
