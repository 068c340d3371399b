package binance

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Candle represents a processed candlestick for internal use
type Candle struct {
	OpenTime    time.Time `json:"open_time"`
	CloseTime   time.Time `json:"close_time"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      float64   `json:"volume"`
	QuoteVolume float64   `json:"quote_volume"`
}

// Ticker24h represents 24-hour ticker statistics
type Ticker24h struct {
	Symbol             string `json:"symbol"`
	PriceChangePercent string `json:"priceChangePercent"`
	LastPrice          string `json:"lastPrice"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	Volume             string `json:"volume"`
	QuoteVolume        string `json:"quoteVolume"`
	CloseTime          int64  `json:"closeTime"`
}

// QuoteVolumeFloat parses the 24h quote volume; malformed values count as 0.
func (t Ticker24h) QuoteVolumeFloat() float64 {
	return parseFloatOrZero(t.QuoteVolume)
}

// ChangePercentFloat parses the 24h change percent.
func (t Ticker24h) ChangePercentFloat() float64 {
	return parseFloatOrZero(t.PriceChangePercent)
}

// LastPriceFloat parses the last traded price.
func (t Ticker24h) LastPriceFloat() float64 {
	return parseFloatOrZero(t.LastPrice)
}

// fundingRateRow is one row of /fapi/v1/fundingRate.
type fundingRateRow struct {
	Symbol      string `json:"symbol"`
	FundingRate string `json:"fundingRate"`
	FundingTime int64  `json:"fundingTime"`
}

// IsUSDTPerpetual reports whether a futures symbol is a plain USDT-margined
// contract. Leveraged token pairs such as BTCUPUSDT are excluded.
func IsUSDTPerpetual(symbol string) bool {
	base := strings.TrimSuffix(symbol, "USDT")
	if base == symbol || base == "" {
		return false
	}
	for _, suffix := range []string{"UP", "DOWN"} {
		if strings.HasSuffix(base, suffix) && len(base)-len(suffix) >= 3 {
			return false
		}
	}
	return true
}

// parseKline converts one /fapi/v1/klines row:
// [openTime, open, high, low, close, volume, closeTime, quoteVolume, ...]
func parseKline(row []interface{}) (Candle, error) {
	if len(row) < 8 {
		return Candle{}, fmt.Errorf("kline row has %d fields", len(row))
	}

	openMs, ok := row[0].(float64)
	if !ok {
		return Candle{}, fmt.Errorf("kline open time: unexpected type %T", row[0])
	}
	closeMs, ok := row[6].(float64)
	if !ok {
		return Candle{}, fmt.Errorf("kline close time: unexpected type %T", row[6])
	}

	var vals [6]float64
	for i, idx := range []int{1, 2, 3, 4, 5, 7} {
		s, ok := row[idx].(string)
		if !ok {
			return Candle{}, fmt.Errorf("kline field %d: unexpected type %T", idx, row[idx])
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Candle{}, fmt.Errorf("kline field %d: %w", idx, err)
		}
		vals[i] = v
	}

	return Candle{
		OpenTime:    time.UnixMilli(int64(openMs)),
		CloseTime:   time.UnixMilli(int64(closeMs)),
		Open:        vals[0],
		High:        vals[1],
		Low:         vals[2],
		Close:       vals[3],
		Volume:      vals[4],
		QuoteVolume: vals[5],
	}, nil
}

func parseFloatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
