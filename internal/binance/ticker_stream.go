package binance

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// TickerStreamURL is the all-market 24hr ticker stream.
const TickerStreamURL = "wss://fstream.binance.com/ws/!ticker@arr"

// TickerStreamEvent represents a 24hr ticker event from Binance WS.
// The stream pushes an array of these roughly once per second.
type TickerStreamEvent struct {
	EventType          string `json:"e"`
	EventTime          int64  `json:"E"`
	Symbol             string `json:"s"`
	PriceChangePercent string `json:"P"`
	LastPrice          string `json:"c"`
	HighPrice          string `json:"h"`
	LowPrice           string `json:"l"`
	Volume             string `json:"v"`
	QuoteVolume        string `json:"q"`
	CloseTime          int64  `json:"C"`
}

func (e TickerStreamEvent) toTicker() Ticker24h {
	return Ticker24h{
		Symbol:             e.Symbol,
		PriceChangePercent: e.PriceChangePercent,
		LastPrice:          e.LastPrice,
		HighPrice:          e.HighPrice,
		LowPrice:           e.LowPrice,
		Volume:             e.Volume,
		QuoteVolume:        e.QuoteVolume,
		CloseTime:          e.CloseTime,
	}
}

// StartTickerStream keeps cache warm from the ticker stream until ctx is
// cancelled, reconnecting with exponential backoff.
func StartTickerStream(ctx context.Context, streamURL string, cache TickerCache, logger zerolog.Logger) {
	logger = logger.With().Str("component", "ticker-stream").Logger()
	if cache == nil {
		logger.Warn().Msg("No ticker cache configured; ticker stream disabled")
		return
	}
	if streamURL == "" {
		streamURL = TickerStreamURL
	}

	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, streamURL, nil)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to connect to ticker stream")
			sleepWithContext(ctx, backoff)
			backoff = nextBackoff(backoff)
			continue
		}

		logger.Info().Str("url", streamURL).Msg("Connected to Binance ticker stream")
		backoff = time.Second

		// Unblock ReadMessage on shutdown.
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				_ = conn.Close()
			case <-done:
			}
		}()

		if err := readTickerLoop(ctx, conn, cache, logger); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("Ticker stream read error")
		}

		close(done)
		_ = conn.Close()
	}
}

func readTickerLoop(ctx context.Context, conn *websocket.Conn, cache TickerCache, logger zerolog.Logger) error {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		tickers, err := decodeTickerEvents(message)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to decode ticker stream payload")
			continue
		}

		if err := cache.Store(ctx, tickers); err != nil {
			logger.Warn().Err(err).Msg("Failed to cache tickers")
		}
	}
}

// decodeTickerEvents converts one stream frame into USDT perpetual tickers.
func decodeTickerEvents(message []byte) ([]Ticker24h, error) {
	var events []TickerStreamEvent
	if err := json.Unmarshal(message, &events); err != nil {
		return nil, err
	}

	tickers := make([]Ticker24h, 0, len(events))
	for _, e := range events {
		if IsUSDTPerpetual(e.Symbol) {
			tickers = append(tickers, e.toTicker())
		}
	}
	return tickers, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

func nextBackoff(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * 2)
	if next > 30*time.Second {
		return 30 * time.Second
	}
	return time.Duration(math.Max(float64(next), float64(time.Second)))
}
