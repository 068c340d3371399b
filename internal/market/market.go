// Package market defines the per-instrument snapshot consumed by the signal
// composer, urgency scorer and alert gate, and the provider contract the
// exchange client implements.
package market

import (
	"context"
	"errors"
	"time"
)

// ErrDataUnavailable means a snapshot or listing could not be obtained. The
// caller skips that symbol for the current tick.
var ErrDataUnavailable = errors.New("market data unavailable")

// Snapshot holds the derived metrics for one instrument at fetch time.
type Snapshot struct {
	Symbol      string    `json:"symbol"`
	LastPrice   float64   `json:"last_price"`
	RSI         float64   `json:"rsi"`
	EMAFast     float64   `json:"ema_fast"`
	EMASlow     float64   `json:"ema_slow"`
	FundingRate float64   `json:"funding_rate"`
	VolumeRatio float64   `json:"volume_ratio"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Mover is a 24h ticker row used by the morning report.
type Mover struct {
	Symbol      string  `json:"symbol"`
	LastPrice   float64 `json:"last_price"`
	ChangePct   float64 `json:"change_pct"`
	QuoteVolume float64 `json:"quote_volume"`
}

// SnapshotGetter fetches one snapshot.
type SnapshotGetter interface {
	GetSnapshot(ctx context.Context, symbol, interval string) (Snapshot, error)
}

// Provider is the market snapshot provider. Retries live inside the
// implementation.
type Provider interface {
	SnapshotGetter
	ListEligibleSymbols(ctx context.Context, minQuoteVolume float64) ([]string, error)
}
