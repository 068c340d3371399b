package market

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// FailureCounter is notified of every skipped fetch.
type FailureCounter interface {
	SnapshotFailed()
}

// Fetcher fans snapshot requests out with bounded concurrency.
type Fetcher struct {
	getter      SnapshotGetter
	interval    string
	concurrency int
	timeout     time.Duration
	failures    FailureCounter
	logger      zerolog.Logger
}

// NewFetcher creates a fetcher. concurrency <= 0 means 1.
func NewFetcher(getter SnapshotGetter, interval string, concurrency int, timeout time.Duration, failures FailureCounter, logger zerolog.Logger) *Fetcher {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Fetcher{
		getter:      getter,
		interval:    interval,
		concurrency: concurrency,
		timeout:     timeout,
		failures:    failures,
		logger:      logger.With().Str("component", "snapshot-fetcher").Logger(),
	}
}

// FetchAll fetches a snapshot for every symbol and joins before returning.
// Failed symbols are logged and left out; the input order is kept.
func (f *Fetcher) FetchAll(ctx context.Context, symbols []string) []Snapshot {
	results := make([]*Snapshot, len(symbols))

	var g errgroup.Group
	g.SetLimit(f.concurrency)

	var mu sync.Mutex
	failed := 0

	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			reqCtx := ctx
			if f.timeout > 0 {
				var cancel context.CancelFunc
				reqCtx, cancel = context.WithTimeout(ctx, f.timeout)
				defer cancel()
			}

			snap, err := f.getter.GetSnapshot(reqCtx, symbol, f.interval)
			if err != nil {
				f.logger.Debug().Err(err).Str("symbol", symbol).Msg("Snapshot skipped")
				if f.failures != nil {
					f.failures.SnapshotFailed()
				}
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			results[i] = &snap
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Snapshot, 0, len(symbols))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}

	if failed > 0 {
		f.logger.Warn().
			Int("requested", len(symbols)).
			Int("failed", failed).
			Msg("Some snapshots unavailable this tick")
	}
	return out
}
