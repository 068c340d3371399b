package market

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type stubGetter struct {
	inFlight int32
	maxSeen  int32
	fail     map[string]bool
}

func (s *stubGetter) GetSnapshot(ctx context.Context, symbol, interval string) (Snapshot, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&s.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&s.maxSeen, seen, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	if s.fail[symbol] {
		return Snapshot{}, fmt.Errorf("%s: %w", symbol, ErrDataUnavailable)
	}
	return Snapshot{Symbol: symbol, LastPrice: 1}, nil
}

type countingFailures struct{ n int32 }

func (c *countingFailures) SnapshotFailed() { atomic.AddInt32(&c.n, 1) }

func TestFetchAllSkipsFailuresAndKeepsOrder(t *testing.T) {
	getter := &stubGetter{fail: map[string]bool{"ETHUSDT": true}}
	failures := &countingFailures{}
	f := NewFetcher(getter, "5m", 2, time.Second, failures, zerolog.Nop())

	got := f.FetchAll(context.Background(), []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "XRPUSDT"})

	want := []string{"BTCUSDT", "SOLUSDT", "XRPUSDT"}
	if len(got) != len(want) {
		t.Fatalf("expected %d snapshots, got %d", len(want), len(got))
	}
	for i, s := range got {
		if s.Symbol != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], s.Symbol)
		}
	}
	if failures.n != 1 {
		t.Errorf("expected 1 failure, got %d", failures.n)
	}
}

func TestFetchAllRespectsConcurrencyLimit(t *testing.T) {
	getter := &stubGetter{}
	f := NewFetcher(getter, "5m", 3, 0, nil, zerolog.Nop())

	symbols := make([]string, 12)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("S%dUSDT", i)
	}
	if got := f.FetchAll(context.Background(), symbols); len(got) != len(symbols) {
		t.Fatalf("expected %d snapshots, got %d", len(symbols), len(got))
	}
	if getter.maxSeen > 3 {
		t.Errorf("concurrency exceeded: %d in flight", getter.maxSeen)
	}
}
