package alerts

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/bl8ckfz/futures-alert-bot/internal/market"
)

type fakeChannel struct {
	mu       sync.Mutex
	nextID   MessageID
	sent     []string
	pins     []MessageID
	unpins   []MessageID
	edits    map[MessageID]string
	sendErr  error
	pinErr   error
	editErr  error
	unpinErr error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{nextID: 100, edits: make(map[MessageID]string)}
}

func (f *fakeChannel) Send(ctx context.Context, text string) (MessageID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.nextID++
	f.sent = append(f.sent, text)
	return f.nextID, nil
}

func (f *fakeChannel) Edit(ctx context.Context, id MessageID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits[id] = text
	return nil
}

func (f *fakeChannel) Pin(ctx context.Context, id MessageID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pinErr != nil {
		return f.pinErr
	}
	f.pins = append(f.pins, id)
	return nil
}

func (f *fakeChannel) Unpin(ctx context.Context, id MessageID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unpinErr != nil {
		return f.unpinErr
	}
	f.unpins = append(f.unpins, id)
	return nil
}

func (f *fakeChannel) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type staticLister struct {
	symbols []string
	err     error
}

func (s staticLister) ListEligibleSymbols(ctx context.Context, minQuoteVolume float64) ([]string, error) {
	return s.symbols, s.err
}

// fakeBatcher returns preset snapshots for the requested symbols.
type fakeBatcher struct {
	mu        sync.Mutex
	snaps     map[string]market.Snapshot
	calls     int32
	requested []string
}

func newFakeBatcher(snaps ...market.Snapshot) *fakeBatcher {
	b := &fakeBatcher{snaps: make(map[string]market.Snapshot)}
	b.set(snaps...)
	return b
}

func (b *fakeBatcher) set(snaps ...market.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snaps = make(map[string]market.Snapshot)
	for _, s := range snaps {
		b.snaps[s.Symbol] = s
	}
}

func (b *fakeBatcher) FetchAll(ctx context.Context, symbols []string) []market.Snapshot {
	atomic.AddInt32(&b.calls, 1)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requested = append([]string{}, symbols...)
	out := make([]market.Snapshot, 0, len(symbols))
	for _, sym := range symbols {
		if s, ok := b.snaps[sym]; ok {
			out = append(out, s)
		}
	}
	return out
}

type countingRecorder struct {
	mu        sync.Mutex
	rejected  map[string]int
	committed int
	failed    map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{rejected: make(map[string]int), failed: make(map[string]int)}
}

func (r *countingRecorder) GateRejected(stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected[stage]++
}

func (r *countingRecorder) AlertCommitted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed++
}

func (r *countingRecorder) ChannelFailed(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[op]++
}

var errBoom = errors.New("boom")

// strongUptrend passes every gate stage and bypasses cooldown.
func strongUptrend(symbol string) market.Snapshot {
	return market.Snapshot{
		Symbol:      symbol,
		LastPrice:   100,
		RSI:         60,
		EMAFast:     99,
		EMASlow:     98,
		FundingRate: 0.035,
		VolumeRatio: 3.5,
	}
}

// moderateUptrend passes every gate stage but is not strong.
func moderateUptrend(symbol string) market.Snapshot {
	return market.Snapshot{
		Symbol:      symbol,
		LastPrice:   100,
		RSI:         60,
		EMAFast:     99,
		EMASlow:     98,
		FundingRate: 0.03,
		VolumeRatio: 2.5,
	}
}
