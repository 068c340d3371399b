package alerts

import (
	"context"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

type fakeBatchResults struct {
	execErr error
	closed  bool
}

func (r *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("INSERT 0 1"), r.execErr
}
func (r *fakeBatchResults) Query() (pgx.Rows, error) { return nil, nil }
func (r *fakeBatchResults) QueryRow() pgx.Row        { return nil }
func (r *fakeBatchResults) Close() error {
	r.closed = true
	return nil
}

type fakeBatchSender struct {
	mu      sync.Mutex
	batches []*pgx.Batch
	results *fakeBatchResults
}

func (f *fakeBatchSender) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, b)
	return f.results
}

func TestPersisterFlushesOnClose(t *testing.T) {
	db := &fakeBatchSender{results: &fakeBatchResults{}}
	p := NewAlertPersister(db, zerolog.Nop())

	p.SaveAlert(&Alert{ID: "a1", Symbol: "BTCUSDT", CommittedAt: baseTime})
	p.SaveAlert(&Alert{ID: "a2", Symbol: "ETHUSDT", CommittedAt: baseTime})
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if len(db.batches) != 1 {
		t.Fatalf("expected one batch, got %d", len(db.batches))
	}
	if n := db.batches[0].Len(); n != 2 {
		t.Fatalf("expected 2 queued inserts, got %d", n)
	}
	if !db.results.closed {
		t.Error("expected batch results to be closed")
	}
}

func TestPersisterFlushesFullBatch(t *testing.T) {
	db := &fakeBatchSender{results: &fakeBatchResults{}}
	p := NewAlertPersister(db, zerolog.Nop())
	defer p.Close()

	for i := 0; i < batchSize; i++ {
		p.SaveAlert(&Alert{ID: "x", Symbol: "BTCUSDT", CommittedAt: baseTime})
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if len(db.batches) != 1 || db.batches[0].Len() != batchSize {
		t.Fatalf("expected a full batch flush, got %d batches", len(db.batches))
	}
}

func TestPersisterExecErrorIsLogged(t *testing.T) {
	db := &fakeBatchSender{results: &fakeBatchResults{execErr: errBoom}}
	p := NewAlertPersister(db, zerolog.Nop())

	p.SaveAlert(&Alert{ID: "a1", Symbol: "BTCUSDT", CommittedAt: baseTime})
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !db.results.closed {
		t.Error("expected batch results to be closed after exec error")
	}
}
