package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	// batchSize is the maximum number of alerts to batch before flushing
	batchSize = 50
	// flushInterval is how often to flush alerts to the database
	flushInterval = 5 * time.Second
)

const insertAlertSQL = `
	INSERT INTO alert_history (
		id, time, symbol, side, score, strong,
		entry, take_profit, stop_loss, strength, metadata
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
	)
	ON CONFLICT (id) DO NOTHING
`

// batchSender is satisfied by *pgxpool.Pool.
type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// AlertPersister handles batched writing of committed alerts to the
// alert_history audit table. Gating never reads it back.
type AlertPersister struct {
	db     batchSender
	logger zerolog.Logger
	queue  []*Alert
	mu     sync.Mutex
	ticker *time.Ticker
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewAlertPersister creates a new alert persister
func NewAlertPersister(db batchSender, logger zerolog.Logger) *AlertPersister {
	p := &AlertPersister{
		db:     db,
		logger: logger.With().Str("component", "alert-persister").Logger(),
		queue:  make([]*Alert, 0, batchSize),
		ticker: time.NewTicker(flushInterval),
		done:   make(chan struct{}),
	}

	p.wg.Add(1)
	go p.flusher()

	return p
}

// SaveAlert adds an alert to the batch queue
func (p *AlertPersister) SaveAlert(alert *Alert) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.queue = append(p.queue, alert)

	if len(p.queue) >= batchSize {
		p.flushLocked()
	}
}

func (p *AlertPersister) flusher() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ticker.C:
			p.mu.Lock()
			p.flushLocked()
			p.mu.Unlock()

		case <-p.done:
			p.mu.Lock()
			p.flushLocked()
			p.mu.Unlock()
			return
		}
	}
}

// flushLocked flushes the current batch to the database (must hold mutex)
func (p *AlertPersister) flushLocked() {
	if len(p.queue) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	alerts := make([]*Alert, len(p.queue))
	copy(alerts, p.queue)
	p.queue = p.queue[:0]

	if err := p.writeAlerts(ctx, alerts); err != nil {
		p.logger.Error().Err(err).Int("count", len(alerts)).Msg("Failed to persist alerts")
		return
	}

	p.logger.Debug().Int("count", len(alerts)).Msg("Persisted alerts to database")
}

func (p *AlertPersister) writeAlerts(ctx context.Context, alerts []*Alert) error {
	batch := &pgx.Batch{}

	for _, alert := range alerts {
		metadataJSON, err := json.Marshal(map[string]interface{}{
			"urgency":   alert.Urgency,
			"trend":     alert.Trend,
			"snapshot":  alert.Snapshot,
			"delivered": alert.Delivered,
		})
		if err != nil {
			p.logger.Error().Err(err).Str("symbol", alert.Symbol).Msg("Failed to marshal metadata")
			continue
		}

		sig := alert.Signal.Rounded()
		batch.Queue(insertAlertSQL,
			alert.ID,
			alert.CommittedAt,
			alert.Symbol,
			string(sig.Side),
			alert.Score,
			alert.Strong,
			sig.Entry,
			sig.TakeProfit,
			sig.StopLoss,
			sig.Strength,
			metadataJSON,
		)
	}

	if batch.Len() == 0 {
		return nil
	}

	br := p.db.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("failed to execute insert %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}
	return nil
}

// Close stops the persister and flushes remaining alerts
func (p *AlertPersister) Close() error {
	close(p.done)
	p.ticker.Stop()
	p.wg.Wait()
	return nil
}
