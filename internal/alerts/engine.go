package alerts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bl8ckfz/futures-alert-bot/internal/market"
	"github.com/bl8ckfz/futures-alert-bot/pkg/messaging"
)

// FallbackSymbols are scanned when the eligible list cannot be obtained.
var FallbackSymbols = []string{"BTCUSDT", "ETHUSDT", "BNBUSDT", "SOLUSDT", "XRPUSDT"}

// SymbolLister lists tradable symbols.
type SymbolLister interface {
	ListEligibleSymbols(ctx context.Context, minQuoteVolume float64) ([]string, error)
}

// SnapshotBatcher fetches snapshots for a batch of symbols.
type SnapshotBatcher interface {
	FetchAll(ctx context.Context, symbols []string) []market.Snapshot
}

type alertSaver interface {
	SaveAlert(alert *Alert)
}

type alertPublisher interface {
	Publish(subject string, v interface{}) error
}

// EngineConfig holds the per-tick candidate selection settings.
type EngineConfig struct {
	MinQuoteVolume float64
	MaxCandidates  int
	Location       *time.Location
}

// Engine runs one urgent-alert cycle per tick: list, fetch, screen, commit
// and publish through the sticky board.
type Engine struct {
	cfg       EngineConfig
	gate      *Gate
	board     *Board
	lister    SymbolLister
	fetcher   SnapshotBatcher
	stats     *Stats
	persister alertSaver
	publisher alertPublisher
	now       func() time.Time
	logger    zerolog.Logger
}

// NewEngine creates a new alert engine
func NewEngine(cfg EngineConfig, gate *Gate, board *Board, lister SymbolLister, fetcher SnapshotBatcher, stats *Stats, logger zerolog.Logger) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Engine{
		cfg:     cfg,
		gate:    gate,
		board:   board,
		lister:  lister,
		fetcher: fetcher,
		stats:   stats,
		now:     time.Now,
		logger:  logger.With().Str("component", "alert-engine").Logger(),
	}
}

// WithPersister records committed alerts in the audit table.
func (e *Engine) WithPersister(p alertSaver) *Engine {
	e.persister = p
	return e
}

// WithPublisher fans committed alerts out on the message bus.
func (e *Engine) WithPublisher(p alertPublisher) *Engine {
	e.publisher = p
	return e
}

// RunTick executes one alert cycle and returns the alerts it committed.
// Errors are logged; a tick with no survivors is silent.
func (e *Engine) RunTick(ctx context.Context) []Alert {
	unlock := e.gate.lockTick()
	defer unlock()

	now := e.now()
	e.gate.Prune(now)

	if e.gate.CapReached(now) {
		e.gate.recorder.GateRejected(StageHourlyCap)
		e.logger.Debug().Str("bucket", e.gate.HourBucket(now)).Msg("Hourly cap reached, skipping tick")
		return nil
	}

	symbols := e.candidateSymbols(ctx)
	snaps := e.fetcher.FetchAll(ctx, symbols)
	candidates := e.gate.Screen(now, snaps)

	e.logger.Debug().
		Int("symbols", len(symbols)).
		Int("snapshots", len(snaps)).
		Int("candidates", len(candidates)).
		Msg("Screened alert candidates")

	committed := make([]Alert, 0, len(candidates))
	for _, c := range candidates {
		if !e.gate.Commit(now, c) {
			break
		}

		alert := Alert{
			ID:          uuid.New().String(),
			Symbol:      c.Snapshot.Symbol,
			Score:       c.Urgency.Score,
			Strong:      c.Strong,
			Trend:       c.Trend.String(),
			Urgency:     c.Urgency,
			Signal:      c.Signal,
			Snapshot:    c.Snapshot,
			CommittedAt: now,
		}

		cycle := append(append([]Alert{}, committed...), alert)
		text := FormatUrgent(alert, cycle, e.cfg.Location)
		summary := FormatBoard(cycle, now.In(e.cfg.Location))
		if err := e.board.PublishWithSummary(ctx, text, summary); err != nil {
			e.logger.Error().Err(err).Str("symbol", alert.Symbol).Msg("Failed to dispatch alert")
		} else {
			alert.Delivered = true
			e.stats.AddAlerts(1)
		}

		e.logger.Info().
			Str("symbol", alert.Symbol).
			Str("side", string(alert.Signal.Side)).
			Float64("score", alert.Score).
			Bool("strong", alert.Strong).
			Bool("delivered", alert.Delivered).
			Msg("alert committed")

		committed = append(committed, alert)
		e.record(alert)
	}

	return committed
}

func (e *Engine) record(alert Alert) {
	if e.persister != nil {
		e.persister.SaveAlert(&alert)
	}
	if e.publisher != nil {
		if err := e.publisher.Publish(messaging.SubjectUrgent, alert); err != nil {
			e.logger.Warn().Err(err).Str("symbol", alert.Symbol).Msg("Failed to publish alert")
		}
	}
}

func (e *Engine) candidateSymbols(ctx context.Context) []string {
	symbols, err := e.lister.ListEligibleSymbols(ctx, e.cfg.MinQuoteVolume)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Eligible symbols unavailable, using fallback list")
	}
	if len(symbols) == 0 {
		symbols = FallbackSymbols
	}
	if e.cfg.MaxCandidates > 0 && len(symbols) > e.cfg.MaxCandidates {
		symbols = symbols[:e.cfg.MaxCandidates]
	}
	return symbols
}

// Status is the /status payload.
type Status struct {
	Gate          GateState     `json:"gate"`
	Stats         StatsSnapshot `json:"stats"`
	StickyMessage *MessageID    `json:"sticky_message_id,omitempty"`
}

// Status snapshots gate, board and counters.
func (e *Engine) Status() Status {
	st := Status{
		Gate:  e.gate.State(e.now()),
		Stats: e.stats.Snapshot(),
	}
	if id, ok := e.board.Sticky(); ok {
		st.StickyMessage = &id
	}
	return st
}
