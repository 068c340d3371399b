// Package reports builds the scheduled chat messages that sit around the
// urgent-alert engine: morning movers, the macro digest, periodic signals
// and the night summary.
package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bl8ckfz/futures-alert-bot/internal/alerts"
	"github.com/bl8ckfz/futures-alert-bot/internal/macro"
	"github.com/bl8ckfz/futures-alert-bot/internal/market"
	"github.com/bl8ckfz/futures-alert-bot/internal/signals"
)

const (
	morningGainers = 5
	scalpingSlots  = 3
)

// Sender delivers a plain message.
type Sender interface {
	Send(ctx context.Context, text string) (alerts.MessageID, error)
}

// MoverSource ranks 24h movers.
type MoverSource interface {
	TopGainers(ctx context.Context, n int) ([]market.Mover, error)
}

// Config tunes the periodic signal batch.
type Config struct {
	MinQuoteVolume float64
	SignalCount    int
	Location       *time.Location
}

// Reporter renders and sends the scheduled reports.
type Reporter struct {
	cfg      Config
	sender   Sender
	movers   MoverSource
	calendar macro.EventSource
	lister   alerts.SymbolLister
	fetcher  alerts.SnapshotBatcher
	stats    *alerts.Stats
	now      func() time.Time
	logger   zerolog.Logger
}

// NewReporter creates a reporter.
func NewReporter(cfg Config, sender Sender, movers MoverSource, calendar macro.EventSource, lister alerts.SymbolLister, fetcher alerts.SnapshotBatcher, stats *alerts.Stats, logger zerolog.Logger) *Reporter {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.SignalCount <= 0 {
		cfg.SignalCount = 5
	}
	return &Reporter{
		cfg:      cfg,
		sender:   sender,
		movers:   movers,
		calendar: calendar,
		lister:   lister,
		fetcher:  fetcher,
		stats:    stats,
		now:      time.Now,
		logger:   logger.With().Str("component", "reports").Logger(),
	}
}

// Morning sends the top 24h gainers.
func (r *Reporter) Morning(ctx context.Context) {
	gainers, err := r.movers.TopGainers(ctx, morningGainers)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Top gainers unavailable")
	}
	r.send(ctx, "morning", FormatMorning(gainers))
}

// MacroDigest sends today's tracked events with countdowns.
func (r *Reporter) MacroDigest(ctx context.Context) {
	now := r.now()
	today := macro.EventsOn(r.calendar.ListWeekEvents(ctx), now, r.cfg.Location)
	r.send(ctx, "macro", macro.FormatDigest(today, now, r.cfg.Location))
}

// PeriodicSignals sends one signal card for each of the first SignalCount
// eligible symbols. The first cards are labelled Scalping, the rest Swing.
func (r *Reporter) PeriodicSignals(ctx context.Context) int {
	symbols, err := r.lister.ListEligibleSymbols(ctx, r.cfg.MinQuoteVolume)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Eligible symbols unavailable, using fallback list")
	}
	if len(symbols) == 0 {
		symbols = alerts.FallbackSymbols
	}
	if len(symbols) > r.cfg.SignalCount {
		symbols = symbols[:r.cfg.SignalCount]
	}

	now := r.now().In(r.cfg.Location)
	sent := 0
	for _, snap := range r.fetcher.FetchAll(ctx, symbols) {
		sig, err := signals.Compose(snap)
		if err != nil {
			r.logger.Debug().Err(err).Str("symbol", snap.Symbol).Msg("Skipping signal")
			continue
		}

		kind := "Swing"
		if sent < scalpingSlots {
			kind = "Scalping"
		}
		if !r.send(ctx, "signal", alerts.FormatSignal(sig, snap, kind, now)) {
			continue
		}
		r.stats.AddSignals(1)
		sent++
	}

	r.logger.Info().Int("requested", len(symbols)).Int("sent", sent).Msg("periodic signals sent")
	return sent
}

// NightSummary sends the day's counters.
func (r *Reporter) NightSummary(ctx context.Context) {
	r.send(ctx, "summary", FormatSummary(r.stats.Snapshot()))
}

// Today renders today's events for the /today command.
func (r *Reporter) Today(ctx context.Context) string {
	now := r.now()
	return macro.FormatDigest(macro.EventsOn(r.calendar.ListWeekEvents(ctx), now, r.cfg.Location), now, r.cfg.Location)
}

// Tomorrow renders the next day's events.
func (r *Reporter) Tomorrow(ctx context.Context) string {
	now := r.now()
	day := now.In(r.cfg.Location).AddDate(0, 0, 1)
	events := macro.EventsOn(r.calendar.ListWeekEvents(ctx), day, r.cfg.Location)
	return macro.FormatTomorrow(events, now, r.cfg.Location)
}

// Week renders the whole week grouped by day.
func (r *Reporter) Week(ctx context.Context) string {
	return macro.FormatWeek(r.calendar.ListWeekEvents(ctx), r.cfg.Location)
}

func (r *Reporter) send(ctx context.Context, report, text string) bool {
	if _, err := r.sender.Send(ctx, text); err != nil {
		r.logger.Error().Err(err).Str("report", report).Msg("Failed to send report")
		return false
	}
	return true
}

// FormatMorning renders the morning movers message.
func FormatMorning(gainers []market.Mover) string {
	lines := []string{"Good morning ☀️", ""}
	if len(gainers) == 0 {
		lines = append(lines, "Top gainers are unavailable right now.")
	} else {
		lines = append(lines, fmt.Sprintf("🔥 Top %d gainers (24h):", len(gainers)))
		for _, g := range gainers {
			lines = append(lines, fmt.Sprintf("• %s ▲ %.2f%% | Volume: %s USDT", g.Symbol, g.ChangePct, groupThousands(g.QuoteVolume)))
		}
	}
	lines = append(lines, "", "📊 Funding, volume and trend follow in the periodic signals through the day.")
	return strings.Join(lines, "\n")
}

// FormatSummary renders the night summary.
func FormatSummary(s alerts.StatsSnapshot) string {
	return strings.Join([]string{
		"🌒 Session summary",
		fmt.Sprintf("• Signals sent: %d", s.SignalsSent),
		fmt.Sprintf("• Urgent alerts: %d", s.AlertsSent),
		"• Tonight: keep discipline, cut leverage when volatility spikes.",
		"",
		"🌙 Thanks for trading today. Good night!",
	}, "\n")
}

// groupThousands renders v rounded to a whole number with comma separators.
func groupThousands(v float64) string {
	digits := decimal.NewFromFloat(v).Round(0).String()
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}

	var b strings.Builder
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + b.String()
}
