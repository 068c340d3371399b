package macro

import (
	"fmt"
	"strings"
	"time"

	"github.com/bl8ckfz/futures-alert-bot/internal/market"
	"github.com/bl8ckfz/futures-alert-bot/internal/signals"
)

func biasLine(b Bias) string {
	switch b {
	case BiasFavorable:
		return "Bias: favorable for crypto"
	case BiasUnfavorable:
		return "Bias: unfavorable for crypto"
	default:
		return "Bias: neutral"
	}
}

func figures(e Event) string {
	parts := make([]string, 0, 3)
	if e.Actual != "" {
		parts = append(parts, "Actual "+e.Actual)
	}
	if e.Forecast != "" {
		parts = append(parts, "Forecast "+e.Forecast)
	}
	if e.Previous != "" {
		parts = append(parts, "Previous "+e.Previous)
	}
	return strings.Join(parts, " | ")
}

func referenceLines(refs []market.Snapshot) []string {
	lines := make([]string, 0, len(refs))
	for _, s := range refs {
		lines = append(lines, fmt.Sprintf("%s %s | RSI %.1f | Funding %.4f (%s) | Trend %s",
			strings.TrimSuffix(s.Symbol, "USDT"),
			formatNumber(s.LastPrice), s.RSI, s.FundingRate,
			signals.FundingTilt(s.FundingRate), signals.TrendOf(s)))
	}
	return lines
}

// FormatPreEvent renders the checkpoint announcement.
func FormatPreEvent(e Event, checkpoint int, bias Bias, refs []market.Snapshot, loc *time.Location) string {
	lines := []string{
		fmt.Sprintf("⏳ %s in %d min (%s) | Impact: %s", e.Title, checkpoint, e.Time.In(loc).Format("15:04"), e.Impact),
	}
	if f := figures(e); f != "" {
		lines = append(lines, f)
	}
	lines = append(lines, biasLine(bias))
	lines = append(lines, referenceLines(refs)...)
	lines = append(lines, "💡 Reduce risk or stay flat 5-15 min around the release.")
	return strings.Join(lines, "\n")
}

// FormatPostEvent renders the release report.
func FormatPostEvent(e Event, bias Bias, refs []market.Snapshot, loc *time.Location) string {
	lines := []string{
		fmt.Sprintf("🕯️ %s released (%s)", e.Title, e.Time.In(loc).Format("15:04")),
		figures(e),
		biasLine(bias),
	}
	lines = append(lines, referenceLines(refs)...)
	lines = append(lines, "💡 Watch funding and the 5m range; follow the move if the 15m EMA agrees.")
	return strings.Join(lines, "\n")
}

// FormatDigest renders today's schedule with countdowns.
func FormatDigest(events []Event, now time.Time, loc *time.Location) string {
	local := now.In(loc)
	header := fmt.Sprintf("📅 %s, %s", local.Weekday(), local.Format("02/01/2006"))
	return formatDay(header, "No major macro events today. Have a good trading day!", events, now, loc)
}

// FormatTomorrow renders the next day's schedule.
func FormatTomorrow(events []Event, now time.Time, loc *time.Location) string {
	day := now.In(loc).AddDate(0, 0, 1)
	header := fmt.Sprintf("📅 Tomorrow, %s %s", day.Weekday(), day.Format("02/01/2006"))
	return formatDay(header, "No major macro events tomorrow.", events, now, loc)
}

func formatDay(header, empty string, events []Event, now time.Time, loc *time.Location) string {
	if len(events) == 0 {
		return header + "\n\n" + empty
	}

	lines := []string{header, "", "🧭 Key macro events:"}
	for _, e := range events {
		line := fmt.Sprintf("• %s | %s | Impact: %s", e.Time.In(loc).Format("15:04"), e.Title, e.Impact)
		if extra := figures(e); extra != "" {
			line += " | " + extra
		}
		if left := e.Time.Sub(now); left > 0 {
			line += " | ⏳ " + formatCountdown(left)
		}
		lines = append(lines, line)
	}
	lines = append(lines, "", "💡 Stay flat 5-10 min around each release; watch funding and volume.")
	return strings.Join(lines, "\n")
}

// FormatWeek renders the week grouped by local date.
func FormatWeek(events []Event, loc *time.Location) string {
	if len(events) == 0 {
		return "No calendar data for this week."
	}

	lines := []string{"📅 This week:"}
	lastDay := ""
	for _, e := range events {
		local := e.Time.In(loc)
		day := local.Format("Mon 02/01")
		if day != lastDay {
			lines = append(lines, "", "=== "+day+" ===")
			lastDay = day
		}
		lines = append(lines, fmt.Sprintf("• %s | %s | %s", local.Format("15:04"), e.Title, e.Impact))
	}
	return strings.Join(lines, "\n")
}

func formatCountdown(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm left", h, m)
	}
	return fmt.Sprintf("%dm left", m)
}

func formatNumber(v float64) string {
	switch {
	case v >= 1000:
		return fmt.Sprintf("%.0f", v)
	case v >= 1:
		return fmt.Sprintf("%.2f", v)
	default:
		return fmt.Sprintf("%.6f", v)
	}
}
