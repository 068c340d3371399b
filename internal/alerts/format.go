package alerts

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bl8ckfz/futures-alert-bot/internal/market"
	"github.com/bl8ckfz/futures-alert-bot/internal/signals"
)

// boardVolumeMark flags board lines whose volume ratio is notable.
const boardVolumeMark = 1.8

const timestampLayout = "15:04 02/01/2006"

// FormatSignal renders a signal card. kind is shown as the signal type,
// e.g. "Scalping" or "Swing (Urgent)".
func FormatSignal(sig signals.Signal, snap market.Snapshot, kind string, at time.Time) string {
	sig = sig.Rounded()
	square := "🟩"
	if sig.Side == signals.SideShort {
		square = "🟥"
	}

	reasons := []string{
		"Funding=" + strconv.FormatFloat(snap.FundingRate, 'f', 4, 64),
		"Vol=x" + strconv.FormatFloat(snap.VolumeRatio, 'f', 2, 64),
		"RSI=" + strconv.FormatFloat(snap.RSI, 'f', 1, 64),
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📈 %s %s %s\n\n", sig.Symbol, square, sig.Side)
	fmt.Fprintf(&b, "Type: %s\n", kind)
	b.WriteString("Order: Market\n")
	fmt.Fprintf(&b, "Entry: %s\n", formatPrice(sig.Entry))
	fmt.Fprintf(&b, "TP: %s\n", formatPrice(sig.TakeProfit))
	fmt.Fprintf(&b, "SL: %s\n", formatPrice(sig.StopLoss))
	fmt.Fprintf(&b, "Strength: %d%% (%s)\n", sig.Strength, signals.Label(sig.Strength))
	fmt.Fprintf(&b, "Reason: %s\n", strings.Join(reasons, ", "))
	fmt.Fprintf(&b, "Time: %s", at.Format(timestampLayout))
	return b.String()
}

// FormatUrgent renders the message for one committed alert followed by the
// board of everything committed so far in the cycle.
func FormatUrgent(a Alert, cycle []Alert, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	action := "BUY"
	if a.Signal.Side == signals.SideShort {
		action = "SELL"
	}

	var b strings.Builder
	b.WriteString("⏰ URGENT SIGNAL (selected)\n\n")
	b.WriteString(FormatSignal(a.Signal, a.Snapshot, "Swing (Urgent)", a.CommittedAt.In(loc)))
	fmt.Fprintf(&b, "\n💡 Prefer %s if it holds for 1-3 candles (%s).", action, signals.FundingTilt(a.Snapshot.FundingRate))
	if len(cycle) > 0 {
		b.WriteString("\n\n")
		b.WriteString(FormatBoard(cycle, a.CommittedAt.In(loc)))
	}
	return b.String()
}

// FormatBoard renders one line per alert:
// symbol | score | volume xN | funding (tilt)
func FormatBoard(alerts []Alert, at time.Time) string {
	lines := make([]string, 0, len(alerts)+1)
	lines = append(lines, fmt.Sprintf("🔴 URGENT BOARD (updated %s)", at.Format("15:04")))
	for _, a := range alerts {
		mark := ""
		if a.Snapshot.VolumeRatio >= boardVolumeMark {
			mark = "▲"
		}
		lines = append(lines, fmt.Sprintf("• %s | score %.2f | Vol x%.2f%s | Funding %.4f (%s)",
			a.Symbol, a.Score, a.Snapshot.VolumeRatio, mark, a.Snapshot.FundingRate,
			signals.FundingTilt(a.Snapshot.FundingRate)))
	}
	return strings.Join(lines, "\n")
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
