package alerts

import (
	"strings"
	"testing"
	"time"

	"github.com/bl8ckfz/futures-alert-bot/internal/signals"
)

func TestFormatBoard(t *testing.T) {
	snap := strongUptrend("BTCUSDT")
	quiet := moderateUptrend("ETHUSDT")
	quiet.VolumeRatio = 1.5
	quiet.FundingRate = -0.0123

	out := FormatBoard([]Alert{
		{Symbol: "BTCUSDT", Score: 4.5, Snapshot: snap},
		{Symbol: "ETHUSDT", Score: 3.25, Snapshot: quiet},
	}, baseTime)

	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 lines, got %d:\n%s", len(lines), out)
	}
	if lines[1] != "• BTCUSDT | score 4.50 | Vol x3.50▲ | Funding 0.0350 (Long tilt)" {
		t.Errorf("unexpected line: %q", lines[1])
	}
	if lines[2] != "• ETHUSDT | score 3.25 | Vol x1.50 | Funding -0.0123 (Short tilt)" {
		t.Errorf("unexpected line: %q", lines[2])
	}
}

func TestFormatUrgent(t *testing.T) {
	snap := strongUptrend("BTCUSDT")
	sig, err := signals.Compose(snap)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	a := Alert{Symbol: "BTCUSDT", Score: 4.5, Signal: sig, Snapshot: snap, CommittedAt: baseTime}

	out := FormatUrgent(a, []Alert{a}, time.FixedZone("ICT", 7*3600))
	for _, want := range []string{
		"URGENT SIGNAL",
		"BTCUSDT 🟩 LONG",
		"Type: Swing (Urgent)",
		"Entry: 100\n",
		"TP: 100.9\n",
		"SL: 99.4\n",
		"Strength: ",
		"Time: 21:05 12/03/2026",
		"Prefer BUY",
		"URGENT BOARD (updated 21:05)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}
