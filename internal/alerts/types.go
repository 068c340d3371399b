package alerts

import (
	"time"

	"github.com/bl8ckfz/futures-alert-bot/internal/market"
	"github.com/bl8ckfz/futures-alert-bot/internal/signals"
)

// GateConfig holds the alert gate thresholds.
type GateConfig struct {
	Cooldown   time.Duration
	MaxPerHour int

	// Coarse screen: pass on either floor.
	FundingFloor float64
	VolumeFloor  float64

	ScoreFloor float64

	// Strength gate, applied when Strict is set.
	Strict             bool
	VolumeFloorStrict  float64
	VolumeCeiling      float64
	FundingFloorStrict float64

	// Strong candidates bypass the cooldown.
	StrongScore  float64
	StrongVolume float64

	TopK int

	MinRiskReward float64
	MaxSlippage   float64

	// Location keys hour buckets; nil means UTC.
	Location *time.Location
}

// DefaultGateConfig returns the production thresholds.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		Cooldown:           60 * time.Minute,
		MaxPerHour:         3,
		FundingFloor:       0.02,
		VolumeFloor:        1.8,
		ScoreFloor:         3.0,
		Strict:             true,
		VolumeFloorStrict:  2.0,
		VolumeCeiling:      8.0,
		FundingFloorStrict: 0.01,
		StrongScore:        6.0,
		StrongVolume:       3.0,
		TopK:               2,
		MinRiskReward:      1.5,
		MaxSlippage:        0.002,
		Location:           time.UTC,
	}
}

// Candidate is a snapshot that survived screening.
type Candidate struct {
	Snapshot market.Snapshot
	Urgency  signals.Urgency
	Trend    signals.Trend
	Strong   bool
	Signal   signals.Signal
}

// Alert is a committed urgent alert.
type Alert struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol"`
	Score       float64         `json:"score"`
	Strong      bool            `json:"strong"`
	Trend       string          `json:"trend"`
	Urgency     signals.Urgency `json:"urgency"`
	Signal      signals.Signal  `json:"signal"`
	Snapshot    market.Snapshot `json:"snapshot"`
	CommittedAt time.Time       `json:"committed_at"`
	Delivered   bool            `json:"delivered"`
}

// GateState is a point-in-time view of the gate for /status.
type GateState struct {
	HourBucket     string               `json:"hour_bucket"`
	AlertsThisHour int                  `json:"alerts_this_hour"`
	MaxPerHour     int                  `json:"max_per_hour"`
	LastAlertAt    map[string]time.Time `json:"last_alert_at"`
}
