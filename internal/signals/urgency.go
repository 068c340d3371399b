package signals

import (
	"math"

	"github.com/bl8ckfz/futures-alert-bot/internal/market"
)

// Urgency score weights.
const (
	WeightVolume     = 1.0
	WeightDivergence = 0.6
	WeightFunding    = 40.0
)

// Urgency is the composite urgency score and the parts it was built from.
type Urgency struct {
	VolumeZ    float64 `json:"volume_z"`
	Divergence float64 `json:"divergence_pct"`
	Funding    float64 `json:"abs_funding"`
	Score      float64 `json:"score"`
}

// Score computes the urgency of a snapshot. Missing inputs contribute zero.
func Score(s market.Snapshot) Urgency {
	u := Urgency{
		VolumeZ: math.Max(0, s.VolumeRatio-1),
		Funding: math.Abs(s.FundingRate),
	}
	if s.LastPrice > 0 && s.EMAFast != 0 && s.EMASlow != 0 {
		u.Divergence = math.Abs(s.EMAFast-s.EMASlow) / s.LastPrice * 100
	}
	u.Score = WeightVolume*u.VolumeZ + WeightDivergence*u.Divergence + WeightFunding*u.Funding
	return u
}

// Trend classifies the price / EMA ordering.
type Trend int

const (
	TrendAmbiguous Trend = iota
	TrendUp
	TrendDown
)

func (t Trend) String() string {
	switch t {
	case TrendUp:
		return "up"
	case TrendDown:
		return "down"
	default:
		return "ambiguous"
	}
}

// TrendOf reports a clear trend only when last, fast and slow EMA are
// strictly ordered.
func TrendOf(s market.Snapshot) Trend {
	switch {
	case s.LastPrice > s.EMAFast && s.EMAFast > s.EMASlow:
		return TrendUp
	case s.LastPrice < s.EMAFast && s.EMAFast < s.EMASlow:
		return TrendDown
	default:
		return TrendAmbiguous
	}
}

// FundingTilt describes which side is paying funding.
func FundingTilt(rate float64) string {
	switch {
	case rate > 0:
		return "Long tilt"
	case rate < 0:
		return "Short tilt"
	default:
		return "Neutral"
	}
}
